package store

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"storesync/cmd/client/cmd/types"
	"storesync/internal/app/client"
)

var (
	connectName     string
	connectPlatform string
	connectAPIURL   string
	connectKey      string
	connectBlogURL  string
	connectBlogUser string
)

var ConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a store",
	Long: `Connects a WooCommerce or Shopify store. Secrets are prompted, never
passed as flags, so they stay out of the shell history.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := cmd.Context().Value(types.ClientAppKey).(*client.App)

		req := client.ConnectStoreRequest{
			StoreName: connectName,
			Platform:  connectPlatform,
			APIURL:    connectAPIURL,
			BlogURL:   connectBlogURL,
			BlogUser:  connectBlogUser,
		}

		switch connectPlatform {
		case "woocommerce":
			req.ConsumerKey = connectKey
			secret, err := promptSecret("Consumer secret: ")
			if err != nil {
				return err
			}
			req.ConsumerSecret = secret
		case "shopify":
			token, err := promptSecret("Admin API access token: ")
			if err != nil {
				return err
			}
			req.AccessToken = token
		default:
			return fmt.Errorf("unsupported platform %q, expected woocommerce or shopify", connectPlatform)
		}

		if connectBlogUser != "" {
			password, err := promptSecret("WordPress application password: ")
			if err != nil {
				return err
			}
			req.BlogPassword = password
		}

		id, err := app.ConnectStore(cmd.Context(), req)
		if err != nil {
			return err
		}

		color.Green("Store connected")
		fmt.Printf("ID: %s\n", id)
		return nil
	},
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(raw), nil
}

func init() {
	ConnectCmd.Flags().StringVar(&connectName, "name", "", "display name for the store")
	ConnectCmd.Flags().StringVar(&connectPlatform, "platform", "", "store platform: woocommerce or shopify")
	ConnectCmd.Flags().StringVar(&connectAPIURL, "url", "", "base URL of the store")
	ConnectCmd.Flags().StringVar(&connectKey, "key", "", "WooCommerce REST consumer key")
	ConnectCmd.Flags().StringVar(&connectBlogURL, "blog-url", "", "WordPress URL when it differs from the store URL")
	ConnectCmd.Flags().StringVar(&connectBlogUser, "blog-user", "", "WordPress user for post sync")

	_ = ConnectCmd.MarkFlagRequired("name")
	_ = ConnectCmd.MarkFlagRequired("platform")
	_ = ConnectCmd.MarkFlagRequired("url")
}
