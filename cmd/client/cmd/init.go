package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"storesync/cmd/client/cmd/store"
	"storesync/cmd/client/cmd/sync"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the API token for this client",
	Long: `Stores the API token issued by your provisioning system. The token is
kept with owner-only permissions and sent as a bearer token on every
request.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Print("API token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		fmt.Println()

		token := strings.TrimSpace(string(raw))
		if token == "" {
			return fmt.Errorf("token must not be empty")
		}

		if err := app.SaveToken(token); err != nil {
			return err
		}

		if err := app.CheckConnection(cmd.Context()); err != nil {
			fmt.Printf("Warning: server not reachable: %v\n", err)
		} else {
			fmt.Println("Token saved, server reachable.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	rootCmd.AddCommand(store.StoreCmd)
	store.StoreCmd.AddCommand(store.ConnectCmd)
	store.StoreCmd.AddCommand(store.ListCmd)
	store.StoreCmd.AddCommand(store.RemoveCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	sync.SyncCmd.AddCommand(sync.PushCmd)
	sync.SyncCmd.AddCommand(sync.ImportCmd)
	sync.SyncCmd.AddCommand(sync.StatusCmd)
	sync.SyncCmd.AddCommand(sync.HeartbeatCmd)
}
