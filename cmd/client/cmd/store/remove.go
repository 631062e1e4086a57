package store

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"storesync/cmd/client/cmd/types"
	"storesync/internal/app/client"
)

var RemoveCmd = &cobra.Command{
	Use:   "remove <store-id>",
	Short: "Disconnect a store",
	Long: `Removes the store connection and its credentials. Imported content
stays on the server until the store is reconnected or purged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cmd.Context().Value(types.ClientAppKey).(*client.App)

		if err := app.DeleteStore(cmd.Context(), args[0]); err != nil {
			return err
		}

		color.Green("Store disconnected")
		fmt.Printf("ID: %s\n", args[0])
		return nil
	},
}
