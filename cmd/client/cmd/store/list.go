package store

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"storesync/cmd/client/cmd/types"
	"storesync/internal/app/client"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected stores",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := cmd.Context().Value(types.ClientAppKey).(*client.App)

		stores, fromCache, err := app.ListStores(cmd.Context())
		if err != nil {
			return err
		}
		if fromCache {
			color.Yellow("Server unreachable, showing cached data")
		}

		if len(stores) == 0 {
			fmt.Println("No stores connected.")
			return nil
		}

		for _, store := range stores {
			fmt.Printf("%-36s  %-12s  %s\n", store.ID, store.Platform, store.StoreName)
		}
		return nil
	},
}
