package sync

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"storesync/cmd/client/cmd/types"
	"storesync/internal/app/client"
)

var (
	pushStoreID  string
	pushProducts []string
	pushArticles []string
	pushForce    bool
)

var PushCmd = &cobra.Command{
	Use:   "push",
	Short: "Queue local edits for push to the store",
	Long: `Queues the dirty fields of the given products and articles. The push
itself runs in the background; use "sync status" to follow it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := cmd.Context().Value(types.ClientAppKey).(*client.App)

		result, err := app.Push(cmd.Context(), pushStoreID, pushProducts, pushArticles, pushForce)
		if err != nil {
			return err
		}

		if len(result.Queued) > 0 {
			color.Green("Queued %d item(s)", len(result.Queued))
			for _, item := range result.Queued {
				fmt.Printf("  %s %s  fields: %v\n", item.EntityType, item.EntityID, item.Fields)
			}
		}
		if len(result.Skipped) > 0 {
			color.Yellow("Skipped %d item(s)", len(result.Skipped))
			for _, item := range result.Skipped {
				fmt.Printf("  %s %s  %s\n", item.EntityType, item.EntityID, item.Reason)
			}
		}
		if len(result.Queued) == 0 && len(result.Skipped) == 0 {
			fmt.Println("Nothing to push.")
		}
		return nil
	},
}

func init() {
	PushCmd.Flags().StringVar(&pushStoreID, "store", "", "store connection id")
	PushCmd.Flags().StringSliceVar(&pushProducts, "products", nil, "product ids to push")
	PushCmd.Flags().StringSliceVar(&pushArticles, "articles", nil, "article ids to push")
	PushCmd.Flags().BoolVar(&pushForce, "force", false, "push even when the store copy is newer")

	_ = PushCmd.MarkFlagRequired("store")
}
