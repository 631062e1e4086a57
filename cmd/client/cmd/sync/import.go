package sync

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"storesync/cmd/client/cmd/types"
	"storesync/internal/app/client"
	"storesync/internal/domain/importer"
)

var (
	importStoreID string
	importRestart bool
)

var ImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a store's catalog",
	Long: `Imports products, categories and posts from the store. Large catalogs
are processed in chunks; an interrupted import resumes where it left off.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := cmd.Context().Value(types.ClientAppKey).(*client.App)

		fmt.Printf("Importing store %s...\n", importStoreID)

		job, err := app.Import(cmd.Context(), importStoreID, importRestart, func(result *importer.RunResult) {
			fmt.Printf("  chunks %d/%d done, %d item(s) imported\n",
				result.ChunksTotal-result.ChunksPending, result.ChunksTotal, result.ItemsImported)
		})
		if err != nil {
			return err
		}

		status, err := app.ImportStatus(cmd.Context(), job.ID)
		if err != nil {
			return err
		}

		color.Green("Import %s", status.Job.Status)
		fmt.Printf("Products:   %d\n", status.Job.ImportedProducts)
		fmt.Printf("Variations: %d\n", status.Job.ImportedVariations)
		fmt.Printf("Categories: %d\n", status.Job.ImportedCategories)
		fmt.Printf("Posts:      %d\n", status.Job.ImportedPosts)
		if status.Job.SEOPlugin != "" {
			fmt.Printf("SEO plugin: %s\n", status.Job.SEOPlugin)
		}
		return nil
	},
}

func init() {
	ImportCmd.Flags().StringVar(&importStoreID, "store", "", "store connection id")
	ImportCmd.Flags().BoolVar(&importRestart, "restart", false, "abandon an active import and start over")

	_ = ImportCmd.MarkFlagRequired("store")
}
