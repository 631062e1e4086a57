package sync

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"storesync/cmd/client/cmd/types"
	"storesync/internal/app/client"
)

var (
	statusStoreID string
	statusFilter  string
	statusLimit   int
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue state for a store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := cmd.Context().Value(types.ClientAppKey).(*client.App)

		stats, err := app.QueueStats(cmd.Context(), statusStoreID)
		if err != nil {
			return err
		}

		fmt.Printf("Pending:     %d\n", stats.Pending)
		fmt.Printf("Processing:  %d\n", stats.Processing)
		fmt.Printf("Completed:   %d\n", stats.Completed)
		if stats.DeadLetter > 0 {
			color.Red("Dead letter: %d", stats.DeadLetter)
		} else {
			fmt.Printf("Dead letter: %d\n", stats.DeadLetter)
		}

		if statusFilter == "" {
			return nil
		}

		jobs, err := app.ListJobs(cmd.Context(), statusStoreID, statusFilter, statusLimit)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Printf("\nNo %s jobs.\n", statusFilter)
			return nil
		}

		fmt.Println()
		for _, job := range jobs {
			line := fmt.Sprintf("%-36s  %-8s %-36s  attempts %d/%d",
				job.ID, job.EntityType, job.EntityID, job.AttemptCount, job.MaxAttempts)
			if job.LastError != "" {
				line += "  " + job.LastError
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	StatusCmd.Flags().StringVar(&statusStoreID, "store", "", "store connection id")
	StatusCmd.Flags().StringVar(&statusFilter, "jobs", "", "also list jobs with this status: pending, processing, completed, dead_letter")
	StatusCmd.Flags().IntVar(&statusLimit, "limit", 50, "maximum number of jobs to list")

	_ = StatusCmd.MarkFlagRequired("store")
}
