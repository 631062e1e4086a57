package sync

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"storesync/cmd/client/cmd/types"
	"storesync/internal/app/client"
)

var (
	heartbeatStoreID string
	heartbeatCheck   bool
	heartbeatReset   bool
)

var HeartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Show or drive store reconciliation",
	Long: `Shows the reconciliation state for a store. With --check the store is
checked immediately; with --reset a suspended store resumes checking.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := cmd.Context().Value(types.ClientAppKey).(*client.App)

		if heartbeatReset {
			if err := app.ResetHeartbeat(cmd.Context(), heartbeatStoreID); err != nil {
				return err
			}
			color.Green("Failure count cleared, checks resume")
			return nil
		}

		if heartbeatCheck {
			result, err := app.ForceHeartbeatCheck(cmd.Context(), heartbeatStoreID)
			if err != nil {
				return err
			}
			if result.Failed {
				color.Red("Check failed")
			} else {
				color.Green("Check done")
			}
			fmt.Printf("Updated:   %d\n", result.Updated)
			fmt.Printf("Conflicts: %d\n", result.Conflicts)
			fmt.Printf("Skipped:   %d\n", result.Skipped)
			return nil
		}

		hb, err := app.Heartbeat(cmd.Context(), heartbeatStoreID)
		if err != nil {
			return err
		}

		fmt.Printf("Checkpoint:  %s\n", hb.Checkpoint)
		fmt.Printf("Last check:  %s\n", hb.LastCheckAt)
		if hb.ConsecutiveFailures > 0 {
			color.Yellow("Failures:    %d", hb.ConsecutiveFailures)
			if hb.LastError != "" {
				fmt.Printf("Last error:  %s\n", hb.LastError)
			}
		} else {
			fmt.Println("Failures:    0")
		}
		return nil
	},
}

func init() {
	HeartbeatCmd.Flags().StringVar(&heartbeatStoreID, "store", "", "store connection id")
	HeartbeatCmd.Flags().BoolVar(&heartbeatCheck, "check", false, "check the store now")
	HeartbeatCmd.Flags().BoolVar(&heartbeatReset, "reset", false, "clear the failure count")

	_ = HeartbeatCmd.MarkFlagRequired("store")
}
