package sync

import (
	"github.com/spf13/cobra"
)

// SyncCmd is the parent command for sync operations.
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync content with stores",
	Long:  `Import store catalogs, push local edits and inspect sync state.`,
}
