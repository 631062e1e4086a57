package store

import (
	"github.com/spf13/cobra"
)

// StoreCmd is the parent command for store connection management.
var StoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage store connections",
	Long:  `Connect, list and remove external store connections.`,
}
