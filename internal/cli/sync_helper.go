package cli

import (
	"context"
	"fmt"

	"github.com/existflow/devpilot/internal/db"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/sync"
)

var syncAfterChange bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&syncAfterChange, "sync", false, "Sync with the server after changes")
}

// MaybeSyncAfterChange pushes local edits when --sync is set and a
// session exists. Failures are reported but never fail the command.
func MaybeSyncAfterChange(ctx context.Context, database *db.DB) {
	if !syncAfterChange {
		return
	}
	client, err := sync.NewClient()
	if err != nil || !client.IsLoggedIn() {
		fmt.Println("⚠️  Not logged in, skipping sync")
		return
	}

	fmt.Println("🔄 Syncing changes...")
	result, err := client.Sync(ctx, database, sync.SyncModeMerge)
	if err != nil {
		logger.Warn("Sync after change failed", logger.Err(err))
		fmt.Printf("⚠️  Sync failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Synced (↑%d ↓%d)\n", result.Pushed, result.Pulled)
}
