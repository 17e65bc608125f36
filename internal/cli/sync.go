package cli

import (
	"fmt"

	"github.com/existflow/devpilot/internal/sync"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync projects with the server",
	Long: `Sync your projects across devices.

Commands:
  devpilot sync              # Push local changes, then pull remote ones
  devpilot sync --pull       # Replace local projects with the server copy
  devpilot sync status       # Show sync status
  devpilot sync key          # Set up end-to-end encryption`,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE:  runSyncStatus,
}

var syncKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Set, show, import or disable the encryption key",
	Long: `Manage the key that encrypts projects before they leave this device.

Examples:
  devpilot sync key                 # Derive a key from a passphrase
  devpilot sync key --show          # Print the key to copy to another device
  devpilot sync key --import <key>  # Use a key exported from another device
  devpilot sync key --disable       # Upload plaintext from now on`,
	RunE: runSyncKey,
}

var syncConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure sync settings",
	RunE:  runSyncConfig,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncKeyCmd)
	syncCmd.AddCommand(syncConfigCmd)

	syncCmd.Flags().Bool("pull", false, "Force sync from remote (replaces local)")
	syncCmd.Flags().Bool("push", false, "Force sync from local (replaces remote)")

	syncKeyCmd.Flags().Bool("show", false, "Print the stored key")
	syncKeyCmd.Flags().String("import", "", "Store a key exported from another device")
	syncKeyCmd.Flags().Bool("disable", false, "Forget the key and stop encrypting")

	syncConfigCmd.Flags().String("server", "", "Set server URL")
}

func runSync(cmd *cobra.Command, args []string) error {
	client, err := sync.NewClient()
	if err != nil {
		return err
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	mode := sync.SyncModeMerge
	pull, _ := cmd.Flags().GetBool("pull")
	push, _ := cmd.Flags().GetBool("push")

	if pull && push {
		return fmt.Errorf("cannot use both --pull and --push")
	}

	if pull {
		mode = sync.SyncModeRemoteToLocal
		fmt.Println("⚠️  Forcing sync from remote (replacing local data)...")
	} else if push {
		mode = sync.SyncModeLocalToRemote
		fmt.Println("⚠️  Forcing sync from local (replacing remote data)...")
	} else {
		fmt.Println("🔄 Synchronizing...")
	}

	result, err := client.Sync(cmd.Context(), app.DB, mode)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("✓ Sync complete! Pushed: %d, Pulled: %d\n", result.Pushed, result.Pulled)
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	client, err := sync.NewClient()
	if err != nil {
		return err
	}

	st := client.Status()
	fmt.Printf("Server:     %s\n", st.ServerURL)
	if st.LoggedIn {
		fmt.Printf("User:       %s (%s)\n", st.Username, st.UserID)
		fmt.Printf("Version:    %d\n", st.LastSync)
		fmt.Println("Status:     ✓ Logged in")
	} else {
		fmt.Println("Status:     Not logged in")
	}
	if st.Encrypted {
		fmt.Printf("Encryption: 🔒 on (key %s)\n", st.Fingerprint)
	} else {
		fmt.Println("Encryption: off")
	}

	return nil
}

func runSyncKey(cmd *cobra.Command, args []string) error {
	client, err := sync.NewClient()
	if err != nil {
		return err
	}

	show, _ := cmd.Flags().GetBool("show")
	imported, _ := cmd.Flags().GetString("import")
	disable, _ := cmd.Flags().GetBool("disable")

	switch {
	case disable:
		if err := client.DisableEncryption(); err != nil {
			return err
		}
		fmt.Println("🔓 Encryption disabled. Projects are uploaded as plain JSON.")
		return requeueProjects(cmd)

	case show:
		key := client.ExportKey()
		if key == "" {
			fmt.Println("No encryption key set. Run 'devpilot sync key' to create one.")
			return nil
		}
		fmt.Printf("Encryption Key: %s\n", key)
		return nil

	case imported != "":
		fp, err := client.ImportKey(imported)
		if err != nil {
			return fmt.Errorf("invalid key: %w", err)
		}
		fmt.Printf("🔒 Key imported (fingerprint %s)\n", fp)
		return nil
	}

	passphrase := readPassword("Enter encryption passphrase: ")
	if confirmation := readPassword("Confirm passphrase: "); confirmation != passphrase {
		return fmt.Errorf("passphrases do not match")
	}

	fp, err := client.SetPassphrase(passphrase)
	if err != nil {
		return err
	}
	fmt.Printf("\n✓ Encryption key generated (fingerprint %s)\n", fp)
	fmt.Println("⚠️  IMPORTANT: run 'devpilot sync key --show' and keep the key. Other devices need it to read your projects.")
	return requeueProjects(cmd)
}

// requeueProjects marks every project for upload so the server copy
// follows the new encryption setting
func requeueProjects(cmd *cobra.Command) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()
	return app.DB.MarkAllDirty(cmd.Context())
}

func runSyncConfig(cmd *cobra.Command, args []string) error {
	client, err := sync.NewClient()
	if err != nil {
		return err
	}

	server, _ := cmd.Flags().GetString("server")
	if server != "" {
		if err := client.SetServer(server); err != nil {
			return err
		}
		fmt.Printf("✓ Server set to: %s\n", client.Status().ServerURL)
		return nil
	}

	st := client.Status()
	fmt.Printf("Server: %s\n", st.ServerURL)
	if st.LastSync > 0 {
		fmt.Printf("Pulled up to version %d\n", st.LastSync)
	}
	return nil
}
