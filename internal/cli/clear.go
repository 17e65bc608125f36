package cli

import (
	"fmt"

	"github.com/existflow/devpilot/internal/sync"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all projects",
	Long: `Clear all projects from the local database or/and the sync server.
By default, it only clears the local database unless --remote or --all is specified.
Notifications and chat history are kept.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().Bool("local", true, "Clear local data (default)")
	clearCmd.Flags().Bool("remote", false, "Clear remote data on the sync server")
	clearCmd.Flags().Bool("all", false, "Clear both local and remote data")
	clearCmd.Flags().Bool("force", false, "Do not ask for confirmation")
}

func runClear(cmd *cobra.Command, args []string) error {
	local, _ := cmd.Flags().GetBool("local")
	remote, _ := cmd.Flags().GetBool("remote")
	all, _ := cmd.Flags().GetBool("all")
	force, _ := cmd.Flags().GetBool("force")

	if all {
		local = true
		remote = true
	}

	if !force && !confirm("Are you sure you want to clear data?") {
		fmt.Println("Aborted.")
		return nil
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := sync.NewClient()
	if err != nil {
		return err
	}

	if local {
		fmt.Println("🧹 Clearing local data...")
		if err := app.DB.ClearProjects(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Local data cleared.")
	}

	if remote {
		if !client.IsLoggedIn() {
			fmt.Println("Skipping remote clear: not logged in.")
		} else {
			fmt.Println("🌐 Clearing remote data...")
			if err := client.ClearRemote(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear remote data: %w", err)
			}
			fmt.Println("Remote data cleared.")
		}
	}

	return nil
}
