package cli

import (
	"context"
	"fmt"

	"github.com/existflow/devpilot/internal/localstate"
	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage the default project",
	Long: `Set or view the default project.

When a default project is set, 'task add' and 'chat send' use it unless
--project is given.

Examples:
  devpilot context              # Show the default project
  devpilot context set storefront
  devpilot context clear`,
	RunE: runContextShow,
}

var contextSetCmd = &cobra.Command{
	Use:   "set [project]",
	Short: "Set the default project",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextSet,
}

var contextClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the default project",
	RunE:  runContextClear,
}

func init() {
	contextCmd.AddCommand(contextSetCmd)
	contextCmd.AddCommand(contextClearCmd)
}

// currentContext returns the default project id, empty when unset
func currentContext(state localstate.Store) string {
	return localstate.String(state, localstate.KeyDefaultProject, "")
}

// projectRefOr returns the flag value, falling back to the default project
func projectRefOr(state localstate.Store, flag string) string {
	if flag != "" {
		return flag
	}
	return currentContext(state)
}

func runContextShow(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	id := currentContext(app.State)
	if id == "" {
		fmt.Println("📥 No default project set")
		return nil
	}

	project, err := app.DB.GetProject(context.Background(), id)
	if err != nil {
		fmt.Printf("⚠️  Default project '%s' not found\n", id)
		return nil
	}

	fmt.Printf("📁 Default project: %s (%d/%d tasks open)\n",
		project.Name, project.ActiveTaskCount(), len(project.Tasks))
	return nil
}

func runContextSet(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	project, err := app.DB.FindProject(context.Background(), args[0])
	if err != nil {
		return err
	}

	if err := app.State.Set(localstate.KeyDefaultProject, project.ID); err != nil {
		return fmt.Errorf("failed to set default project: %w", err)
	}

	fmt.Printf("📁 Switched to: %s\n", project.Name)
	return nil
}

func runContextClear(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.State.Delete(localstate.KeyDefaultProject); err != nil {
		return fmt.Errorf("failed to clear default project: %w", err)
	}
	fmt.Println("📥 Default project cleared")
	return nil
}
