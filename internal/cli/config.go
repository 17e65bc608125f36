package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/devpilot/internal/config"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting in config.yaml.

Keys: editor, confirm_delete, log_level, log_file, db_path, gemini_endpoint,
gemini_model, gemini_timeout, daily_time, recheck_period, metrics_addr`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [api-key]",
	Short: "Store the assistant API key",
	Long: `Store the API key used for the assistant. When no argument is given
the key is read without echo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigSetKey,
}

var configTestKeyCmd = &cobra.Command{
	Use:   "test-key",
	Short: "Check that the stored API key is accepted",
	RunE:  runConfigTestKey,
}

var configRemoveKeyCmd = &cobra.Command{
	Use:   "remove-key",
	Short: "Forget the stored API key",
	RunE:  runConfigRemoveKey,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configTestKeyCmd)
	configCmd.AddCommand(configRemoveKeyCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	path, _ := config.Path()
	fmt.Printf("# %s\n%s", path, data)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("✓ %s = %s\n", args[0], args[1])
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		key = readPassword("API key: ")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.State.Set(localstate.KeyAPIKey, key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	fmt.Println("🔑 API key saved. Run 'devpilot config test-key' to check it.")
	return nil
}

func runConfigTestKey(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireAPIKey(); err != nil {
		return err
	}

	fmt.Println("🔄 Contacting the assistant...")
	ok, err := app.Gemini.Ping(cmd.Context())
	if !ok {
		return fmt.Errorf("API key rejected: %w", err)
	}
	fmt.Println("✅ API key works")
	return nil
}

func runConfigRemoveKey(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.State.Delete(localstate.KeyAPIKey); err != nil {
		return err
	}
	fmt.Println("🔑 API key removed")
	return nil
}
