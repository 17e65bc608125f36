package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/chat"
	"github.com/existflow/devpilot/internal/model"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant about your projects",
	Long: `Chat with the assistant. Every message is sent together with a summary
of your projects and the last few messages of the conversation.

Asking for a "daily briefing" or a "reminder" generates notifications
instead of a chat reply; asking to "schedule" it turns on the daily run.

Examples:
  devpilot chat send "What should I work on this afternoon?"
  devpilot chat send --project storefront "What is blocking the launch?"
  devpilot chat quick prioritize`,
}

var chatNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatNew,
}

var chatSendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a message to the current conversation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChatSend,
}

var chatQuickCmd = &cobra.Command{
	Use:   "quick [prompt]",
	Short: "Send a canned request (analysis, prioritize, report, ...)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatQuick,
}

var chatListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List conversations",
	RunE:    runChatList,
}

var chatShowCmd = &cobra.Command{
	Use:   "show [session]",
	Short: "Print a conversation (the current one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatShow,
}

var chatUseCmd = &cobra.Command{
	Use:   "use [session]",
	Short: "Switch the current conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatUse,
}

var chatDeleteCmd = &cobra.Command{
	Use:     "delete [session]",
	Aliases: []string{"rm"},
	Short:   "Delete a conversation",
	Args:    cobra.ExactArgs(1),
	RunE:    runChatDelete,
}

var chatClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every message from the current conversation",
	RunE:  runChatClear,
}

var chatExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write every conversation as JSON (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatExport,
}

var chatImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace every conversation with an export",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatImport,
}

var chatProject string

func init() {
	for _, c := range []*cobra.Command{chatNewCmd, chatSendCmd, chatQuickCmd} {
		c.Flags().StringVarP(&chatProject, "project", "P", "", "Focus the conversation on a project")
	}

	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatSendCmd)
	chatCmd.AddCommand(chatQuickCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatUseCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	chatCmd.AddCommand(chatClearCmd)
	chatCmd.AddCommand(chatExportCmd)
	chatCmd.AddCommand(chatImportCmd)
}

// chatFocus resolves --project or the default project to an id
func chatFocus(cmd *cobra.Command, app *App) (string, error) {
	ref := projectRefOr(app.State, chatProject)
	if ref == "" {
		return "", nil
	}
	p, err := app.DB.FindProject(cmd.Context(), ref)
	if err != nil {
		if chatProject == "" {
			// ignore a stale default project
			return "", nil
		}
		return "", err
	}
	return p.ID, nil
}

func runChatNew(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	projectID, err := chatFocus(cmd, app)
	if err != nil {
		return err
	}
	title := ""
	if len(args) == 1 {
		title = args[0]
	}
	sess, err := app.Chat.NewSession(title, projectID)
	if err != nil {
		return err
	}
	fmt.Printf("💬 Started: %s (id: %s)\n", sess.Title, shortID(sess.ID))
	return nil
}

func sendChat(cmd *cobra.Command, message string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireAPIKey(); err != nil {
		return err
	}
	projectID, err := chatFocus(cmd, app)
	if err != nil {
		return err
	}
	projects, err := app.DB.ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println("🤖 Thinking...")
	reply, err := app.Chat.Send(cmd.Context(), message, projects, projectID)
	if err != nil {
		if errors.Is(err, chat.ErrStaleReply) {
			return fmt.Errorf("the conversation changed before the reply arrived")
		}
		return err
	}
	fmt.Println()
	fmt.Println(reply)
	fmt.Println()
	return nil
}

func runChatSend(cmd *cobra.Command, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return sendChat(cmd, message)
}

func runChatQuick(cmd *cobra.Command, args []string) error {
	names := make([]string, 0, len(chat.QuickPrompts))
	for name := range chat.QuickPrompts {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(args) == 0 {
		for _, name := range names {
			fmt.Printf("  %-14s %s\n", name, chat.QuickPrompts[name])
		}
		return nil
	}

	prompt, ok := chat.QuickPrompts[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown quick prompt %q (one of: %s)", args[0], strings.Join(names, ", "))
	}
	return sendChat(cmd, prompt)
}

func runChatList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sessions := app.Chat.Sessions()
	if len(sessions) == 0 {
		fmt.Println("No conversations yet. Try 'devpilot chat send \"...\"'.")
		return nil
	}

	current, _ := app.Chat.Current()
	now := time.Now()
	fmt.Println()
	for _, s := range sessions {
		marker := "  "
		if s.ID == current.ID {
			marker = "❯ "
		}
		fmt.Printf("%s%-8s  %-32s  %3d messages  %s\n",
			marker, shortID(s.ID), truncate(s.Title, 32), len(s.Messages), relativeTime(s.UpdatedAt, now))
	}
	fmt.Println()
	return nil
}

func runChatShow(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var sess model.ChatSession
	if len(args) == 1 {
		if sess, err = app.Chat.Session(args[0]); err != nil {
			return err
		}
	} else {
		var ok bool
		if sess, ok = app.Chat.Current(); !ok {
			fmt.Println("No current conversation.")
			return nil
		}
	}

	fmt.Printf("\n💬 %s\n\n", sess.Title)
	for _, m := range sess.Messages {
		who := "You"
		if m.Role == model.RoleAssistant {
			who = "Assistant"
		}
		fmt.Printf("%s  (%s)\n%s\n\n", who, m.Timestamp.Local().Format("Jan 2 15:04"), m.Content)
	}
	if len(sess.Messages) == 0 {
		fmt.Println("(no messages)")
	}
	return nil
}

func runChatUse(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Chat.SetCurrent(args[0]); err != nil {
		return err
	}
	sess, _ := app.Chat.Current()
	fmt.Printf("💬 Switched to: %s\n", sess.Title)
	return nil
}

func runChatDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.Chat.Session(args[0])
	if err != nil {
		return err
	}
	if err := app.Chat.DeleteSession(sess.ID); err != nil {
		return err
	}
	fmt.Printf("🗑️  Deleted: %s\n", sess.Title)
	return nil
}

func runChatClear(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Chat.ClearCurrent(); err != nil {
		return err
	}
	fmt.Println("🧹 Conversation cleared")
	return nil
}

func runChatExport(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	data, err := app.Chat.Export()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Println(data)
		return nil
	}
	if err := os.WriteFile(args[0], []byte(data), 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Printf("✓ Exported %d conversations to %s\n", len(app.Chat.Sessions()), args[0])
	return nil
}

func runChatImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Chat.Import(string(data)); err != nil {
		return err
	}
	fmt.Printf("✓ Imported %d conversations\n", len(app.Chat.Sessions()))
	return nil
}
