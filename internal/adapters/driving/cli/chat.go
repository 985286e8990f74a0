package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/arah-ai/arah/internal/adapters/driving/tui"
	"github.com/arah-ai/arah/internal/logger"
)

// chatLogName is the file verbose logs go to while the chat owns the screen.
const chatLogName = "arah-chat.log"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Opens the terminal chat interface for the selected user.

Controls:
  Enter      - Send question
  PgUp/PgDn  - Scroll the conversation
  Tab        - Show your documents
  F1         - Help
  Esc        - Back
  Ctrl+C     - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("chat crashed: %v", r)
		}
	}()

	if answerService == nil {
		return errors.New("answer service not configured")
	}
	user, err := requireUser()
	if err != nil {
		return err
	}

	app, err := tui.NewApp(tui.NewPorts(answerService, documentService, user))
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	restore := quietLogs()
	defer restore()
	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}

// quietLogs keeps log lines off the full-screen chat. In verbose mode they
// are appended to chatLogName in the temp dir.
func quietLogs() (restore func()) {
	var out io.Writer = io.Discard
	var f *os.File
	if logger.IsVerbose() {
		path := filepath.Join(os.TempDir(), chatLogName)
		var err error
		if f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
			out = f
		}
	}
	logger.SetOutput(out)
	return func() {
		logger.SetOutput(os.Stderr)
		if f != nil {
			_ = f.Close()
		}
	}
}
