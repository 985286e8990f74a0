package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arah-ai/arah/internal/core/domain"
)

var (
	askRequestID string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question about your documents",
	Long: `Runs the full answering pipeline for a single question.

Mention a document with @Title (for example @KRS.pdf) to restrict the
answer to it. Use --json to print the answer envelope with its metadata.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askRequestID, "request-id", "", "request id recorded in metrics (default random)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer envelope as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	user, err := requireUser()
	if err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	reqID := strings.TrimSpace(askRequestID)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	env := answerService.Answer(cmd.Context(), user, query, reqID)

	if askJSON {
		return outputAnswerJSON(cmd, env)
	}
	outputAnswer(cmd.OutOrStdout(), env, isTerminal(cmd.OutOrStdout()))
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, env domain.AnswerEnvelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

var (
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0EA5E9"))
	metaStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#64748B"))
)

// outputAnswer prints the answer, its citations and a one-line summary.
// Colour is applied only when writing to a terminal.
func outputAnswer(w io.Writer, env domain.AnswerEnvelope, styled bool) {
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	fmt.Fprintln(w, env.Answer)
	if len(env.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sumber:")
		for i, src := range env.Sources {
			line := fmt.Sprintf("  [%d] %s", i+1, src.Source)
			if src.Page > 0 {
				line += fmt.Sprintf(" (hal. %d)", src.Page)
			}
			fmt.Fprintln(w, render(sourceStyle, line))
		}
	}

	m := env.Meta
	fmt.Fprintln(w)
	fmt.Fprintln(w, render(metaStyle, fmt.Sprintf(
		"pipeline=%s route=%s validation=%s mode=%s status=%d",
		m.Pipeline, m.IntentRoute, m.Validation, m.AnswerMode, m.StatusCode,
	)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
