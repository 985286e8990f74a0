// Package chat provides the conversation view of the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/arah-ai/arah/internal/adapters/driving/tui/components/input"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/components/status"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/keymap"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/messages"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/styles"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// maxSnippet bounds the snippet printed under a citation.
const maxSnippet = 120

// Turn is one question and, once it arrives, its answer.
type Turn struct {
	Query     string
	RequestID string
	Envelope  *domain.AnswerEnvelope
}

// View is the chat transcript with a prompt underneath.
type View struct {
	ctx      context.Context
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	answer   driving.AnswerService
	userID   string
	prompt   *input.Prompt
	viewport viewport.Model
	turns    []Turn
	pending  bool
	newID    func() string
	width    int
	height   int
}

// NewView creates a chat view for one user.
func NewView(s *styles.Styles, answer driving.AnswerService, userID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	v := &View{
		ctx:      context.Background(),
		styles:   s,
		keymap:   keymap.DefaultKeyMap(),
		answer:   answer,
		userID:   userID,
		prompt:   input.NewPrompt(s),
		viewport: viewport.New(80, 18),
		newID:    uuid.NewString,
	}
	v.refresh()
	return v
}

// WithContext sets the context passed to the answer service.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the prompt cursor.
func (v *View) Init() tea.Cmd {
	return v.prompt.Init()
}

// Update handles keys and answer results.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)
	case messages.AnswerCompleted:
		v.complete(msg)
		return v, nil
	case tea.MouseMsg:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.ScrollUp):
		v.viewport.HalfPageUp()
		return v, nil
	case keymap.Matches(k, v.keymap.ScrollDown):
		v.viewport.HalfPageDown()
		return v, nil
	case keymap.Matches(k, v.keymap.Send):
		return v.submit()
	}

	var cmd tea.Cmd
	v.prompt, cmd = v.prompt.Update(msg)
	return v, cmd
}

// submit sends the prompt text. Only one question is in flight at a time.
func (v *View) submit() (*View, tea.Cmd) {
	query := v.prompt.Value()
	if query == "" || v.pending {
		return v, nil
	}
	reqID := v.newID()
	v.turns = append(v.turns, Turn{Query: query, RequestID: reqID})
	v.pending = true
	v.prompt.Reset()
	v.refresh()

	submitted := func() tea.Msg {
		return messages.QuestionSubmitted{Query: query, RequestID: reqID}
	}
	return v, tea.Batch(submitted, v.ask(query, reqID))
}

// ask returns a command that runs the pipeline for one question.
func (v *View) ask(query, reqID string) tea.Cmd {
	answer, ctx, userID := v.answer, v.ctx, v.userID
	return func() tea.Msg {
		if answer == nil {
			return messages.ErrorOccurred{Err: fmt.Errorf("answer service not available")}
		}
		return messages.AnswerCompleted{
			Query:    query,
			Envelope: answer.Answer(ctx, userID, query, reqID),
		}
	}
}

func (v *View) complete(msg messages.AnswerCompleted) {
	for i := len(v.turns) - 1; i >= 0; i-- {
		if v.turns[i].Envelope == nil && v.turns[i].Query == msg.Query {
			env := msg.Envelope
			v.turns[i].Envelope = &env
			break
		}
	}
	v.pending = false
	v.refresh()
}

// Abort clears the in-flight flag after a failed request.
func (v *View) Abort() {
	if !v.pending {
		return
	}
	v.pending = false
	if n := len(v.turns); n > 0 && v.turns[n-1].Envelope == nil {
		v.turns = v.turns[:n-1]
	}
	v.refresh()
}

func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render(
			"Belum ada percakapan. Sebut dokumen dengan @NamaFile untuk membatasi jawaban.")
	}

	wrap := v.width - 4
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder
	for i, t := range v.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Question.Render("Kamu: " + t.Query))
		b.WriteString("\n")
		if t.Envelope == nil {
			b.WriteString(v.styles.Muted.Render("  ..."))
			b.WriteString("\n")
			continue
		}
		b.WriteString(v.styles.Answer.Width(wrap).Render(t.Envelope.Answer))
		b.WriteString("\n")
		for n, src := range t.Envelope.Sources {
			b.WriteString(v.styles.Citation.Render(citation(n+1, src)))
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Meta.Render(status.Summary(t.Envelope.Meta)))
		b.WriteString("\n")
	}
	return b.String()
}

func citation(n int, src domain.Source) string {
	line := fmt.Sprintf("[%d] %s", n, src.Source)
	if src.Page > 0 {
		line += fmt.Sprintf(" (hal. %d)", src.Page)
	}
	if snippet := strings.TrimSpace(src.Snippet); snippet != "" {
		if r := []rune(snippet); len(r) > maxSnippet {
			snippet = string(r[:maxSnippet-3]) + "..."
		}
		line += ": " + snippet
	}
	return line
}

// View renders the transcript and the prompt.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("arah"))
	b.WriteString(v.styles.Muted.Render("  asisten akademik · " + v.userID))
	b.WriteString("\n")
	b.WriteString(v.viewport.View())
	b.WriteString("\n")
	b.WriteString(v.prompt.View())
	return b.String()
}

// SetDimensions resizes the transcript and prompt.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	// title, prompt border and status bar
	vh := height - 6
	if vh < 3 {
		vh = 3
	}
	v.viewport.Width = width
	v.viewport.Height = vh
	v.prompt.SetWidth(width)
	v.refresh()
}

// Turns returns the conversation so far.
func (v *View) Turns() []Turn {
	return v.turns
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return v.pending
}

// Prompt exposes the question prompt.
func (v *View) Prompt() *input.Prompt {
	return v.prompt
}
