// Package status provides the status bar shown under the chat.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arah-ai/arah/internal/adapters/driving/tui/keymap"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/styles"
	"github.com/arah-ai/arah/internal/core/domain"
)

// State represents what the application is doing.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateAnswered State = "answered"
	StateError    State = "error"

	// StateAbstained means the answer declined for lack of evidence.
	StateAbstained State = "abstained"

	// StateBusy means every provider failed and a fallback answer was shown.
	StateBusy State = "busy"
)

// Bar displays the pipeline state and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model
	state   State
	message string
	meta    *domain.AnswerMeta
	hints   []key.Binding
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	return &Bar{
		styles:  s,
		keymap:  km,
		spinner: sp,
		state:   StateReady,
		hints:   km.ChatHelp(),
		width:   80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update advances the spinner while a question is in flight.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok || s.state != StateThinking {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateThinking:
		return s.spinner.View() + s.styles.Muted.Render(" Menyusun jawaban...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateAnswered:
		if s.meta != nil {
			return s.styles.Muted.Render(Summary(*s.meta))
		}
	case StateAbstained, StateBusy:
		if s.message != "" {
			return s.styles.Warning.Render(s.message)
		}
	case StateReady:
	}
	if s.message != "" {
		return s.styles.Muted.Render(s.message)
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderRight() string {
	hints := make([]string, 0, len(s.hints))
	for _, b := range s.hints {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// Summary renders the short pipeline description shown after an answer.
func Summary(m domain.AnswerMeta) string {
	parts := []string{string(m.Pipeline), string(m.Validation)}
	if m.Mode != "" {
		parts = append(parts, m.Mode)
	}
	if m.FallbackUsed {
		parts = append(parts, "fallback")
	}
	return strings.Join(parts, " · ")
}

// Think switches to the thinking state and starts the spinner.
func (s *Bar) Think() tea.Cmd {
	s.state = StateThinking
	s.message = ""
	s.meta = nil
	return s.spinner.Tick
}

// Answered records the meta of the latest answer.
func (s *Bar) Answered(meta domain.AnswerMeta) {
	s.state = StateAnswered
	s.message = ""
	s.meta = &meta
}

// Fail shows an error.
func (s *Bar) Fail(err error) {
	s.state = StateError
	s.message = ""
	if err != nil {
		s.message = err.Error()
	}
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetHints replaces the keybinding hints.
func (s *Bar) SetHints(bindings []key.Binding) {
	s.hints = bindings
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.meta = nil
}
