// Package input provides the question prompt for the chat view.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arah-ai/arah/internal/adapters/driving/tui/styles"
)

// MaxQuestionLength bounds a single question.
const MaxQuestionLength = 1000

// Prompt wraps a bubbles textinput for entering questions.
type Prompt struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewPrompt creates a focused question prompt.
func NewPrompt(s *styles.Styles) *Prompt {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Tanya tentang dokumenmu, mis. jadwal hari senin atau @KRS.pdf"
	ti.Prompt = "› "
	ti.CharLimit = MaxQuestionLength
	ti.Focus()

	p := &Prompt{textinput: ti, styles: s}
	p.SetWidth(80)
	return p
}

// Init starts the cursor blink.
func (p *Prompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	var cmd tea.Cmd
	p.textinput, cmd = p.textinput.Update(msg)
	return p, cmd
}

// View renders the prompt.
func (p *Prompt) View() string {
	return p.styles.Prompt.Width(p.width - 2).Render(p.textinput.View())
}

// Value returns the trimmed question text.
func (p *Prompt) Value() string {
	return strings.TrimSpace(p.textinput.Value())
}

// SetValue replaces the prompt text.
func (p *Prompt) SetValue(value string) {
	p.textinput.SetValue(value)
}

// Reset clears the prompt.
func (p *Prompt) Reset() {
	p.textinput.Reset()
}

// Focus gives the prompt keyboard focus.
func (p *Prompt) Focus() tea.Cmd {
	return p.textinput.Focus()
}

// Blur removes focus.
func (p *Prompt) Blur() {
	p.textinput.Blur()
}

// Focused reports whether the prompt has focus.
func (p *Prompt) Focused() bool {
	return p.textinput.Focused()
}

// SetWidth resizes the prompt, leaving room for the border.
func (p *Prompt) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	p.width = width
	p.textinput.Width = width - 6
}
