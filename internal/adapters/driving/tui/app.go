package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arah-ai/arah/internal/adapters/driving/tui/components/status"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/keymap"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/messages"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/styles"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/views/chat"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/views/documents"
	"github.com/arah-ai/arah/internal/core/domain"
)

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	chatView      *chat.View
	documentsView *documents.View
	statusBar     *status.Bar

	currentView messages.ViewType
	err         error
	width       int
	height      int
	ready       bool
}

// NewApp creates the TUI application.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, ErrMissingAnswerService
	}
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		chatView:      chat.NewView(s, ports.Answer, ports.UserID),
		documentsView: documents.NewView(s, ports.Documents, ports.UserID),
		statusBar:     status.NewBar(s, km),
		currentView:   messages.ViewChat,
	}, nil
}

// WithContext sets the context passed to every service call.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// Init initialises the application.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.chatView.Init(), a.statusBar.Init())
}

// showOutcome reflects how the pipeline ended in the status bar.
func (a *App) showOutcome(meta domain.AnswerMeta) {
	a.statusBar.Answered(meta)
	switch {
	case meta.StatusCode >= 500:
		a.statusBar.SetState(status.StateBusy)
		a.statusBar.SetMessage(fmt.Sprintf("Layanan sedang sibuk (%d), jawaban cadangan ditampilkan", meta.StatusCode))
	case meta.Validation == domain.ValidationNoGroundingEvidence:
		a.statusBar.SetState(status.StateAbstained)
		a.statusBar.SetMessage("Bukti di dokumen tidak cukup untuk menjawab")
	}
}

// Update handles all incoming messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.statusBar, cmd = a.statusBar.Update(msg)
		return a, cmd

	case messages.QuestionSubmitted:
		return a, a.statusBar.Think()

	case messages.AnswerCompleted:
		a.chatView.Update(msg)
		a.showOutcome(msg.Envelope.Meta)
		return a, nil

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		var cmd tea.Cmd
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.chatView.Abort()
		a.statusBar.Fail(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	if a.currentView == messages.ViewChat {
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if keymap.Matches(k, a.keymap.Quit) {
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewChat:
		switch {
		case keymap.Matches(k, a.keymap.Documents):
			return a, a.switchTo(messages.ViewDocuments)
		case keymap.Matches(k, a.keymap.Help):
			return a, a.switchTo(messages.ViewHelp)
		}
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.ViewDocuments:
		var cmd tea.Cmd
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ViewHelp:
		if keymap.Matches(k, a.keymap.Back) || keymap.Matches(k, a.keymap.Help) {
			return a, a.switchTo(messages.ViewChat)
		}
	}
	return a, nil
}

// switchTo changes the current view and returns its start command.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view
	switch view {
	case messages.ViewDocuments:
		a.statusBar.SetHints(a.keymap.DocumentsHelp())
		a.chatView.Prompt().Blur()
		return a.documentsView.Load()
	case messages.ViewHelp:
		a.statusBar.SetHints([]key.Binding{a.keymap.Back})
		a.chatView.Prompt().Blur()
	case messages.ViewChat:
		a.statusBar.SetHints(a.keymap.ChatHelp())
		return a.chatView.Prompt().Focus()
	}
	return nil
}

// View renders the current view with the status bar underneath.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var body string
	switch a.currentView {
	case messages.ViewChat:
		body = a.chatView.View()
	case messages.ViewDocuments:
		body = a.documentsView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	}
	return body + "\n" + a.statusBar.View()
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Bantuan"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Muted.Render("Tulis @NamaFile.pdf di pertanyaan untuk membatasi jawaban ke dokumen itu."))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.chatView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.statusBar.SetWidth(width)
}
