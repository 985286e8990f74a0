// Package documents provides the document list view of the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arah-ai/arah/internal/adapters/driving/tui/keymap"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/messages"
	"github.com/arah-ai/arah/internal/adapters/driving/tui/styles"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// View lists the user's documents and lets them remove one.
type View struct {
	ctx             context.Context
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	documentService driving.DocumentService
	userID          string

	documents    []domain.Document
	selected     int
	scrollOffset int
	confirming   bool
	loading      bool
	err          error
	width        int
	height       int
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, documentService driving.DocumentService, userID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		ctx:             context.Background(),
		styles:          s,
		keymap:          keymap.DefaultKeyMap(),
		documentService: documentService,
		userID:          userID,
		documents:       []domain.Document{},
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load resets the view and returns a command that fetches the documents.
func (v *View) Load() tea.Cmd {
	v.loading = true
	v.confirming = false
	v.err = nil
	svc, ctx, userID := v.documentService, v.ctx, v.userID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: fmt.Errorf("document service not available")}
		}
		docs, err := svc.List(ctx, userID)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) deleteSelected() tea.Cmd {
	doc := v.SelectedDocument()
	if doc == nil {
		return nil
	}
	svc, ctx, userID, docID := v.documentService, v.ctx, v.userID, doc.ID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentDeleted{DocumentID: docID, Err: fmt.Errorf("document service not available")}
		}
		return messages.DocumentDeleted{DocumentID: docID, Err: svc.Delete(ctx, userID, docID)}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.confirming {
			return v.handleConfirmKey(msg)
		}
		return v.handleKey(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.documents = msg.Documents
		v.err = nil
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.Load()
	}

	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Delete):
		if len(v.documents) > 0 {
			v.confirming = true
		}
	case keymap.Matches(k, v.keymap.Reload):
		return v, v.Load()
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewChat}
		}
	}
	return v, nil
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.confirming = false
	switch msg.String() {
	case "y", "Y":
		return v, v.deleteSelected()
	}
	return v, nil
}

// adjustScroll keeps the selected row visible.
func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// title, column header, footer and status bar
	available := v.height - 7
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Dokumen (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Memuat dokumen..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("Belum ada dokumen. Gunakan `arah ingest` untuk menambahkan."))
	default:
		b.WriteString(v.renderList())
	}

	b.WriteString("\n\n")
	if v.confirming {
		if doc := v.SelectedDocument(); doc != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Hapus %s? [y/N]", doc.Title)))
			return b.String()
		}
	}
	b.WriteString(v.styles.Help.Render("[↑/↓] pilih  [d] hapus  [r] muat ulang  [esc] kembali"))
	return b.String()
}

func (v *View) renderList() string {
	var b strings.Builder
	titleWidth := v.width/2 - 4
	if titleWidth < 16 {
		titleWidth = 16
	}

	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("  %-*s  %-10s  %s", titleWidth, "Judul", "Jenis", "Chunk")))
	b.WriteString("\n")

	visible := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visible; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i], titleWidth))
		b.WriteString("\n")
	}

	if len(v.documents) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visible, len(v.documents)),
			len(v.documents))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *View) renderDocument(index int, doc *domain.Document, titleWidth int) string {
	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	if r := []rune(title); len(r) > titleWidth {
		title = string(r[:titleWidth-3]) + "..."
	}

	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}
	line := fmt.Sprintf("%s%-*s  %-10s  %d", indicator, titleWidth, title, doc.DocType, doc.ChunkCount)
	if index == v.selected {
		return v.styles.Selected.Render(line)
	}
	return v.styles.Normal.Render(line)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// SelectedDocument returns the highlighted document.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// Confirming reports whether a delete confirmation is shown.
func (v *View) Confirming() bool {
	return v.confirming
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
