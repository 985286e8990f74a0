// Package messages defines the tea.Msg types exchanged between TUI components.
package messages

import (
	"github.com/arah-ai/arah/internal/core/domain"
)

// ViewType identifies a top-level view.
type ViewType int

const (
	// ViewChat is the conversation view.
	ViewChat ViewType = iota
	// ViewDocuments lists the user's documents.
	ViewDocuments
	// ViewHelp shows keybindings.
	ViewHelp
)

// String returns the view name.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	}
	return "unknown"
}

// ViewChanged requests a switch to another view.
type ViewChanged struct {
	View ViewType
}

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Query     string
	RequestID string
}

// AnswerCompleted carries the pipeline result for a question.
type AnswerCompleted struct {
	Query    string
	Envelope domain.AnswerEnvelope
}

// DocumentsLoaded carries the user's document list.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentDeleted reports the outcome of removing a document.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// ErrorOccurred reports an error to be shown in the status bar.
type ErrorOccurred struct {
	Err error
}

// Quit asks the application to exit.
type Quit struct{}
