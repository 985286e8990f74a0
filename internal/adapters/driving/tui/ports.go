// Package tui provides an interactive chat interface for arah.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"strings"

	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Answer runs the question answering pipeline.
	Answer driving.AnswerService

	// Documents lists the user's uploaded documents. Optional.
	Documents driving.DocumentService

	// UserID scopes every request to one user's documents.
	UserID string
}

// NewPorts creates a new Ports aggregate.
func NewPorts(answer driving.AnswerService, documents driving.DocumentService, userID string) *Ports {
	return &Ports{
		Answer:    answer,
		Documents: documents,
		UserID:    userID,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if strings.TrimSpace(p.UserID) == "" {
		return ErrMissingUserID
	}
	return nil
}
