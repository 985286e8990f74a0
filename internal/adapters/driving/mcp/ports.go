package mcp

import (
	"strings"

	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Answer runs the question answering pipeline.
	Answer driving.AnswerService

	// Documents lists the user's documents. Optional.
	Documents driving.DocumentService

	// Grade computes rescue plans. Optional.
	Grade driving.GradeService

	// DefaultUser is used when a tool call omits user_id.
	DefaultUser string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}

// user picks the caller's user id, falling back to DefaultUser.
func (p *Ports) user(requested string) (string, error) {
	if u := strings.TrimSpace(requested); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(p.DefaultUser); u != "" {
		return u, nil
	}
	return "", ErrMissingUser
}
