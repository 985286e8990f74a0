// Package mcp exposes the answering pipeline as a Model Context Protocol server
// so AI assistants can query a student's documents.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")

// ErrMissingUser is returned when a tool call names no user and no default is set.
var ErrMissingUser = errors.New("mcp: user_id is required")

// ErrToolUnavailable is returned when a tool's backing service is not configured.
var ErrToolUnavailable = errors.New("mcp: service not configured")
