package tui

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("tui: answer service is required")

// ErrMissingUserID is returned when no user is set for the session.
var ErrMissingUserID = errors.New("tui: user id is required")
