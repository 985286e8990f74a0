package domain

// SafetyDecision is the outcome of the safety classifier.
type SafetyDecision string

// Safety decisions. Every decision other than SafetyAllow is terminal.
const (
	SafetyAllow           SafetyDecision = "allow"
	SafetyRefuseCrime     SafetyDecision = "refuse_crime"
	SafetyRefusePolitical SafetyDecision = "refuse_political"
	SafetyRedirectWeird   SafetyDecision = "redirect_weird"
)

// IsGuard reports whether the decision short-circuits the pipeline.
func (d SafetyDecision) IsGuard() bool {
	switch d {
	case SafetyRefuseCrime, SafetyRefusePolitical, SafetyRedirectWeird:
		return true
	default:
		return false
	}
}

// SafetyResult carries the decision with the patterns that triggered it.
type SafetyResult struct {
	Decision SafetyDecision `json:"decision"`
	Reason   string         `json:"reason"`
	Tags     []string       `json:"tags,omitempty"`
}

// IntentRoute is the branch a query is routed to.
type IntentRoute string

// Intent routes in priority order.
const (
	RouteAnalyticalTabular IntentRoute = "analytical_tabular"
	RouteSemanticPolicy    IntentRoute = "semantic_policy"
	RouteOutOfDomain       IntentRoute = "out_of_domain"
	RouteDefaultRAG        IntentRoute = "default_rag"
)

// String returns the string representation.
func (r IntentRoute) String() string {
	return string(r)
}

// RouteDecision is the cached output of the intent router.
type RouteDecision struct {
	Route   IntentRoute `json:"route"`
	Reason  string      `json:"reason"`
	Matched []string    `json:"matched,omitempty"`
}

// MentionResolution maps @mentions onto a user's documents.
type MentionResolution struct {
	// ResolvedDocIDs are the documents mentions matched exactly once.
	ResolvedDocIDs []string `json:"resolved_doc_ids"`

	// ResolvedTitles are the titles of ResolvedDocIDs in the same order.
	ResolvedTitles []string `json:"resolved_titles"`

	// Unresolved are mentions matching no document.
	Unresolved []string `json:"unresolved_mentions"`

	// Ambiguous are mentions matching more than one document.
	Ambiguous []string `json:"ambiguous_mentions"`
}

// HasAmbiguity reports whether the request needs a clarification answer.
func (m MentionResolution) HasAmbiguity() bool {
	return len(m.Ambiguous) > 0
}

// Query is the per-request view of the user's question.
type Query struct {
	// UserID is the asking user; every read is scoped to it.
	UserID string

	// RequestID identifies the request in logs and metrics.
	RequestID string

	// Raw is the text as submitted.
	Raw string

	// Clean is Raw with @mentions stripped. Falls back to Raw when stripping
	// leaves nothing.
	Clean string

	// Mentions are the ordered, de-duplicated @mention tokens.
	Mentions []string

	// Safety is the safety classifier outcome.
	Safety SafetyResult

	// Route is the intent router outcome.
	Route RouteDecision

	// Resolution is the mention resolution outcome.
	Resolution MentionResolution

	// HasDocuments reports whether the user owns any document.
	HasDocuments bool
}

// AnswerMode is the tone used when presenting transcript data.
type AnswerMode string

// Answer modes.
const (
	AnswerModeEvaluative AnswerMode = "evaluative"
	AnswerModeFactual    AnswerMode = "factual"
	AnswerModeGeneral    AnswerMode = "general"
)
