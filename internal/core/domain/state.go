package domain

import "fmt"

// RequestState is a step of the answer pipeline.
type RequestState string

// Request states.
const (
	StateStarted             RequestState = "started"
	StateSafetyChecked       RequestState = "safety_checked"
	StateGuardShortCircuit   RequestState = "guard_short_circuit"
	StateMentionsResolved    RequestState = "mentions_resolved"
	StateRouteResolved       RequestState = "route_resolved"
	StateStructuredAttempted RequestState = "structured_attempted"
	StateSemanticAttempted   RequestState = "semantic_attempted"
	StateSemanticRetried     RequestState = "semantic_retried"
	StateAnswered            RequestState = "answered"
	StateAbstained           RequestState = "abstained"
	StateFailed              RequestState = "failed"
)

// requestTransitions lists the legal successors of each state.
// Ambiguous mentions and out-of-domain routes answer without retrieval.
// A structured attempt with no rows falls through to semantic retrieval,
// and a failed optimized semantic attempt may be retried once on the base plan.
var requestTransitions = map[RequestState][]RequestState{
	StateStarted:             {StateSafetyChecked, StateFailed},
	StateSafetyChecked:       {StateGuardShortCircuit, StateMentionsResolved, StateFailed},
	StateMentionsResolved:    {StateRouteResolved, StateAnswered, StateFailed},
	StateRouteResolved:       {StateStructuredAttempted, StateSemanticAttempted, StateAnswered, StateFailed},
	StateStructuredAttempted: {StateSemanticAttempted, StateAnswered, StateFailed},
	StateSemanticAttempted:   {StateSemanticRetried, StateAnswered, StateAbstained, StateFailed},
	StateSemanticRetried:     {StateAnswered, StateAbstained, StateFailed},
}

// IsTerminal reports whether no further transition is possible.
func (s RequestState) IsTerminal() bool {
	switch s {
	case StateGuardShortCircuit, StateAnswered, StateAbstained, StateFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether next is a legal successor of s.
func (s RequestState) CanTransition(next RequestState) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequestFlow tracks one request through the pipeline.
// It is not safe for concurrent use; each request owns its flow.
type RequestFlow struct {
	state   RequestState
	history []RequestState
}

// NewRequestFlow starts a flow in StateStarted.
func NewRequestFlow() *RequestFlow {
	return &RequestFlow{state: StateStarted, history: []RequestState{StateStarted}}
}

// State returns the current state.
func (f *RequestFlow) State() RequestState {
	return f.state
}

// History returns every state visited, in order.
func (f *RequestFlow) History() []RequestState {
	out := make([]RequestState, len(f.history))
	copy(out, f.history)
	return out
}

// Advance moves to next and returns it.
func (f *RequestFlow) Advance(next RequestState) (RequestState, error) {
	if !f.state.CanTransition(next) {
		return f.state, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, next)
	}
	f.state = next
	f.history = append(f.history, next)
	return next, nil
}
