// Package domain defines the core business entities for Arah.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A retrievable unit of a user's document, always owner scoped
//   - Fact: A typed transcript or schedule row parsed from a chunk
//   - Query: The per-request view of the user's question
//   - AnswerEnvelope: The answer, its sources and pipeline meta
//   - RequestFlow: The request state machine
//   - Config: The immutable runtime configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
