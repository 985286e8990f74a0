// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ChunkStore: Owner-scoped reads and similarity search over indexed chunks
//   - DocumentCatalog: The user's uploaded documents, for @mention resolution
//   - LLMProvider: At least one language model provider for synthesis
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Reranker: Cross-encoder scoring. Without it, the fused order is truncated.
//   - Cache: Route, mention and existence caching. Without it, every request recomputes.
//   - MetricsSink: Per-request outcome records. Without it, metrics are dropped.
//   - EmbeddingService: Query embeddings for vector backends. Without it, stores rank lexically.
//   - PromptStore: Editable prompt templates. Without it, built-in prompts are used.
//   - ChunkWriter: Used only by the ingestion loader.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
