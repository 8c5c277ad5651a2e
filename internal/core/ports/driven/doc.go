// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Session Interfaces
//
// The search-to-analysis session needs both of these:
//
//   - ResultFetcher: Runs a search against the analysis service
//   - AnalysisTransport: Opens the chunked synthesis stream
//
// # Analysis Service Interfaces
//
// Used by the dataset and synthesis services behind `lens serve`:
//
//   - MovementStore: Dataset persistence (SQLite)
//   - ConfigStore: Application configuration
//   - PromptStore: User-editable prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model. Without it, synthesis is unavailable.
//   - EmbeddingService: Vector embeddings. Without it, search is keyword-only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
