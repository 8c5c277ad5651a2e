package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the embedded default
	// or an error when there is none.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used by the analysis service.
const (
	// PromptSynthesisSystem is the system prompt of the research agent.
	// This prompt has no format placeholders.
	PromptSynthesisSystem = "synthesis_system"

	// PromptQueryTranslate turns a non-English search query into English
	// keywords before it is embedded. This prompt has no format placeholders.
	PromptQueryTranslate = "query_translate"
)
