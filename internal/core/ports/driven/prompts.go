package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptTagSystem is the system message for text tagging. No placeholders.
	PromptTagSystem = "tag_system"

	// PromptTagText instructs the model to tag narrative text.
	// The template expects one %s placeholder for the text.
	PromptTagText = "tag_text"

	// PromptDescribeImage asks for a one-sentence image description.
	// No placeholders; the image is attached to the message.
	PromptDescribeImage = "describe_image"

	// PromptDescribeTable asks for a structured description of a table image.
	// No placeholders; the image is attached to the message.
	PromptDescribeTable = "describe_table"

	// PromptExtractSystem is the system message for variable extraction.
	// No placeholders.
	PromptExtractSystem = "extract_system"

	// PromptExtractAnswer frames a question and its retrieved context.
	// The template expects %s (question) then %s (context).
	PromptExtractAnswer = "extract_answer"
)

// PromptNames returns every well-known prompt name.
func PromptNames() []string {
	return []string{
		PromptTagSystem,
		PromptTagText,
		PromptDescribeImage,
		PromptDescribeTable,
		PromptExtractSystem,
		PromptExtractAnswer,
	}
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	SetPromptStore(store PromptStore)
}
