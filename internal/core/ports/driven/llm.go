// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService is the generation oracle: a blocking request/response call to a
// language model. Implementations must honour ctx cancellation.
//
// Implementations include:
//   - OpenAI (GPT-4, GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a conversation and returns the assistant reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the default model name.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ImagePart is an inline image attached to a chat message.
type ImagePart struct {
	// MIMEType is e.g. "image/jpeg".
	MIMEType string

	// Base64 is the standard base64 payload without a data: prefix.
	Base64 string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the message text.
	Content string

	// Images are sent alongside Content. Only valid on user messages.
	Images []ImagePart
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// Model overrides the service default when set.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness. Nil leaves the provider default.
	Temperature *float64
}

// Temperature returns a pointer for ChatOptions.Temperature.
func Temperature(v float64) *float64 {
	return &v
}
