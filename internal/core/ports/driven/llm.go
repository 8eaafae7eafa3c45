package driven

import "context"

// LLMService produces text completions for grounded answering.
//
// Implementations may include:
//   - OpenAI (gpt-4o, gpt-4o-mini)
//   - Local models via OpenAI-compatible inference servers
type LLMService interface {
	// Generate produces a text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a
	// lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	// Grounded answering uses 0.
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
