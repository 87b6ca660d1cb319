// Package llm defines the generation provider boundary used by the RAG
// system: a Provider that turns a prompt or a message history into text.
package llm

import "context"

// Provider generates text. Implementations wrap a concrete backend
// (OpenAI, Ollama) behind the same call shape.
type Provider interface {
	// Generate produces text from a single prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages produces text from a role-tagged message history.
	// Callers that need a system instruction separate from user input use
	// this instead of packing everything into one prompt.
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Message is one turn in a conversation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// GenerateOptions holds the sampling parameters a backend understands.
type GenerateOptions struct {
	// Temperature controls randomness (0.0 deterministic, 2.0 very random).
	Temperature float64

	// MaxTokens caps the response length in tokens.
	MaxTokens int

	// TopP is the nucleus-sampling cutoff (0.0-1.0).
	TopP float64

	// Stop lists sequences that end generation.
	Stop []string
}

// GenerateOption configures GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP sets the nucleus-sampling cutoff.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// ApplyGenerateOptions resolves a slice of options against the defaults
// (temperature 0.7, max tokens 1000, top-p 1.0). Backends call this before
// building their request.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1000,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
