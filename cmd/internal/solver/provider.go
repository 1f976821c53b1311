package solver

import "context"

// Request is one completion request: a single user prompt, optionally with a PNG image.
type Request struct {
	Prompt    string
	ImagePNG  []byte
	MaxTokens int
}

// Completion is the provider's answer.
type Completion struct {
	Text  string
	Model string
}

// Provider produces a completion for a request.
type Provider interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (Completion, error)

func (f ProviderFunc) Complete(ctx context.Context, req Request) (Completion, error) {
	return f(ctx, req)
}
