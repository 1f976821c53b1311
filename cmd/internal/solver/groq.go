package solver

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the subset of *openai.Client the solver uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// ClientFactory builds a chat client bound to one API key.
type ClientFactory func(apiKey string) ChatClient

// OpenAIClientFactory returns a factory for OpenAI-compatible endpoints at baseURL.
func OpenAIClientFactory(baseURL string, hc *http.Client) ClientFactory {
	return func(apiKey string) ChatClient {
		cc := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cc.BaseURL = strings.TrimRight(baseURL, "/")
		}
		if hc != nil {
			cc.HTTPClient = hc
		}
		return openai.NewClientWithConfig(cc)
	}
}

// modelResolver picks the chat model once per process from the provider's model list.
type modelResolver struct {
	pinned    string
	preferred []string
	fallback  string

	mu       sync.Mutex
	resolved string
}

func (m *modelResolver) resolve(ctx context.Context, c ChatClient) string {
	if m.pinned != "" {
		return m.pinned
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved != "" {
		return m.resolved
	}

	list, err := c.ListModels(ctx)
	if err != nil || len(list.Models) == 0 {
		// Not cached: the next request retries the listing.
		return m.fallback
	}
	m.resolved = pickModel(list.Models, m.preferred, m.fallback)
	return m.resolved
}

func pickModel(available []openai.Model, preferred []string, fallback string) string {
	have := make(map[string]bool, len(available))
	for _, am := range available {
		have[am.ID] = true
	}
	for _, p := range preferred {
		if have[p] {
			return p
		}
	}
	if len(available) > 0 && available[0].ID != "" {
		return available[0].ID
	}
	return fallback
}

func chatRequest(model string, req Request) openai.ChatCompletionRequest {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.ImagePNG) > 0 {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.ImagePNG),
					Detail: openai.ImageURLDetailAuto,
				},
			},
		}
	} else {
		msg.Content = req.Prompt
	}
	return openai.ChatCompletionRequest{
		Model:     model,
		Messages:  []openai.ChatCompletionMessage{msg},
		MaxTokens: req.MaxTokens,
	}
}

func completeWith(ctx context.Context, c ChatClient, model string, req Request) (Completion, error) {
	resp, err := c.CreateChatCompletion(ctx, chatRequest(model, req))
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyCompletion
	}
	if resp.Model != "" {
		model = resp.Model
	}
	return Completion{Text: resp.Choices[0].Message.Content, Model: model}, nil
}
