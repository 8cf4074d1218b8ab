package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/bimmerbailey/drai/internal/llm/ollama"
)

// ollamaProviderAdapter adapts the ollama.Provider to the llm.Provider interface.
// This is needed to avoid import cycles between llm and ollama packages.
type ollamaProviderAdapter struct {
	provider *ollama.Provider
}

func (a *ollamaProviderAdapter) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	resp, err := a.provider.Chat(ctx, toOllamaMessages(messages), toOllamaOptions(opts))
	if err != nil {
		return nil, wrapOllamaError(err)
	}

	return &Response{
		Content:      resp.Content,
		Model:        resp.Model,
		TokensPrompt: resp.TokensPrompt,
		TokensTotal:  resp.TokensTotal,
	}, nil
}

func (a *ollamaProviderAdapter) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamEvent, error) {
	ollamaStream, err := a.provider.ChatStream(ctx, toOllamaMessages(messages), toOllamaOptions(opts))
	if err != nil {
		return nil, wrapOllamaError(err)
	}

	eventChan := make(chan StreamEvent, 10)
	go func() {
		defer close(eventChan)
		for ev := range ollamaStream {
			eventChan <- StreamEvent{
				Content: ev.Content,
				Done:    ev.Done,
				Error:   wrapOllamaError(ev.Error),
			}
		}
	}()

	return eventChan, nil
}

func (a *ollamaProviderAdapter) Heartbeat(ctx context.Context) error {
	return wrapOllamaError(a.provider.Heartbeat(ctx))
}

func (a *ollamaProviderAdapter) ModelAvailable(ctx context.Context, model string) (bool, error) {
	ok, err := a.provider.ModelAvailable(ctx, model)
	return ok, wrapOllamaError(err)
}

func (a *ollamaProviderAdapter) Model() string {
	return a.provider.Model()
}

func toOllamaMessages(messages []Message) []ollama.Message {
	out := make([]ollama.Message, len(messages))
	for i, msg := range messages {
		out[i] = ollama.Message{Role: msg.Role, Content: msg.Content}
	}
	return out
}

func toOllamaOptions(opts *ChatOptions) *ollama.ChatOptions {
	if opts == nil {
		return nil
	}
	return &ollama.ChatOptions{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
}

// wrapOllamaError rewraps an ollama sentinel as the matching llm sentinel,
// keeping the original in the chain.
func wrapOllamaError(err error) error {
	if err == nil {
		return nil
	}
	for _, pair := range [...]struct{ from, to error }{
		{ollama.ErrProviderUnavailable, ErrProviderUnavailable},
		{ollama.ErrModelNotFound, ErrModelNotFound},
		{ollama.ErrInvalidResponse, ErrInvalidResponse},
		{ollama.ErrContextCanceled, ErrContextCanceled},
	} {
		if errors.Is(err, pair.from) {
			return fmt.Errorf("%w: %w", pair.to, err)
		}
	}
	return err
}
