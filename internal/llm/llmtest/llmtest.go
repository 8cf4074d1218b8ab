// Package llmtest provides an in-memory llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/bimmerbailey/drai/internal/llm"
)

// Provider replays scripted completions. When the script runs out the last
// entry repeats. Err, when set, is returned from every Chat call.
type Provider struct {
	mu        sync.Mutex
	Responses []string
	Err       error

	// HeartbeatErr and Available drive Heartbeat and ModelAvailable.
	HeartbeatErr error
	Available    bool

	calls    int
	messages [][]llm.Message
}

// New returns a Provider that answers with responses in order.
func New(responses ...string) *Provider {
	return &Provider{Responses: responses, Available: true}
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.messages = append(p.messages, append([]llm.Message(nil), messages...))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return nil, llm.ErrInvalidResponse
	}

	i := p.calls - 1
	if i >= len(p.Responses) {
		i = len(p.Responses) - 1
	}
	return &llm.Response{Content: p.Responses[i], Model: p.Model()}, nil
}

// ChatStream implements llm.Provider by emitting the Chat result as one event.
func (p *Provider) ChatStream(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (<-chan llm.StreamEvent, error) {
	resp, err := p.Chat(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamEvent, 1)
	ch <- llm.StreamEvent{Content: resp.Content, Done: true}
	close(ch)
	return ch, nil
}

// Heartbeat implements llm.Provider.
func (p *Provider) Heartbeat(context.Context) error {
	return p.HeartbeatErr
}

// ModelAvailable implements llm.Provider.
func (p *Provider) ModelAvailable(context.Context, string) (bool, error) {
	return p.Available, p.HeartbeatErr
}

// Model implements llm.Provider.
func (p *Provider) Model() string { return "medllama2" }

// Calls returns how many times Chat was invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// LastMessages returns the messages of the most recent Chat call.
func (p *Provider) LastMessages() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return nil
	}
	return p.messages[len(p.messages)-1]
}
