package grade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrRateLimited marks a provider refusal that should cool the credential
// and rotate, as opposed to a failure that just loses this one grade.
var ErrRateLimited = errors.New("provider rate limited")

// provider is the single enrichment call shape: one document in, one raw
// structured-grade body out.
type provider interface {
	Complete(ctx context.Context, apiKey, system, user string) (string, error)
}

type anthropicProvider struct {
	model     string
	maxTokens int

	mu      sync.Mutex
	clients map[string]anthropic.Client // one client per credential
}

func newAnthropicProvider(model string, maxTokens int) *anthropicProvider {
	return &anthropicProvider{
		model:     model,
		maxTokens: maxTokens,
		clients:   make(map[string]anthropic.Client),
	}
}

func (p *anthropicProvider) clientFor(apiKey string) anthropic.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[apiKey]; ok {
		return c
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	p.clients[apiKey] = c
	return c
}

func (p *anthropicProvider) Complete(ctx context.Context, apiKey, system, user string) (string, error) {
	client := p.clientFor(apiKey)

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && apierr.StatusCode == 429 {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("provider call: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		sb.WriteString(block.Text)
	}
	return sb.String(), nil
}
