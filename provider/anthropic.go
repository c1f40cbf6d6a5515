package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
)

const defaultMaxTokens = 1024

// AnthropicProvider adapts the Anthropic Messages API.
type AnthropicProvider struct {
	id         string
	client     anthropic.Client
	model      string
	capability entity.Complexity

	costInPerMTok  float64
	costOutPerMTok float64
}

var _ Provider = (*AnthropicProvider)(nil)

func NewAnthropicProvider(id, apiKey, model string, capability entity.Complexity, costInPerMTok, costOutPerMTok float64) *AnthropicProvider {
	return &AnthropicProvider{
		id:             id,
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		capability:     capability,
		costInPerMTok:  costInPerMTok,
		costOutPerMTok: costOutPerMTok,
	}
}

func (p *AnthropicProvider) ID() string {
	return p.id
}

func (p *AnthropicProvider) Capability() entity.Complexity {
	return p.capability
}

func (p *AnthropicProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*Completion, error) {
	messages := make([]anthropic.MessageParam, 0, len(opts.Context)+1)
	for _, turn := range opts.Context {
		block := anthropic.NewTextBlock(turn.Text)
		switch turn.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(block))
		default:
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.System}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.translateError(err)
	}

	var text string
	for _, content := range resp.Content {
		if block, ok := content.AsAny().(anthropic.TextBlock); ok {
			text += block.Text
		}
	}

	tokensIn := int(resp.Usage.InputTokens)
	tokensOut := int(resp.Usage.OutputTokens)

	return &Completion{
		Text:       text,
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		Cost:       meteredCost(tokensIn, tokensOut, p.costInPerMTok, p.costOutPerMTok),
		ProviderID: p.id,
	}, nil
}

func (p *AnthropicProvider) translateError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode == 529 || apierr.StatusCode >= 500 {
			return NewTransientFailure(p.id, err)
		}
		return NewFatalFailure(p.id, err)
	}
	return NewTransientFailure(p.id, err)
}
