package provider

import (
	"context"

	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
)

// OpenAIProvider adapts the OpenAI chat completions API.
type OpenAIProvider struct {
	id         string
	client     goopenai.Client
	model      string
	capability entity.Complexity

	costInPerMTok  float64
	costOutPerMTok float64
}

var _ Provider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(id, apiKey, model string, capability entity.Complexity, costInPerMTok, costOutPerMTok float64) *OpenAIProvider {
	return &OpenAIProvider{
		id:             id,
		client:         goopenai.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		capability:     capability,
		costInPerMTok:  costInPerMTok,
		costOutPerMTok: costOutPerMTok,
	}
}

func (p *OpenAIProvider) ID() string {
	return p.id
}

func (p *OpenAIProvider) Capability() entity.Complexity {
	return p.capability
}

func (p *OpenAIProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*Completion, error) {
	messages := make([]goopenai.ChatCompletionMessageParamUnion, 0, len(opts.Context)+2)
	if opts.System != "" {
		messages = append(messages, goopenai.SystemMessage(opts.System))
	}
	for _, turn := range opts.Context {
		switch turn.Role {
		case "assistant":
			messages = append(messages, goopenai.AssistantMessage(turn.Text))
		default:
			messages = append(messages, goopenai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, goopenai.UserMessage(prompt))

	params := goopenai.ChatCompletionNewParams{
		Model:    goopenai.ChatModel(p.model),
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = goopenai.Int(int64(opts.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewTransientFailure(p.id, errors.New("openai returned no choices"))
	}

	tokensIn := int(resp.Usage.PromptTokens)
	tokensOut := int(resp.Usage.CompletionTokens)

	return &Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		Cost:       meteredCost(tokensIn, tokensOut, p.costInPerMTok, p.costOutPerMTok),
		ProviderID: p.id,
	}, nil
}

func (p *OpenAIProvider) translateError(err error) error {
	var apierr *goopenai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode >= 500 {
			return NewTransientFailure(p.id, err)
		}
		return NewFatalFailure(p.id, err)
	}
	// Network-level and deadline errors are retryable elsewhere.
	return NewTransientFailure(p.id, err)
}

func meteredCost(tokensIn, tokensOut int, costInPerMTok, costOutPerMTok float64) float64 {
	return float64(tokensIn)/1e6*costInPerMTok + float64(tokensOut)/1e6*costOutPerMTok
}
