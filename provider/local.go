package provider

import (
	"context"

	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
)

// LocalProvider adapts any OpenAI-compatible local inference server
// (Ollama, llama.cpp and friends). It reports zero metered cost.
type LocalProvider struct {
	id         string
	client     goopenai.Client
	model      string
	capability entity.Complexity
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(id, baseURL, model string, capability entity.Complexity) *LocalProvider {
	return &LocalProvider{
		id: id,
		client: goopenai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey("local"),
		),
		model:      model,
		capability: capability,
	}
}

func (p *LocalProvider) ID() string {
	return p.id
}

func (p *LocalProvider) Capability() entity.Complexity {
	return p.capability
}

func (p *LocalProvider) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*Completion, error) {
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
		// A local engine being down is always worth retrying elsewhere.
		return nil, NewTransientFailure(p.id, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewTransientFailure(p.id, errors.New("local engine returned no choices"))
	}

	return &Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensIn:   int(resp.Usage.PromptTokens),
		TokensOut:  int(resp.Usage.CompletionTokens),
		Cost:       0,
		ProviderID: p.id,
	}, nil
}
