package config

type ProviderConfig struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	LocalBaseURL    string `env:"LOCAL_BASE_URL"`

	OpenAIModel    string `env:"OPENAI_MODEL"`
	AnthropicModel string `env:"ANTHROPIC_MODEL"`
	LocalModel     string `env:"LOCAL_MODEL"`
}

func NewProviderConfig() *ProviderConfig {
	config := ProviderConfig{
		OpenAIModel:    "gpt-4o-mini",
		AnthropicModel: "claude-3-5-haiku-latest",
		LocalBaseURL:   "http://localhost:11434/v1",
		LocalModel:     "llama3.2",
	}
	_ = resolveConfig(&config)
	return &config
}
