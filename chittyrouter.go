package chittyrouter

import (
	"context"
	"log/slog"

	"github.com/chittyos/chittyrouter/agent"
	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
	"github.com/chittyos/chittyrouter/internal/mylog"
	"github.com/chittyos/chittyrouter/learning"
	"github.com/chittyos/chittyrouter/memory"
	"github.com/chittyos/chittyrouter/provider"
	"github.com/chittyos/chittyrouter/router"
)

type (
	// Runtime is the assembled orchestrator: provider registry, four-tier
	// memory, learning engine, router and the per-identity actor manager.
	Runtime struct {
		logger   *slog.Logger
		agents   agent.Manager
		memory   *memory.Manager
		learning *learning.Engine
		router   *router.Router

		providers []provider.Provider
		registry  *provider.Registry
		embedder  memory.Embedder

		logConfig      *config.LogConfig
		providerConfig *config.ProviderConfig
		routerConfig   *config.RouterConfig
		memoryConfig   *config.MemoryConfig
		learningConfig *config.LearningConfig
	}
	Option func(*Runtime)
)

func NewRuntime(ctx context.Context, optionFuncs ...Option) (*Runtime, error) {
	r := &Runtime{
		logConfig:      config.NewLogConfig(),
		providerConfig: config.NewProviderConfig(),
		routerConfig:   config.NewRouterConfig(),
		memoryConfig:   config.NewMemoryConfig(),
		learningConfig: config.NewLearningConfig(),
	}
	for _, f := range optionFuncs {
		f(r)
	}

	if r.logger == nil {
		r.logger = mylog.NewLogger(r.logConfig.LogLevel, r.logConfig.LogHandler)
	}

	if len(r.providers) == 0 {
		r.providers = defaultProviders(r.providerConfig)
	}
	if len(r.providers) == 0 {
		return nil, errors.Wrapf(errors.ErrConfiguration, "no provider is configured")
	}

	if r.registry == nil {
		registry, err := provider.NewRegistry(r.providers...)
		if err != nil {
			return nil, err
		}
		r.registry = registry
	}

	if r.memory == nil {
		manager, err := memory.NewSqliteManager(r.logger, r.memoryConfig)
		if err != nil {
			return nil, err
		}
		r.memory = manager
	}

	if r.embedder == nil {
		if r.providerConfig.OpenAIAPIKey != "" {
			r.embedder = memory.NewOpenAIEmbedder(r.providerConfig.OpenAIAPIKey, "text-embedding-3-small")
		} else {
			// Keyless setups still get deterministic semantic recall.
			r.embedder = memory.NewHashEmbedder(r.memoryConfig.SemanticEmbeddingDim)
		}
	}

	r.learning = learning.NewEngine(r.logger, r.learningConfig, r.memory)

	rt, err := router.NewRouter(r.logger, r.routerConfig, r.registry, r.learning)
	if err != nil {
		return nil, err
	}
	r.router = rt

	r.agents = agent.NewManager(r.logger, r.memory, r.learning, r.router, r.embedder)

	return r, nil
}

// defaultProviders builds the fleet from whatever API keys are present. The
// local provider is always registered; a zero-cost last resort.
func defaultProviders(conf *config.ProviderConfig) []provider.Provider {
	var providers []provider.Provider
	if conf.OpenAIAPIKey != "" {
		providers = append(providers, provider.NewOpenAIProvider(
			"openai", conf.OpenAIAPIKey, conf.OpenAIModel, entity.ComplexityComplex, 0.15, 0.6))
	}
	if conf.AnthropicAPIKey != "" {
		providers = append(providers, provider.NewAnthropicProvider(
			"anthropic", conf.AnthropicAPIKey, conf.AnthropicModel, entity.ComplexityComplex, 0.8, 4.0))
	}
	if conf.LocalBaseURL != "" {
		providers = append(providers, provider.NewLocalProvider(
			"local", conf.LocalBaseURL, conf.LocalModel, entity.ComplexityModerate))
	}
	return providers
}

func (r *Runtime) Agents() agent.Manager {
	return r.agents
}

func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// Complete routes one request through the named agent.
func (r *Runtime) Complete(ctx context.Context, agentName string, req *agent.Request) (*agent.CompletionResult, error) {
	return r.agents.Resolve(agentName).Process(ctx, req)
}

func (r *Runtime) Stats(ctx context.Context, agentName string) (*entity.AgentStats, error) {
	return r.agents.Resolve(agentName).Stats(ctx)
}

func (r *Runtime) Health(ctx context.Context, agentName string) string {
	return r.agents.Resolve(agentName).Health(ctx)
}

// PruneEpisodes runs the episodic retention sweep. Intended for a scheduler,
// never for the request path.
func (r *Runtime) PruneEpisodes(ctx context.Context) (int64, error) {
	return r.memory.PruneEpisodes(ctx)
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

func WithProviders(providers ...provider.Provider) Option {
	return func(r *Runtime) {
		r.providers = append(r.providers, providers...)
	}
}

func WithMemoryManager(manager *memory.Manager) Option {
	return func(r *Runtime) {
		r.memory = manager
	}
}

func WithEmbedder(embedder memory.Embedder) Option {
	return func(r *Runtime) {
		r.embedder = embedder
	}
}

func WithOpenAIAPIKey(apiKey string) Option {
	return func(r *Runtime) {
		r.providerConfig.OpenAIAPIKey = apiKey
	}
}

func WithAnthropicAPIKey(apiKey string) Option {
	return func(r *Runtime) {
		r.providerConfig.AnthropicAPIKey = apiKey
	}
}

func WithLogConfig(conf *config.LogConfig) Option {
	return func(r *Runtime) {
		r.logConfig = conf
	}
}

func WithRouterConfig(conf *config.RouterConfig) Option {
	return func(r *Runtime) {
		r.routerConfig = conf
	}
}

func WithMemoryConfig(conf *config.MemoryConfig) Option {
	return func(r *Runtime) {
		r.memoryConfig = conf
	}
}

func WithLearningConfig(conf *config.LearningConfig) Option {
	return func(r *Runtime) {
		r.learningConfig = conf
	}
}
