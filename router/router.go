package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
	"github.com/chittyos/chittyrouter/learning"
	"github.com/chittyos/chittyrouter/provider"
)

type (
	Request struct {
		AgentID    string
		Prompt     string
		TaskType   string
		Complexity entity.Complexity

		PreferredProvider string

		// DisableFallback stops after the first candidate instead of
		// walking the chain.
		DisableFallback bool

		MaxTokens int
		System    string
		Context   []entity.Turn
	}

	// Outcome is one provider attempt, failed ones included. Every outcome
	// becomes an interaction record and a learning signal.
	Outcome struct {
		Provider  string
		Success   bool
		Text      string
		Cost      float64
		TokensIn  int
		TokensOut int
		Latency   time.Duration
		Err       error
	}

	Result struct {
		Text      string
		Provider  string
		Cost      float64
		TokensIn  int
		TokensOut int

		// Cached means no provider was invoked for this request.
		Cached bool
		// SelfHealed means the first choice failed and a fallback served it.
		SelfHealed bool

		Attempts []Outcome
	}

	// Router selects among registered providers, walks the fallback chain
	// on transient failures, and serves identical requests from a
	// short-lived result cache.
	Router struct {
		logger   *slog.Logger
		conf     *config.RouterConfig
		registry *provider.Registry
		learning *learning.Engine
		cache    *resultCache
	}
)

func NewRouter(logger *slog.Logger, conf *config.RouterConfig, registry *provider.Registry, learningEngine *learning.Engine) (*Router, error) {
	cache, err := newResultCache(conf.MaxCacheEntries, conf.CacheTTL)
	if err != nil {
		return nil, err
	}
	return &Router{
		logger:   logger,
		conf:     conf,
		registry: registry,
		learning: learningEngine,
		cache:    cache,
	}, nil
}

// Complete routes the prompt to the best-scored capable provider and falls
// back down the chain on transient failures. When the chain is exhausted it
// returns ErrFatalRouting; the returned result is still non-nil and carries
// the attempt log so callers can record every outcome.
func (r *Router) Complete(ctx context.Context, req *Request) (*Result, error) {
	if req.Prompt == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "prompt is required")
	}
	if req.Complexity == "" {
		req.Complexity = entity.ComplexityModerate
	}
	if !req.Complexity.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "unknown complexity %q", req.Complexity)
	}

	key := cacheKey(req)
	if cached, ok := r.cache.get(key); ok {
		r.logger.Debug("served from result cache",
			slog.String("agent", req.AgentID), slog.String("provider", cached.Provider))
		return cached, nil
	}

	candidates, err := r.candidates(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i, candidateID := range candidates {
		p, err := r.registry.Get(candidateID)
		if err != nil {
			return nil, err
		}

		outcome := r.invoke(ctx, p, req)
		result.Attempts = append(result.Attempts, outcome)

		if outcome.Success {
			result.Text = outcome.Text
			result.Provider = outcome.Provider
			result.Cost = outcome.Cost
			result.TokensIn = outcome.TokensIn
			result.TokensOut = outcome.TokensOut
			result.SelfHealed = i > 0

			r.cache.put(key, result)
			return result, nil
		}

		r.logger.Warn("provider attempt failed",
			slog.String("agent", req.AgentID),
			slog.String("provider", candidateID),
			slog.Any("error", outcome.Err))

		if req.DisableFallback {
			break
		}
		var failure *provider.Failure
		if errors.As(outcome.Err, &failure) && !failure.Transient {
			// Fatal failures stop the chain: retrying elsewhere cannot
			// help a request the backend rejected outright.
			break
		}
	}

	return result, errors.Wrapf(errors.ErrFatalRouting,
		"no provider could serve the request after %d attempts", len(result.Attempts))
}

// candidates builds the ordered fallback chain: the preferred provider
// first when capable, then the remaining capable providers by descending
// learned score.
func (r *Router) candidates(ctx context.Context, req *Request) ([]string, error) {
	capable := r.registry.CapableOf(req.Complexity)
	if len(capable) == 0 {
		return nil, errors.Wrapf(errors.ErrConfiguration,
			"no provider capable of complexity %q", req.Complexity)
	}

	ranked, err := r.learning.Rank(ctx, req.AgentID, req.TaskType, capable)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(ranked))
	if req.PreferredProvider != "" {
		for _, id := range capable {
			if id == req.PreferredProvider {
				candidates = append(candidates, id)
				break
			}
		}
	}
	for _, ps := range ranked {
		if ps.Provider == req.PreferredProvider {
			continue
		}
		candidates = append(candidates, ps.Provider)
	}

	return candidates, nil
}

func (r *Router) invoke(ctx context.Context, p provider.Provider, req *Request) Outcome {
	invokeCtx, cancel := context.WithTimeout(ctx, r.conf.InvokeTimeout)
	defer cancel()

	started := time.Now()
	completion, err := p.Invoke(invokeCtx, req.Prompt, provider.InvokeOptions{
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Context:   req.Context,
		AttemptID: uuid.NewString(),
	})
	latency := time.Since(started)

	if err != nil {
		return Outcome{
			Provider: p.ID(),
			Success:  false,
			Latency:  latency,
			Err:      err,
		}
	}

	return Outcome{
		Provider:  completion.ProviderID,
		Success:   true,
		Text:      completion.Text,
		Cost:      completion.Cost,
		TokensIn:  completion.TokensIn,
		TokensOut: completion.TokensOut,
		Latency:   latency,
	}
}
