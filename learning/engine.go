package learning

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/memory"
)

type (
	// Engine maintains the per-(task type, provider) score table in the
	// Aggregate tier. This is a weighted-counter heuristic, not a trained
	// model: success adds a fixed delta, failure subtracts a larger one,
	// and the score is unbounded in both directions.
	Engine struct {
		logger *slog.Logger
		conf   *config.LearningConfig
		memory *memory.Manager
	}

	ProviderScore struct {
		Provider string  `json:"provider"`
		Score    float64 `json:"score"`
	}
)

func NewEngine(logger *slog.Logger, conf *config.LearningConfig, memoryManager *memory.Manager) *Engine {
	return &Engine{
		logger: logger,
		conf:   conf,
		memory: memoryManager,
	}
}

func (e *Engine) Baseline() float64 {
	return e.conf.Baseline
}

// Rank orders the candidate providers by their score for the task type,
// descending. Candidates with no history get the baseline, not exclusion;
// equal scores keep candidate order, which is registration order upstream.
func (e *Engine) Rank(ctx context.Context, agentID, taskType string, candidates []string) ([]ProviderScore, error) {
	aggregate, err := e.memory.ReadAggregate(ctx, agentID)
	if err != nil {
		// Degraded mode: with no score table every candidate sits at the
		// baseline and registration order decides.
		e.logger.Warn("score table unavailable, ranking at baseline",
			slog.String("agent", agentID), slog.Any("error", err))
		aggregate = memory.NewAggregate(agentID)
	}

	ranked := lo.Map(candidates, func(providerID string, _ int) ProviderScore {
		score, ok := aggregate.ModelScores[memory.ScoreKey(taskType, providerID)]
		if !ok {
			score = e.conf.Baseline
		}
		return ProviderScore{Provider: providerID, Score: score}
	})

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, nil
}

// Update applies one observed outcome to the score table. It runs after
// every attempt in a fallback chain, so a persistently failing provider is
// deprioritized on later Rank calls without any explicit disable step.
func (e *Engine) Update(ctx context.Context, agentID, taskType, providerID string, success bool) error {
	return e.memory.WriteAggregate(ctx, agentID, func(a *memory.Aggregate) error {
		key := memory.ScoreKey(taskType, providerID)
		score, ok := a.ModelScores[key]
		if !ok {
			score = e.conf.Baseline
		}
		if success {
			score += e.conf.SuccessDelta
		} else {
			score -= e.conf.FailureDelta
		}
		a.ModelScores[key] = score
		return nil
	})
}
