package learning_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/internal/mylog"
	"github.com/chittyos/chittyrouter/learning"
	"github.com/chittyos/chittyrouter/memory"
)

func newTestEngine() (*learning.Engine, *memory.Manager) {
	logger := mylog.NewLogger("error", "json")
	manager := memory.NewInMemoryManager(logger, config.NewMemoryConfig())
	engine := learning.NewEngine(logger, config.NewLearningConfig(), manager)
	return engine, manager
}

func TestEngine_RankWithoutHistoryReturnsBaseline(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := t.Context()

	ranked, err := engine.Rank(ctx, "router-1", "triage", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	for _, ps := range ranked {
		assert.Equal(t, engine.Baseline(), ps.Score)
	}
	// Tie-break is candidate (registration) order.
	assert.Equal(t, "a", ranked[0].Provider)
	assert.Equal(t, "b", ranked[1].Provider)
	assert.Equal(t, "c", ranked[2].Provider)
}

func TestEngine_ConsecutiveSuccessesAreStrictlyIncreasing(t *testing.T) {
	engine, manager := newTestEngine()
	ctx := t.Context()

	prev := engine.Baseline()
	for i := 0; i < 5; i++ {
		require.NoError(t, engine.Update(ctx, "router-1", "triage", "a", true))

		aggregate, err := manager.ReadAggregate(ctx, "router-1")
		require.NoError(t, err)
		score := aggregate.ModelScores[memory.ScoreKey("triage", "a")]
		assert.Greater(t, score, prev)
		prev = score
	}
}

func TestEngine_ConsecutiveFailuresSinkBelowBaseline(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := t.Context()

	prevRanked, err := engine.Rank(ctx, "router-1", "triage", []string{"bad", "fresh"})
	require.NoError(t, err)
	require.Equal(t, "bad", prevRanked[0].Provider, "before any history, candidate order wins")

	prev := engine.Baseline()
	for i := 0; i < 4; i++ {
		require.NoError(t, engine.Update(ctx, "router-1", "triage", "bad", false))

		ranked, err := engine.Rank(ctx, "router-1", "triage", []string{"bad", "fresh"})
		require.NoError(t, err)
		var score float64
		for _, ps := range ranked {
			if ps.Provider == "bad" {
				score = ps.Score
			}
		}
		assert.Less(t, score, prev, "score is strictly decreasing under failure")
		prev = score

		// Self-healing convergence: after the first failure the failing
		// provider ranks below any baseline provider.
		assert.Equal(t, "fresh", ranked[0].Provider)
	}

	assert.Less(t, prev, 0.0, "score is unbounded below zero")
}

func TestEngine_FailureUnlearnsFasterThanSuccessLearns(t *testing.T) {
	engine, manager := newTestEngine()
	ctx := t.Context()

	require.NoError(t, engine.Update(ctx, "router-1", "triage", "a", true))
	require.NoError(t, engine.Update(ctx, "router-1", "triage", "a", false))

	aggregate, err := manager.ReadAggregate(ctx, "router-1")
	require.NoError(t, err)
	score := aggregate.ModelScores[memory.ScoreKey("triage", "a")]
	assert.Less(t, score, engine.Baseline(), "one failure outweighs one success")
}

func TestEngine_ScoresAreScopedPerTaskType(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := t.Context()

	require.NoError(t, engine.Update(ctx, "router-1", "triage", "a", false))
	require.NoError(t, engine.Update(ctx, "router-1", "triage", "a", false))

	ranked, err := engine.Rank(ctx, "router-1", "legal_reasoning", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", ranked[0].Provider, "failures on triage do not bleed into other task types")
	assert.Equal(t, engine.Baseline(), ranked[0].Score)
}
