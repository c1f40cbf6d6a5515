package agent_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chittyos/chittyrouter/agent"
	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
	"github.com/chittyos/chittyrouter/internal/mylog"
	"github.com/chittyos/chittyrouter/learning"
	"github.com/chittyos/chittyrouter/memory"
	"github.com/chittyos/chittyrouter/provider"
	providertest "github.com/chittyos/chittyrouter/provider/test"
	"github.com/chittyos/chittyrouter/router"
)

type fixture struct {
	agents    agent.Manager
	memory    *memory.Manager
	learning  *learning.Engine
	aggregate *memory.InMemoryAggregateStore
}

func newFixture(t *testing.T, providers ...provider.Provider) *fixture {
	t.Helper()

	logger := mylog.NewLogger("error", "json")
	registry, err := provider.NewRegistry(providers...)
	require.NoError(t, err)

	memoryConf := config.NewMemoryConfig()
	aggregateStore := memory.NewInMemoryAggregateStore()
	manager := memory.NewManager(
		logger,
		memoryConf,
		memory.NewInMemorySemanticStore(),
		memory.NewInMemoryEpisodicStore(),
		aggregateStore,
	)
	engine := learning.NewEngine(logger, config.NewLearningConfig(), manager)

	r, err := router.NewRouter(logger, config.NewRouterConfig(), registry, engine)
	require.NoError(t, err)

	return &fixture{
		agents:    agent.NewManager(logger, manager, engine, r, memory.NewHashEmbedder(64)),
		memory:    manager,
		learning:  engine,
		aggregate: aggregateStore,
	}
}

func (f *fixture) score(t *testing.T, agentID, taskType, providerID string) float64 {
	t.Helper()
	aggregate, err := f.memory.ReadAggregate(t.Context(), agentID)
	require.NoError(t, err)
	return aggregate.ModelScores[memory.ScoreKey(taskType, providerID)]
}

func TestManager_ResolveIsDeterministicAndIdempotent(t *testing.T) {
	f := newFixture(t, providertest.NewStubProvider("a", entity.ComplexityComplex))

	first := f.agents.Resolve("Router-1")
	second := f.agents.Resolve("  router-1 ")
	assert.Same(t, first, second, "same name always resolves to the same actor")
	assert.Equal(t, "router-1", first.ID())

	other := f.agents.Resolve("router-2")
	assert.NotSame(t, first, other)
}

func TestActor_ProcessUpdatesAllTiers(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex).SetReply("filed under invoices").SetCost(0.002)
	f := newFixture(t, a)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")
	result, err := actor.Process(ctx, &agent.Request{
		Prompt:   "classify this invoice email",
		TaskType: "triage",
		ScopeID:  "session-1",
		Context:  map[string]any{"from": "billing@example.com"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "a", result.Provider)
	assert.Equal(t, "filed under invoices", result.Response)
	assert.Equal(t, "router-1", result.AgentID)
	assert.False(t, result.Cached)
	assert.False(t, result.SelfHealed)
	assert.False(t, result.MemoryContextUsed, "first request has nothing to recall")
	assert.InDelta(t, 0.002, result.Cost, 1e-9)

	// Working tier
	recent := f.memory.RecallWorking(ctx, "router-1", "session-1")
	require.Len(t, recent, 1)
	assert.Equal(t, "classify this invoice email", recent[0].Prompt)

	// Episodic tier
	episodes, err := f.memory.ListEpisodes(ctx, "router-1", time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.True(t, episodes[0].Success)

	// Aggregate tier
	stats, err := actor.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalInteractions)
	assert.InDelta(t, 0.002, stats.TotalCost, 1e-9)
	assert.Equal(t, int64(1), stats.ProviderUsage["a"])
	assert.Equal(t, int64(1), stats.TaskTypeUsage["triage"])

	// Learning signal
	assert.InDelta(t, 1.4, f.score(t, "router-1", "triage", "a"), 1e-9)

	// State machine returned to Idle.
	assert.Equal(t, agent.StateIdle, actor.State())
}

func TestActor_SecondRequestUsesMemoryContext(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex)
	f := newFixture(t, a)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")
	_, err := actor.Process(ctx, &agent.Request{
		Prompt:   "classify this invoice email",
		TaskType: "triage",
		ScopeID:  "session-1",
	})
	require.NoError(t, err)

	// Different prompt, same scope: the working window is non-empty.
	result, err := actor.Process(ctx, &agent.Request{
		Prompt:   "now classify this refund request",
		TaskType: "triage",
		ScopeID:  "session-1",
	})
	require.NoError(t, err)
	assert.True(t, result.MemoryContextUsed)
}

// The end-to-end self-healing scenario: two providers at baseline, a forced
// failure on the learned favourite, and the ranking arithmetic after each
// step.
func TestActor_SelfHealingScenario(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex).SetReply("from a")
	b := providertest.NewStubProvider("b", entity.ComplexityComplex).SetReply("from b")
	f := newFixture(t, a, b)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")

	// Request 1: both at baseline 0.7, declaration order picks a.
	result, err := actor.Process(ctx, &agent.Request{Prompt: "triage email 1", TaskType: "triage"})
	require.NoError(t, err)
	assert.Equal(t, "a", result.Provider)
	assert.False(t, result.SelfHealed)
	assert.InDelta(t, 1.4, f.score(t, "router-1", "triage", "a"), 1e-9)

	stats, err := actor.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalInteractions)

	// Request 2: a outranks b and is tried first, but an injected fault
	// forces the fallback to b.
	a.FailNext(1)
	result, err = actor.Process(ctx, &agent.Request{Prompt: "triage email 2", TaskType: "triage"})
	require.NoError(t, err)
	assert.Equal(t, "b", result.Provider)
	assert.True(t, result.SelfHealed)

	assert.InDelta(t, 0.4, f.score(t, "router-1", "triage", "a"), 1e-9, "1.4 - 1.0 penalty")
	assert.InDelta(t, 1.4, f.score(t, "router-1", "triage", "b"), 1e-9, "0.7 + 0.7 reward")

	// Both the failed and the fallback attempt were recorded.
	stats, err = actor.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalInteractions)
	assert.Equal(t, int64(2), stats.ProviderUsage["a"])
	assert.Equal(t, int64(1), stats.ProviderUsage["b"])

	// Request 3: no fault; b now outranks a and serves first.
	result, err = actor.Process(ctx, &agent.Request{Prompt: "triage email 3", TaskType: "triage"})
	require.NoError(t, err)
	assert.Equal(t, "b", result.Provider)
	assert.False(t, result.SelfHealed)
}

func TestActor_FatalRoutingRecordsEveryAttempt(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex).FailAlways(true)
	b := providertest.NewStubProvider("b", entity.ComplexityComplex).FailAlways(true)
	f := newFixture(t, a, b)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")
	_, err := actor.Process(ctx, &agent.Request{Prompt: "triage email", TaskType: "triage"})
	require.ErrorIs(t, err, errors.ErrFatalRouting)

	stats, err := actor.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalInteractions, "both failed attempts are interaction outcomes")

	episodes, err := f.memory.ListEpisodes(ctx, "router-1", time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, err)
	assert.Len(t, episodes, 2)

	assert.Less(t, f.score(t, "router-1", "triage", "a"), 0.0)
	assert.Less(t, f.score(t, "router-1", "triage", "b"), 0.0)

	// Failed attempts never enter the working window.
	assert.Empty(t, f.memory.RecallWorking(ctx, "router-1", "default"))
}

func TestActor_ConfigurationErrorRecordsNothing(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexitySimple)
	f := newFixture(t, a)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")
	_, err := actor.Process(ctx, &agent.Request{
		Prompt:     "prove this theorem",
		TaskType:   "legal_reasoning",
		Complexity: entity.ComplexityComplex,
	})
	require.ErrorIs(t, err, errors.ErrConfiguration)

	stats, err := actor.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalInteractions)
	assert.Empty(t, stats.ModelScores, "setup problems must not feed the score table")
}

func TestActor_CacheHitProducesNoNewOutcome(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex).SetReply("deterministic")
	f := newFixture(t, a)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")
	req := &agent.Request{Prompt: "triage email", TaskType: "triage"}

	first, err := actor.Process(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := actor.Process(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Response, second.Response)

	stats, err := actor.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalInteractions, "cache hits do not double-count")
	assert.InDelta(t, 1.4, f.score(t, "router-1", "triage", "a"), 1e-9, "score unchanged by the hit")
	assert.Equal(t, 1, a.Invocations())
}

func TestActor_StorageOutageDegradesButStillResponds(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex).SetReply("still here")
	f := newFixture(t, a)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")
	f.aggregate.SetUnavailable(true)

	result, err := actor.Process(ctx, &agent.Request{Prompt: "triage email", TaskType: "triage"})
	require.NoError(t, err, "memory persistence failure must never fail the request")
	assert.Equal(t, "still here", result.Response)

	assert.Equal(t, "degraded", actor.Health(ctx))

	f.aggregate.SetUnavailable(false)
	assert.Equal(t, "healthy", actor.Health(ctx))
}

func TestActor_SameIdentityHasNoLostUpdates(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex)
	f := newFixture(t, a)
	ctx := t.Context()

	actor := f.agents.Resolve("router-1")

	const requests = 20
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := actor.Process(ctx, &agent.Request{
				Prompt:   fmt.Sprintf("triage email %d", i),
				TaskType: "triage",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := actor.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(requests), stats.TotalInteractions)
	assert.InDelta(t, 0.7+0.7*requests, stats.ModelScores[memory.ScoreKey("triage", "a")], 1e-9)
}

func TestActor_DifferentIdentitiesRunInParallel(t *testing.T) {
	a := providertest.NewStubProvider("a", entity.ComplexityComplex)
	f := newFixture(t, a)
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := f.agents.Resolve(fmt.Sprintf("agent-%d", i))
			_, err := actor.Process(ctx, &agent.Request{
				Prompt:   "triage email",
				TaskType: "triage",
			})
			assert.NoError(t, err)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("independent identities blocked each other")
	}
}
