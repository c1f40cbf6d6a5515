package memory_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/internal/mylog"
	"github.com/chittyos/chittyrouter/internal/mytesting"
	"github.com/chittyos/chittyrouter/memory"
)

type SqliteMemoryTestSuite struct {
	mytesting.Suite

	manager *memory.Manager
}

func TestSqliteMemory(t *testing.T) {
	suite.Run(t, new(SqliteMemoryTestSuite))
}

func (s *SqliteMemoryTestSuite) SetupTest() {
	s.Suite.SetupTest()

	conf := config.NewMemoryConfig()
	conf.SqlitePath = filepath.Join(s.T().TempDir(), "memory.db")
	conf.SemanticEmbeddingDim = 4

	manager, err := memory.NewSqliteManager(mylog.NewLogger("error", "json"), conf)
	s.Require().NoError(err)
	s.manager = manager
}

func (s *SqliteMemoryTestSuite) TestSemanticRoundTrip() {
	appendEntry := func(agentID, summary string, embedding []float32) {
		s.Require().NoError(s.manager.AppendSemantic(s, &memory.SemanticEntry{
			AgentID:   agentID,
			TaskType:  "triage",
			Summary:   summary,
			Provider:  "a",
			Success:   true,
			CreatedAt: time.Now().UTC(),
			Embedding: embedding,
		}))
	}

	appendEntry("router-1", "invoice email filed", []float32{1, 0, 0, 0})
	appendEntry("router-1", "spam email discarded", []float32{0, 1, 0, 0})
	appendEntry("router-2", "other agent's entry", []float32{1, 0, 0, 0})

	results, err := s.manager.RecallSemantic(s, "router-1", []float32{1, 0, 0, 0}, 5)
	s.Require().NoError(err)

	s.Require().Len(results, 1, "only the near-identical entry clears the similarity floor")
	s.Equal("invoice email filed", results[0].Entry.Summary)
	s.Equal("router-1", results[0].Entry.AgentID)
	s.InDelta(1.0, results[0].Score, 1e-3)
}

func (s *SqliteMemoryTestSuite) TestEpisodicRoundTripAndPrune() {
	date := time.Now().UTC().Format("2006-01-02")

	s.Require().NoError(s.manager.AppendEpisodic(s, &entity.Interaction{
		ID:        uuid.NewString(),
		AgentID:   "router-1",
		ScopeID:   "default",
		Prompt:    "classify this",
		Response:  "classified",
		TaskType:  "triage",
		Provider:  "a",
		Success:   true,
		Timestamp: time.Now().UTC(),
		Context:   map[string]any{"from": "billing@example.com"},
	}))

	episodes, err := s.manager.ListEpisodes(s, "router-1", date)
	s.Require().NoError(err)
	s.Require().Len(episodes, 1)
	s.Equal("classify this", episodes[0].Prompt)
	s.Nil(episodes[0].Context, "episodes are compacted before persisting")

	// Everything is within retention; the sweep must be a no-op.
	pruned, err := s.manager.PruneEpisodes(s)
	s.Require().NoError(err)
	s.Zero(pruned)

	episodes, err = s.manager.ListEpisodes(s, "router-1", date)
	s.Require().NoError(err)
	s.Len(episodes, 1)
}

func (s *SqliteMemoryTestSuite) TestAggregateRoundTrip() {
	s.Require().NoError(s.manager.WriteAggregate(s, "router-1", func(a *memory.Aggregate) error {
		a.TotalInteractions = 3
		a.TotalCost = 0.012
		a.ProviderUsage["a"] = 2
		a.ProviderUsage["b"] = 1
		a.TaskTypeUsage["triage"] = 3
		a.ModelScores[memory.ScoreKey("triage", "a")] = 1.4
		return nil
	}))

	aggregate, err := s.manager.ReadAggregate(s, "router-1")
	s.Require().NoError(err)
	s.Equal(int64(3), aggregate.TotalInteractions)
	s.InDelta(0.012, aggregate.TotalCost, 1e-9)
	s.Equal(int64(2), aggregate.ProviderUsage["a"])
	s.Equal(int64(3), aggregate.TaskTypeUsage["triage"])
	s.InDelta(1.4, aggregate.ModelScores["triage:a"], 1e-9)
}
