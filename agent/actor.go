package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
	"github.com/chittyos/chittyrouter/learning"
	"github.com/chittyos/chittyrouter/memory"
	"github.com/chittyos/chittyrouter/router"
)

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

type (
	Request struct {
		Prompt            string         `json:"prompt"`
		TaskType          string         `json:"taskType"`
		ScopeID           string         `json:"scopeId,omitempty"`
		Complexity        entity.Complexity `json:"complexity,omitempty"`
		PreferredProvider string         `json:"preferredProvider,omitempty"`
		MaxTokens         int            `json:"maxTokens,omitempty"`
		Context           map[string]any `json:"context,omitempty"`
	}

	CompletionResult struct {
		Success           bool    `json:"success"`
		Provider          string  `json:"provider"`
		Response          string  `json:"response"`
		Cost              float64 `json:"cost"`
		Cached            bool    `json:"cached"`
		AgentID           string  `json:"agentId"`
		MemoryContextUsed bool    `json:"memoryContextUsed"`
		SelfHealed        bool    `json:"selfHealed"`
	}

	// Actor is the per-identity unit of concurrency and consistency. One
	// request at a time runs its Processing phase; the identity and its
	// accumulated memory persist indefinitely across the
	// Idle → Processing → (Completed|Failed) → Idle cycle.
	Actor struct {
		id     string
		logger *slog.Logger

		memory   *memory.Manager
		learning *learning.Engine
		router   *router.Router
		embedder memory.Embedder

		// mu serializes the Processing phase per identity.
		mu sync.Mutex

		stateMu sync.RWMutex
		state   State
	}
)

func newActor(id string, logger *slog.Logger, memoryManager *memory.Manager, learningEngine *learning.Engine, r *router.Router, embedder memory.Embedder) *Actor {
	return &Actor{
		id:       id,
		logger:   logger.With(slog.String("agent", id)),
		memory:   memoryManager,
		learning: learningEngine,
		router:   r,
		embedder: embedder,
		state:    StateIdle,
	}
}

func (a *Actor) ID() string {
	return a.id
}

func (a *Actor) State() State {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.state
}

func (a *Actor) setState(state State) {
	a.stateMu.Lock()
	a.state = state
	a.stateMu.Unlock()
}

// Process runs one request to Completed or Failed and returns the actor to
// Idle. Once Processing begins the outcome is persisted even if the caller
// stops waiting.
func (a *Actor) Process(ctx context.Context, req *Request) (*CompletionResult, error) {
	if req.Prompt == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "prompt is required")
	}
	if req.TaskType == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "taskType is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.setState(StateProcessing)
	result, err := a.process(ctx, req)
	if err != nil {
		a.setState(StateFailed)
	} else {
		a.setState(StateCompleted)
	}
	// No terminal state: the actor accepts the next request.
	a.setState(StateIdle)

	return result, err
}

func (a *Actor) process(ctx context.Context, req *Request) (*CompletionResult, error) {
	scopeID := req.ScopeID
	if scopeID == "" {
		scopeID = "default"
	}

	recent := a.memory.RecallWorking(ctx, a.id, scopeID)
	similar, queryEmbedding := a.recallSimilar(ctx, req)
	memoryContextUsed := len(recent) > 0 || len(similar) > 0

	routed, err := a.router.Complete(ctx, &router.Request{
		AgentID:           a.id,
		Prompt:            req.Prompt,
		TaskType:          req.TaskType,
		Complexity:        req.Complexity,
		PreferredProvider: req.PreferredProvider,
		MaxTokens:         req.MaxTokens,
		System:            buildSystemPrompt(similar),
		Context:           buildTurns(recent),
	})
	if err != nil {
		if errors.Is(err, errors.ErrConfiguration) || errors.Is(err, errors.ErrInvalidParams) {
			// Setup problems carry no learning signal and record nothing.
			return nil, err
		}
		if routed != nil {
			a.recordAttempts(ctx, req, scopeID, routed, queryEmbedding)
		}
		return nil, err
	}

	if routed.Cached {
		// No provider was invoked, so there is no new interaction outcome.
		return &CompletionResult{
			Success:           true,
			Provider:          routed.Provider,
			Response:          routed.Text,
			Cost:              0,
			Cached:            true,
			AgentID:           a.id,
			MemoryContextUsed: memoryContextUsed,
			SelfHealed:        routed.SelfHealed,
		}, nil
	}

	a.recordAttempts(ctx, req, scopeID, routed, queryEmbedding)

	return &CompletionResult{
		Success:           true,
		Provider:          routed.Provider,
		Response:          routed.Text,
		Cost:              routed.Cost,
		Cached:            false,
		AgentID:           a.id,
		MemoryContextUsed: memoryContextUsed,
		SelfHealed:        routed.SelfHealed,
	}, nil
}

// recordAttempts persists every provider attempt into the four tiers and
// reports each as a learning signal. Tier failures are logged and isolated:
// memory persistence must never fail the user-visible response.
func (a *Actor) recordAttempts(ctx context.Context, req *Request, scopeID string, routed *router.Result, queryEmbedding []float32) {
	for _, attempt := range routed.Attempts {
		interaction := &entity.Interaction{
			ID:         uuid.NewString(),
			AgentID:    a.id,
			ScopeID:    scopeID,
			Prompt:     req.Prompt,
			Response:   attempt.Text,
			TaskType:   req.TaskType,
			Complexity: req.Complexity,
			Provider:   attempt.Provider,
			Success:    attempt.Success,
			Cost:       attempt.Cost,
			TokensIn:   attempt.TokensIn,
			TokensOut:  attempt.TokensOut,
			Latency:    attempt.Latency,
			Timestamp:  time.Now().UTC(),
			Context:    req.Context,
		}

		if err := a.memory.AppendEpisodic(ctx, interaction); err != nil {
			a.logger.Warn("episodic write failed", slog.Any("error", err))
		}

		if err := a.memory.WriteAggregate(ctx, a.id, func(agg *memory.Aggregate) error {
			agg.TotalInteractions++
			agg.TotalCost += attempt.Cost
			agg.ProviderUsage[attempt.Provider]++
			agg.TaskTypeUsage[req.TaskType]++
			return nil
		}); err != nil {
			a.logger.Warn("aggregate write failed", slog.Any("error", err))
		}

		if err := a.learning.Update(ctx, a.id, req.TaskType, attempt.Provider, attempt.Success); err != nil {
			a.logger.Warn("learning update failed", slog.Any("error", err))
		}

		if !attempt.Success {
			continue
		}

		a.memory.AppendWorking(ctx, a.id, scopeID, interaction)

		if queryEmbedding != nil {
			if err := a.memory.AppendSemantic(ctx, &memory.SemanticEntry{
				ID:        interaction.ID,
				AgentID:   a.id,
				TaskType:  req.TaskType,
				Summary:   summarize(interaction),
				Provider:  attempt.Provider,
				Success:   true,
				CreatedAt: interaction.Timestamp,
				Embedding: queryEmbedding,
			}); err != nil {
				a.logger.Warn("semantic write failed", slog.Any("error", err))
			}
		}
	}
}

func (a *Actor) recallSimilar(ctx context.Context, req *Request) ([]memory.ScoredEntry, []float32) {
	if a.embedder == nil {
		return nil, nil
	}

	embeddings, err := a.embedder.Embed(ctx, req.Prompt)
	if err != nil || len(embeddings) == 0 {
		a.logger.Warn("embedding failed, continuing without semantic recall", slog.Any("error", err))
		return nil, nil
	}

	similar, err := a.memory.RecallSemantic(ctx, a.id, embeddings[0], 0)
	if err != nil {
		a.logger.Warn("semantic recall failed", slog.Any("error", err))
		return nil, embeddings[0]
	}
	return similar, embeddings[0]
}

// Stats returns the caller-visible projection of the Aggregate tier.
func (a *Actor) Stats(ctx context.Context) (*entity.AgentStats, error) {
	aggregate, err := a.memory.ReadAggregate(ctx, a.id)
	if err != nil {
		return nil, err
	}
	return aggregate.Stats(), nil
}

// Health reports "degraded" when the aggregate store is unreachable.
func (a *Actor) Health(ctx context.Context) string {
	if _, err := a.memory.ReadAggregate(ctx, a.id); err != nil {
		return "degraded"
	}
	return "healthy"
}

func buildSystemPrompt(similar []memory.ScoredEntry) string {
	if len(similar) == 0 {
		return ""
	}

	system := "Relevant past experiences:\n"
	for _, scored := range similar {
		system += fmt.Sprintf("- %s\n", scored.Entry.Summary)
	}
	return system
}

func buildTurns(recent []*entity.Interaction) []entity.Turn {
	var turns []entity.Turn
	for _, interaction := range recent {
		turns = append(turns, entity.Turn{Role: "user", Text: interaction.Prompt})
		if interaction.Response != "" {
			turns = append(turns, entity.Turn{Role: "assistant", Text: interaction.Response})
		}
	}
	return turns
}

func summarize(interaction *entity.Interaction) string {
	return fmt.Sprintf("[%s] %s -> %s",
		interaction.TaskType, truncate(interaction.Prompt, 120), truncate(interaction.Response, 160))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
