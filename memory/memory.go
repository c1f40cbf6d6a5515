package memory

import (
	"fmt"
	"time"

	"github.com/chittyos/chittyrouter/entity"
)

type (
	// SemanticEntry holds interaction metadata keyed by an embedding vector.
	// Entries persist indefinitely and are only useful through similarity
	// recall within a bounded top-K.
	SemanticEntry struct {
		ID        string    `json:"id"`
		AgentID   string    `json:"agentId"`
		TaskType  string    `json:"taskType"`
		Summary   string    `json:"summary"`
		Provider  string    `json:"provider"`
		Success   bool      `json:"success"`
		CreatedAt time.Time `json:"createdAt"`

		Embedding []float32 `json:"-"`
	}

	// ScoredEntry holds a semantic entry with its similarity score (0.0~1.0).
	ScoredEntry struct {
		Entry *SemanticEntry `json:"entry"`
		Score float64        `json:"score"`
	}

	// Aggregate is the one-per-agent statistics record. It is the only tier
	// requiring strict read-modify-write consistency; all mutation goes
	// through Manager.WriteAggregate.
	Aggregate struct {
		AgentID           string
		TotalInteractions int64
		TotalCost         float64
		ProviderUsage     map[string]int64
		TaskTypeUsage     map[string]int64
		ModelScores       map[string]float64
	}
)

func NewAggregate(agentID string) *Aggregate {
	return &Aggregate{
		AgentID:       agentID,
		ProviderUsage: make(map[string]int64),
		TaskTypeUsage: make(map[string]int64),
		ModelScores:   make(map[string]float64),
	}
}

func (a *Aggregate) Clone() *Aggregate {
	clone := NewAggregate(a.AgentID)
	clone.TotalInteractions = a.TotalInteractions
	clone.TotalCost = a.TotalCost
	for k, v := range a.ProviderUsage {
		clone.ProviderUsage[k] = v
	}
	for k, v := range a.TaskTypeUsage {
		clone.TaskTypeUsage[k] = v
	}
	for k, v := range a.ModelScores {
		clone.ModelScores[k] = v
	}
	return clone
}

func (a *Aggregate) Stats() *entity.AgentStats {
	clone := a.Clone()
	return &entity.AgentStats{
		AgentID:           clone.AgentID,
		TotalInteractions: clone.TotalInteractions,
		TotalCost:         clone.TotalCost,
		ProviderUsage:     clone.ProviderUsage,
		TaskTypeUsage:     clone.TaskTypeUsage,
		ModelScores:       clone.ModelScores,
	}
}

// ScoreKey builds the "taskType:provider" key of the score map.
func ScoreKey(taskType, providerID string) string {
	return fmt.Sprintf("%s:%s", taskType, providerID)
}

// workingKey follows the persisted layout agent:{id}:session:{scope}.
func workingKey(agentID, scopeID string) string {
	return fmt.Sprintf("agent:%s:session:%s", agentID, scopeID)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
