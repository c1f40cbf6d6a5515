package entity

import (
	"time"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

var complexityOrder = map[Complexity]int{
	ComplexitySimple:   0,
	ComplexityModerate: 1,
	ComplexityComplex:  2,
}

// Covers reports whether a provider capable of c can serve tier other.
// A provider serves any tier at or below its capability.
func (c Complexity) Covers(other Complexity) bool {
	return complexityOrder[c] >= complexityOrder[other]
}

func (c Complexity) Valid() bool {
	_, ok := complexityOrder[c]
	return ok
}

// Interaction is the unit of work. It is created once per provider attempt
// and immutable afterwards; the memory tiers reference it in tier-appropriate
// form rather than duplicating it.
type Interaction struct {
	ID         string         `json:"id"`
	AgentID    string         `json:"agentId"`
	ScopeID    string         `json:"scopeId"`
	Prompt     string         `json:"prompt"`
	Response   string         `json:"response,omitempty"`
	TaskType   string         `json:"taskType"`
	Complexity Complexity     `json:"complexity"`
	Provider   string         `json:"provider"`
	Success    bool           `json:"success"`
	Cost       float64        `json:"cost"`
	TokensIn   int            `json:"tokensIn"`
	TokensOut  int            `json:"tokensOut"`
	Latency    time.Duration  `json:"latency"`
	Timestamp  time.Time      `json:"timestamp"`
	Context    map[string]any `json:"context,omitempty"`
}

// Turn is one prior exchange handed to a provider as structured context.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
