package entity

// AgentStats is the caller-visible projection of the Aggregate tier.
type AgentStats struct {
	AgentID           string             `json:"agentId"`
	TotalInteractions int64              `json:"totalInteractions"`
	TotalCost         float64            `json:"totalCost"`
	ProviderUsage     map[string]int64   `json:"providerUsage"`
	TaskTypeUsage     map[string]int64   `json:"taskTypeUsage"`
	ModelScores       map[string]float64 `json:"modelScores"`
}
