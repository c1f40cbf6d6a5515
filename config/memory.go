package config

import "time"

type MemoryConfig struct {
	// WorkingTTL is how long a working-memory scope survives without
	// activity. Absence after expiry is a normal state, not an error.
	WorkingTTL    time.Duration `env:"MEMORY_WORKING_TTL"`
	WorkingWindow int           `env:"MEMORY_WORKING_WINDOW"`

	SemanticTopK         int     `env:"MEMORY_SEMANTIC_TOP_K"`
	SemanticMinScore     float64 `env:"MEMORY_SEMANTIC_MIN_SCORE"`
	SemanticEmbeddingDim int     `env:"MEMORY_SEMANTIC_EMBEDDING_DIM"`

	// EpisodicRetention is the window after which episodes become eligible
	// for out-of-band pruning.
	EpisodicRetention time.Duration `env:"MEMORY_EPISODIC_RETENTION"`

	SqlitePath string `env:"MEMORY_SQLITE_PATH"`
}

func NewMemoryConfig() *MemoryConfig {
	config := MemoryConfig{
		WorkingTTL:           time.Hour,
		WorkingWindow:        20,
		SemanticTopK:         5,
		SemanticMinScore:     0.55,
		SemanticEmbeddingDim: 1536,
		EpisodicRetention:    90 * 24 * time.Hour,
		SqlitePath:           "chittyrouter.db",
	}
	_ = resolveConfig(&config)
	return &config
}
