package config

type LearningConfig struct {
	// Baseline is assigned to any (task type, provider) pair with no
	// history. Relative order is what matters, not absolute magnitude.
	Baseline float64 `env:"LEARNING_BASELINE"`

	SuccessDelta float64 `env:"LEARNING_SUCCESS_DELTA"`

	// FailureDelta is applied as a subtraction. It is larger than
	// SuccessDelta so bad choices unlearn faster than good ones learn.
	FailureDelta float64 `env:"LEARNING_FAILURE_DELTA"`
}

func NewLearningConfig() *LearningConfig {
	config := LearningConfig{
		Baseline:     0.7,
		SuccessDelta: 0.7,
		FailureDelta: 1.0,
	}
	_ = resolveConfig(&config)
	return &config
}
