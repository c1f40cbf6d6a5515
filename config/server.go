package config

type ServerConfig struct {
	Port int `env:"PORT"`

	// PruneSchedule is a cron expression for the out-of-band episodic
	// retention sweep.
	PruneSchedule string `env:"EPISODIC_PRUNE_SCHEDULE"`
}

func NewServerConfig() *ServerConfig {
	config := ServerConfig{
		Port:          3001,
		PruneSchedule: "@hourly",
	}
	_ = resolveConfig(&config)
	return &config
}
