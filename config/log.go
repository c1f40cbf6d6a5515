package config

type LogConfig struct {
	LogLevel   string `env:"LOG_LEVEL"`
	LogHandler string `env:"LOG_HANDLER"`
}

func NewLogConfig() *LogConfig {
	config := LogConfig{
		LogLevel:   "info",
		LogHandler: "default",
	}
	if err := resolveConfig(&config); err != nil {
		return &config
	}
	return &config
}
