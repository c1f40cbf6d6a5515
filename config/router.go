package config

import "time"

type RouterConfig struct {
	// CacheTTL bounds how long a successful completion may be served back
	// for an identical request without invoking any provider.
	CacheTTL time.Duration `env:"ROUTER_CACHE_TTL"`

	// InvokeTimeout bounds a single provider invocation. A timeout is a
	// transient failure and feeds the fallback chain.
	InvokeTimeout time.Duration `env:"ROUTER_INVOKE_TIMEOUT"`

	MaxCacheEntries int64 `env:"ROUTER_MAX_CACHE_ENTRIES"`
}

func NewRouterConfig() *RouterConfig {
	config := RouterConfig{
		CacheTTL:        5 * time.Minute,
		InvokeTimeout:   30 * time.Second,
		MaxCacheEntries: 4096,
	}
	_ = resolveConfig(&config)
	return &config
}
