package config

import (
	"fmt"
	"time"
)

// Cache kinds for fallback streams.
const (
	CacheWeak = "weak"
	CacheTTL  = "ttl"
)

// StreamConfig tunes the hub.
type StreamConfig struct {
	// Debug enables verbose tracing of registration and dispatch.
	Debug bool `json:"debug"`
	// DefaultCache selects how fallback streams are cached: "weak" keeps
	// them while reachable, "ttl" keeps them for DefaultTTLSeconds after
	// their last use.
	DefaultCache      string `json:"default_cache"`
	DefaultTTLSeconds int    `json:"default_ttl_seconds"`
}

// SetDefaults applies sane defaults.
func (c *StreamConfig) SetDefaults() {
	if c.DefaultCache == "" {
		c.DefaultCache = CacheWeak
	}
	if c.DefaultCache == CacheTTL && c.DefaultTTLSeconds == 0 {
		c.DefaultTTLSeconds = 300
	}
}

// Validate checks the cache settings.
func (c StreamConfig) Validate() error {
	switch c.DefaultCache {
	case CacheWeak:
	case CacheTTL:
		if c.DefaultTTLSeconds <= 0 {
			return fmt.Errorf("default_ttl_seconds must be positive")
		}
	default:
		return fmt.Errorf("unknown default_cache %s", c.DefaultCache)
	}
	return nil
}

// DefaultTTL returns the fallback cache TTL, zero for the weak cache.
func (c StreamConfig) DefaultTTL() time.Duration {
	if c.DefaultCache != CacheTTL {
		return 0
	}
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}
