package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/streamhub/core/metrics"
	"github.com/kilianp07/streamhub/infra/monitoring"
	"github.com/kilianp07/streamhub/infra/mqtt"
)

type Config struct {
	Stream     StreamConfig            `json:"stream"`
	Bus        BusConfig               `json:"bus"`
	Logging    LoggingConfig           `json:"logging"`
	Metrics    metrics.Config          `json:"metrics"`
	Prometheus PrometheusConfig        `json:"prometheus"`
	MQTT       mqtt.Config             `json:"mqtt"`
	Sentry     monitoring.SentryConfig `json:"sentry"`
}

// BusConfig sizes the hub event bus.
type BusConfig struct {
	Buffer int `json:"buffer"`
}

// PrometheusConfig enables the metrics endpoint when Address is set.
type PrometheusConfig struct {
	Address string `json:"address"`
}

// Load reads the configuration file at path, applies K_ prefixed
// environment overrides and validates the result. An empty path loads
// defaults and environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Stream.SetDefaults()
	c.Logging.SetDefaults()
	if c.Bus.Buffer <= 0 {
		c.Bus.Buffer = 256
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if r := c.Sentry.TracesSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("sentry: traces_sample_rate %v out of [0, 1]", r)
	}
	return nil
}
