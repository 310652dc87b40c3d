package observer

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// MaxUpdateCount is how many times a watcher may run again in one flush
	// before it is reported as an infinite update loop.
	MaxUpdateCount int `yaml:"max_update_count" validate:"gte=1"`
	// Async defers flushes to the next tick. When false a queued watcher
	// flushes the queue immediately.
	Async      bool `yaml:"async"`
	Silent     bool `yaml:"silent"`
	Production bool `yaml:"production"`

	MetricsNamespace string `yaml:"metrics_namespace" validate:"omitempty,max=64"`
	TracerName       string `yaml:"tracer_name" validate:"required"`
}

func DefaultConfig() Config {
	return Config{
		MaxUpdateCount:   DefaultMaxUpdateCount,
		Async:            true,
		MetricsNamespace: "observer",
		TracerName:       "github.com/delaneyj/observerparty/observer",
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid observer config: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig, so absent keys keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
