package researchgw

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a config file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness. Zero-valued fields are
// allowed (defaults apply at engine construction); what is present must be
// coherent.
func ValidateConfig(cfg Config) error {
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}

	seen := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider entry is missing an id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider %q", p.ID)
		}
		seen[p.ID] = true
		if p.Priority < 0 {
			return fmt.Errorf("provider %q has negative priority", p.ID)
		}
	}

	if cfg.Cache.Capacity < 0 {
		return fmt.Errorf("cache capacity must not be negative")
	}
	if cfg.Retry.Attempts < 0 {
		return fmt.Errorf("retry attempts must not be negative")
	}
	if cfg.Retry.MaxDelayMS > 0 && cfg.Retry.BaseDelayMS > cfg.Retry.MaxDelayMS {
		return fmt.Errorf("retry base delay %dms exceeds max delay %dms", cfg.Retry.BaseDelayMS, cfg.Retry.MaxDelayMS)
	}

	switch cfg.History.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown history driver: %q", cfg.History.Driver)
	}
	if cfg.History.Driver == "postgres" && cfg.History.DSN == "" {
		return fmt.Errorf("postgres history requires a dsn")
	}

	return nil
}
