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

	"github.com/battrelay/battrelay/core/alert"
	"github.com/battrelay/battrelay/core/estimator"
	"github.com/battrelay/battrelay/core/gate"
	"github.com/battrelay/battrelay/core/metrics"
	"github.com/battrelay/battrelay/infra/mqtt"
)

// Config aggregates every section of the service configuration.
type Config struct {
	MQTT    mqtt.Config      `json:"mqtt"`
	Battery estimator.Config `json:"battery"`
	Gate    gate.Thresholds  `json:"gate"`
	Alert   alert.Config     `json:"alert"`
	Metrics metrics.Config   `json:"metrics"`
}

// Load reads a YAML or JSON configuration file, applies B_ prefixed
// environment overrides, fills defaults and validates every section.
// Validation failures here are the only fatal errors in the system.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
	// Optional environment overrides
	if err := k.Load(env.Provider("B_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "b_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Gate.SetDefaults()
	cfg.Alert.SetDefaults()
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Battery.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Gate.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Alert.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
