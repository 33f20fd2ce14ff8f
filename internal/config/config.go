package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models zenflow.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr" json:"addr"`
		BasePath string `yaml:"base_path" json:"base_path"`
	} `yaml:"server" json:"server"`
	Auth struct {
		SessionTTL Duration `yaml:"session_ttl" json:"session_ttl"`
	} `yaml:"auth" json:"auth"`
	Rates struct {
		Default string                `yaml:"default" json:"default"`
		Presets map[string]RatePreset `yaml:"presets" json:"presets"`
	} `yaml:"rates" json:"rates"`
	AI   AIConfig `yaml:"ai" json:"ai"`
	Seed struct {
		Demo     bool   `yaml:"demo" json:"demo"`
		Password string `yaml:"password" json:"-"`
	} `yaml:"seed" json:"seed"`
}

// RatePreset is a named manager/performer/senior split applied when creating tasks.
type RatePreset struct {
	Description     string  `yaml:"description" json:"description,omitempty"`
	Manager         float64 `yaml:"manager" json:"manager"`
	Performer       float64 `yaml:"performer" json:"performer"`
	SeniorPerformer float64 `yaml:"senior_performer" json:"senior_performer"`
}

type AIConfig struct {
	Model           string  `yaml:"model" json:"model"`
	Temperature     float32 `yaml:"temperature" json:"temperature"`
	TopP            float32 `yaml:"top_p" json:"top_p"`
	MaxOutputTokens int32   `yaml:"max_output_tokens" json:"max_output_tokens"`
	ThinkingBudget  int32   `yaml:"thinking_budget" json:"thinking_budget"`
}

// Duration decodes YAML strings like "720h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with zenflow config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to Default when the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Auth.SessionTTL.Duration <= 0 {
		return fmt.Errorf("config.auth.session_ttl must be positive")
	}
	if len(c.Rates.Presets) == 0 {
		return fmt.Errorf("config.rates.presets is required")
	}
	for name := range c.Rates.Presets {
		if name == "" {
			return fmt.Errorf("config.rates.presets contains empty preset name")
		}
	}
	if c.Rates.Default != "" {
		if _, ok := c.Rates.Presets[c.Rates.Default]; !ok {
			return fmt.Errorf("default rate preset %s not defined", c.Rates.Default)
		}
	}
	if c.AI.Model == "" {
		return fmt.Errorf("config.ai.model is required")
	}
	if c.AI.MaxOutputTokens < 0 {
		return fmt.Errorf("config.ai.max_output_tokens must not be negative")
	}
	if c.Seed.Demo && c.Seed.Password == "" {
		return fmt.Errorf("config.seed.password is required when seed.demo is enabled")
	}
	return nil
}

// Preset returns the named rate preset, or the default one when name is empty.
func (c *Config) Preset(name string) (RatePreset, error) {
	if name == "" {
		name = c.Rates.Default
	}
	p, ok := c.Rates.Presets[name]
	if !ok {
		return RatePreset{}, fmt.Errorf("rate preset %s not found", name)
	}
	return p, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "zenflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from data keep
// their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v1

auth:
  session_ttl: 720h

rates:
  default: standard
  presets:
    standard:
      description: "Manager 10%, performer 15%"
      manager: 10
      performer: 15
      senior_performer: 0
    senior:
      description: "Manager 8%, performer 15%, senior performer 6%"
      manager: 8
      performer: 15
      senior_performer: 6

ai:
  model: gemini-3-flash-preview
  temperature: 0.7
  top_p: 0.8
  max_output_tokens: 500
  thinking_budget: 100

seed:
  demo: false
  password: password123
`
