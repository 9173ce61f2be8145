// Package config loads the reconciler's YAML configuration: where state
// lives, how to reach the remote, and the set of resource instances to
// manage.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
	"github.com/spacelift-io/flows-app-aws-resources/internal/store"
)

// Config is the full configuration file.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Store      store.Config     `yaml:"store"`
	Remote     RemoteConfig     `yaml:"remote"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Resources  []ResourceConfig `yaml:"resources"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RemoteConfig configures the connection to the resource-hosting remote.
type RemoteConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
	// RateLimitRPS caps outgoing remote calls per second.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

type ReconcilerConfig struct {
	// PollInterval is the delay between polls of an in-flight operation.
	PollInterval Duration `yaml:"poll_interval"`
	// DriftCheckInterval is how often watch mode re-examines settled
	// instances.
	DriftCheckInterval Duration `yaml:"drift_check_interval"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ResourceConfig declares one managed resource instance.
type ResourceConfig struct {
	Name             string         `yaml:"name"`
	Type             string         `yaml:"type"`
	Region           string         `yaml:"region"`
	ReconcileOnDrift bool           `yaml:"reconcile_on_drift"`
	Properties       map[string]any `yaml:"properties"`
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Reconciler.PollInterval.Duration == 0 {
		c.Reconciler.PollInterval.Duration = 10 * time.Second
	}
	if c.Reconciler.DriftCheckInterval.Duration == 0 {
		c.Reconciler.DriftCheckInterval.Duration = time.Minute
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.Remote.RateLimitRPS == 0 {
		c.Remote.RateLimitRPS = 5
	}
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Resources))
	for i, r := range c.Resources {
		if r.Name == "" {
			return fmt.Errorf("resources[%d]: name is required", i)
		}
		if r.Type == "" {
			return fmt.Errorf("resource %q: type is required", r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("duplicate resource name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// Resource returns the named resource declaration.
func (c *Config) Resource(name string) (ResourceConfig, bool) {
	for _, r := range c.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return ResourceConfig{}, false
}

// Instance builds the engine's view of one declared resource. Engine-owned
// fields stay zero; the store fills them in before the first step.
func (c *Config) Instance(r ResourceConfig) resource.Instance {
	region := r.Region
	if region == "" {
		region = c.Remote.Region
	}
	props, _ := normalizeValue(r.Properties).(map[string]any)
	return resource.Instance{
		TypeName:         r.Type,
		Region:           region,
		DesiredConfig:    props,
		ReconcileOnDrift: r.ReconcileOnDrift,
		Status:           resource.StatusPending,
	}
}

// normalizeValue rewrites yaml-decoded values to the shapes encoding/json
// produces, stringifying map keys at every depth.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprintf("%v", k)] = normalizeValue(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = normalizeValue(item)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = normalizeValue(item)
		}
		return s
	default:
		return v
	}
}

// Duration wraps time.Duration so config values read like "30s" or "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}
