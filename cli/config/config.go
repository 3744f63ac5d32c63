package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFileName is the config file looked up when --config is not given.
const DefaultFileName = "preload.yaml"

// Config represents a preload.yaml configuration file.
// All values are optional and act as defaults for preload run flags.
// CLI flags always override config values.
type Config struct {
	Manifest          string        `yaml:"manifest"`
	Workers           int           `yaml:"workers"`
	Classpath         []string      `yaml:"classpath"`
	BootAppend        []string      `yaml:"boot_append"`
	MaxClassVersion   uint16        `yaml:"max_class_version"`
	ProtectedPrefixes []string      `yaml:"protected_prefixes"`
	Archive           ArchiveConfig `yaml:"archive"`
	Policy            PolicyConfig  `yaml:"policy"`
	Adapter           AdapterConfig `yaml:"adapter"`
}

// ArchiveConfig selects where archive records go.
type ArchiveConfig struct {
	// Backend is none, frame or lode.
	Backend string `yaml:"backend"`
	// Path is the frame file, the Lode root, or bucket/prefix for S3.
	Path string     `yaml:"path"`
	Lode LodeConfig `yaml:"lode"`
}

// LodeConfig holds Lode storage settings.
type LodeConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"` // fs or s3
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig holds write policy defaults.
type PolicyConfig struct {
	Name          string `yaml:"name"`
	BufferRecords int    `yaml:"buffer_records"`
	BufferBytes   int64  `yaml:"buffer_bytes"`
}

// AdapterConfig holds completion notification settings.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Adapter types.
const (
	AdapterWebhook = "webhook"
	AdapterRedis   = "redis"
)

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks values that YAML typing cannot. Backend and policy
// names are checked where they are parsed.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.Policy.BufferRecords < 0 {
		errs = append(errs, fmt.Errorf("policy.buffer_records must be >= 0, got %d", c.Policy.BufferRecords))
	}
	if c.Policy.BufferBytes < 0 {
		errs = append(errs, fmt.Errorf("policy.buffer_bytes must be >= 0, got %d", c.Policy.BufferBytes))
	}
	switch c.Adapter.Type {
	case "":
	case AdapterWebhook, AdapterRedis:
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for %s", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type %q (want webhook or redis)", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
