package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version      int                `yaml:"version"`
	Server       ServerConfig       `yaml:"server"`
	Topology     TopologyConfig     `yaml:"topology"`
	Database     DatabaseConfig     `yaml:"database"`
	Posture      Posture            `yaml:"posture"`
	Timing       *TimingOverride    `yaml:"timing,omitempty"`
	Auth         AuthConfig         `yaml:"auth"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Listen      string   `yaml:"listen"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// TopologyConfig points at the topology document.
// An empty path selects the built-in lab topology.
type TopologyConfig struct {
	Path string `yaml:"path,omitempty"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds operator token settings. The secret is normally
// supplied through the environment rather than the file.
type AuthConfig struct {
	Secret   string    `yaml:"secret,omitempty"`
	TokenTTL *Duration `yaml:"token_ttl,omitempty"`
}

// TimingOverride allows overriding posture defaults
type TimingOverride struct {
	DialTimeout      *Duration `yaml:"dial_timeout,omitempty"`
	PromptTimeout    *Duration `yaml:"prompt_timeout,omitempty"`
	PageTimeout      *Duration `yaml:"page_timeout,omitempty"`
	PingTimeout      *Duration `yaml:"ping_timeout,omitempty"`
	LivenessTimeout  *Duration `yaml:"liveness_timeout,omitempty"`
	LocalPingTimeout *Duration `yaml:"local_ping_timeout,omitempty"`
	MonitorInterval  *Duration `yaml:"monitor_interval,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
