// Package config provides configuration management for linkwatch.
//
// The config file describes how the monitor runs (listener, posture, timing,
// auth). The network being monitored lives in a separate topology document
// referenced by topology.path.
//
// Config file locations (priority order):
//  1. $LINKWATCH_CONFIG
//  2. ./linkwatch.yaml
//  3. $XDG_CONFIG_HOME/linkwatch/config.yaml
//  4. ~/.config/linkwatch/config.yaml
//  5. /etc/linkwatch/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvAuthSecret supplies the operator token secret when the file has none
	EnvAuthSecret = "LINKWATCH_AUTH_SECRET"

	defaultListen   = ":8080"
	defaultDBPath   = "./linkwatch.db"
	defaultTokenTTL = 12 * time.Hour
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		cfg := DefaultConfig()
		cfg.applyDefaults()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	// Decode over defaults so omitted sections keep their default values
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:      1,
		Server:       ServerConfig{Listen: defaultListen},
		Posture:      PostureBalanced,
		Database:     DatabaseConfig{Path: defaultDBPath},
		Capabilities: DefaultCapabilities(),
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Posture == "" {
		c.Posture = PostureBalanced
	}
	c.Posture = ParsePosture(string(c.Posture))
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDBPath
	}
	if c.Auth.Secret == "" {
		c.Auth.Secret = os.Getenv(EnvAuthSecret)
	}

	// Core capabilities are always enabled
	c.Capabilities.Core.HTTPServer.Enabled = true
	c.Capabilities.Core.SSEEvents.Enabled = true
}

// EffectiveTiming returns the timing profile with overrides applied
func (c *Config) EffectiveTiming() TimingProfile {
	base := c.Posture.GetProfile()

	if c.Timing == nil {
		return base
	}

	// Apply overrides
	if c.Timing.DialTimeout != nil {
		base.DialTimeout = c.Timing.DialTimeout.Duration()
	}
	if c.Timing.PromptTimeout != nil {
		base.PromptTimeout = c.Timing.PromptTimeout.Duration()
	}
	if c.Timing.PageTimeout != nil {
		base.PageTimeout = c.Timing.PageTimeout.Duration()
	}
	if c.Timing.PingTimeout != nil {
		base.PingTimeout = c.Timing.PingTimeout.Duration()
	}
	if c.Timing.LivenessTimeout != nil {
		base.LivenessTimeout = c.Timing.LivenessTimeout.Duration()
	}
	if c.Timing.LocalPingTimeout != nil {
		base.LocalPingTimeout = c.Timing.LocalPingTimeout.Duration()
	}
	if c.Timing.MonitorInterval != nil {
		base.MonitorInterval = c.Timing.MonitorInterval.Duration()
	}

	return base
}

// TokenTTL returns how long issued operator tokens stay valid
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTL == nil || c.Auth.TokenTTL.Duration() <= 0 {
		return defaultTokenTTL
	}
	return c.Auth.TokenTTL.Duration()
}

// AuthEnabled reports whether mutating endpoints require a token
func (c *Config) AuthEnabled() bool {
	return c.Auth.Secret != ""
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	timing := c.EffectiveTiming()

	topology := c.Topology.Path
	if topology == "" {
		topology = "built-in"
	}

	summary := fmt.Sprintf("Posture: %s, Topology: %s, Listen: %s\n", c.Posture, topology, c.Server.Listen)
	summary += fmt.Sprintf("Dial: %s, Prompt: %s, Ping: %s, Local ping: %s, Interval: %s\n",
		timing.DialTimeout, timing.PromptTimeout, timing.PingTimeout, timing.LocalPingTimeout, timing.MonitorInterval)
	summary += "Enabled capabilities:"
	for _, cap := range c.Capabilities.ListCapabilities() {
		if cap.Enabled {
			summary += fmt.Sprintf(" %s", cap.Name)
		}
	}

	return summary
}
