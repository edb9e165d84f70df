package config

// CapabilityType distinguishes built-in from optional capabilities
type CapabilityType string

const (
	CapabilityTypeCore     CapabilityType = "core"     // Always available
	CapabilityTypeOptional CapabilityType = "optional" // Operator may switch off
)

// CapabilityConfig defines settings for a single capability
type CapabilityConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CoreCapabilities defines the built-in capabilities
type CoreCapabilities struct {
	HTTPServer CapabilityConfig `yaml:"http_server"`
	SSEEvents  CapabilityConfig `yaml:"sse_events"`
}

// OptionalCapabilities defines surfaces that can be disabled
type OptionalCapabilities struct {
	WebSocket   CapabilityConfig `yaml:"websocket"`
	Metrics     CapabilityConfig `yaml:"metrics"`
	Diagnostics CapabilityConfig `yaml:"diagnostics"`
	Scheduler   CapabilityConfig `yaml:"scheduler"`
	Watch       CapabilityConfig `yaml:"watch"`
}

// CapabilitiesConfig holds all capability settings
type CapabilitiesConfig struct {
	Core     CoreCapabilities     `yaml:"core"`
	Optional OptionalCapabilities `yaml:"optional"`
}

// DefaultCapabilities returns the default capability configuration
func DefaultCapabilities() CapabilitiesConfig {
	return CapabilitiesConfig{
		Core: CoreCapabilities{
			HTTPServer: CapabilityConfig{Enabled: true},
			SSEEvents:  CapabilityConfig{Enabled: true},
		},
		Optional: OptionalCapabilities{
			WebSocket:   CapabilityConfig{Enabled: true},
			Metrics:     CapabilityConfig{Enabled: true},
			Diagnostics: CapabilityConfig{Enabled: true},
			Scheduler:   CapabilityConfig{Enabled: true}, // still needs a monitor_interval
			Watch:       CapabilityConfig{Enabled: true}, // only with a topology file
		},
	}
}

// CapabilityInfo provides runtime info about a capability
type CapabilityInfo struct {
	Name        string         `json:"name"`
	Type        CapabilityType `json:"type"`
	Enabled     bool           `json:"enabled"`
	Description string         `json:"description"`
}

// ListCapabilities returns info about all capabilities
func (c *CapabilitiesConfig) ListCapabilities() []CapabilityInfo {
	return []CapabilityInfo{
		{
			Name:        "http_server",
			Type:        CapabilityTypeCore,
			Enabled:     c.Core.HTTPServer.Enabled,
			Description: "Status API server",
		},
		{
			Name:        "sse_events",
			Type:        CapabilityTypeCore,
			Enabled:     c.Core.SSEEvents.Enabled,
			Description: "Server-Sent Events for live edge status",
		},
		{
			Name:        "websocket",
			Type:        CapabilityTypeOptional,
			Enabled:     c.Optional.WebSocket.Enabled,
			Description: "WebSocket stream of monitor events",
		},
		{
			Name:        "metrics",
			Type:        CapabilityTypeOptional,
			Enabled:     c.Optional.Metrics.Enabled,
			Description: "Prometheus metrics endpoint",
		},
		{
			Name:        "diagnostics",
			Type:        CapabilityTypeOptional,
			Enabled:     c.Optional.Diagnostics.Enabled,
			Description: "On-demand router diagnostics",
		},
		{
			Name:        "scheduler",
			Type:        CapabilityTypeOptional,
			Enabled:     c.Optional.Scheduler.Enabled,
			Description: "Periodic monitoring runs",
		},
		{
			Name:        "watch",
			Type:        CapabilityTypeOptional,
			Enabled:     c.Optional.Watch.Enabled,
			Description: "Reload the topology file when it changes",
		},
	}
}

// IsEnabled checks if a capability is enabled
func (c *CapabilitiesConfig) IsEnabled(name string) bool {
	for _, cap := range c.ListCapabilities() {
		if cap.Name == name {
			return cap.Enabled
		}
	}
	return false
}
