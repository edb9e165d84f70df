package config

import "time"

// Posture defines how patient the monitor is with slow devices
type Posture string

const (
	PostureStealth    Posture = "stealth"    // Long waits, for links that drop under load
	PostureCautious   Posture = "cautious"   // Generous waits
	PostureBalanced   Posture = "balanced"   // Default lab behavior
	PostureAggressive Posture = "aggressive" // Short waits, fast failure
)

// ParsePosture converts a string to Posture, defaulting to PostureBalanced
func ParsePosture(s string) Posture {
	switch s {
	case "stealth":
		return PostureStealth
	case "cautious":
		return PostureCautious
	case "balanced":
		return PostureBalanced
	case "aggressive":
		return PostureAggressive
	default:
		return PostureBalanced
	}
}

// TimingProfile defines the per-probe bounded waits
type TimingProfile struct {
	DialTimeout      time.Duration `yaml:"dial_timeout"`       // opening a command-line session
	PromptTimeout    time.Duration `yaml:"prompt_timeout"`     // each login prompt
	PageTimeout      time.Duration `yaml:"page_timeout"`       // each read of command output
	PingTimeout      time.Duration `yaml:"ping_timeout"`       // reading a remote ping's output
	LivenessTimeout  time.Duration `yaml:"liveness_timeout"`   // bare connect check
	LocalPingTimeout time.Duration `yaml:"local_ping_timeout"` // one local echo
	MonitorInterval  time.Duration `yaml:"monitor_interval"`   // 0 disables periodic runs
}

// PostureProfiles maps postures to their default timing profiles
var PostureProfiles = map[Posture]TimingProfile{
	PostureStealth: {
		DialTimeout:      20 * time.Second,
		PromptTimeout:    10 * time.Second,
		PageTimeout:      5 * time.Second,
		PingTimeout:      20 * time.Second,
		LivenessTimeout:  10 * time.Second,
		LocalPingTimeout: 4 * time.Second,
	},
	PostureCautious: {
		DialTimeout:      15 * time.Second,
		PromptTimeout:    8 * time.Second,
		PageTimeout:      4 * time.Second,
		PingTimeout:      15 * time.Second,
		LivenessTimeout:  8 * time.Second,
		LocalPingTimeout: 3 * time.Second,
	},
	PostureBalanced: {
		DialTimeout:      10 * time.Second,
		PromptTimeout:    5 * time.Second,
		PageTimeout:      3 * time.Second,
		PingTimeout:      12 * time.Second,
		LivenessTimeout:  5 * time.Second,
		LocalPingTimeout: 2 * time.Second,
	},
	PostureAggressive: {
		DialTimeout:      5 * time.Second,
		PromptTimeout:    3 * time.Second,
		PageTimeout:      2 * time.Second,
		PingTimeout:      8 * time.Second,
		LivenessTimeout:  2 * time.Second,
		LocalPingTimeout: 1 * time.Second,
	},
}

// GetProfile returns the timing profile for a posture
func (p Posture) GetProfile() TimingProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
