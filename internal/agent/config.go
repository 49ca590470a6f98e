package agent

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the desktop agent's settings. It is loaded from a JSON
// file next to the binary; every key can be overridden with an AGENT_
// environment variable (e.g. AGENT_API_KEY).
type Config struct {
	// Endpoint is the cloud bridge base URL, e.g. "https://sync.example.com".
	Endpoint string
	// APIKey authenticates this connector against the bridge.
	APIKey string
	// EngineHost and EnginePort locate the local accounting engine.
	EngineHost string
	EnginePort int
	// PollInterval is the delay between pending-operation polls.
	PollInterval time.Duration
	// HeartbeatEvery sends a heartbeat on every Nth poll.
	HeartbeatEvery int
	// ClaimLimit bounds how many operations one poll may claim.
	ClaimLimit int
	// ImportTimeout bounds a single engine import call.
	ImportTimeout time.Duration
	// StatusTimeout bounds engine reachability checks.
	StatusTimeout time.Duration
	// Version is reported in heartbeats.
	Version string
}

// EngineURL returns the local engine's HTTP endpoint
func (c *Config) EngineURL() string {
	return fmt.Sprintf("http://%s:%d", c.EngineHost, c.EnginePort)
}

// LoadConfig reads the agent configuration. When path is empty the file
// agent.json is looked up in the working directory.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agent")
		v.SetConfigType("json")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AGENT")
	v.AutomaticEnv()

	v.SetDefault("endpoint", "http://localhost:8080")
	v.SetDefault("engine_host", "localhost")
	v.SetDefault("engine_port", 9000)
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("heartbeat_every", 6)
	v.SetDefault("claim_limit", 10)
	v.SetDefault("import_timeout", "60s")
	v.SetDefault("status_timeout", "5s")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading agent config: %w", err)
		}
	}

	cfg := &Config{
		Endpoint:       v.GetString("endpoint"),
		APIKey:         v.GetString("api_key"),
		EngineHost:     v.GetString("engine_host"),
		EnginePort:     v.GetInt("engine_port"),
		PollInterval:   v.GetDuration("poll_interval"),
		HeartbeatEvery: v.GetInt("heartbeat_every"),
		ClaimLimit:     v.GetInt("claim_limit"),
		ImportTimeout:  v.GetDuration("import_timeout"),
		StatusTimeout:  v.GetDuration("status_timeout"),
		Version:        v.GetString("version"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and sane
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("agent config: endpoint is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("agent config: api_key is required")
	}
	if c.EnginePort <= 0 || c.EnginePort > 65535 {
		return fmt.Errorf("agent config: engine_port %d out of range", c.EnginePort)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("agent config: poll_interval must be positive")
	}
	if c.HeartbeatEvery <= 0 {
		return fmt.Errorf("agent config: heartbeat_every must be positive")
	}
	if c.ClaimLimit <= 0 {
		return fmt.Errorf("agent config: claim_limit must be positive")
	}
	return nil
}
