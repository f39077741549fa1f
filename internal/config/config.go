package config

import (
	"fmt"
	"time"
)

// Config represents the complete speedagent configuration
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Browser  BrowserConfig  `yaml:"browser"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Reviewer ReviewerConfig `yaml:"reviewer"`
	Build    BuildConfig    `yaml:"build"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
}

// AgentConfig bounds the optimization loop
type AgentConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`    // iteration ceiling, default 10
	PerformanceFloor float64       `yaml:"performance_floor"` // avg score needed for the review-free pass, default 85
	RegistryEviction time.Duration `yaml:"registry_eviction"` // delay before a terminal run is evicted, default 1h
}

// BrowserConfig holds Chrome driver configuration
type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	ChromePath     string        `yaml:"chrome_path,omitempty"` // autodetected when empty
	NavigateWait   time.Duration `yaml:"navigate_wait"`         // post-navigation settle, default 2s
	SettleInterval time.Duration `yaml:"settle_interval"`       // post-interaction settle, default 800ms
	UserAgent      string        `yaml:"user_agent,omitempty"`
}

// ScorerConfig holds the external performance scoring API configuration
type ScorerConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"` // empty means heuristic-only
	APIKey   string `yaml:"api_key,omitempty"`
	Strategy string `yaml:"strategy"` // mobile or desktop
}

// ReviewerConfig holds the LLM reviewer/planner configuration
type ReviewerConfig struct {
	Provider string `yaml:"provider"` // openrouter, mock
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// BuildConfig holds build pipeline timeouts and endpoints
type BuildConfig struct {
	QueueEndpoint    string        `yaml:"queue_endpoint,omitempty"`
	PollInterval     time.Duration `yaml:"poll_interval"`     // default 5s
	BuildTimeout     time.Duration `yaml:"build_timeout"`     // hard, default 10m
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"` // soft, default 2m
}

// StorageConfig holds local storage paths
type StorageConfig struct {
	WorkDir      string `yaml:"work_dir"` // run artifacts, default .speedagent/runs
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds the event-stream server configuration
type ServerConfig struct {
	Addr string `yaml:"addr"` // default :8733
}

// ApplyDefaults fills unset fields with their defaults
func (c *Config) ApplyDefaults() {
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = 10
	}
	if c.Agent.PerformanceFloor == 0 {
		c.Agent.PerformanceFloor = 85
	}
	if c.Agent.RegistryEviction == 0 {
		c.Agent.RegistryEviction = time.Hour
	}
	if c.Browser.NavigateWait == 0 {
		c.Browser.NavigateWait = 2 * time.Second
	}
	if c.Browser.SettleInterval == 0 {
		c.Browser.SettleInterval = 800 * time.Millisecond
	}
	if c.Scorer.Strategy == "" {
		c.Scorer.Strategy = "mobile"
	}
	if c.Reviewer.Provider == "" {
		c.Reviewer.Provider = "openrouter"
	}
	if c.Reviewer.Model == "" {
		c.Reviewer.Model = "anthropic/claude-3.5-sonnet"
	}
	if c.Build.PollInterval == 0 {
		c.Build.PollInterval = 5 * time.Second
	}
	if c.Build.BuildTimeout == 0 {
		c.Build.BuildTimeout = 10 * time.Minute
	}
	if c.Build.ReadinessTimeout == 0 {
		c.Build.ReadinessTimeout = 2 * time.Minute
	}
	if c.Storage.WorkDir == "" {
		c.Storage.WorkDir = ".speedagent/runs"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = ".speedagent/speedagent.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8733"
	}
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.PerformanceFloor < 0 || c.Agent.PerformanceFloor > 100 {
		return fmt.Errorf("agent.performance_floor must be within 0-100, got %v", c.Agent.PerformanceFloor)
	}
	if c.Scorer.Strategy != "mobile" && c.Scorer.Strategy != "desktop" {
		return fmt.Errorf("scorer.strategy must be mobile or desktop, got %q", c.Scorer.Strategy)
	}
	if c.Build.PollInterval <= 0 {
		return fmt.Errorf("build.poll_interval must be positive")
	}
	if c.Build.BuildTimeout < c.Build.PollInterval {
		return fmt.Errorf("build.build_timeout must be at least build.poll_interval")
	}
	return nil
}
