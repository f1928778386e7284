// Package config loads the orchestrator's process-wide configuration:
// defaults, an optional YAML file, then the environment-variable
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every ambient and domain setting the orchestrator needs.
type Config struct {
	SessionID string `yaml:"session_id"`
	Workspace string `yaml:"workspace"`

	Blackboard BlackboardConfig `yaml:"blackboard"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Graph      GraphConfig      `yaml:"graph"`
	Pruner     PrunerConfig     `yaml:"pruner"`
	Consensus  ConsensusConfig  `yaml:"consensus"`
	GitFlags   GitFlagsConfig   `yaml:"git"`
	Fault      FaultConfig      `yaml:"fault"`
	Plan       PlanConfig       `yaml:"plan"`
	LLM        LLMConfig        `yaml:"llm"`
}

// BlackboardConfig configures C1.
type BlackboardConfig struct {
	FilePath    string        `yaml:"file_path"`
	PostgresURL string        `yaml:"-"` // from POSTGRES_URL only, never persisted to disk
	LockTTL     time.Duration `yaml:"lock_ttl"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// TelemetryConfig configures C2.
type TelemetryConfig struct {
	DBPath        string        `yaml:"db_path"`
	RetentionDays int           `yaml:"retention_days"`
	Window        time.Duration `yaml:"window"`
}

// GraphConfig configures C4.
type GraphConfig struct {
	CachePath   string  `yaml:"cache_path"`
	Damping     float64 `yaml:"damping"`
	Parallelism int     `yaml:"parallelism"`
	LiteMode    bool    `yaml:"-"` // from SWARM_LITE_MODE
}

// PrunerConfig configures C5.
type PrunerConfig struct {
	KeepTail     int `yaml:"keep_tail"`
	KeepRelevant int `yaml:"keep_relevant"`
}

// ConsensusConfig configures C6.
type ConsensusConfig struct {
	MaxDebateRounds int `yaml:"max_debate_rounds"`
}

// GitFlagsConfig mirrors the environment-variable git behavior switches.
type GitFlagsConfig struct {
	StrictGit     bool `yaml:"-"` // SWARM_STRICT_GIT, default true
	GitHubToken   string `yaml:"-"`
	SBFLEnabled   bool `yaml:"-"`
	StrictTools   bool `yaml:"-"`
}

// FaultConfig configures C7's invocation from the orchestrator.
type FaultConfig struct {
	TestCommand string        `yaml:"test_command"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PlanConfig configures C11's Markdown bridge.
type PlanConfig struct {
	FilePath string `yaml:"file_path"`
}

// LLMConfig configures the OpenRouter provider.
type LLMConfig struct {
	APIKey  string        `yaml:"-"` // OPENROUTER_API_KEY only, never persisted to disk
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the baseline configuration before any file or
// environment overrides are applied.
func Default() *Config {
	return &Config{
		Blackboard: BlackboardConfig{
			FilePath:    "docs/ai/blackboard.json",
			LockTTL:     5 * time.Minute,
			LockTimeout: 5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			DBPath:        "docs/ai/telemetry.db",
			RetentionDays: 30,
			Window:        24 * time.Hour,
		},
		Graph: GraphConfig{
			CachePath:   ".hipporag_cache",
			Damping:     0.85,
			Parallelism: 4,
		},
		Pruner: PrunerConfig{
			KeepTail:     10,
			KeepRelevant: 20,
		},
		Consensus: ConsensusConfig{
			MaxDebateRounds: 5,
		},
		GitFlags: GitFlagsConfig{
			StrictGit: true,
		},
		Fault: FaultConfig{
			Timeout: 5 * time.Minute,
		},
		Plan: PlanConfig{
			FilePath: "docs/ai/PLAN.md",
		},
		LLM: LLMConfig{
			Model:   "anthropic/claude-3.5-sonnet",
			BaseURL: "https://openrouter.ai/api/v1",
			Timeout: 10 * time.Minute,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file at path (if
// non-empty and present), then environment variables. An error reading
// or parsing the file is fatal; a missing file is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv layers the environment-variable contract over the file/default
// configuration. Every variable here is read exactly once per process,
// after the file overlay, so an operator can always override a config
// file value at deploy time without editing it.
func applyEnv(cfg *Config) {
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		cfg.Blackboard.PostgresURL = url
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		cfg.GitFlags.GitHubToken = tok
	}
	cfg.Graph.LiteMode = envBool("SWARM_LITE_MODE", false)
	cfg.GitFlags.StrictGit = envBool("SWARM_STRICT_GIT", true)
	cfg.GitFlags.StrictTools = envBool("SWARM_STRICT_TOOLS", false)
	cfg.GitFlags.SBFLEnabled = envBool("SWARM_SBFL_ENABLED", false)
	if cmd := os.Getenv("TEST_COMMAND"); cmd != "" {
		cfg.Fault.TestCommand = cmd
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
}

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
