// Package config loads the framework configuration from a YAML file.
// The configuration is constructed once at process start and passed
// into the scheduler, runner, and state store constructors; core logic
// never reads ambient global settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultCheckIntervalSeconds is the scheduler tick granularity used
// when the config file does not set one.
const DefaultCheckIntervalSeconds = 30

// JobConfig registers one workflow on a cron schedule.
type JobConfig struct {
	// Workflow is the registered workflow name. Required.
	Workflow string `yaml:"workflow"`

	// Schedule is a standard 5-field cron expression. Required.
	Schedule string `yaml:"schedule"`

	// Timezone is an IANA zone name the schedule is evaluated in.
	// Defaults to UTC.
	Timezone string `yaml:"timezone"`
}

// GitHubConfig configures the GitHub API client.
type GitHubConfig struct {
	// Username is the account whose PR involvement is ingested.
	Username string `yaml:"username"`

	// Token is the API token. Overridable via GITHUB_TOKEN.
	Token string `yaml:"token"`
}

// FirefliesConfig configures the Fireflies API client.
type FirefliesConfig struct {
	// APIKey authenticates GraphQL requests. Overridable via
	// FIREFLIES_API_KEY.
	APIKey string `yaml:"api_key"`
}

// Config is the resolved framework configuration.
type Config struct {
	// RuntimeRoot holds state files, logs, and the PID marker.
	RuntimeRoot string `yaml:"runtime_root"`

	// VaultDir is the note vault root the ingest workflows write into.
	VaultDir string `yaml:"vault_dir"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// CheckIntervalSeconds is the scheduler tick granularity.
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`

	// Jobs are the cron registrations the schedule daemon runs.
	Jobs []JobConfig `yaml:"jobs"`

	GitHub    GitHubConfig    `yaml:"github"`
	Fireflies FirefliesConfig `yaml:"fireflies"`
}

// Load reads and validates a configuration file. Unknown fields are
// rejected. Secrets left empty in the file are filled from the
// GITHUB_TOKEN and FIREFLIES_API_KEY environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CheckIntervalSeconds <= 0 {
		c.CheckIntervalSeconds = DefaultCheckIntervalSeconds
	}
	for i := range c.Jobs {
		if c.Jobs[i].Timezone == "" {
			c.Jobs[i].Timezone = "UTC"
		}
	}
	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if c.Fireflies.APIKey == "" {
		c.Fireflies.APIKey = os.Getenv("FIREFLIES_API_KEY")
	}
}

// Validate checks that required fields are present and jobs are well
// formed. Cron expressions are validated later, at registration.
func (c *Config) Validate() error {
	if c.RuntimeRoot == "" {
		return fmt.Errorf("runtime_root is required")
	}
	for _, job := range c.Jobs {
		if job.Workflow == "" {
			return fmt.Errorf("job with empty workflow name")
		}
		if job.Schedule == "" {
			return fmt.Errorf("job %q has no schedule", job.Workflow)
		}
	}
	return nil
}

// CheckInterval returns the tick granularity as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}
