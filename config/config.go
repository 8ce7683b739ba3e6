// Package config loads agentbox configuration: built-in defaults, an
// optional YAML file, then environment overrides, in that order. API keys
// never live in the config file; they come from the environment only.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/agentbox/agentloop"
)

// FileName is the config file looked up inside the working root.
const FileName = "agentbox.yaml"

// Config is the on-disk configuration surface.
type Config struct {
	// Provider selects the backend ("gemini", "anthropic", "openai").
	// Empty uses the client's default provider.
	Provider string `yaml:"provider,omitempty"`

	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`

	// MaxIterations bounds backend calls per run. Zero keeps the default.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// ExecTimeoutMs bounds run_program wall-clock time. Zero keeps the default.
	ExecTimeoutMs int `yaml:"exec_timeout_ms,omitempty"`

	// ReadLimitBytes caps read_file output. Zero keeps the default.
	ReadLimitBytes int `yaml:"read_limit_bytes,omitempty"`

	// ToolOutputLimits overrides per-capability output character limits.
	ToolOutputLimits map[string]int `yaml:"tool_output_limits,omitempty"`

	// RepeatDetection toggles the advisory repeated-call warning.
	RepeatDetection *bool `yaml:"repeat_detection,omitempty"`

	// RepeatWindow sets the repeated-call detection window.
	RepeatWindow int `yaml:"repeat_window,omitempty"`
}

// Load reads the config file under dir if present, then applies environment
// overrides (AGENTBOX_PROVIDER, AGENTBOX_MODEL). A missing file is not an
// error; a malformed one is.
func Load(dir string) (Config, error) {
	var cfg Config

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("AGENTBOX_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("AGENTBOX_MODEL"); v != "" {
		cfg.Model = v
	}
	return cfg, nil
}

// SessionConfig maps the loaded configuration onto the agent loop defaults.
func (c Config) SessionConfig() agentloop.SessionConfig {
	sc := agentloop.DefaultSessionConfig()
	sc.Provider = c.Provider
	sc.Model = c.Model
	if c.MaxIterations > 0 {
		sc.MaxIterations = c.MaxIterations
	}
	if c.ExecTimeoutMs > 0 {
		sc.ExecTimeoutMs = c.ExecTimeoutMs
	}
	if c.ReadLimitBytes > 0 {
		sc.ReadLimitBytes = c.ReadLimitBytes
	}
	if len(c.ToolOutputLimits) > 0 {
		sc.ToolOutputLimits = c.ToolOutputLimits
	}
	if c.RepeatDetection != nil {
		sc.EnableRepeatDetection = *c.RepeatDetection
	}
	if c.RepeatWindow > 0 {
		sc.RepeatWindow = c.RepeatWindow
	}
	return sc
}
