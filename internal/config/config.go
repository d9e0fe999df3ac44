// Package config loads the read-only runtime configuration view consumed by
// every other component (spec §6): LLM endpoint, token/memory budgets, tool
// limits, and the working root. Grounded on the teacher's flag+godotenv
// bootstrap (cmd/repl/main.go, cmd/repl/env.go) but reworked onto viper, the
// way andymwolf-agentium layers config — defaults, a config file, and env
// vars all resolve through one precedence chain instead of the
// teacher's hand-rolled os.Setenv plumbing.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// View is the immutable configuration snapshot handed to the orchestrator
// and every component it wires up. Nothing downstream mutates it; a new
// task gets a fresh View only if the process is restarted.
type View struct {
	LLMHost               string
	LLMPort               int
	Model                 string
	HardTokenLimit        int
	SoftTokenLimit        int
	TargetTokenLimit      int
	MemoryCapacity        int
	MaxParallelTools      int
	DefaultToolTimeoutSec int
	MaxOutputBytes        int
	WorkingRoot           string
	AllowNetwork          bool
}

// Endpoint returns the NDJSON generate endpoint the streaming client should
// dial, http://Host:Port/api/generate.
func (v View) Endpoint() string {
	return fmt.Sprintf("http://%s:%d/api/generate", v.LLMHost, v.LLMPort)
}

// DefaultToolTimeout is DefaultToolTimeoutSec as a time.Duration.
func (v View) DefaultToolTimeout() time.Duration {
	return time.Duration(v.DefaultToolTimeoutSec) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm_host", "127.0.0.1")
	v.SetDefault("llm_port", 11434)
	v.SetDefault("model", "qwen2.5:7b-instruct")
	v.SetDefault("hard_token_limit", 128000)
	v.SetDefault("soft_token_limit", 96000)
	v.SetDefault("target_token_limit", 80000)
	v.SetDefault("memory_capacity", 500)
	v.SetDefault("max_parallel_tools", 4)
	v.SetDefault("default_tool_timeout_sec", 60)
	v.SetDefault("max_output_bytes", 4000)
	v.SetDefault("working_root", ".")
	v.SetDefault("allow_network", false)
}

// Load resolves a View from (in increasing precedence): built-in defaults,
// an optional config file at configPath, and the AGENTCORE_-prefixed
// environment. A .env file in the working directory (if present) is loaded
// into the environment first; its values do not override variables that are
// already set. configPath may be empty, in which case only env/defaults apply.
func Load(configPath string) (View, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("agentcore")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return View{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	view := View{
		LLMHost:               v.GetString("llm_host"),
		LLMPort:               v.GetInt("llm_port"),
		Model:                 v.GetString("model"),
		HardTokenLimit:        v.GetInt("hard_token_limit"),
		SoftTokenLimit:        v.GetInt("soft_token_limit"),
		TargetTokenLimit:      v.GetInt("target_token_limit"),
		MemoryCapacity:        v.GetInt("memory_capacity"),
		MaxParallelTools:      v.GetInt("max_parallel_tools"),
		DefaultToolTimeoutSec: v.GetInt("default_tool_timeout_sec"),
		MaxOutputBytes:        v.GetInt("max_output_bytes"),
		WorkingRoot:           v.GetString("working_root"),
		AllowNetwork:          v.GetBool("allow_network"),
	}
	if err := view.validate(); err != nil {
		return View{}, err
	}
	return view, nil
}

func (v View) validate() error {
	if v.TargetTokenLimit <= 0 || v.SoftTokenLimit <= v.TargetTokenLimit || v.HardTokenLimit <= v.SoftTokenLimit {
		return fmt.Errorf("token limits must satisfy 0 < target(%d) < soft(%d) < hard(%d)", v.TargetTokenLimit, v.SoftTokenLimit, v.HardTokenLimit)
	}
	if v.MemoryCapacity <= 0 {
		return fmt.Errorf("memory_capacity must be positive, got %d", v.MemoryCapacity)
	}
	if v.MaxParallelTools <= 0 {
		return fmt.Errorf("max_parallel_tools must be positive, got %d", v.MaxParallelTools)
	}
	return nil
}
