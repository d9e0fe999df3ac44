package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.LLMHost != "127.0.0.1" || v.LLMPort != 11434 {
		t.Fatalf("unexpected default endpoint fields: %+v", v)
	}
	if v.Endpoint() != "http://127.0.0.1:11434/api/generate" {
		t.Fatalf("unexpected endpoint: %s", v.Endpoint())
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("AGENTCORE_MODEL", "llama3:70b")
	v, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Model != "llama3:70b" {
		t.Fatalf("expected env override to win, got %q", v.Model)
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.yaml")
	contents := "model: mistral:7b\nmax_parallel_tools: 8\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Model != "mistral:7b" {
		t.Fatalf("expected config file model, got %q", v.Model)
	}
	if v.MaxParallelTools != 8 {
		t.Fatalf("expected config file max_parallel_tools, got %d", v.MaxParallelTools)
	}
}

func TestLoadRejectsInvalidTokenLimitOrdering(t *testing.T) {
	t.Setenv("AGENTCORE_TARGET_TOKEN_LIMIT", "1000")
	t.Setenv("AGENTCORE_SOFT_TOKEN_LIMIT", "500")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error when soft <= target")
	}
}

func TestLoadRejectsNonPositiveMemoryCapacity(t *testing.T) {
	t.Setenv("AGENTCORE_MEMORY_CAPACITY", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for zero memory_capacity")
	}
}

func TestDefaultToolTimeoutConvertsSecondsToDuration(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.DefaultToolTimeout().Seconds() != float64(v.DefaultToolTimeoutSec) {
		t.Fatalf("expected duration to match seconds field, got %v vs %d", v.DefaultToolTimeout(), v.DefaultToolTimeoutSec)
	}
}
