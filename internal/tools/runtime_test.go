package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentcore/agentcore/internal/sandbox"
)

func TestRuntimeRejectsUnknownTool(t *testing.T) {
	root := t.TempDir()
	jail, err := sandbox.NewPathJail(root)
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}
	rt := NewRuntime(jail, Registry{}, 2)

	obs := rt.Execute(context.Background(), Invocation{ToolName: "does_not_exist"})
	if obs.Err == nil {
		t.Fatal("expected UnknownTool error, got nil")
	}
}

func TestRuntimeValidatesArgsBeforeRunning(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644)
	jail, err := sandbox.NewPathJail(root)
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}

	called := false
	reg := Registry{
		"echo_tool": Tool{
			Name:       "echo_tool",
			SchemaJSON: `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
			ReadOnly:   true,
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				called = true
				return "ok", nil
			},
		},
	}
	rt := NewRuntime(jail, reg, 2)

	obs := rt.Execute(context.Background(), Invocation{ToolName: "echo_tool", Args: map[string]any{}})
	if obs.Err == nil {
		t.Fatal("expected BadArguments error for missing required field")
	}
	if called {
		t.Fatal("Fn should not run when validation fails")
	}
}

func TestExecuteParallelPreservesOrder(t *testing.T) {
	root := t.TempDir()
	jail, err := sandbox.NewPathJail(root)
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}

	reg := Registry{
		"id_tool": Tool{
			Name:       "id_tool",
			SchemaJSON: `{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"]}`,
			ReadOnly:   true,
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				return "ok", nil
			},
		},
	}
	rt := NewRuntime(jail, reg, 4)

	invs := make([]Invocation, 10)
	for i := range invs {
		invs[i] = Invocation{ToolName: "id_tool", Args: map[string]any{"n": float64(i)}}
	}

	results := rt.ExecuteParallel(context.Background(), invs)
	for i, obs := range results {
		if obs.Err != nil {
			t.Fatalf("invocation %d failed: %v", i, obs.Err)
		}
		if obs.Invocation.Args["n"] != float64(i) {
			t.Fatalf("result %d out of order: %v", i, obs.Invocation.Args["n"])
		}
	}
}

func TestExecuteAppliesPerCallTimeout(t *testing.T) {
	root := t.TempDir()
	jail, err := sandbox.NewPathJail(root)
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}

	reg := Registry{
		"slow_tool": Tool{
			Name:       "slow_tool",
			SchemaJSON: `{"type":"object"}`,
			ReadOnly:   true,
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
	}
	rt := NewRuntime(jail, reg, 2)
	rt.CallTimeout = 10 * time.Millisecond

	obs := rt.Execute(context.Background(), Invocation{ToolName: "slow_tool"})
	if obs.Err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(obs.Err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", obs.Err)
	}
}

func TestExecuteClampsCallTimeoutToMax(t *testing.T) {
	root := t.TempDir()
	jail, err := sandbox.NewPathJail(root)
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}
	rt := NewRuntime(jail, Registry{}, 2)
	rt.CallTimeout = 10 * time.Hour

	if got := rt.Timeout(); got != maxCallTimeout {
		t.Fatalf("expected clamp to %v, got %v", maxCallTimeout, got)
	}
}

func TestExecuteRetriesRetryableToolUntilSuccess(t *testing.T) {
	root := t.TempDir()
	jail, err := sandbox.NewPathJail(root)
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}

	attempts := 0
	reg := Registry{
		"flaky_tool": Tool{
			Name:       "flaky_tool",
			SchemaJSON: `{"type":"object"}`,
			ReadOnly:   true,
			Retryable:  true,
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				attempts++
				if attempts < 3 {
					return "", errors.New("transient failure")
				}
				return "ok", nil
			},
		},
	}
	rt := NewRuntime(jail, reg, 2)
	rt.Retry = RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0, WallClockCap: time.Second}

	obs := rt.Execute(context.Background(), Invocation{ToolName: "flaky_tool"})
	if obs.Err != nil {
		t.Fatalf("expected eventual success, got %v", obs.Err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryNonRetryableTool(t *testing.T) {
	root := t.TempDir()
	jail, err := sandbox.NewPathJail(root)
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}

	attempts := 0
	reg := Registry{
		"failing_tool": Tool{
			Name:       "failing_tool",
			SchemaJSON: `{"type":"object"}`,
			ReadOnly:   true,
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				attempts++
				return "", errors.New("permanent failure")
			},
		},
	}
	rt := NewRuntime(jail, reg, 2)
	rt.Retry = RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0, WallClockCap: time.Second}

	obs := rt.Execute(context.Background(), Invocation{ToolName: "failing_tool"})
	if obs.Err == nil {
		t.Fatal("expected failure to propagate")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable tool, got %d", attempts)
	}
}
