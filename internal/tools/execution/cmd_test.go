package execution

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/agentcore/agentcore/internal/sandbox"
)

type fakeRunner struct {
	lastName string
	lastArgs []string
	result   sandbox.Result
	err      error

	lastTimeout time.Duration
}

func (f *fakeRunner) RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
	f.lastName = name
	f.lastArgs = args
	f.lastTimeout = timeout
	return f.result, f.err
}

func newTestJail(t *testing.T) *sandbox.PathJail {
	t.Helper()
	jail, err := sandbox.NewPathJail(t.TempDir())
	if err != nil {
		t.Fatalf("NewPathJail: %v", err)
	}
	return jail
}

func TestRunCommandToolExecsBareArgv(t *testing.T) {
	jail := newTestJail(t)
	runner := &fakeRunner{result: sandbox.Result{Stdout: "ok", Code: 0}}
	tool := NewRunCommandTool(jail, runner)

	out, err := tool.Fn(context.Background(), map[string]any{"command": "go test ./..."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.lastName != "go" {
		t.Fatalf("expected bare exec of 'go', got %q", runner.lastName)
	}
	if len(runner.lastArgs) != 2 || runner.lastArgs[0] != "test" || runner.lastArgs[1] != "./..." {
		t.Fatalf("unexpected args: %v", runner.lastArgs)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result["stdout"] != "ok" {
		t.Fatalf("unexpected stdout: %v", result["stdout"])
	}
}

func TestRunCommandToolRoutesShellOperatorsThroughShell(t *testing.T) {
	jail := newTestJail(t)
	runner := &fakeRunner{result: sandbox.Result{Code: 0}}
	tool := NewRunCommandTool(jail, runner)

	if _, err := tool.Fn(context.Background(), map[string]any{"command": "echo hi | grep h"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.lastName != "sh" {
		t.Fatalf("expected shell dispatch for piped command, got %q", runner.lastName)
	}
	if len(runner.lastArgs) != 2 || runner.lastArgs[0] != "-c" {
		t.Fatalf("unexpected shell args: %v", runner.lastArgs)
	}
}

func TestRunCommandToolRejectsEmptyCommand(t *testing.T) {
	jail := newTestJail(t)
	tool := NewRunCommandTool(jail, &fakeRunner{})
	if _, err := tool.Fn(context.Background(), map[string]any{"command": ""}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestRunCommandToolTruncatesLongOutput(t *testing.T) {
	jail := newTestJail(t)
	long := make([]byte, maxOutputChars+100)
	for i := range long {
		long[i] = 'a'
	}
	runner := &fakeRunner{result: sandbox.Result{Stdout: string(long), Code: 0}}
	tool := NewRunCommandTool(jail, runner)

	out, err := tool.Fn(context.Background(), map[string]any{"command": "cat bigfile"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]any
	_ = json.Unmarshal([]byte(out), &result)
	stdout, _ := result["stdout"].(string)
	if len(stdout) >= len(long) {
		t.Fatalf("expected truncated stdout, got length %d", len(stdout))
	}
}

func TestRunCommandToolClampsTimeoutToMax(t *testing.T) {
	jail := newTestJail(t)
	runner := &fakeRunner{result: sandbox.Result{Code: 0}}
	tool := NewRunCommandTool(jail, runner)

	if _, err := tool.Fn(context.Background(), map[string]any{"command": "sleep 1", "timeout_sec": float64(9999)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.lastTimeout != maxTimeout {
		t.Fatalf("expected timeout clamped to %v, got %v", maxTimeout, runner.lastTimeout)
	}
}

func TestRunCommandToolResolvesCwdThroughJail(t *testing.T) {
	jail := newTestJail(t)
	runner := &fakeRunner{result: sandbox.Result{Code: 0}}
	tool := NewRunCommandTool(jail, runner)

	if _, err := tool.Fn(context.Background(), map[string]any{"command": "ls", "cwd": "../../etc"}); err == nil {
		t.Fatal("expected jail escape error for cwd outside root")
	}
}
