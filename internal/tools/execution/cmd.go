// Package execution implements the run_command tool (C7), dispatching
// through internal/sandbox's Docker/host Runner.
package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentcore/agentcore/internal/sandbox"
	"github.com/agentcore/agentcore/internal/tools"
)

const (
	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
	maxOutputChars = 4000
)

// shellOperators are substrings whose presence forces the command through
// a shell (`sh -c`) rather than being exec'd as a bare argv, since a direct
// exec would treat them as literal arguments instead of operators.
var shellOperators = []string{"|", ">", ">>", "<", "&&", "||", "&", ";", "$(", "`"}

func needsShell(command string) bool {
	for _, op := range shellOperators {
		if strings.Contains(command, op) {
			return true
		}
	}
	return false
}

// NewRunCommandTool implements the run_command tool of spec §6:
// { command: string, cwd?: string, timeout_sec?: uint }.
func NewRunCommandTool(jail *sandbox.PathJail, runner sandbox.Runner) tools.Tool {
	return tools.Tool{
		Name:        "run_command",
		Description: "Runs a shell command within the sandboxed working root.",
		SchemaJSON:  `{"type":"object","properties":{"command":{"type":"string"},"cwd":{"type":"string"},"timeout_sec":{"type":"integer","minimum":1}},"required":["command"]}`,
		ReadOnly:    false,
		Retryable:   true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			if command == "" {
				return "", fmt.Errorf("command must not be empty")
			}

			cwd := jail.Root()
			if c, ok := args["cwd"].(string); ok && c != "" {
				resolved, err := jail.Resolve(c)
				if err != nil {
					return "", err
				}
				cwd = resolved
			}

			timeout := defaultTimeout
			if t, ok := args["timeout_sec"].(float64); ok && t > 0 {
				timeout = time.Duration(t) * time.Second
				if timeout > maxTimeout {
					timeout = maxTimeout
				}
			}

			var name string
			var cmdArgs []string
			if needsShell(command) {
				name, cmdArgs = "sh", []string{"-c", command}
			} else {
				fields := strings.Fields(command)
				if len(fields) == 0 {
					return "", fmt.Errorf("command must not be empty")
				}
				name, cmdArgs = fields[0], fields[1:]
			}

			result, err := runner.RunCmd(ctx, cwd, name, cmdArgs, timeout)

			out := map[string]any{
				"command":   command,
				"exit_code": result.Code,
				"stdout":    truncate(result.Stdout),
				"stderr":    truncate(result.Stderr),
				"timed_out": result.TimedOut,
			}
			if err != nil {
				out["error"] = err.Error()
			}

			payload, merr := json.Marshal(out)
			if merr != nil {
				return "", fmt.Errorf("marshal run_command result: %w", merr)
			}
			return string(payload), nil
		},
	}
}

func truncate(s string) string {
	if len(s) <= maxOutputChars {
		return s
	}
	return s[:maxOutputChars] + "... [truncated]"
}
