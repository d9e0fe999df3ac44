package filesystem

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore/agentcore/internal/sandbox"
	"github.com/agentcore/agentcore/internal/tools"
)

// NewReadFileTool implements the read_file tool of spec §6:
// { path: string, max_bytes?: uint }. Grounded on the teacher's
// NewReadFileTool, trading its prefix-string jail check for PathJail.Resolve
// and its multi-tier outline behavior for the spec's flat max_bytes cap.
func NewReadFileTool(jail *sandbox.PathJail) tools.Tool {
	fs := NewOSFileSystem()
	return tools.Tool{
		Name:        "read_file",
		Description: "Reads the content of a file within the sandboxed working root.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string"},"max_bytes":{"type":"integer","minimum":1}},"required":["path"]}`,
		ReadOnly:    true,
		Retryable:   true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			resolved, err := jail.Resolve(path)
			if err != nil {
				return "", err
			}

			data, err := fs.ReadFile(resolved)
			if err != nil {
				return "", err
			}

			maxBytes := 0
			if mb, ok := args["max_bytes"].(float64); ok {
				maxBytes = int(mb)
			}
			truncated := false
			if maxBytes > 0 && len(data) > maxBytes {
				data = data[:maxBytes]
				truncated = true
			}

			result := map[string]any{
				"path":      path,
				"content":   string(data),
				"truncated": truncated,
			}
			out, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("marshal read_file result: %w", err)
			}
			return string(out), nil
		},
	}
}
