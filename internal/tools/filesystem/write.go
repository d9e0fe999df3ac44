package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/agentcore/agentcore/internal/sandbox"
	"github.com/agentcore/agentcore/internal/tools"
)

// NewWriteFileTool implements the write_file tool of spec §6:
// { path: string, content: string, append?: bool }.
func NewWriteFileTool(jail *sandbox.PathJail) tools.Tool {
	fs := NewOSFileSystem()
	return tools.Tool{
		Name:        "write_file",
		Description: "Writes content to a file within the sandboxed working root, creating parent directories as needed.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"},"append":{"type":"boolean"}},"required":["path","content"]}`,
		ReadOnly:    false,
		Retryable:   false,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			appendMode, _ := args["append"].(bool)

			resolved, err := jail.Resolve(path)
			if err != nil {
				return "", err
			}

			if err := fs.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return "", fmt.Errorf("create parent directory: %w", err)
			}

			if appendMode {
				f, err := fs.OpenAppend(resolved)
				if err != nil {
					return "", fmt.Errorf("open for append: %w", err)
				}
				defer f.Close()
				if _, err := f.WriteString(content); err != nil {
					return "", fmt.Errorf("append write: %w", err)
				}
			} else if err := fs.WriteFile(resolved, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("write file: %w", err)
			}

			result := map[string]any{"path": path, "bytes_written": len(content), "append": appendMode}
			out, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("marshal write_file result: %w", err)
			}
			return string(out), nil
		},
	}
}
