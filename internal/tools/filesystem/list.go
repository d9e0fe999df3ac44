package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/agentcore/agentcore/internal/sandbox"
	"github.com/agentcore/agentcore/internal/tools"
)

// NewListDirTool implements the list_dir tool of spec §6:
// { path: string, recursive?: bool }. .gitignore-aware, consulting a
// .gitignore at the jail root if present — grounded on the teacher's
// list_files ignore-pattern handling via sabhiram/go-gitignore.
func NewListDirTool(jail *sandbox.PathJail) tools.Tool {
	fsys := NewOSFileSystem()
	return tools.Tool{
		Name:        "list_dir",
		Description: "Lists entries in a directory within the sandboxed working root.",
		SchemaJSON:  `{"type":"object","properties":{"path":{"type":"string"},"recursive":{"type":"boolean"}},"required":["path"]}`,
		ReadOnly:    true,
		Retryable:   true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			recursive, _ := args["recursive"].(bool)

			resolved, err := jail.Resolve(path)
			if err != nil {
				return "", err
			}

			matcher := loadGitignore(jail.Root())

			var entries []string
			if recursive {
				err = fsys.WalkDir(resolved, func(walkPath string, d fs.DirEntry, err error) error {
					if err != nil {
						return nil
					}
					if walkPath == resolved {
						return nil
					}
					rel, relErr := filepath.Rel(jail.Root(), walkPath)
					if relErr != nil {
						return nil
					}
					if shouldIgnore(matcher, rel) {
						if d.IsDir() {
							return filepath.SkipDir
						}
						return nil
					}
					entries = append(entries, rel)
					return nil
				})
				if err != nil {
					return "", err
				}
			} else {
				dirEntries, err := fsys.ReadDir(resolved)
				if err != nil {
					return "", err
				}
				for _, e := range dirEntries {
					rel := filepath.Join(path, e.Name())
					if shouldIgnore(matcher, rel) {
						continue
					}
					entries = append(entries, rel)
				}
			}

			result := map[string]any{"path": path, "entries": entries, "recursive": recursive}
			out, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("marshal list_dir result: %w", err)
			}
			return string(out), nil
		},
	}
}

func loadGitignore(jailRoot string) *gitignore.GitIgnore {
	path := filepath.Join(jailRoot, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	m, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return m
}

func shouldIgnore(matcher *gitignore.GitIgnore, relPath string) bool {
	if strings.HasPrefix(relPath, ".git") {
		return true
	}
	if matcher == nil {
		return false
	}
	return matcher.MatchesPath(relPath)
}
