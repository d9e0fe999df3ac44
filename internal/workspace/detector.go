// Package workspace detects what kind of project lives inside a run_command
// (C7) jail root, so the Docker backend (internal/sandbox) can pick a base
// image without the caller having to say "this is a Go repo" explicitly.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// ProjectType is the language/toolchain detected for a jailed workspace.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeRust    ProjectType = "rust"
	ProjectTypeUnknown ProjectType = "unknown"
)

// DetectProjectType inspects workDir for a manifest file first (go.mod,
// package.json, ...) and falls back to counting source-file extensions when
// no manifest is present.
func DetectProjectType(workDir string) ProjectType {
	if _, err := os.Stat(filepath.Join(workDir, "go.mod")); err == nil {
		return ProjectTypeGo
	}
	if _, err := os.Stat(filepath.Join(workDir, "package.json")); err == nil {
		return ProjectTypeNode
	}
	if _, err := os.Stat(filepath.Join(workDir, "pyproject.toml")); err == nil {
		return ProjectTypePython
	}
	if _, err := os.Stat(filepath.Join(workDir, "requirements.txt")); err == nil {
		return ProjectTypePython
	}
	if _, err := os.Stat(filepath.Join(workDir, "Cargo.toml")); err == nil {
		return ProjectTypeRust
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return ProjectTypeUnknown
	}

	extCounts := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != "" {
			extCounts[ext]++
		}
	}

	goCount := extCounts[".go"]
	nodeCount := extCounts[".ts"] + extCounts[".tsx"] + extCounts[".js"] + extCounts[".jsx"]
	pythonCount := extCounts[".py"]
	rustCount := extCounts[".rs"]

	maxCount := 0
	detectedType := ProjectTypeUnknown

	if goCount > maxCount {
		maxCount = goCount
		detectedType = ProjectTypeGo
	}
	if nodeCount > maxCount {
		maxCount = nodeCount
		detectedType = ProjectTypeNode
	}
	if pythonCount > maxCount {
		maxCount = pythonCount
		detectedType = ProjectTypePython
	}
	if rustCount > maxCount {
		maxCount = rustCount
		detectedType = ProjectTypeRust
	}

	// Require a handful of matching files before trusting the extension
	// count; a single stray .py in a Go repo shouldn't flip the verdict.
	if maxCount >= 3 {
		return detectedType
	}
	return ProjectTypeUnknown
}
