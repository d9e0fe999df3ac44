package sandbox

import (
	"github.com/agentcore/agentcore/internal/workspace"
)

// GetDockerImage picks the base image DockerRunner.RunCmd mounts the jail
// root into. An explicit Config.DockerImage always wins; otherwise the
// detected project type gets a lightweight alpine variant.
func GetDockerImage(projectType workspace.ProjectType, config Config) string {
	if config.DockerImage != "" {
		return config.DockerImage
	}

	switch projectType {
	case workspace.ProjectTypeGo:
		return "golang:alpine"
	case workspace.ProjectTypeNode:
		return "node:alpine"
	case workspace.ProjectTypePython:
		return "python:alpine"
	case workspace.ProjectTypeRust:
		return "rust:alpine"
	default:
		return "alpine:latest"
	}
}






