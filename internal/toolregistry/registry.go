// Package toolregistry wires the concrete tool implementations (execution,
// filesystem, netfetch, sysinfo) into an internal/tools.Registry. It lives
// outside internal/tools so that those implementation packages can import
// internal/tools for the Tool/Registry types without creating an import
// cycle back through the registry constructor.
package toolregistry

import (
	"github.com/agentcore/agentcore/internal/sandbox"
	"github.com/agentcore/agentcore/internal/tools"
	"github.com/agentcore/agentcore/internal/tools/execution"
	"github.com/agentcore/agentcore/internal/tools/filesystem"
	"github.com/agentcore/agentcore/internal/tools/netfetch"
	"github.com/agentcore/agentcore/internal/tools/sysinfo"
)

// NewDefaultRegistry builds the Registry for the canonical tool surface of
// spec §6 (list_dir, read_file, write_file, run_command, system_info, and
// — when allowNetwork is set — web_fetch), all scoped to jail.
func NewDefaultRegistry(jail *sandbox.PathJail, runner sandbox.Runner, allowNetwork bool) tools.Registry {
	reg := tools.Registry{}

	listDir := filesystem.NewListDirTool(jail)
	reg[listDir.Name] = listDir

	readFile := filesystem.NewReadFileTool(jail)
	reg[readFile.Name] = readFile

	writeFile := filesystem.NewWriteFileTool(jail)
	reg[writeFile.Name] = writeFile

	runCommand := execution.NewRunCommandTool(jail, runner)
	reg[runCommand.Name] = runCommand

	sysInfo := sysinfo.NewSystemInfoTool(jail.Root())
	reg[sysInfo.Name] = sysInfo

	if allowNetwork {
		webFetch := netfetch.NewWebFetchTool()
		reg[webFetch.Name] = webFetch
	}

	return reg
}
