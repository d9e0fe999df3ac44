// Package sysinfo implements the system_info tool (C7), a supplemented
// feature (spec §6 lists it in the tool surface but the distillation's
// §4 component list never details it) exposing host facts the planner and
// LLM can use to size expectations (available disk, CPU count) without a
// shell round-trip through run_command.
package sysinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/agentcore/agentcore/internal/tools"
)

// NewSystemInfoTool implements the system_info tool of spec §6:
// { info_type: "os"|"cpu"|"memory"|"disk"|"all" }.
func NewSystemInfoTool(workingRoot string) tools.Tool {
	return tools.Tool{
		Name:        "system_info",
		Description: "Reports host OS, CPU, memory, or disk facts.",
		SchemaJSON:  `{"type":"object","properties":{"info_type":{"type":"string","enum":["os","cpu","memory","disk","all"]}},"required":["info_type"]}`,
		ReadOnly:    true,
		Retryable:   true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			infoType, _ := args["info_type"].(string)
			if infoType == "" {
				infoType = "all"
			}

			result := map[string]any{}
			switch infoType {
			case "os":
				result["os"] = osInfo()
			case "cpu":
				result["cpu"] = cpuInfo()
			case "memory":
				result["memory"] = memoryInfo(workingRoot)
			case "disk":
				result["disk"] = diskInfo(workingRoot)
			case "all":
				result["os"] = osInfo()
				result["cpu"] = cpuInfo()
				result["memory"] = memoryInfo(workingRoot)
				result["disk"] = diskInfo(workingRoot)
			default:
				return "", fmt.Errorf("unknown info_type: %s", infoType)
			}

			payload, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("marshal system_info result: %w", err)
			}
			return string(payload), nil
		},
	}
}

func osInfo() map[string]any {
	return map[string]any{"goos": runtime.GOOS, "arch": runtime.GOARCH}
}

func cpuInfo() map[string]any {
	return map[string]any{"num_cpu": runtime.NumCPU(), "goroutines": runtime.NumGoroutine()}
}

func memoryInfo(path string) map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return map[string]any{
		"process_heap_alloc_bytes": mem.HeapAlloc,
		"process_sys_bytes":        mem.Sys,
	}
}

// diskInfo reports free/total bytes on the filesystem backing path, using
// the statfs syscall directly (no pack example carries a disk-usage
// library — this is the one place system_info reaches for syscall rather
// than an ecosystem dependency; see DESIGN.md).
func diskInfo(path string) map[string]any {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{
		"total_bytes": stat.Blocks * uint64(stat.Bsize),
		"free_bytes":  stat.Bfree * uint64(stat.Bsize),
	}
}
