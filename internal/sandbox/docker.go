package sandbox

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
	"github.com/agentcore/agentcore/internal/workspace"
)

// DockerRunner runs run_command (C7) invocations inside an isolated,
// network-disabled container, mounting the Path-Jail root read-write at
// /workspace and nothing else from the host.
type DockerRunner struct {
	client *client.Client
	config Config
}

// NewDockerRunner dials the local Docker daemon and pings it so construction
// fails fast instead of deferring the error to the first RunCmd call.
func NewDockerRunner(config Config) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Verify Docker daemon is accessible
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = cli.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("Docker daemon not accessible: %w", err)
	}

	return &DockerRunner{
		client: cli,
		config: config,
	}, nil
}

// RunCmd starts name/args in a fresh, auto-removed container scoped to
// workDir and tears it down whether the command finishes, fails, or the
// timeout fires first.
func (r *DockerRunner) RunCmd(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		if r.config.CmdTimeout > 0 {
			timeout = r.config.CmdTimeout
		} else {
			timeout = defaultCmdTimeout
		}
	}

	projectType := workspace.DetectProjectType(workDir)
	image := GetDockerImage(projectType, r.config)

	if err := r.ensureImage(ctx, image); err != nil {
		return Result{}, fmt.Errorf("failed to ensure image %s: %w", image, err)
	}

	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get absolute path: %w", err)
	}

	containerConfig := &container.Config{
		Image:           image,
		Cmd:             append([]string{name}, args...),
		WorkingDir:      "/workspace",
		User:            "1000:1000",
		Env:             []string{"HOME=/tmp"},
		NetworkDisabled: true,
	}

	// Security restrictions beyond NetworkDisabled above: no new
	// privileges, all capabilities dropped, read-only rootfs with a
	// noexec tmpfs scratch space.
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: absWorkDir,
				Target: "/workspace",
			},
		},
		Resources: container.Resources{
			Memory:   parseMemory(r.config.Memory),
			NanoCPUs: parseCPU(r.config.CPU) * 1e9, // Convert to nano-CPUs
			Ulimits: []*units.Ulimit{
				{
					Name: "nofile",
					Soft: 1024,
					Hard: 1024,
				},
			},
		},
		SecurityOpt:    []string{"no-new-privileges"},
		CapDrop:        []string{"ALL"},
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			"/tmp": "rw,noexec,nosuid,size=100m",
		},
		AutoRemove: true,
	}

	createResp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create container: %w", err)
	}

	containerID := createResp.ID

	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{
			Force: true,
		})
	}()

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.client.ContainerStart(execCtx, containerID, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("failed to start container: %w", err)
	}

	statusCh, errCh := r.client.ContainerWait(execCtx, containerID, container.WaitConditionNotRunning)

	var exitCode int64
	select {
	case <-execCtx.Done():
		killCtx, killCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer killCancel()
		_ = r.client.ContainerKill(killCtx, containerID, "SIGKILL")
		return Result{
			Code:     1,
			TimedOut: true,
			Stderr:   "Command execution timed out",
		}, execCtx.Err()
	case err := <-errCh:
		if err != nil {
			return Result{}, fmt.Errorf("container wait error: %w", err)
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	timedOut := false
	if execCtx.Err() == context.DeadlineExceeded {
		timedOut = true
	}

	logs, err := r.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "all",
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()

	stdout, stderr := parseDockerLogs(logs)

	return Result{
		Stdout:   stdout,
		Stderr:   stderr,
		Code:     int(exitCode),
		TimedOut: timedOut,
	}, nil
}

// ensureImage checks if the image exists locally, and pulls it if not.
func (r *DockerRunner) ensureImage(ctx context.Context, imageName string) error {
	// Check if image exists
	_, _, err := r.client.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		// Image exists locally
		return nil
	}

	// Image doesn't exist, pull it
	reader, err := r.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	// Drain the pull output (required for pull to complete)
	_, _ = io.Copy(io.Discard, reader)

	return nil
}

// parseDockerLogs parses Docker container logs and separates stdout from stderr.
// Docker logs use a header format: [8 bytes header][payload]
// Header format: [STREAM_TYPE (1 byte)][RESERVED (3 bytes)][SIZE (4 bytes)]
func parseDockerLogs(reader io.Reader) (stdout, stderr string) {
	var stdoutParts, stderrParts []string

	for {
		// Read header (8 bytes)
		header := make([]byte, 8)
		n, err := reader.Read(header)
		if n < 8 || err == io.EOF {
			break
		}
		if err != nil {
			// If we can't read header, try reading as plain text
			break
		}

		// Extract stream type (first byte)
		streamType := header[0]
		// Extract size (last 4 bytes, big-endian)
		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])

		// Limit size to prevent excessive memory allocation
		if size <= 0 || size > 10*1024*1024 { // 10MB max per log line
			continue
		}

		// Read payload
		payload := make([]byte, size)
		n, err = reader.Read(payload)
		if n != size || err != nil {
			break
		}

		content := string(payload)
		// Remove trailing newline if present (Docker adds one)
		content = strings.TrimSuffix(content, "\n")

		// Route to appropriate stream
		if streamType == 1 {
			// stdout
			stdoutParts = append(stdoutParts, content)
		} else if streamType == 2 {
			// stderr
			stderrParts = append(stderrParts, content)
		}
	}

	return strings.Join(stdoutParts, "\n"), strings.Join(stderrParts, "\n")
}

// parseMemory parses memory string (e.g., "1g", "512m") to bytes.
func parseMemory(memStr string) int64 {
	memStr = strings.ToLower(strings.TrimSpace(memStr))
	if memStr == "" {
		return 1024 * 1024 * 1024 // Default 1GB
	}

	var multiplier int64 = 1
	if strings.HasSuffix(memStr, "g") {
		multiplier = 1024 * 1024 * 1024
		memStr = strings.TrimSuffix(memStr, "g")
	} else if strings.HasSuffix(memStr, "m") {
		multiplier = 1024 * 1024
		memStr = strings.TrimSuffix(memStr, "m")
	} else if strings.HasSuffix(memStr, "k") {
		multiplier = 1024
		memStr = strings.TrimSuffix(memStr, "k")
	}

	var value int64
	fmt.Sscanf(memStr, "%d", &value)
	return value * multiplier
}

// parseCPU parses a CPU string (e.g., "2", "1.5") to a whole CPU count; the
// fractional part is truncated ("1.5" gives 1), and empty or non-positive
// input gives 2.
func parseCPU(cpuStr string) int64 {
	cpuStr = strings.TrimSpace(cpuStr)
	if cpuStr == "" {
		return 2 // Default 2 CPUs
	}

	var value float64
	fmt.Sscanf(cpuStr, "%f", &value)
	if value <= 0 {
		return 2
	}
	return int64(value)
}
