package runner

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

	"github.com/tklein/scriptpad/internal/script"
)

const defaultPythonImage = "python:3.12-alpine"

// DockerRunner runs scripts in isolated Docker containers.
type DockerRunner struct {
	client *client.Client
	config Config
}

// NewDockerRunner creates a Docker-based runner.
func NewDockerRunner(config Config) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("Docker daemon not accessible: %w", err)
	}

	return &DockerRunner{client: cli, config: config}, nil
}

// RunScript executes the script in a network-disabled, resource-limited
// container with the script's directory mounted read-only.
func (r *DockerRunner) RunScript(ctx context.Context, path string, lang script.Language, timeout time.Duration) (Result, error) {
	if err := checkLanguage(lang); err != nil {
		return Result{}, err
	}
	if timeout <= 0 {
		timeout = r.config.RunTimeout
		if timeout <= 0 {
			timeout = defaultRunTimeout
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get absolute path: %w", err)
	}

	imageName := r.config.DockerImage
	if imageName == "" {
		imageName = defaultPythonImage
	}

	if err := r.ensureImage(ctx, imageName); err != nil {
		return Result{}, fmt.Errorf("failed to ensure image %s: %w", imageName, err)
	}

	containerConfig := &container.Config{
		Image:           imageName,
		Cmd:             []string{"python3", "/workspace/" + filepath.Base(absPath)},
		WorkingDir:      "/workspace",
		User:            "1000:1000",
		Env:             []string{"HOME=/tmp"},
		NetworkDisabled: true,
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   filepath.Dir(absPath),
				Target:   "/workspace",
				ReadOnly: true,
			},
		},
		Resources: container.Resources{
			Memory:   parseMemory(r.config.Memory),
			NanoCPUs: parseCPU(r.config.CPU) * 1e9,
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
			"/tmp": "rw,noexec,nosuid,size=64m",
		},
	}

	createResp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create container: %w", err)
	}
	containerID := createResp.ID

	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true})
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
			Stderr:   "script execution timed out",
		}, execCtx.Err()
	case err := <-errCh:
		if err != nil {
			return Result{}, fmt.Errorf("container wait error: %w", err)
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
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

	stdout, stderr := demuxLogs(logs)

	return Result{
		Stdout: stdout,
		Stderr: stderr,
		Code:   int(exitCode),
	}, nil
}

// ensureImage pulls the image if it is not present locally.
func (r *DockerRunner) ensureImage(ctx context.Context, imageName string) error {
	if _, _, err := r.client.ImageInspectWithRaw(ctx, imageName); err == nil {
		return nil
	}

	reader, err := r.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	// The pull only completes once its progress stream is drained.
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// demuxLogs splits Docker's multiplexed log stream into stdout and stderr.
// Each frame is an 8-byte header (stream type, 3 reserved bytes, big-endian
// size) followed by the payload.
func demuxLogs(reader io.Reader) (stdout, stderr string) {
	var stdoutParts, stderrParts []string

	for {
		header := make([]byte, 8)
		if _, err := io.ReadFull(reader, header); err != nil {
			break
		}

		streamType := header[0]
		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])
		if size <= 0 || size > 10*1024*1024 {
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(reader, payload); err != nil {
			break
		}

		content := strings.TrimSuffix(string(payload), "\n")
		switch streamType {
		case 1:
			stdoutParts = append(stdoutParts, content)
		case 2:
			stderrParts = append(stderrParts, content)
		}
	}

	return strings.Join(stdoutParts, "\n"), strings.Join(stderrParts, "\n")
}

// parseMemory parses a memory string (e.g. "512m", "1g") to bytes.
func parseMemory(memStr string) int64 {
	memStr = strings.ToLower(strings.TrimSpace(memStr))
	if memStr == "" {
		return 512 * 1024 * 1024
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(memStr, "g"):
		multiplier = 1024 * 1024 * 1024
		memStr = strings.TrimSuffix(memStr, "g")
	case strings.HasSuffix(memStr, "m"):
		multiplier = 1024 * 1024
		memStr = strings.TrimSuffix(memStr, "m")
	case strings.HasSuffix(memStr, "k"):
		multiplier = 1024
		memStr = strings.TrimSuffix(memStr, "k")
	}

	var value int64
	fmt.Sscanf(memStr, "%d", &value)
	if value <= 0 {
		return 512 * 1024 * 1024
	}
	return value * multiplier
}

// parseCPU parses a CPU count string to a whole number of CPUs.
func parseCPU(cpuStr string) int64 {
	cpuStr = strings.TrimSpace(cpuStr)
	if cpuStr == "" {
		return 1
	}

	var value float64
	fmt.Sscanf(cpuStr, "%f", &value)
	if value <= 0 {
		return 1
	}
	return int64(value)
}
