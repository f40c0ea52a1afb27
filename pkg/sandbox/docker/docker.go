// Package docker implements sandbox.Manager using one-shot Docker
// containers. Each command runs in a fresh container that is removed
// when the command finishes.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/MSKravtsov/mikky/pkg/sandbox"
)

const (
	// LabelManager is the label used to identify containers managed by this system.
	LabelManager = "manager"
	// LabelManagerValue is the value of the manager label.
	LabelManagerValue = "mikky"
	// DefaultImage is the default sandbox container image.
	DefaultImage = "alpine:3.20"
	// DefaultTimeout bounds a single command execution.
	DefaultTimeout = 60 * time.Second
)

// Manager implements sandbox.Manager using Docker containers.
type Manager struct {
	client  *client.Client
	image   string
	timeout time.Duration
}

// Verify interface compliance.
var _ sandbox.Manager = (*Manager)(nil)

// New creates a new Docker sandbox manager. An empty image selects
// DefaultImage; the image must already be present locally.
func New(image string) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if image == "" {
		image = DefaultImage
	}
	return &Manager{client: cli, image: image, timeout: DefaultTimeout}, nil
}

// RunCommand executes a shell command in a fresh container and waits for
// it to exit. Stdout and stderr are captured separately.
func (m *Manager) RunCommand(ctx context.Context, command string) (*sandbox.Result, error) {
	if _, _, err := m.client.ImageInspectWithRaw(ctx, m.image); err != nil {
		return nil, fmt.Errorf("sandbox image '%s' not found: %w", m.image, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cfg := &container.Config{
		Image: m.image,
		Cmd:   []string{"/bin/sh", "-c", command},
		Labels: map[string]string{
			LabelManager: LabelManagerValue,
		},
		NetworkDisabled: true,
	}

	resp, err := m.client.ContainerCreate(runCtx, cfg, nil, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	defer m.removeContainer(resp.ID)

	if err := m.client.ContainerStart(runCtx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	statusCh, errCh := m.client.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)
	var exitCode int
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("waiting for container: %w", err)
	case status := <-statusCh:
		exitCode = int(status.StatusCode)
	}

	stdout, stderr, err := m.collectLogs(runCtx, resp.ID)
	if err != nil {
		return nil, err
	}

	return &sandbox.Result{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
	}, nil
}

// Close releases the Docker client resources.
func (m *Manager) Close() error {
	return m.client.Close()
}

func (m *Manager) collectLogs(ctx context.Context, containerID string) (string, string, error) {
	logs, err := m.client.ContainerLogs(ctx, containerID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("reading container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return "", "", fmt.Errorf("demultiplexing container logs: %w", err)
	}
	return stdout.String(), stderr.String(), nil
}

// removeContainer uses a background context so cleanup still happens
// when the command timed out.
func (m *Manager) removeContainer(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.client.ContainerRemove(ctx, containerID, types.ContainerRemoveOptions{Force: true}); err != nil {
		slog.Warn("Failed to remove sandbox container", "id", containerID, "error", err)
	}
}
