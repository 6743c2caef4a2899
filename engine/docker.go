package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/utils"
)

const stopTimeoutSeconds = 30

// compile-time interface check.
var _ Engine = (*Docker)(nil)

// Docker talks to the local daemon through the Engine API and shells out to
// the compose plugin for project operations.
type Docker struct {
	cli    *client.Client
	runner utils.Runner
}

// New builds a client from the environment (DOCKER_HOST etc.). It does not
// contact the daemon.
func New(runner utils.Runner) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Docker{cli: cli, runner: runner}, nil
}

// Close releases the client transport.
func (d *Docker) Close() error { return d.cli.Close() }

func (d *Docker) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker daemon: %w", err)
	}
	return nil
}

func (d *Docker) ContainerNames(ctx context.Context) ([]string, error) {
	list, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	var names []string
	for _, c := range list {
		for _, n := range c.Names {
			names = append(names, strings.TrimPrefix(n, "/"))
		}
	}
	return names, nil
}

func (d *Docker) Running(ctx context.Context, name string) (bool, error) {
	info, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect %s: %w", name, err)
	}
	return info.ContainerJSONBase != nil && info.State != nil && info.State.Running, nil
}

// Pull validates ref and pulls it. Errors reported inside the progress
// stream are returned as pull failures.
func (d *Docker) Pull(ctx context.Context, ref string) error {
	logger := log.WithFunc("engine.Pull")
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return fmt.Errorf("parse image %s: %w", ref, err)
	}
	start := time.Now()
	rc, err := d.cli.ImagePull(ctx, parsed.Name(), image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	defer rc.Close() //nolint:errcheck
	if err := jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	logger.Infof(ctx, "pulled %s in %s", parsed.Name(), time.Since(start).Round(time.Second))
	return nil
}

func (d *Docker) Stop(ctx context.Context, name string) error {
	timeout := stopTimeoutSeconds
	if err := d.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("stop %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

func (d *Docker) Restart(ctx context.Context, name string) error {
	timeout := stopTimeoutSeconds
	if err := d.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("restart %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("restart %s: %w", name, err)
	}
	return nil
}

func (d *Docker) Logs(ctx context.Context, name string, tail int) (string, error) {
	rc, err := d.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
		Timestamps: true,
	})
	if err != nil {
		return "", fmt.Errorf("logs %s: %w", name, err)
	}
	defer rc.Close() //nolint:errcheck
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return buf.String(), fmt.Errorf("read logs %s: %w", name, err)
	}
	return buf.String(), nil
}

func (d *Docker) ComposeUp(ctx context.Context, project, file string) error {
	if _, err := d.runner.Run(ctx, "docker", "compose", "-p", project, "-f", file, "up", "-d", "--remove-orphans"); err != nil {
		return fmt.Errorf("compose up %s: %w", project, err)
	}
	return nil
}

func (d *Docker) ComposeDown(ctx context.Context, project, file string) error {
	if _, err := d.runner.Run(ctx, "docker", "compose", "-p", project, "-f", file, "down"); err != nil {
		return fmt.Errorf("compose down %s: %w", project, err)
	}
	return nil
}
