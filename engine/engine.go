// Package engine adapts the Docker Engine API and the `docker compose`
// plugin to the operations the provisioning workflow needs.
package engine

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named container does not exist.
var ErrNotFound = errors.New("container not found")

// Engine is the container runtime as seen by the rest of debridctl.
type Engine interface {
	// Ping reports whether the daemon answers.
	Ping(ctx context.Context) error
	// ContainerNames lists every container name, running or not.
	ContainerNames(ctx context.Context) ([]string, error)
	// Running reports whether the named container is running.
	Running(ctx context.Context, name string) (bool, error)
	// Pull fetches image ref, draining the progress stream.
	Pull(ctx context.Context, ref string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	// Logs returns the last tail lines of stdout and stderr.
	Logs(ctx context.Context, name string, tail int) (string, error)
	// ComposeUp runs `docker compose up -d --remove-orphans` for the project.
	ComposeUp(ctx context.Context, project, file string) error
	ComposeDown(ctx context.Context, project, file string) error
}
