package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external commands. Production code uses ExecRunner;
// tests substitute a fake that records invocations.
type Runner interface {
	// Run executes name with args and returns combined stdout and stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Shell runs script through /bin/sh -c.
	Shell(ctx context.Context, script string) ([]byte, error)
	// LookPath reports the resolved path of an executable, or "" if absent.
	LookPath(name string) string
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct{}

// compile-time interface check.
var _ Runner = ExecRunner{}

// Run executes a command synchronously. On failure the error carries the
// trimmed command output so callers can surface it to the operator.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return out.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, lastLines(msg, 5)) //nolint:mnd
		}
		return out.Bytes(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out.Bytes(), nil
}

// Shell runs a script with /bin/sh -c.
func (r ExecRunner) Shell(ctx context.Context, script string) ([]byte, error) {
	return r.Run(ctx, "/bin/sh", "-c", script)
}

// LookPath wraps exec.LookPath, returning "" when name is not found.
func (ExecRunner) LookPath(name string) string {
	p, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return p
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
