package utils

import (
	"context"
	"strings"
	"sync"
)

// MockRunner is a Runner for tests. Each func field is optional; unset
// fields succeed with empty output. Every invocation is recorded.
type MockRunner struct {
	RunFunc   func(ctx context.Context, name string, args ...string) ([]byte, error)
	ShellFunc func(ctx context.Context, script string) ([]byte, error)
	// Paths maps executable names to the path LookPath reports.
	Paths map[string]string

	Calls []string
	mu    sync.Mutex
}

// compile-time interface check.
var _ Runner = (*MockRunner)(nil)

func (m *MockRunner) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Run records "name args..." and delegates to RunFunc.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record(strings.Join(append([]string{name}, args...), " "))
	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}
	return nil, nil
}

// Shell records "sh: script" and delegates to ShellFunc.
func (m *MockRunner) Shell(ctx context.Context, script string) ([]byte, error) {
	m.record("sh: " + script)
	if m.ShellFunc != nil {
		return m.ShellFunc(ctx, script)
	}
	return nil, nil
}

// LookPath returns Paths[name].
func (m *MockRunner) LookPath(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Paths[name]
}

// SetPath marks name as installed at path.
func (m *MockRunner) SetPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Paths == nil {
		m.Paths = map[string]string{}
	}
	m.Paths[name] = path
}

// Called reports whether any recorded call starts with prefix.
func (m *MockRunner) Called(prefix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
