package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Fake is an in-memory Engine for tests. Containers maps names to their
// running state; the *Err fields inject failures.
type Fake struct {
	Containers map[string]bool
	PingErr    error
	PullErr    func(ref string) error
	RestartErr error
	UpErr      error
	LogText    string

	Pulled   []string
	Stopped  []string
	Restarts []string
	Ups      []string
	Downs    []string

	mu sync.Mutex
}

// compile-time interface check.
var _ Engine = (*Fake)(nil)

func (f *Fake) Ping(context.Context) error { return f.PingErr }

func (f *Fake) ContainerNames(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for n := range f.Containers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

func (f *Fake) Running(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Containers[name], nil
}

func (f *Fake) Pull(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pulled = append(f.Pulled, ref)
	if f.PullErr != nil {
		return f.PullErr(ref)
	}
	return nil
}

func (f *Fake) Stop(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Containers[name]; !ok {
		return fmt.Errorf("stop %s: %w", name, ErrNotFound)
	}
	f.Containers[name] = false
	f.Stopped = append(f.Stopped, name)
	return nil
}

func (f *Fake) Restart(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Restarts = append(f.Restarts, name)
	if f.RestartErr != nil {
		return f.RestartErr
	}
	if f.Containers == nil {
		f.Containers = map[string]bool{}
	}
	f.Containers[name] = true
	return nil
}

func (f *Fake) Logs(context.Context, string, int) (string, error) { return f.LogText, nil }

func (f *Fake) ComposeUp(_ context.Context, project, file string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ups = append(f.Ups, project+":"+file)
	return f.UpErr
}

func (f *Fake) ComposeDown(_ context.Context, project, file string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Downs = append(f.Downs, project+":"+file)
	return nil
}
