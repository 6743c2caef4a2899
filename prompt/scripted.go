package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Scripted answers questions from a queue of canned replies, in order. A
// reply of "" takes the default. Tests drive workflows through it.
type Scripted struct {
	Answers []string
	// Asked records every question title.
	Asked []string
	mu    sync.Mutex
}

// compile-time interface check.
var _ Prompter = (*Scripted)(nil)

func (s *Scripted) next(title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, title)
	if len(s.Answers) == 0 {
		return "", fmt.Errorf("%s: %w", title, ErrNoAnswer)
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}

func (s *Scripted) Input(_ context.Context, title, def string, validate func(string) error) (string, error) {
	a, err := s.next(title)
	if err != nil {
		return "", err
	}
	if a == "" {
		a = def
	}
	if validate != nil {
		if err := validate(a); err != nil {
			return a, err
		}
	}
	return a, nil
}

func (s *Scripted) Secret(ctx context.Context, title string, validate func(string) error) (string, error) {
	return s.Input(ctx, title, "", validate)
}

func (s *Scripted) Confirm(_ context.Context, title string, def bool) (bool, error) {
	a, err := s.next(title)
	if err != nil || a == "" {
		return def, err
	}
	return strconv.ParseBool(a)
}

func (s *Scripted) Select(_ context.Context, title string, _ []Option, def string) (string, error) {
	a, err := s.next(title)
	if err != nil || a == "" {
		return def, err
	}
	return a, nil
}

// MultiSelect takes a comma-separated reply; "-" selects nothing.
func (s *Scripted) MultiSelect(_ context.Context, title string, _ []Option, defs []string) ([]string, error) {
	a, err := s.next(title)
	if err != nil || a == "" {
		return defs, err
	}
	if a == "-" {
		return nil, nil
	}
	return strings.Split(a, ","), nil
}
