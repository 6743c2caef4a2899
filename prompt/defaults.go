package prompt

import (
	"context"
	"fmt"
)

// Defaults answers every question with its default. It is used for --yes
// runs and when stdin is not a terminal.
type Defaults struct{}

// compile-time interface check.
var _ Prompter = Defaults{}

func (Defaults) Input(_ context.Context, title, def string, validate func(string) error) (string, error) {
	if validate != nil {
		if err := validate(def); err != nil {
			return "", fmt.Errorf("%s: default %q rejected: %w", title, def, err)
		}
	}
	return def, nil
}

func (Defaults) Secret(_ context.Context, title string, _ func(string) error) (string, error) {
	return "", fmt.Errorf("%s: %w", title, ErrNoAnswer)
}

func (Defaults) Confirm(_ context.Context, _ string, def bool) (bool, error) { return def, nil }

func (Defaults) Select(_ context.Context, _ string, _ []Option, def string) (string, error) {
	return def, nil
}

func (Defaults) MultiSelect(_ context.Context, _ string, _ []Option, defs []string) ([]string, error) {
	return defs, nil
}
