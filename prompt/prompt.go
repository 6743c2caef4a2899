// Package prompt isolates every question debridctl asks so the workflow can
// run against a terminal, a defaults-only answerer, or a scripted fake.
package prompt

import (
	"context"
	"errors"
	"os"

	"github.com/moby/term"
)

// ErrNoAnswer is returned by non-interactive prompters for questions that
// have no usable default.
var ErrNoAnswer = errors.New("no answer available without a terminal")

// Option is one choice in a Select or MultiSelect.
type Option struct {
	Label string
	Value string
}

// Prompter asks the operator questions. Calls block until answered.
type Prompter interface {
	Input(ctx context.Context, title, def string, validate func(string) error) (string, error)
	Secret(ctx context.Context, title string, validate func(string) error) (string, error)
	Confirm(ctx context.Context, title string, def bool) (bool, error)
	Select(ctx context.Context, title string, options []Option, def string) (string, error)
	MultiSelect(ctx context.Context, title string, options []Option, defs []string) ([]string, error)
}

// New returns an interactive prompter when stdin is a terminal and
// assumeYes is unset, otherwise one that answers with defaults.
func New(assumeYes bool) Prompter {
	if !assumeYes && term.IsTerminal(os.Stdin.Fd()) {
		return &Terminal{}
	}
	return Defaults{}
}
