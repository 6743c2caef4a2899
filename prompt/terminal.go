package prompt

import (
	"context"
	"errors"
	"slices"

	"github.com/charmbracelet/huh"

	"github.com/projecteru2/debridctl/types"
)

// Terminal asks questions with huh forms.
type Terminal struct{}

// compile-time interface check.
var _ Prompter = (*Terminal)(nil)

func run(ctx context.Context, field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return types.ErrAborted
	}
	return err
}

func orNoop(validate func(string) error) func(string) error {
	if validate == nil {
		return func(string) error { return nil }
	}
	return validate
}

func (*Terminal) Input(ctx context.Context, title, def string, validate func(string) error) (string, error) {
	v := def
	err := run(ctx, huh.NewInput().Title(title).Placeholder(def).Value(&v).Validate(orNoop(validate)))
	if v == "" {
		v = def
	}
	return v, err
}

func (*Terminal) Secret(ctx context.Context, title string, validate func(string) error) (string, error) {
	var v string
	err := run(ctx, huh.NewInput().Title(title).EchoMode(huh.EchoModePassword).Value(&v).Validate(orNoop(validate)))
	return v, err
}

func (*Terminal) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	v := def
	err := run(ctx, huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&v))
	return v, err
}

func (*Terminal) Select(ctx context.Context, title string, options []Option, def string) (string, error) {
	v := def
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	err := run(ctx, huh.NewSelect[string]().Title(title).Options(opts...).Value(&v))
	return v, err
}

func (*Terminal) MultiSelect(ctx context.Context, title string, options []Option, defs []string) ([]string, error) {
	var v []string
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value).Selected(slices.Contains(defs, o.Value)))
	}
	err := run(ctx, huh.NewMultiSelect[string]().Title(title).Options(opts...).Value(&v))
	return v, err
}
