package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	d := Defaults{}

	v, err := d.Input(ctx, "tz", "UTC", nil)
	require.NoError(t, err)
	assert.Equal(t, "UTC", v)

	_, err = d.Input(ctx, "addr", "bad", func(string) error { return errors.New("nope") })
	require.Error(t, err)

	_, err = d.Secret(ctx, "token", nil)
	require.ErrorIs(t, err, ErrNoAnswer)

	ok, err := d.Confirm(ctx, "go?", true)
	require.NoError(t, err)
	assert.True(t, ok)

	sel, err := d.Select(ctx, "pick", nil, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", sel)

	multi, err := d.MultiSelect(ctx, "pick", nil, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, multi)
}

func TestScripted(t *testing.T) {
	ctx := context.Background()
	s := &Scripted{Answers: []string{"", "secret-token", "false", "retry", "a,b", "-"}}

	v, err := s.Input(ctx, "tz", "UTC", nil)
	require.NoError(t, err)
	assert.Equal(t, "UTC", v)

	v, err = s.Secret(ctx, "token", nil)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", v)

	ok, err := s.Confirm(ctx, "go?", true)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err = s.Select(ctx, "pull failed", nil, "continue")
	require.NoError(t, err)
	assert.Equal(t, "retry", v)

	multi, err := s.MultiSelect(ctx, "extras", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, multi)

	multi, err = s.MultiSelect(ctx, "extras", nil, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, multi)

	_, err = s.Confirm(ctx, "again?", false)
	require.ErrorIs(t, err, ErrNoAnswer)
	assert.Len(t, s.Asked, 7)
}
