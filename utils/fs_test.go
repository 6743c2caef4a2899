package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "file.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("one"), 0o600))
	require.NoError(t, AtomicWriteFile(path, []byte("two"), 0o640))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, FileExists(dir))
	p := filepath.Join(dir, "f")
	assert.False(t, FileExists(p))
	require.NoError(t, os.WriteFile(p, nil, 0o600))
	assert.True(t, FileExists(p))
}

func TestExecRunner(t *testing.T) {
	r := ExecRunner{}
	out, err := r.Shell(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = r.Shell(context.Background(), "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.Empty(t, r.LookPath("definitely-not-a-real-binary-xyz"))
	assert.NotEmpty(t, r.LookPath("sh"))
}

func TestShortID(t *testing.T) {
	a, b := ShortID(), ShortID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}
