package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/types"
)

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"install", "update", "repair", "backup", "restore", "probe", "render", "version"} {
		assert.Contains(t, names, want)
	}
	for _, flag := range []string{"config", "root-dir", "yes"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestInstallRejectsUnknownFlavor(t *testing.T) {
	require.NoError(t, installCmd.Flags().Set("flavor", "mixed"))
	t.Cleanup(func() { _ = installCmd.Flags().Set("flavor", "") })

	err := runInstall(installCmd, nil)
	var te *types.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.KindInput, te.Kind)
	assert.Contains(t, te.Remedy, "--flavor")
}

func TestInitConfigEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEBRID_ROOT_DIR", dir)

	require.NoError(t, initConfig())
	assert.Equal(t, dir, conf.RootDir)
	assert.Equal(t, 10, conf.BackupKeep)
	assert.Equal(t, "/run/debridctl", conf.RunDir)
}

func TestMenuLoop(t *testing.T) {
	p := &prompt.Scripted{Answers: []string{"backup", "update", "exit"}}
	var ran []reconcile.ActionKind
	var errOut bytes.Buffer
	err := menuLoop(context.Background(), p, &errOut, func(kind reconcile.ActionKind) error {
		ran = append(ran, kind)
		if kind == reconcile.ActionBackup {
			return &types.Error{Kind: types.KindInconsistent, Op: "backup", Err: types.ErrNoExistingInstallation, Remedy: "run `debridctl install` first"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []reconcile.ActionKind{reconcile.ActionBackup, reconcile.ActionUpdate}, ran)
	assert.Contains(t, errOut.String(), "Next step: run `debridctl install` first")
	assert.Empty(t, p.Answers)
}

func TestMenuLoop_FatalEndsLoop(t *testing.T) {
	p := &prompt.Scripted{Answers: []string{"install", "exit"}}
	fatal := types.Fatal("install docker", errors.New("apt failed"), "install Docker manually")
	err := menuLoop(context.Background(), p, &bytes.Buffer{}, func(reconcile.ActionKind) error { return fatal })
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, []string{"exit"}, p.Answers)
}
