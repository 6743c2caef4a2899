package workflow

import (
	"context"
	"fmt"

	"github.com/docker/go-units"

	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/provision"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/types"
)

const cancelChoice = "cancel"

// Backup snapshots the installed flavor's generated configuration.
func (w *Workflow) Backup(ctx context.Context) (*Summary, error) {
	return w.run(ctx, reconcile.ActionBackup, func(ctx context.Context) error {
		if err := w.discover(ctx); err != nil {
			return err
		}
		act, err := reconcile.Reconcile(w.record, reconcile.ActionBackup, "")
		if err != nil {
			return err
		}
		if !act.Record.Installed() {
			return &types.Error{
				Kind:   types.KindInconsistent,
				Op:     "backup",
				Err:    types.ErrNoExistingInstallation,
				Remedy: "run `debridctl install` first",
			}
		}
		snap, err := w.backups().Backup(ctx, act.Flavor)
		if err != nil {
			return err
		}
		w.summary.Flavor = act.Flavor
		w.summary.Snapshot = snap
		return nil
	})
}

// Restore writes a chosen snapshot back, redeploys and verifies. Choosing
// cancel ends the run without changes.
func (w *Workflow) Restore(ctx context.Context) (*Summary, error) {
	return w.run(ctx, reconcile.ActionRestore, func(ctx context.Context) error {
		if err := w.discover(ctx); err != nil {
			return err
		}
		mgr := w.backups()
		snaps, err := mgr.List()
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			return &types.Error{
				Kind:   types.KindInconsistent,
				Op:     "restore",
				Err:    fmt.Errorf("no snapshots in %s", w.Conf.BackupsDir()),
				Remedy: "create one with `debridctl backup`",
			}
		}

		options := make([]prompt.Option, 0, len(snaps)+1)
		for _, s := range snaps {
			options = append(options, prompt.Option{Label: snapshotLabel(s), Value: s.ID})
		}
		options = append(options, prompt.Option{Label: "Cancel", Value: cancelChoice})
		choice, err := w.Prompter.Select(ctx, "Snapshot to restore", options, snaps[0].ID)
		if err != nil {
			return err
		}
		if choice == cancelChoice {
			return types.ErrCancelled
		}
		var snap *types.BackupSnapshot
		for i := range snaps {
			if snaps[i].ID == choice {
				snap = &snaps[i]
			}
		}
		if snap == nil {
			return &types.Error{Kind: types.KindInput, Op: "restore", Err: fmt.Errorf("unknown snapshot %q", choice), Remedy: "run `debridctl backup list`"}
		}
		if err := w.checkpoint(ctx, fmt.Sprintf("Restore %s? Running services are stopped first.", snap.ID)); err != nil {
			return err
		}

		flavor, written, err := mgr.Restore(ctx, *snap, w.record)
		if err != nil {
			return err
		}
		w.summary.Flavor = flavor
		w.summary.Written = append(w.summary.Written, written...)

		if err := w.enter(PhaseExecuting); err != nil {
			return err
		}
		w.retire(ctx, flavor)
		exec := &provision.Executor{
			Layout:   w.Conf,
			Runner:   w.Runner,
			Engine:   w.Engine,
			Prompter: w.Prompter,
			Host:     w.host,
			Tools:    &w.tools,
		}
		res, err := exec.Redeploy(ctx, flavor)
		w.summary.absorb(res)
		if err != nil {
			return err
		}

		if err := w.enter(PhaseVerifying); err != nil {
			return err
		}
		cfg, err := reconcile.Import(types.InstallationRecord{Flavor: flavor}, w.Conf)
		if err != nil {
			w.warn(ctx, "read restored configuration: %v", err)
			cfg = types.StackConfig{Flavor: flavor}
		}
		cfg.ServerAddress = w.host.PrimaryAddress
		w.verify(ctx, &cfg)
		w.summary.URLs = serviceURLs(&cfg)
		return nil
	})
}

func snapshotLabel(s types.BackupSnapshot) string {
	var size int64
	for _, e := range s.Manifest {
		size += e.Size
	}
	return fmt.Sprintf("%s  %s  %d files, %s",
		s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Flavor, len(s.Manifest), units.HumanSize(float64(size)))
}
