package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/health"
	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/provision"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

// Install collects answers and deploys a new stack. An existing
// installation is only replaced after confirmation.
func (w *Workflow) Install(ctx context.Context) (*Summary, error) {
	return w.run(ctx, reconcile.ActionFreshInstall, func(ctx context.Context) error {
		if err := w.discover(ctx); err != nil {
			return err
		}
		if w.record.Installed() {
			ok, err := w.Prompter.Confirm(ctx, fmt.Sprintf(
				"A %s installation already exists. Installing again replaces its configuration. Continue?", w.record.Flavor), false)
			if err != nil {
				return err
			}
			if !ok {
				return types.Fatal("install", types.ErrAborted, "use `debridctl update` to keep the current configuration")
			}
		}
		return w.freshInstall(ctx)
	})
}

// Update re-renders the installed stack from its on-disk configuration and
// pulls fresh images. With nothing installed it offers a fresh install.
func (w *Workflow) Update(ctx context.Context) (*Summary, error) {
	return w.run(ctx, reconcile.ActionUpdate, func(ctx context.Context) error {
		return w.maintain(ctx, reconcile.ActionUpdate)
	})
}

// Repair is Update without pulling images.
func (w *Workflow) Repair(ctx context.Context) (*Summary, error) {
	return w.run(ctx, reconcile.ActionRepair, func(ctx context.Context) error {
		return w.maintain(ctx, reconcile.ActionRepair)
	})
}

func (w *Workflow) freshInstall(ctx context.Context) error {
	flavor := w.Flavor
	if flavor == "" {
		choice, err := w.Prompter.Select(ctx, "Installation type", []prompt.Option{
			{Label: "Individual containers (zurg + rclone + cli_debrid)", Value: string(types.FlavorIndividual)},
			{Label: "All-in-one bundle (DMB)", Value: string(types.FlavorBundle)},
		}, string(types.FlavorIndividual))
		if err != nil {
			return err
		}
		flavor = types.Flavor(choice)
	}
	act, err := reconcile.Reconcile(w.record, reconcile.ActionFreshInstall, flavor)
	if err != nil {
		return err
	}
	cfg, err := w.collect(ctx, act.Flavor)
	if err != nil {
		return err
	}
	return w.deploy(ctx, cfg, deployOpts{fresh: true})
}

func (w *Workflow) maintain(ctx context.Context, kind reconcile.ActionKind) error {
	logger := log.WithFunc("workflow.maintain")
	if err := w.discover(ctx); err != nil {
		return err
	}
	act, err := reconcile.Reconcile(w.record, kind, "")
	if errors.Is(err, types.ErrNoExistingInstallation) {
		ok, perr := w.Prompter.Confirm(ctx, "No existing installation was found. Start a fresh install instead?", true)
		if perr != nil {
			return perr
		}
		if !ok {
			return err
		}
		logger.Infof(ctx, "%s redirected to a fresh install", kind)
		w.summary.Action = reconcile.ActionFreshInstall
		return w.freshInstall(ctx)
	}
	if err != nil {
		return err
	}

	cfg, err := reconcile.Import(act.Record, w.Conf)
	if err != nil {
		return err
	}
	cfg.ServerAddress = w.host.PrimaryAddress
	if render.ValidateAddress(cfg.ServerAddress) != nil {
		cfg.ServerAddress = fallbackAddress
	}

	if kind == reconcile.ActionUpdate {
		if snap, err := w.backups().Backup(ctx, act.Flavor); err != nil {
			w.warn(ctx, "pre-update backup failed: %v", err)
		} else {
			logger.Infof(ctx, "pre-update snapshot %s", snap.ID)
		}
		change, err := w.Prompter.Confirm(ctx, "Change the selected services?", false)
		if err != nil {
			return err
		}
		if change {
			if err := w.selectServices(ctx, &cfg); err != nil {
				return err
			}
		}
	}
	return w.deploy(ctx, cfg, deployOpts{skipPull: kind == reconcile.ActionRepair})
}

type deployOpts struct {
	fresh    bool
	skipPull bool
}

// deploy renders cfg, applies it and verifies the result.
func (w *Workflow) deploy(ctx context.Context, cfg types.StackConfig, opts deployOpts) error {
	if err := w.enter(PhaseRendering); err != nil {
		return err
	}
	arts, err := render.Render(cfg, w.host, w.tools, w.Conf)
	if err != nil {
		return err
	}
	w.summary.Flavor = cfg.Flavor
	if err := w.checkpoint(ctx, fmt.Sprintf("Write %d files and deploy %d services as %s?",
		len(arts), len(cfg.Services()), cfg.Flavor)); err != nil {
		return err
	}

	if err := w.enter(PhaseExecuting); err != nil {
		return err
	}
	w.retire(ctx, cfg.Flavor)
	exec := &provision.Executor{
		Layout:   w.Conf,
		Runner:   w.Runner,
		Engine:   w.Engine,
		Prompter: w.Prompter,
		Host:     w.host,
		Tools:    &w.tools,
		SkipPull: opts.skipPull,
		Rerender: func(tc types.ToolchainState) ([]types.RenderedArtifact, error) {
			return render.Render(cfg, w.host, tc, w.Conf)
		},
	}
	res, err := exec.Apply(ctx, arts, cfg)
	w.summary.absorb(res)
	if err != nil {
		return err
	}

	if err := w.enter(PhaseVerifying); err != nil {
		return err
	}
	w.verify(ctx, &cfg)
	w.summary.URLs = serviceURLs(&cfg)

	if opts.fresh {
		snap, err := w.backups().Backup(ctx, cfg.Flavor)
		if err != nil {
			w.warn(ctx, "initial backup failed: %v", err)
		} else {
			w.summary.Snapshot = snap
		}
	}
	return nil
}

func (w *Workflow) verify(ctx context.Context, cfg *types.StackConfig) {
	rep := w.verifier(cfg.Credential).Verify(ctx, health.EndpointsFor(cfg, w.Conf))
	w.summary.Health = rep
	if rep.Healthy {
		return
	}
	for _, f := range rep.Failures {
		w.warn(ctx, "health: %s", f)
	}
	if rep.Diagnostics != nil {
		w.warn(ctx, "diagnostics %s written to %s", rep.Diagnostics.ID, rep.Diagnostics.Path)
	}
}

// retire stops the other flavor when switching and moves its stack
// directory aside, so only one flavor is ever detected afterward. Service
// data stays in the moved directory.
func (w *Workflow) retire(ctx context.Context, next types.Flavor) {
	prev := w.record.Flavor
	if !w.record.Installed() || prev == next {
		return
	}
	logger := log.WithFunc("workflow.retire")
	logger.Infof(ctx, "retiring the %s stack before deploying %s", prev, next)
	if snap, err := w.backups().Backup(ctx, prev); err != nil {
		w.warn(ctx, "backup %s stack: %v", prev, err)
	} else {
		logger.Infof(ctx, "%s configuration saved as snapshot %s", prev, snap.ID)
	}
	if compose := w.Conf.ComposeFile(prev); utils.FileExists(compose) {
		if err := w.Engine.ComposeDown(ctx, w.Conf.ProjectName, compose); err != nil {
			w.warn(ctx, "stop %s stack: %v", prev, err)
		}
	}
	if prev == types.FlavorIndividual {
		for _, args := range [][]string{
			{"stop", config.MountUnitName},
			{"disable", config.MountUnitName},
		} {
			if _, err := w.Runner.Run(ctx, "systemctl", args...); err != nil {
				w.warn(ctx, "systemctl %v: %v", args, err)
			}
		}
		if err := os.Remove(w.Conf.UnitFile()); err != nil && !os.IsNotExist(err) {
			w.warn(ctx, "remove %s: %v", w.Conf.UnitFile(), err)
		}
	}
	dir := w.Conf.StackDir(prev)
	aside := fmt.Sprintf("%s.retired-%s", dir, time.Now().Format("20060102-150405"))
	if err := os.Rename(dir, aside); err != nil {
		w.warn(ctx, "move %s aside: %v (remove it manually to avoid a mixed installation)", dir, err)
		return
	}
	logger.Infof(ctx, "moved %s to %s", dir, aside)
}
