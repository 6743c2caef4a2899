// Package workflow drives one debridctl run through its phases: probe the
// host, reconcile against what is installed, render, execute and verify.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/backup"
	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/health"
	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

// HostProber produces the host and toolchain profiles. *probe.Prober
// implements it.
type HostProber interface {
	Probe(ctx context.Context) types.HostProfile
	ProbeToolchain(ctx context.Context) types.ToolchainState
}

// Workflow holds the collaborators of a run. One Workflow serves one run.
type Workflow struct {
	Conf     *config.Config
	Runner   utils.Runner
	Engine   engine.Engine
	Prompter prompt.Prompter
	Prober   HostProber

	// Credential is used instead of prompting when set.
	Credential types.Secret
	// Flavor preselects the install flavor.
	Flavor types.Flavor

	// HTTP and Mounted override the health verifier's defaults.
	HTTP    *http.Client
	Mounted func(path string) (bool, error)

	phase   Phase
	host    types.HostProfile
	tools   types.ToolchainState
	record  types.InstallationRecord
	summary *Summary
}

// Phase returns the current phase.
func (w *Workflow) Phase() Phase { return w.phase }

// Host returns the profile gathered during Probing.
func (w *Workflow) Host() types.HostProfile { return w.host }

func (w *Workflow) run(ctx context.Context, kind reconcile.ActionKind, fn func(context.Context) error) (*Summary, error) {
	logger := log.WithFunc("workflow." + string(kind))
	w.summary = &Summary{Action: kind}
	if err := fn(ctx); err != nil {
		if errors.Is(err, types.ErrCancelled) {
			w.summary.Cancelled = true
			_ = w.enter(PhaseAborted)
			w.summary.Phase = w.phase
			return w.summary, nil
		}
		logger.Errorf(ctx, err, "%s failed during %s", kind, w.phase)
		_ = w.enter(PhaseAborted)
		w.summary.Phase = w.phase
		return w.summary, err
	}
	if err := w.enter(PhaseDone); err != nil {
		return w.summary, err
	}
	w.summary.Phase = w.phase
	logger.Infof(ctx, "%s %s", kind, w.summary.Status())
	return w.summary, nil
}

func (w *Workflow) warn(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.WithFunc("workflow.warn").Warnf(ctx, "%s", msg)
	w.summary.Warnings = append(w.summary.Warnings, msg)
}

// discover probes the host and scans for an existing installation. An
// ambiguous scan is treated as bundle only after the operator agrees.
func (w *Workflow) discover(ctx context.Context) error {
	if err := w.enter(PhaseProbing); err != nil {
		return err
	}
	w.host = w.Prober.Probe(ctx)
	w.tools = w.Prober.ProbeToolchain(ctx)

	if err := w.enter(PhaseReconciling); err != nil {
		return err
	}
	var eng engine.Engine
	if w.tools.ContainerRuntimePresent {
		eng = w.Engine
	}
	w.record = reconcile.Scan(ctx, w.Conf, eng)
	w.summary.Warnings = append(w.summary.Warnings, w.record.Warnings...)

	if !w.record.Ambiguous {
		return nil
	}
	ok, err := w.Prompter.Confirm(ctx,
		"Both bundle and individual installations were found. Continue treating this host as bundle?", false)
	if err != nil {
		return err
	}
	if !ok {
		return &types.Error{
			Kind:   types.KindInconsistent,
			Op:     "detect installation",
			Err:    types.ErrAborted,
			Remedy: "remove the stale flavor's files under " + w.Conf.RootDir + " or restore a snapshot",
		}
	}
	return nil
}

func (w *Workflow) verifier(secret types.Secret) *health.Verifier {
	v := health.New(w.Conf, w.Engine, w.Runner, secret)
	if w.HTTP != nil {
		v.HTTP = w.HTTP
	}
	v.Mounted = w.Mounted
	return v
}

func (w *Workflow) backups() *backup.Manager {
	return backup.New(w.Conf, w.Engine, w.Runner)
}

func (w *Workflow) checkpoint(ctx context.Context, title string) error {
	ok, err := w.Prompter.Confirm(ctx, title, true)
	if err != nil {
		return err
	}
	if !ok {
		return types.Fatal("confirm", types.ErrAborted, "re-run when ready")
	}
	return nil
}
