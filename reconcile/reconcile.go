// Package reconcile decides what a run should do given what is already on
// the host.
package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

// ActionKind is what the user asked for.
type ActionKind string

const (
	ActionFreshInstall ActionKind = "install"
	ActionUpdate       ActionKind = "update"
	ActionRepair       ActionKind = "repair"
	ActionBackup       ActionKind = "backup"
	ActionRestore      ActionKind = "restore"
)

// Action is the reconciled plan for a run. Flavor is the flavor to render
// (fresh install) or the detected one (everything else).
type Action struct {
	Kind   ActionKind
	Flavor types.Flavor
	Record types.InstallationRecord
}

// Scan inspects well-known config paths and container names. A nil engine
// (no container runtime yet) limits the scan to the filesystem. Scan never
// fails; problems are recorded as warnings.
func Scan(ctx context.Context, layout *config.Config, eng engine.Engine) types.InstallationRecord {
	logger := log.WithFunc("reconcile.Scan")
	rec := types.InstallationRecord{Flavor: types.FlavorNone, ConfigPaths: map[types.ServiceID]string{}}

	bundle, individual := false, false

	if p := layout.BundleConfig(); utils.FileExists(p) {
		bundle = true
		rec.ConfigPaths[types.ServiceDMB] = p
	}
	if p := layout.ZurgConfig(); utils.FileExists(p) {
		individual = true
		rec.ConfigPaths[types.ServiceZurg] = p
	}
	if utils.FileExists(layout.ComposeFile(types.FlavorIndividual)) {
		individual = true
	}

	if eng != nil {
		names, err := eng.ContainerNames(ctx)
		if err != nil {
			logger.Warnf(ctx, "container scan skipped: %v", err)
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("container scan skipped: %v", err))
		}
		for _, n := range names {
			id, ok := types.ServiceByContainerName(n)
			if !ok {
				continue
			}
			switch {
			case id == types.ServiceDMB:
				bundle = true
			case types.IsIndividualMarker(id):
				individual = true
			}
			if !slices.Contains(rec.PresentServices, id) {
				rec.PresentServices = append(rec.PresentServices, id)
			}
		}
		slices.Sort(rec.PresentServices)
	}

	switch {
	case bundle && individual:
		rec.Flavor = types.FlavorBundle
		rec.Ambiguous = true
		rec.Warnings = append(rec.Warnings,
			"found both bundle and individual artifacts; treating the host as a bundle installation")
	case bundle:
		rec.Flavor = types.FlavorBundle
	case individual:
		rec.Flavor = types.FlavorIndividual
	}
	logger.Infof(ctx, "detected flavor=%s ambiguous=%t services=%v", rec.Flavor, rec.Ambiguous, rec.PresentServices)
	return rec
}

// Reconcile turns the user's choice into an Action. want is the flavor
// requested for a fresh install and ignored otherwise. Update and repair
// on a host with nothing installed fail with ErrNoExistingInstallation,
// which callers may answer by offering a fresh install.
func Reconcile(rec types.InstallationRecord, choice ActionKind, want types.Flavor) (Action, error) {
	act := Action{Kind: choice, Flavor: rec.Flavor, Record: rec}
	switch choice {
	case ActionFreshInstall:
		if want != types.FlavorIndividual && want != types.FlavorBundle {
			return Action{}, &types.Error{
				Kind:   types.KindInput,
				Op:     "reconcile",
				Err:    fmt.Errorf("unknown flavor %q", want),
				Remedy: "choose individual or bundle",
			}
		}
		act.Flavor = want
	case ActionUpdate, ActionRepair:
		if !rec.Installed() {
			return Action{}, &types.Error{
				Kind:   types.KindInconsistent,
				Op:     string(choice),
				Err:    types.ErrNoExistingInstallation,
				Remedy: "run `debridctl install` to perform a fresh installation",
			}
		}
	case ActionBackup, ActionRestore:
	default:
		return Action{}, &types.Error{Kind: types.KindInput, Op: "reconcile", Err: fmt.Errorf("unknown action %q", choice)}
	}
	return act, nil
}
