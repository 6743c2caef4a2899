// Package provision applies rendered artifacts to the host: it installs
// tooling, writes files, pulls images, starts the mount unit and brings up
// the compose project. Steps run strictly in order.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/probe"
	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

// Pull escalation answers.
const (
	PullContinue = "continue"
	PullRetry    = "retry"
	PullAbort    = "abort"
)

// RerenderFunc renders artifacts again after the toolchain changed.
type RerenderFunc func(tc types.ToolchainState) ([]types.RenderedArtifact, error)

// Result summarizes what Apply did.
type Result struct {
	Written  []string
	Pulled   []string
	Skipped  []string
	Warnings []string
}

// soft records a failure the run survives.
func (r *Result) soft(ctx context.Context, err error) {
	msg := err.Error()
	if remedy := types.RemedyOf(err); remedy != "" {
		msg += " (" + remedy + ")"
	}
	log.WithFunc("provision.Apply").Warnf(ctx, "%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// Executor owns the side effects of a run.
type Executor struct {
	Layout   *config.Config
	Runner   utils.Runner
	Engine   engine.Engine
	Prompter prompt.Prompter
	Host     types.HostProfile
	// Tools is updated in place as tooling gets installed.
	Tools *types.ToolchainState
	// Rerender is called when installing rclone changed its version tier.
	Rerender RerenderFunc
	// SkipPull reuses local images (repair runs).
	SkipPull bool
}

// Apply performs every provisioning step in dependency order. Only fatal
// failures are returned as errors; everything else lands in Result.Warnings.
func (e *Executor) Apply(ctx context.Context, arts []types.RenderedArtifact, cfg types.StackConfig) (*Result, error) {
	logger := log.WithFunc("provision.Apply")
	res := &Result{}
	hasUnit := containsKind(arts, types.ArtifactUnitFile)

	e.ensureCommonPackages(ctx, res)
	if err := e.ensureRuntime(ctx); err != nil {
		return res, err
	}
	tierBefore := e.Tools.MountToolVersionTier
	if err := e.ensureMountTool(ctx, hasUnit); err != nil {
		return res, err
	}
	if hasUnit && e.Rerender != nil && e.Tools.MountToolVersionTier != tierBefore {
		logger.Infof(ctx, "mount tool tier changed %s -> %s, re-rendering", tierBefore, e.Tools.MountToolVersionTier)
		fresh, err := e.Rerender(*e.Tools)
		if err != nil {
			return res, types.Fatal("re-render artifacts", err, "run `debridctl render` to inspect the configuration")
		}
		arts = fresh
	}

	if err := e.writeArtifacts(ctx, arts, cfg, res); err != nil {
		return res, err
	}
	if !e.SkipPull {
		if err := e.pullImages(ctx, render.Images(&cfg), res); err != nil {
			return res, err
		}
	}
	if hasUnit {
		e.startMountUnit(ctx, res)
	}
	if err := e.composeUp(ctx, cfg.Flavor); err != nil {
		return res, err
	}
	logger.Infof(ctx, "stack %s deployed", e.Layout.ProjectName)
	return res, nil
}

// Redeploy starts an installation whose files are already on disk, as left
// by a restore. Images are not pulled; compose fetches any that are missing.
func (e *Executor) Redeploy(ctx context.Context, flavor types.Flavor) (*Result, error) {
	res := &Result{}
	if err := e.ensureRuntime(ctx); err != nil {
		return res, err
	}
	hasUnit := flavor == types.FlavorIndividual && utils.FileExists(e.Layout.UnitFile())
	if err := e.ensureMountTool(ctx, hasUnit); err != nil {
		return res, err
	}
	if err := utils.EnsureDirs(e.Layout.MountPoint(flavor)); err != nil {
		return res, types.Fatal("prepare mount point", err, "check that the mount point is not a stale FUSE mount; run the remount helper")
	}
	if hasUnit {
		e.startMountUnit(ctx, res)
	}
	if err := e.composeUp(ctx, flavor); err != nil {
		return res, err
	}
	log.WithFunc("provision.Redeploy").Infof(ctx, "stack %s redeployed as %s", e.Layout.ProjectName, flavor)
	return res, nil
}

func (e *Executor) composeUp(ctx context.Context, flavor types.Flavor) error {
	compose := e.Layout.ComposeFile(flavor)
	if err := e.Engine.ComposeUp(ctx, e.Layout.ProjectName, compose); err != nil {
		return types.Fatal("deploy stack", err,
			fmt.Sprintf("inspect with `docker compose -p %s -f %s up -d`", e.Layout.ProjectName, compose))
	}
	return nil
}

func containsKind(arts []types.RenderedArtifact, kind types.ArtifactKind) bool {
	for _, a := range arts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

func (e *Executor) shell(ctx context.Context, script string) error {
	_, err := e.Runner.Shell(ctx, script)
	return err
}

// ensureCommonPackages is idempotent and its failures are soft.
func (e *Executor) ensureCommonPackages(ctx context.Context, res *Result) {
	if e.Tools.CommonPackagesPresent {
		return
	}
	pkgs := commonPackages.forManager(e.Host.PackageManager)
	if err := e.shell(ctx, installCommand(e.Host.PackageManager, pkgs)); err != nil {
		res.soft(ctx, types.Soft(fmt.Sprintf("install common packages %v", pkgs), err,
			"install them with your package manager"))
		return
	}
	e.Tools.CommonPackagesPresent = true
}

// ensureRuntime installs docker and the compose plugin if needed and makes
// sure the daemon answers. Any failure is fatal.
func (e *Executor) ensureRuntime(ctx context.Context) error {
	logger := log.WithFunc("provision.ensureRuntime")
	pm := e.Host.PackageManager

	if !e.Tools.ContainerRuntimePresent {
		logger.Infof(ctx, "installing docker")
		script := dockerInstallScript
		if pkgs, ok := nativeDocker[pm]; ok {
			script = installCommand(pm, pkgs)
		}
		if err := e.shell(ctx, script); err != nil {
			return types.Fatal("install docker", err, "install Docker manually: https://docs.docker.com/engine/install/")
		}
		e.Tools.ContainerRuntimePresent = true
	}
	if _, err := e.Runner.Run(ctx, "systemctl", "enable", "--now", "docker"); err != nil {
		return types.Fatal("start docker", err, "run `systemctl status docker` and `journalctl -u docker`")
	}
	if err := e.Engine.Ping(ctx); err != nil {
		return types.Fatal("connect to docker", err, "check that the docker daemon is running: `systemctl status docker`")
	}

	if !e.Tools.ComposePresent {
		if _, err := e.Runner.Run(ctx, "docker", "compose", "version"); err != nil {
			if err := e.shell(ctx, installCommand(pm, composePackages.forManager(pm))); err != nil {
				return types.Fatal("install docker compose", err, "install the compose plugin: https://docs.docker.com/compose/install/linux/")
			}
		}
		e.Tools.ComposePresent = true
	}
	return nil
}

// ensureMountTool installs FUSE, and rclone when a host mount is rendered.
// Any failure is fatal.
func (e *Executor) ensureMountTool(ctx context.Context, needRclone bool) error {
	logger := log.WithFunc("provision.ensureMountTool")
	pm := e.Host.PackageManager

	if e.Tools.FuseVersion == 0 {
		pkgs := fusePackages.forManager(pm)
		if err := e.shell(ctx, installCommand(pm, pkgs)); err != nil {
			return types.Fatal("install fuse", err, fmt.Sprintf("install %v with your package manager", pkgs))
		}
		switch {
		case e.Runner.LookPath("fusermount3") != "":
			e.Tools.FuseVersion = 3
		case e.Runner.LookPath("fusermount") != "":
			e.Tools.FuseVersion = 2
		default:
			return types.Fatal("install fuse", errors.New("fusermount not found after install"), "install fuse3 manually")
		}
	}

	if !needRclone || e.Tools.MountToolPresent {
		return nil
	}
	logger.Infof(ctx, "installing rclone")
	if err := e.shell(ctx, rcloneInstallScript); err != nil {
		return types.Fatal("install rclone", err, "install rclone manually: https://rclone.org/install/")
	}
	out, err := e.Runner.Run(ctx, e.Layout.RcloneBinary, "version")
	if err != nil {
		return types.Fatal("install rclone", err, "install rclone manually: https://rclone.org/install/")
	}
	e.Tools.MountToolPresent = true
	e.Tools.MountToolVersion, e.Tools.MountToolVersionTier = probe.ParseRcloneVersion(string(out))
	return nil
}

// writeArtifacts writes every artifact atomically and creates the mount
// point. Failures are fatal since nothing downstream can work without them.
func (e *Executor) writeArtifacts(ctx context.Context, arts []types.RenderedArtifact, cfg types.StackConfig, res *Result) error {
	logger := log.WithFunc("provision.writeArtifacts")
	if err := e.Layout.EnsureDirs(); err != nil {
		return types.Fatal("prepare directories", err, "check permissions on "+e.Layout.RootDir)
	}
	if err := utils.EnsureDirs(e.Layout.MountPoint(cfg.Flavor)); err != nil {
		return types.Fatal("prepare mount point", err, "check that the mount point is not a stale FUSE mount; run the remount helper")
	}
	for _, a := range arts {
		if err := utils.AtomicWriteFile(a.Path, a.Content, a.Mode); err != nil {
			return types.Fatal("write "+a.Key, err, "check free space and permissions on "+a.Path)
		}
		logger.Infof(ctx, "wrote %s (%s)", a.Path, a.Kind)
		res.Written = append(res.Written, a.Path)
	}
	return nil
}

// startMountUnit reloads systemd and (re)starts the mount. Failures are soft;
// the health verifier diagnoses a mount that did not come up.
func (e *Executor) startMountUnit(ctx context.Context, res *Result) {
	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", config.MountUnitName},
		{"restart", config.MountUnitName},
	} {
		if _, err := e.Runner.Run(ctx, "systemctl", args...); err != nil {
			res.soft(ctx, types.Soft(fmt.Sprintf("systemctl %v", args), err,
				fmt.Sprintf("check `systemctl status %s`", config.MountUnitName)))
			return
		}
	}
}
