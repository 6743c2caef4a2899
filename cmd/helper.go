package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/projecteru2/debridctl/engine"
	"github.com/projecteru2/debridctl/lock"
	"github.com/projecteru2/debridctl/lock/flock"
	"github.com/projecteru2/debridctl/probe"
	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
	"github.com/projecteru2/debridctl/workflow"
)

var errNotRoot = errors.New("must run as root")

func requireRoot() error {
	if unix.Geteuid() != 0 {
		return types.Fatal("check privileges", errNotRoot, "re-run with sudo")
	}
	return nil
}

// newWorkflow wires production collaborators. The returned func releases
// the docker client.
func newWorkflow(p prompt.Prompter) (*workflow.Workflow, func(), error) {
	runner := utils.ExecRunner{}
	docker, err := engine.New(runner)
	if err != nil {
		return nil, nil, types.Fatal("connect to docker", err, "check DOCKER_HOST and the docker socket permissions")
	}
	return &workflow.Workflow{
		Conf:       conf,
		Runner:     runner,
		Engine:     docker,
		Prompter:   p,
		Prober:     probe.New(runner),
		Credential: types.Secret(viper.GetString("api_token")),
	}, func() { _ = docker.Close() }, nil
}

// runAction runs kind under the run lock and prints the summary.
func runAction(cmd *cobra.Command, kind reconcile.ActionKind, p prompt.Prompter, opts ...func(*workflow.Workflow)) error {
	ctx := commandContext(cmd)
	if err := requireRoot(); err != nil {
		return err
	}
	if p == nil {
		p = prompt.New(conf.AssumeYes)
	}
	wf, release, err := newWorkflow(p)
	if err != nil {
		return err
	}
	defer release()
	for _, opt := range opts {
		opt(wf)
	}

	var sum *workflow.Summary
	err = lock.WithLock(ctx, flock.New(conf.LockFile()), func() error {
		var err error
		switch kind {
		case reconcile.ActionFreshInstall:
			sum, err = wf.Install(ctx)
		case reconcile.ActionUpdate:
			sum, err = wf.Update(ctx)
		case reconcile.ActionRepair:
			sum, err = wf.Repair(ctx)
		case reconcile.ActionBackup:
			sum, err = wf.Backup(ctx)
		case reconcile.ActionRestore:
			sum, err = wf.Restore(ctx)
		default:
			err = fmt.Errorf("unknown action %q", kind)
		}
		return err
	})
	if errors.Is(err, lock.ErrHeld) {
		return types.Fatal("acquire run lock", err, "wait for the other debridctl run to finish")
	}
	if sum != nil {
		sum.Print(os.Stdout)
	}
	return err
}
