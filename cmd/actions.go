package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/workflow"
)

var installCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the media stack",
		Args:  cobra.NoArgs,
		RunE:  runInstall,
	}
	cmd.Flags().String("flavor", "", "individual or bundle (asked when empty)")
	return cmd
}()

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-render the installed stack and pull fresh images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAction(cmd, reconcile.ActionUpdate, nil)
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite configuration and restart the stack without pulling images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAction(cmd, reconcile.ActionRepair, nil)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a configuration snapshot and redeploy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAction(cmd, reconcile.ActionRestore, nil)
	},
}

func runInstall(cmd *cobra.Command, _ []string) error {
	flavor, _ := cmd.Flags().GetString("flavor")
	switch types.Flavor(flavor) {
	case "", types.FlavorIndividual, types.FlavorBundle:
	default:
		return &types.Error{
			Kind:   types.KindInput,
			Op:     "install",
			Err:    fmt.Errorf("unknown flavor %q", flavor),
			Remedy: "use --flavor individual or --flavor bundle",
		}
	}
	return runAction(cmd, reconcile.ActionFreshInstall, nil, func(wf *workflow.Workflow) {
		wf.Flavor = types.Flavor(flavor)
	})
}
