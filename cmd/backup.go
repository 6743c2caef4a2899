package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/projecteru2/debridctl/backup"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/utils"
)

var backupCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the generated configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, reconcile.ActionBackup, nil)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE:  runBackupList,
	})
	return cmd
}()

func runBackupList(_ *cobra.Command, _ []string) error {
	snaps, err := backup.New(conf, nil, utils.ExecRunner{}).List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Printf("No snapshots in %s.\n", conf.BackupsDir())
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0) //nolint:mnd
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tFLAVOR\tFILES\tSIZE")
	for _, s := range snaps {
		var size int64
		for _, e := range s.Manifest {
			size += e.Size
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Flavor, len(s.Manifest), units.HumanSize(float64(size)))
	}
	return w.Flush()
}
