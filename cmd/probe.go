package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/projecteru2/debridctl/probe"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/utils"
)

var probeCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show the detected host, toolchain and installation",
		Args:  cobra.NoArgs,
		RunE:  runProbe,
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}()

func runProbe(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	runner := utils.ExecRunner{}
	p := probe.New(runner)
	host := p.Probe(ctx)
	tools := p.ProbeToolchain(ctx)
	// Container names need a daemon; the filesystem scan does not.
	rec := reconcile.Scan(ctx, conf, nil)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"host":         host,
			"toolchain":    tools,
			"installation": rec,
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0) //nolint:mnd
	_, _ = fmt.Fprintf(w, "OS\t%s %s (%s)\n", host.OSID, host.OSVersion, host.OSFamily)
	_, _ = fmt.Fprintf(w, "ARCH\t%s\n", host.Architecture)
	virt := "no"
	if host.IsVirtualized {
		virt = "yes (" + host.Virtualization + ")"
	}
	_, _ = fmt.Fprintf(w, "VIRTUALIZED\t%s\n", virt)
	_, _ = fmt.Fprintf(w, "MEMORY\t%s\n", units.BytesSize(float64(host.TotalMemoryMB)*units.MiB))
	_, _ = fmt.Fprintf(w, "CPUS\t%d\n", host.CPUCores)
	_, _ = fmt.Fprintf(w, "PACKAGES\t%s\n", host.PackageManager)
	_, _ = fmt.Fprintf(w, "ADDRESS\t%s\n", host.PrimaryAddress)
	_, _ = fmt.Fprintf(w, "TIER\t%s\n", host.ResourceTier())
	_, _ = fmt.Fprintf(w, "DOCKER\t%t (compose %t)\n", tools.ContainerRuntimePresent, tools.ComposePresent)
	_, _ = fmt.Fprintf(w, "RCLONE\t%t %s %s\n", tools.MountToolPresent, tools.MountToolVersion, tools.MountToolVersionTier)
	_, _ = fmt.Fprintf(w, "FUSE\t%d\n", tools.FuseVersion)
	_, _ = fmt.Fprintf(w, "INSTALLED\t%s\n", rec.Flavor)
	for _, warn := range rec.Warnings {
		_, _ = fmt.Fprintf(w, "WARNING\t%s\n", warn)
	}
	return w.Flush()
}
