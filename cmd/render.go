package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/render"
	"github.com/projecteru2/debridctl/types"
	"github.com/projecteru2/debridctl/utils"
)

// dryRunToken stands in for the credential when none is configured. Output
// is redacted either way.
const dryRunToken types.Secret = "dry-run-placeholder"

var renderCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the files an install or update would write (dry run)",
		Args:  cobra.NoArgs,
		RunE:  runRender,
	}
	cmd.Flags().String("flavor", "", "individual or bundle")
	cmd.Flags().String("out", "", "write redacted files under this directory instead of printing")
	return cmd
}()

func runRender(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	flavor, _ := cmd.Flags().GetString("flavor")
	out, _ := cmd.Flags().GetString("out")

	wf, release, err := newWorkflow(prompt.New(conf.AssumeYes))
	if err != nil {
		return err
	}
	defer release()
	wf.Flavor = types.Flavor(flavor)
	if wf.Credential.Empty() {
		wf.Credential = dryRunToken
	}

	arts, err := wf.Preview(ctx)
	if err != nil {
		return err
	}
	for _, a := range arts {
		content := render.Redact(a.Content, wf.Credential)
		if out != "" {
			dst := filepath.Join(out, filepath.FromSlash(a.Key))
			if err := utils.AtomicWriteFile(dst, content, a.Mode); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}
			fmt.Println(dst)
			continue
		}
		fmt.Printf("# %s (%s, %o)\n%s\n", a.Path, a.Kind, a.Mode, content)
	}
	if out == "" {
		return nil
	}
	_, err = fmt.Fprintf(os.Stderr, "%d files written under %s\n", len(arts), out)
	return err
}
