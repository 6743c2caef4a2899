package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/prompt"
	"github.com/projecteru2/debridctl/reconcile"
	"github.com/projecteru2/debridctl/types"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debridctl",
		Short: "debridctl - debrid media stack installer",
		Long: "Installs, updates, repairs, backs up and restores a debrid-backed media stack.\n" +
			"Run without a subcommand for the interactive menu.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig()
		},
		RunE: runMenu,
	}

	defaults := config.DefaultConfig()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("root-dir", defaults.RootDir, "root directory for generated files")
	cmd.PersistentFlags().String("run-dir", defaults.RunDir, "runtime directory")
	cmd.PersistentFlags().BoolP("yes", "y", false, "accept defaults without prompting")

	_ = viper.BindPFlag("root_dir", cmd.PersistentFlags().Lookup("root-dir"))
	_ = viper.BindPFlag("run_dir", cmd.PersistentFlags().Lookup("run-dir"))
	_ = viper.BindPFlag("assume_yes", cmd.PersistentFlags().Lookup("yes"))

	viper.SetEnvPrefix("DEBRID")
	viper.AutomaticEnv()

	cmd.AddCommand(
		installCmd,
		updateCmd,
		repairCmd,
		backupCmd,
		restoreCmd,
		probeCmd,
		renderCmd,
		versionCmd,
	)

	return cmd
}()

func initConfig() error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	_ = viper.ReadInConfig() // optional; missing file is OK

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if conf.BackupKeep < 0 {
		conf.BackupKeep = 0
	}
	if conf.HealthAttempts <= 0 {
		conf.HealthAttempts = 1
	}

	return log.SetupLog(context.Background(), conf.Log, "")
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

var menuOptions = []prompt.Option{
	{Label: "Install", Value: string(reconcile.ActionFreshInstall)},
	{Label: "Update", Value: string(reconcile.ActionUpdate)},
	{Label: "Backup", Value: string(reconcile.ActionBackup)},
	{Label: "Restore", Value: string(reconcile.ActionRestore)},
	{Label: "Repair", Value: string(reconcile.ActionRepair)},
	{Label: "Exit", Value: menuExit},
}

const menuExit = "exit"

func runMenu(cmd *cobra.Command, _ []string) error {
	p := prompt.New(conf.AssumeYes)
	if _, ok := p.(*prompt.Terminal); !ok {
		return cmd.Help()
	}
	return menuLoop(commandContext(cmd), p, cmd.ErrOrStderr(), func(kind reconcile.ActionKind) error {
		return runAction(cmd, kind, p)
	})
}

// menuLoop offers the menu until the user exits. Fatal errors end the
// loop; anything else is reported and the menu comes back.
func menuLoop(ctx context.Context, p prompt.Prompter, errOut io.Writer, run func(reconcile.ActionKind) error) error {
	for {
		choice, err := p.Select(ctx, "What would you like to do?", menuOptions, string(reconcile.ActionFreshInstall))
		if err != nil {
			return err
		}
		if choice == menuExit {
			return nil
		}
		if err := run(reconcile.ActionKind(choice)); err != nil {
			if types.IsFatal(err) || ctx.Err() != nil {
				return err
			}
			PrintError(errOut, err)
		}
	}
}

// PrintError writes err and its remedy, if any.
func PrintError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	if remedy := types.RemedyOf(err); remedy != "" {
		_, _ = fmt.Fprintf(w, "Next step: %s\n", remedy)
	}
}
