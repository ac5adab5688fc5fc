package cli

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"uac-triage/core/internal/config"
	"uac-triage/core/internal/logging"
	"uac-triage/core/internal/version"
)

type globalFlags struct {
	configFile string
	noColor    bool
}

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "uac-triage --path <dir> [--path <dir>...]",
		Short:         "Organize UAC collections into categorized, parsed evidence trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, g)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Config file (default ./uac-triage.yaml or ~/.config/uac-triage/uac-triage.yaml)")
	pf.String("log-level", "info", "Log level (debug|info|warn|error)")
	pf.String("log-format", "text", "Log format (text|json)")
	pf.String("rules-file", "", "YAML file with extra category patterns")
	pf.String("rules-mode", "extend", "How rules from config combine with the defaults (extend|replace)")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	addOrganizeFlags(cmd)

	cmd.AddCommand(NewRulesCmd(g))
	cmd.AddCommand(NewClassifyCmd(g))
	cmd.AddCommand(NewVersionCmd())

	cmd.SetVersionTemplate(fmt.Sprintf("%s (%s/%s)\n", version.Version, runtime.GOOS, runtime.GOARCH))
	cmd.Version = version.Version

	return cmd
}

// loadConfig resolves configuration and installs the default logger.
func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(g.configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(log)
	return cfg, log, nil
}
