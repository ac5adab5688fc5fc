package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"uac-triage/collectors/uac"
	"uac-triage/core/internal/config"
	"uac-triage/core/internal/evidence"
	"uac-triage/core/internal/report"
	"uac-triage/core/internal/triage"
)

const maxConsoleProblems = 50

func addOrganizeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArray("path", nil, "UAC output directory, or a directory of them (repeatable)")
	f.String("output", "./uac_organized", "Base directory for output runs")
	f.String("run-prefix", "uac_triage", "Prefix of the run directory name")
	f.String("run-id", "", "Run id used in the run directory name (default: random)")
	f.Bool("no-parse", false, "Only copy artifacts, do not write parsed/ output")
	f.String("copy-mode", string(evidence.CopyModeCopy), "How artifacts land in original/ (copy|symlink|hardlink)")
	f.Int("workers", 1, "Number of systems processed concurrently")
	f.StringSlice("skip-dir", uac.DefaultSkipDirs, "Top level collection directories that are not categorized")
	f.String("ioc-file", "", "IOC list file (one substring per line) scanned against copied artifacts")
}

func runOrganize(cmd *cobra.Command, g *globalFlags) error {
	cfg, log, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	if len(cfg.Paths) == 0 {
		return fmt.Errorf("%w: at least one --path is required", config.ErrInvalid)
	}
	rs, err := cfg.RuleSet()
	if err != nil {
		return err
	}
	mode, err := evidence.ParseCopyMode(cfg.CopyMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := triage.Run(ctx, triage.Options{
		Paths:     cfg.Paths,
		Output:    cfg.Output,
		RunPrefix: cfg.RunPrefix,
		RunID:     cfg.RunID,
		NoParse:   !cfg.Parse,
		CopyMode:  mode,
		Workers:   cfg.Workers,
		SkipDirs:  cfg.SkipDirs,
		IOCFile:   cfg.IOCFile,
		Rules:     rs,
		Logger:    log,
	})
	if res.Summary != nil {
		if err := report.Render(cmd.OutOrStdout(), res.Summary, report.Options{
			Color:       !color.NoColor,
			MaxProblems: maxConsoleProblems,
		}); err != nil {
			return err
		}
	}
	return runErr
}
