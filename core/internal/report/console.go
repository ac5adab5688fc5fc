package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"uac-triage/rules"
)

type Options struct {
	Color       bool
	MaxProblems int
}

type printer struct {
	w       io.Writer
	header  *color.Color
	success *color.Color
	warn    *color.Color
	failure *color.Color
}

func newPrinter(w io.Writer, useColor bool) *printer {
	p := &printer{
		w:       w,
		header:  color.New(color.FgWhite, color.Bold),
		success: color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.header, p.success, p.warn, p.failure} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Render prints the per-system and per-category tables followed by the
// problem list.
func Render(w io.Writer, s *Summary, opts Options) error {
	p := newPrinter(w, opts.Color)

	p.header.Fprintf(w, "Run %s\n", s.RunName)
	fmt.Fprintf(w, "Output: %s\n\n", s.OutputDir)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYSTEM\tFILES\tUNCATEGORIZED\tSKIPPED\tSTATUS")
	for _, sys := range s.Systems {
		status := "ok"
		if sys.Failed {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", sys.ID, sys.Files, sys.Uncategorized, sys.Skipped, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCOPIED\tCOPY FAILED\tPARSED\tWARNINGS\tPARSE FAILED")
	for _, c := range rules.Categories() {
		t := s.Totals[string(c)]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", c, t.Copied, t.CopyFailed, t.Parsed, t.ParseWarnings, t.ParseFailed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if s.IOCMatches > 0 {
		p.warn.Fprintf(w, "IOC matches: %d (see analysis/ioc_scan.json)\n", s.IOCMatches)
	}

	if s.Interrupted {
		p.failure.Fprintln(w, "✗ run interrupted, output is partial")
	}
	if len(s.Problems) == 0 {
		if !s.Interrupted {
			p.success.Fprintln(w, "✓ completed without problems")
		}
		return nil
	}

	p.warn.Fprintf(w, "⚠ %d problem(s)\n", len(s.Problems))
	limit := opts.MaxProblems
	for i, pr := range s.Problems {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "  ... %d more, see summary.json\n", len(s.Problems)-limit)
			break
		}
		where := pr.Path
		if pr.System != "" {
			where = pr.System + " " + where
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", pr.Stage, where, pr.Reason)
	}
	return nil
}
