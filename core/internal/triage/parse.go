package triage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"uac-triage/analyzers/timeline"
	"uac-triage/collectors"
	"uac-triage/core/internal/evidence"
	"uac-triage/core/internal/logging"
	"uac-triage/core/internal/report"
	"uac-triage/parsers"
	"uac-triage/rules"
)

const sniffBytes = 1024

// parse writes the parsed form of a for category c. Binary files are left
// alone unless the format is copied verbatim. Every record is tagged with the
// system's hostname and the source file; a hostname set by the parser itself
// (syslog) is kept.
func (o *organizer) parse(ctx context.Context, log *logging.Logger, sys collectors.System, a collectors.ArtifactFile, c rules.Category, cc *report.CategoryCounts) {
	p, ok := parsers.Select(c, a.RelativePath)
	if !ok {
		return
	}

	if parsers.IsVerbatim(p) {
		dst, err := o.run.CopyVerbatim(a, c)
		if err != nil {
			cc.ParseFailed++
			o.problem(ctx, a.SystemID, a.RelativePath, report.StageParse, err)
			return
		}
		cc.Parsed++
		o.recordParsed(a, c, p, dst, 0, 0)
		return
	}

	f, err := os.Open(a.SourcePath)
	if err != nil {
		cc.ParseFailed++
		o.problem(ctx, a.SystemID, a.RelativePath, report.StageParse, err)
		return
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	head, _ := br.Peek(sniffBytes)
	if !parsers.IsText(bytes.NewReader(head)) {
		log.DebugContext(ctx, "not parsing binary or empty file", "path", a.RelativePath, "parser", p.Name())
		return
	}

	w, err := o.run.CreateParsed(a, c)
	if err != nil {
		cc.ParseFailed++
		o.problem(ctx, a.SystemID, a.RelativePath, report.StageParse, err)
		return
	}
	host := sys.Hostname
	if host == "" {
		host = sys.ID
	}
	warnings := 0
	err = p.Parse(br, func(rec parsers.Record) error {
		if rec.Warning() {
			warnings++
		}
		if _, ok := rec["hostname"]; !ok {
			rec["hostname"] = host
		}
		rec["source_file"] = a.RelativePath
		return w.Write(rec)
	})
	if err != nil {
		w.Abort()
		cc.ParseFailed++
		o.problem(ctx, a.SystemID, a.RelativePath, report.StageParse, fmt.Errorf("%s: %w", p.Name(), err))
		return
	}
	if err := w.Close(); err != nil {
		cc.ParseFailed++
		o.problem(ctx, a.SystemID, a.RelativePath, report.StageParse, err)
		return
	}

	cc.Parsed++
	cc.ParseWarnings += warnings
	if warnings > 0 {
		log.DebugContext(ctx, "parsed with warnings", "path", a.RelativePath, "parser", p.Name(), "warnings", warnings)
	}
	o.recordParsed(a, c, p, w.Path(), w.Count(), warnings)
}

func (o *organizer) recordParsed(a collectors.ArtifactFile, c rules.Category, p parsers.Parser, dst string, records, warnings int) {
	rel := o.run.Rel(dst)
	o.record(
		evidence.Entry{
			Kind:     evidence.KindParsed,
			SystemID: a.SystemID,
			Category: string(c),
			Source:   a.RelativePath,
			Path:     rel,
			Parser:   p.Name(),
			Records:  records,
			Warnings: warnings,
		},
		timeline.Event{
			Type:     timeline.ArtifactParsed,
			SystemID: a.SystemID,
			Category: string(c),
			Artifact: a.RelativePath,
			Output:   rel,
			Metadata: map[string]string{"parser": p.Name(), "records": fmt.Sprintf("%d", records)},
		},
	)
}
