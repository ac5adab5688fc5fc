package triage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/imdario/mergo"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"uac-triage/analyzers/ioc"
	"uac-triage/analyzers/timeline"
	"uac-triage/collectors"
	"uac-triage/collectors/uac"
	"uac-triage/core/internal/evidence"
	"uac-triage/core/internal/logging"
	"uac-triage/core/internal/report"
	"uac-triage/rules"
)

var ErrInit = errors.New("cannot initialize output run")

type Options struct {
	Paths     []string
	Output    string
	RunPrefix string
	RunID     string
	NoParse   bool
	CopyMode  evidence.CopyMode
	Workers   int
	SkipDirs  []string
	IOCFile   string

	Rules  *rules.RuleSet
	Fs     afero.Fs
	Logger *logging.Logger
	Now    func() time.Time
}

func defaultOptions() Options {
	return Options{
		Output:    "./uac_organized",
		RunPrefix: "uac_triage",
		CopyMode:  evidence.CopyModeCopy,
		Workers:   1,
		SkipDirs:  uac.DefaultSkipDirs,
	}
}

type Result struct {
	RunID        string
	RunName      string
	OutputDir    string
	Systems      []collectors.System
	Summary      *report.Summary
	SummaryPath  string
	ManifestPath string
}

// Run organizes every system found under opts.Paths into a new output run.
// Per-file and per-system failures are recorded in the summary; only a run
// directory that cannot be created (ErrInit) or a cancelled ctx produce an
// error, and in the latter case the summary for the finished work is still
// written.
func Run(ctx context.Context, opts Options) (Result, error) {
	if err := mergo.Merge(&opts, defaultOptions()); err != nil {
		return Result{}, err
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Rules == nil {
		opts.Rules = rules.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger

	if opts.IOCFile != "" {
		if _, err := ioc.LoadPatterns(opts.IOCFile); err != nil {
			return Result{}, fmt.Errorf("%w: ioc file: %v", ErrInit, err)
		}
	}

	started := opts.Now()
	run, err := evidence.CreateRun(opts.Fs, evidence.RunOptions{
		Base:   opts.Output,
		Prefix: opts.RunPrefix,
		ID:     opts.RunID,
		Now:    started,
		Mode:   opts.CopyMode,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInit, err)
	}
	ctx = logging.WithRunID(ctx, run.ID)
	log.InfoContext(ctx, "output run created", "dir", run.Dir, "copy_mode", run.Mode)

	o := &organizer{
		opts:       opts,
		run:        run,
		log:        log,
		classifier: rules.NewClassifier(opts.Rules),
		walker:     collectors.NewWalker(collectors.WalkOptions{SkipDirs: opts.SkipDirs}),
	}

	systems, problems := uac.Discover(opts.Paths)
	for _, p := range problems {
		o.problem(ctx, "", p.Path, report.StageSystem, p.Err)
	}
	if len(systems) == 0 {
		log.WarnContext(ctx, "no systems found", "paths", opts.Paths)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, sys := range systems {
		if gctx.Err() != nil {
			break
		}
		sys := sys
		g.Go(func() error {
			o.processSystem(gctx, sys)
			return nil
		})
	}
	_ = g.Wait()

	interrupted := ctx.Err() != nil
	if interrupted {
		log.WarnContext(ctx, "run interrupted, writing partial summary")
	}

	sum := &report.Summary{
		RunID:       run.ID,
		RunName:     run.Name,
		OutputDir:   run.Dir,
		StartedAt:   timeline.Stamp(started),
		Interrupted: interrupted,
		Systems:     o.systems,
		Problems:    o.problems,
	}

	if opts.IOCFile != "" && !interrupted {
		sum.IOCMatches = o.scanIOC(ctx)
		sum.Problems = o.problems
	}

	finished := opts.Now()
	if rel, err := timeline.WriteJSONL(ctx, run.Fs, run.Dir, o.events, timeline.Options{
		RunID:      run.ID,
		StartedAt:  started,
		FinishedAt: finished,
	}); err != nil {
		log.ErrorContext(ctx, "write timeline", "error", err)
	} else {
		o.entries = append(o.entries, evidence.Entry{Kind: evidence.KindAnalysis, Path: rel})
	}

	sum.FinishedAt = timeline.Stamp(finished)
	sum.Finalize()
	summaryPath := run.Path("summary.json")
	if err := evidence.WriteJSON(run.Fs, summaryPath, sum); err != nil {
		return Result{}, fmt.Errorf("write summary: %w", err)
	}

	manifestPath, err := run.WriteManifest(evidence.Manifest{
		RunID:     run.ID,
		RunName:   run.Name,
		CreatedAt: timeline.Stamp(run.CreatedAt),
		CopyMode:  run.Mode,
		Inputs:    opts.Paths,
		Systems:   systems,
		Entries:   o.entries,
		Metadata: map[string]string{
			"parse":   fmt.Sprintf("%t", !opts.NoParse),
			"workers": fmt.Sprintf("%d", opts.Workers),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("write manifest: %w", err)
	}

	res := Result{
		RunID:        run.ID,
		RunName:      run.Name,
		OutputDir:    run.Dir,
		Systems:      systems,
		Summary:      sum,
		SummaryPath:  summaryPath,
		ManifestPath: manifestPath,
	}
	log.InfoContext(ctx, "run finished",
		"systems", len(sum.Systems),
		"files", sum.Files,
		"uncategorized", sum.Uncategorized,
		"problems", len(sum.Problems),
	)
	if interrupted {
		return res, ctx.Err()
	}
	return res, nil
}

// organizer holds the state shared by the system workers. Output paths are
// disjoint per system; the shared slices are guarded by mu.
type organizer struct {
	opts       Options
	run        *evidence.Run
	log        *logging.Logger
	classifier *rules.Classifier
	walker     *collectors.Walker

	mu       sync.Mutex
	systems  []*report.SystemSummary
	problems []report.Problem
	entries  []evidence.Entry
	events   []timeline.Event
}

func (o *organizer) problem(ctx context.Context, system, path, stage string, err error) {
	o.log.WarnContext(ctx, "problem", "system", system, "path", path, "stage", stage, "error", err)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.problems = append(o.problems, report.Problem{System: system, Path: path, Stage: stage, Reason: err.Error()})
	o.events = append(o.events, timeline.Event{
		Time:     timeline.Stamp(o.opts.Now()),
		Type:     timeline.Problem,
		SystemID: system,
		Artifact: path,
		Metadata: map[string]string{"stage": stage, "reason": err.Error()},
	})
}

func (o *organizer) record(entry evidence.Entry, event timeline.Event) {
	event.Time = timeline.Stamp(o.opts.Now())
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry.Path != "" {
		o.entries = append(o.entries, entry)
	}
	o.events = append(o.events, event)
}

func (o *organizer) processSystem(ctx context.Context, sys collectors.System) {
	log := o.log.With("system", sys.ID)
	ss := report.NewSystemSummary(sys.ID, sys.Root)

	o.mu.Lock()
	o.systems = append(o.systems, ss)
	o.mu.Unlock()

	log.InfoContext(ctx, "processing system", "root", sys.Root)
	o.record(evidence.Entry{}, timeline.Event{Type: timeline.SystemStarted, SystemID: sys.ID})

	skips, err := o.walker.Walk(ctx, sys, func(a collectors.ArtifactFile) error {
		o.handle(ctx, log, ss, sys, a)
		return nil
	})
	for _, s := range skips {
		ss.Skipped++
		o.problem(ctx, sys.ID, s.Path, report.StageWalk, errors.New(s.Reason))
	}
	if err != nil && ctx.Err() == nil {
		ss.Failed = true
		o.problem(ctx, sys.ID, sys.Root, report.StageSystem, err)
	}

	o.record(evidence.Entry{}, timeline.Event{
		Type:     timeline.SystemFinished,
		SystemID: sys.ID,
		Metadata: map[string]string{
			"files":         fmt.Sprintf("%d", ss.Files),
			"uncategorized": fmt.Sprintf("%d", ss.Uncategorized),
		},
	})
	log.InfoContext(ctx, "system done", "files", ss.Files, "uncategorized", ss.Uncategorized, "skipped", ss.Skipped)
}

func (o *organizer) handle(ctx context.Context, log *logging.Logger, ss *report.SystemSummary, sys collectors.System, a collectors.ArtifactFile) {
	ss.Files++
	cats := o.classifier.Classify(a.RelativePath)
	if len(cats) == 0 {
		ss.Uncategorized++
		log.DebugContext(ctx, "uncategorized", "path", a.RelativePath)
		return
	}
	a.Categories = cats

	for _, c := range cats {
		cc := ss.Category(c)
		dst, err := o.run.CopyArtifact(a, c)
		if err != nil {
			cc.CopyFailed++
			o.problem(ctx, a.SystemID, a.RelativePath, report.StageCopy, err)
			continue
		}
		cc.Copied++
		rel := o.run.Rel(dst)
		o.record(
			evidence.Entry{
				Kind:      evidence.KindOriginal,
				SystemID:  a.SystemID,
				Category:  string(c),
				Source:    a.RelativePath,
				Path:      rel,
				SizeBytes: a.SizeBytes,
			},
			timeline.Event{
				Type:      timeline.ArtifactCopied,
				SystemID:  a.SystemID,
				Category:  string(c),
				Artifact:  a.RelativePath,
				Output:    rel,
				SizeBytes: a.SizeBytes,
				ModTime:   timeline.Stamp(a.ModTime),
			},
		)

		if !o.opts.NoParse {
			o.parse(ctx, log, sys, a, c, cc)
		}
	}
}

func (o *organizer) scanIOC(ctx context.Context) int {
	o.mu.Lock()
	seen := make(map[string]bool)
	var targets []ioc.Target
	for _, e := range o.entries {
		key := e.SystemID + "\x00" + e.Source
		if e.Kind != evidence.KindOriginal || seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, ioc.Target{SystemID: e.SystemID, Category: e.Category, Path: e.Path})
	}
	o.mu.Unlock()

	res, err := ioc.Scan(ctx, o.run.Fs, o.run.Dir, targets, ioc.Options{IOCFile: o.opts.IOCFile})
	if err != nil {
		o.problem(ctx, "", o.opts.IOCFile, report.StageIOC, err)
		return 0
	}
	path := filepath.Join(o.run.Dir, evidence.KindAnalysis, "ioc_scan.json")
	if err := evidence.WriteJSON(o.run.Fs, path, res); err != nil {
		o.problem(ctx, "", path, report.StageIOC, err)
		return len(res.Matches)
	}
	o.entries = append(o.entries, evidence.Entry{Kind: evidence.KindAnalysis, Path: o.run.Rel(path)})
	o.log.InfoContext(ctx, "ioc scan finished", "scanned", res.Scanned, "matches", len(res.Matches))
	return len(res.Matches)
}
