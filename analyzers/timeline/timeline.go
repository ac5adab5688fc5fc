package timeline

import (
	"bufio"
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/afero"
)

const (
	RunStarted     = "run_started"
	RunFinished    = "run_finished"
	SystemStarted  = "system_started"
	SystemFinished = "system_finished"
	ArtifactCopied = "artifact_copied"
	ArtifactParsed = "artifact_parsed"
	Problem        = "problem"
)

type Event struct {
	Time      string            `json:"time"`
	Type      string            `json:"type"`
	SystemID  string            `json:"system_id,omitempty"`
	Category  string            `json:"category,omitempty"`
	Artifact  string            `json:"artifact,omitempty"`
	Output    string            `json:"output,omitempty"`
	SizeBytes int64             `json:"size_bytes,omitempty"`
	ModTime   string            `json:"mod_time,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Options struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// WriteJSONL writes analysis/timeline.jsonl under outputDir, bracketed by
// run_started and run_finished events. Events are ordered by time, then
// system, then artifact, so concurrent workers do not reorder the file.
func WriteJSONL(ctx context.Context, fs afero.Fs, outputDir string, events []Event, opts Options) (string, error) {
	_ = ctx

	rel := filepath.ToSlash(filepath.Join("analysis", "timeline.jsonl"))
	path := filepath.Join(outputDir, rel)
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	f, err := fs.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	started := opts.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	finished := opts.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.SystemID != b.SystemID {
			return a.SystemID < b.SystemID
		}
		return a.Artifact < b.Artifact
	})

	if err := enc.Encode(Event{
		Time:     Stamp(started),
		Type:     RunStarted,
		Metadata: map[string]string{"run_id": opts.RunID},
	}); err != nil {
		return "", err
	}
	for _, e := range sorted {
		if err := enc.Encode(e); err != nil {
			return "", err
		}
	}
	if err := enc.Encode(Event{
		Time: Stamp(finished),
		Type: RunFinished,
		Metadata: map[string]string{
			"run_id": opts.RunID,
			"events": strconv.Itoa(len(events)),
		},
	}); err != nil {
		return "", err
	}

	if err := w.Flush(); err != nil {
		return "", err
	}
	return rel, nil
}
