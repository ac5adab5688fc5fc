package evidence

import (
	"path/filepath"
	"sort"

	"uac-triage/collectors"
)

type Entry struct {
	Kind      string `json:"kind"`
	SystemID  string `json:"system_id"`
	Category  string `json:"category,omitempty"`
	Source    string `json:"source,omitempty"`
	Path      string `json:"path"`
	Parser    string `json:"parser,omitempty"`
	Records   int    `json:"records,omitempty"`
	Warnings  int    `json:"warnings,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

type Manifest struct {
	RunID     string              `json:"run_id"`
	RunName   string              `json:"run_name"`
	CreatedAt string              `json:"created_at"`
	CopyMode  CopyMode            `json:"copy_mode"`
	Inputs    []string            `json:"inputs"`
	Systems   []collectors.System `json:"systems"`
	Entries   []Entry             `json:"entries"`
	Metadata  map[string]string   `json:"metadata,omitempty"`
}

// SortEntries orders entries independently of worker scheduling.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.SystemID != b.SystemID {
			return a.SystemID < b.SystemID
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Path < b.Path
	})
}

func (r *Run) WriteManifest(m Manifest) (string, error) {
	if m.Entries == nil {
		m.Entries = []Entry{}
	}
	SortEntries(m.Entries)
	path := filepath.Join(r.Dir, "manifest.json")
	return path, WriteJSON(r.Fs, path, m)
}
