package report

import (
	"sort"

	"uac-triage/rules"
)

const (
	StageSystem = "system"
	StageWalk   = "walk"
	StageCopy   = "copy"
	StageParse  = "parse"
	StageIOC    = "ioc"
)

type CategoryCounts struct {
	Copied        int `json:"copied"`
	CopyFailed    int `json:"copy_failed"`
	Parsed        int `json:"parsed"`
	ParseWarnings int `json:"parse_warnings"`
	ParseFailed   int `json:"parse_failed"`
}

func (c *CategoryCounts) add(o CategoryCounts) {
	c.Copied += o.Copied
	c.CopyFailed += o.CopyFailed
	c.Parsed += o.Parsed
	c.ParseWarnings += o.ParseWarnings
	c.ParseFailed += o.ParseFailed
}

type SystemSummary struct {
	ID            string                     `json:"id"`
	Root          string                     `json:"root"`
	Failed        bool                       `json:"failed,omitempty"`
	Files         int                        `json:"files"`
	Uncategorized int                        `json:"uncategorized"`
	Skipped       int                        `json:"skipped"`
	Categories    map[string]*CategoryCounts `json:"categories"`
}

func NewSystemSummary(id, root string) *SystemSummary {
	return &SystemSummary{ID: id, Root: root, Categories: make(map[string]*CategoryCounts)}
}

func (s *SystemSummary) Category(c rules.Category) *CategoryCounts {
	cc, ok := s.Categories[string(c)]
	if !ok {
		cc = &CategoryCounts{}
		s.Categories[string(c)] = cc
	}
	return cc
}

type Problem struct {
	System string `json:"system"`
	Path   string `json:"path"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

type Summary struct {
	RunID         string                    `json:"run_id"`
	RunName       string                    `json:"run_name"`
	OutputDir     string                    `json:"output_dir"`
	StartedAt     string                    `json:"started_at"`
	FinishedAt    string                    `json:"finished_at"`
	Interrupted   bool                      `json:"interrupted,omitempty"`
	Files         int                       `json:"files"`
	Uncategorized int                       `json:"uncategorized"`
	Skipped       int                       `json:"skipped"`
	Totals        map[string]CategoryCounts `json:"totals"`
	Systems       []*SystemSummary          `json:"systems"`
	Problems      []Problem                 `json:"problems"`
	IOCMatches    int                       `json:"ioc_matches,omitempty"`
}

// Finalize computes the totals and puts systems and problems in a stable
// order.
func (s *Summary) Finalize() {
	s.Files, s.Uncategorized, s.Skipped = 0, 0, 0
	s.Totals = make(map[string]CategoryCounts)
	for _, sys := range s.Systems {
		s.Files += sys.Files
		s.Uncategorized += sys.Uncategorized
		s.Skipped += sys.Skipped
		for name, cc := range sys.Categories {
			t := s.Totals[name]
			t.add(*cc)
			s.Totals[name] = t
		}
	}

	sort.Slice(s.Systems, func(i, j int) bool { return s.Systems[i].ID < s.Systems[j].ID })
	sort.SliceStable(s.Problems, func(i, j int) bool {
		a, b := s.Problems[i], s.Problems[j]
		if a.System != b.System {
			return a.System < b.System
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		return a.Path < b.Path
	})
	if s.Systems == nil {
		s.Systems = []*SystemSummary{}
	}
	if s.Problems == nil {
		s.Problems = []Problem{}
	}
}
