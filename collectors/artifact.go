package collectors

import (
	"os"
	"time"

	"uac-triage/rules"
)

// System is one collected machine: a UAC output directory.
type System struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Root     string `json:"root"`
	Hostname string `json:"hostname,omitempty"`
	OS       string `json:"os,omitempty"`
}

type ArtifactFile struct {
	SystemID     string           `json:"system_id"`
	SourcePath   string           `json:"source_path"`
	RelativePath string           `json:"relative_path"`
	Categories   []rules.Category `json:"categories,omitempty"`
	SizeBytes    int64            `json:"size_bytes"`
	ModTime      time.Time        `json:"mod_time"`
	Mode         os.FileMode      `json:"-"`
}

// Skip is an entry the walk did not emit.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}
