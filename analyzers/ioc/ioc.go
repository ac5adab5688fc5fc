package ioc

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const defaultMaxFileBytes = 64 * 1024 * 1024

type Options struct {
	IOCFile      string
	MaxFileBytes int64
}

// Target is one copied artifact to scan. Path is relative to the run
// directory.
type Target struct {
	SystemID string
	Category string
	Path     string
}

type Match struct {
	Pattern    string `json:"pattern"`
	SystemID   string `json:"system_id"`
	Category   string `json:"category"`
	Artifact   string `json:"artifact"`
	LineNumber int    `json:"line_number"`
	FirstLine  string `json:"first_line,omitempty"`
}

type Result struct {
	IOCFile  string  `json:"ioc_file"`
	Patterns int     `json:"patterns"`
	Matches  []Match `json:"matches"`
	Scanned  int     `json:"scanned"`
	Skipped  int     `json:"skipped"`
	Finished string  `json:"finished"`
}

func LoadPatterns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, errors.New("IOC file contained no patterns")
	}
	return patterns, nil
}

// Scan looks for each pattern as a plain substring in every target and
// reports the first matching line per pattern and file.
func Scan(ctx context.Context, fs afero.Fs, runDir string, targets []Target, opts Options) (Result, error) {
	patterns, err := LoadPatterns(opts.IOCFile)
	if err != nil {
		return Result{}, err
	}
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}

	res := Result{IOCFile: opts.IOCFile, Patterns: len(patterns), Matches: []Match{}}
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path := filepath.Join(runDir, filepath.FromSlash(t.Path))
		info, err := fs.Stat(path)
		if err != nil || info.Size() > maxBytes {
			res.Skipped++
			continue
		}
		b, err := afero.ReadFile(fs, path)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Scanned++

		content := string(b)
		for _, p := range patterns {
			if !strings.Contains(content, p) {
				continue
			}
			m := Match{Pattern: p, SystemID: t.SystemID, Category: t.Category, Artifact: t.Path}
			for i, l := range strings.Split(content, "\n") {
				if strings.Contains(l, p) {
					m.LineNumber = i + 1
					m.FirstLine = strings.TrimRight(l, "\r")
					break
				}
			}
			res.Matches = append(res.Matches, m)
		}
	}
	res.Finished = time.Now().UTC().Format(time.RFC3339Nano)
	return res, nil
}
