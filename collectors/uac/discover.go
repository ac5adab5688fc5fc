// Package uac knows the on-disk layout of UAC (Unix-like Artifact Collector) output.
package uac

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"uac-triage/collectors"
)

// DefaultSkipDirs are collector bookkeeping directories that hold no artifacts
// worth categorizing.
var DefaultSkipDirs = []string{"bodyfile", "live_response"}

var markers = []string{"[root]", "hash_executables", "live_response", "bodyfile", "uac.log"}

var namePattern = regexp.MustCompile(`^(?:uac-)?(.+?)(?:-(?:linux|aix|android|esxi|freebsd|macos|netbsd|netscaler|openbsd|solaris))?-20\d{10,}`)

type Problem struct {
	Path string
	Err  error
}

// SystemID derives a system id from a UAC output directory name, e.g.
// "uac-web01-linux-20240101120000" becomes "web01".
func SystemID(name string) string {
	if m := namePattern.FindStringSubmatch(name); m != nil && m[1] != "" {
		return m[1]
	}
	return name
}

// IsBundle reports whether dir looks like a single UAC output directory.
func IsBundle(dir string) bool {
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

// Discover resolves input paths into systems. A path that is itself a UAC
// bundle is one system; any other directory is treated as a directory of
// bundles.
func Discover(paths []string) ([]collectors.System, []Problem) {
	var systems []collectors.System
	var problems []Problem
	seen := make(map[string]int)

	add := func(dir string) {
		name := filepath.Base(filepath.Clean(dir))
		id := SystemID(name)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s_%d", id, n)
		}
		sys := collectors.System{ID: id, Name: name, Root: dir}
		if info, err := ReadOSInfo(dir); err == nil {
			sys.Hostname = info.Hostname
			sys.OS = info.PrettyName()
		}
		systems = append(systems, sys)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			problems = append(problems, Problem{Path: p, Err: err})
			continue
		}
		if !info.IsDir() {
			problems = append(problems, Problem{Path: p, Err: collectors.ErrNotDirectory})
			continue
		}
		if IsBundle(p) {
			add(p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			problems = append(problems, Problem{Path: p, Err: err})
			continue
		}
		var dirs []string
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "_") || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			full := filepath.Join(p, e.Name())
			if fi, err := os.Stat(full); err == nil && fi.IsDir() {
				dirs = append(dirs, full)
			}
		}
		sort.Strings(dirs)
		for _, d := range dirs {
			add(d)
		}
	}
	return systems, problems
}
