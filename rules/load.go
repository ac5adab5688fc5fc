package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type MergeMode string

const (
	MergeExtend  MergeMode = "extend"
	MergeReplace MergeMode = "replace"
)

// File is the on-disk form of a rule set.
//
//	categories:
//	  auth_and_users: [passwd, shadow]
//	  web_server: ["/srv/www/"]
type File struct {
	Categories map[string][]string `yaml:"categories"`
}

func LoadFile(path string) (map[Category][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return Normalize(f.Categories)
}

// Normalize maps free-form category keys onto known categories.
func Normalize(in map[string][]string) (map[Category][]string, error) {
	out := make(map[Category][]string, len(in))
	for name, patterns := range in {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out[c] = append(out[c], patterns...)
	}
	return out, nil
}

// Merge combines base with extra. In extend mode the extra patterns are
// appended per category; in replace mode a category present in extra drops
// its base patterns entirely.
func Merge(base []MatchRule, extra map[Category][]string, mode MergeMode) ([]MatchRule, error) {
	switch mode {
	case "", MergeExtend, MergeReplace:
	default:
		return nil, fmt.Errorf("invalid rules mode %q", mode)
	}

	byCategory := make(map[Category][]string)
	for _, r := range base {
		byCategory[r.Category] = append(byCategory[r.Category], r.Patterns...)
	}
	for c, patterns := range extra {
		if mode == MergeReplace {
			byCategory[c] = nil
		}
		byCategory[c] = append(byCategory[c], patterns...)
	}

	var out []MatchRule
	for _, c := range categories {
		patterns, ok := byCategory[c]
		if !ok {
			continue
		}
		out = append(out, MatchRule{Category: c, Patterns: dedupe(patterns)})
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func MarshalYAML(rs *RuleSet) ([]byte, error) {
	f := File{Categories: make(map[string][]string)}
	for _, r := range rs.Rules() {
		f.Categories[string(r.Category)] = r.Patterns
	}
	return yaml.Marshal(f)
}
