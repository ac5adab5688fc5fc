package rules

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchRule binds a category to the patterns that select it.
//
// Patterns are compared case-insensitively against the slash separated path of
// an artifact relative to its system root, with a leading "/":
//
//	passwd            keyword, substring of the full path
//	/etc/cron         path fragment, same as a keyword
//	*.timer           glob without "/", matched against the base name
//	/var/spool/**     glob with "/", matched against the full path
type MatchRule struct {
	Category Category `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

type patternKind int

const (
	substring patternKind = iota
	baseGlob
	pathGlob
)

type pattern struct {
	kind patternKind
	text string
}

type compiledRule struct {
	category Category
	patterns []pattern
}

// RuleSet is the compiled, read-only form of a list of MatchRules.
type RuleSet struct {
	rules []compiledRule
}

func NewRuleSet(rules []MatchRule) (*RuleSet, error) {
	byCategory := make(map[Category][]pattern)
	for _, r := range rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, r.Category)
		}
		for _, raw := range r.Patterns {
			p, err := compilePattern(raw)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Category, err)
			}
			if p.text == "" {
				continue
			}
			byCategory[r.Category] = append(byCategory[r.Category], p)
		}
	}

	rs := &RuleSet{}
	for _, c := range categories {
		if ps, ok := byCategory[c]; ok {
			rs.rules = append(rs.rules, compiledRule{category: c, patterns: ps})
		}
	}
	return rs, nil
}

func compilePattern(raw string) (pattern, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	hasSlash := strings.Contains(text, "/")
	if strings.ContainsAny(text, "*?[{") {
		if !doublestar.ValidatePattern(text) {
			return pattern{}, fmt.Errorf("invalid glob pattern %q", raw)
		}
		if hasSlash {
			return pattern{kind: pathGlob, text: text}, nil
		}
		return pattern{kind: baseGlob, text: text}, nil
	}
	return pattern{kind: substring, text: text}, nil
}

func (p pattern) match(full, base string) bool {
	switch p.kind {
	case substring:
		return strings.Contains(full, p.text)
	case baseGlob:
		ok, _ := doublestar.Match(p.text, base)
		return ok
	case pathGlob:
		ok, _ := doublestar.Match(p.text, full)
		return ok
	}
	return false
}

// Rules returns the rule set as plain MatchRules in canonical category order.
func (rs *RuleSet) Rules() []MatchRule {
	out := make([]MatchRule, 0, len(rs.rules))
	for _, r := range rs.rules {
		mr := MatchRule{Category: r.category}
		for _, p := range r.patterns {
			mr.Patterns = append(mr.Patterns, p.text)
		}
		out = append(out, mr)
	}
	return out
}

func normalizePath(p string) (full, base string) {
	full = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	if !strings.HasPrefix(full, "/") {
		full = "/" + full
	}
	full = path.Clean(full)
	return full, path.Base(full)
}
