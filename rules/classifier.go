package rules

type Classifier struct {
	rules *RuleSet
}

func NewClassifier(rs *RuleSet) *Classifier {
	if rs == nil {
		rs = &RuleSet{}
	}
	return &Classifier{rules: rs}
}

// Classify returns every category whose rule matches path, in canonical order.
// A nil result means the path is uncategorized.
func (c *Classifier) Classify(path string) []Category {
	full, base := normalizePath(path)

	var out []Category
	for _, r := range c.rules.rules {
		for _, p := range r.patterns {
			if p.match(full, base) {
				out = append(out, r.category)
				break
			}
		}
	}
	return out
}
