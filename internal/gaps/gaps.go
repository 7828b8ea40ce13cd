// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gaps scores research questions for coverage. A question is
// validated only when entities from independent source groups address
// it; one group repeated across many papers still counts once.
// See docs/ARCHITECTURE.md § Gap Analysis.
package gaps

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Analyzer scores questions against the entity set. groups maps adapter
// names to their independence group; sources missing from the map count
// as their own group.
type Analyzer struct {
	cfg    types.GapConfig
	groups map[string]string
}

// NewAnalyzer builds an analyzer with the given policy and group map.
func NewAnalyzer(cfg types.GapConfig, groups map[string]string) *Analyzer {
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = 2
	}
	return &Analyzer{cfg: cfg, groups: groups}
}

// Score recomputes coverage for every question in place. Questions whose
// coverage meets the independence threshold are marked answered; open
// questions that stay under it keep their status for escalation.
func (a *Analyzer) Score(questions []types.Question, entities []types.Entity) {
	for i := range questions {
		q := &questions[i]
		if q.Status == types.QuestionAbandoned {
			continue
		}

		groupSet := map[string]bool{}
		for _, e := range entities {
			if e.FetchStatus == types.FetchFailed {
				continue
			}
			if !addresses(q.Text, e) {
				continue
			}
			for _, src := range e.Sources {
				groupSet[a.groupOf(src)] = true
			}
		}

		q.Groups = q.Groups[:0]
		for g := range groupSet {
			q.Groups = append(q.Groups, g)
		}
		sort.Strings(q.Groups)
		q.Coverage = len(q.Groups)

		if q.Validated(a.cfg.CoverageThreshold) {
			q.Status = types.QuestionAnswered
		}
	}
}

// Escalate raises the priority of every unresolved question by one step,
// capped so a stubborn question cannot starve the plan.
func (a *Analyzer) Escalate(questions []types.Question) {
	for i := range questions {
		q := &questions[i]
		if q.Status == types.QuestionAnswered || q.Status == types.QuestionAbandoned {
			continue
		}
		q.Priority += a.cfg.PriorityStep
		if a.cfg.PriorityCap > 0 && q.Priority > a.cfg.PriorityCap {
			q.Priority = a.cfg.PriorityCap
		}
	}
}

// Gaps returns the unresolved questions as report gaps, highest
// coverage shortfall first.
func (a *Analyzer) Gaps(questions []types.Question) []types.Gap {
	var out []types.Gap
	for _, q := range questions {
		if q.Status == types.QuestionAnswered {
			continue
		}
		out = append(out, types.Gap{Question: q.Text, Coverage: q.Coverage, Groups: q.Groups})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Coverage != out[j].Coverage {
			return out[i].Coverage < out[j].Coverage
		}
		return out[i].Question < out[j].Question
	})
	return out
}

// Threshold exposes the configured independence threshold.
func (a *Analyzer) Threshold() int {
	return a.cfg.CoverageThreshold
}

func (a *Analyzer) groupOf(src string) string {
	if g, ok := a.groups[src]; ok && g != "" {
		return g
	}
	return src
}

// addresses reports whether an entity's title and abstract cover at
// least half of the question's significant tokens.
func addresses(question string, e types.Entity) bool {
	qTokens := tokens(question)
	if len(qTokens) == 0 {
		return false
	}

	text := map[string]bool{}
	for _, tok := range tokens(e.Title + " " + e.Abstract) {
		text[tok] = true
	}

	hits := 0
	for _, tok := range qTokens {
		if text[tok] {
			hits++
		}
	}
	return hits*2 >= len(qTokens)
}

// stopwords excluded from token matching.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "what": true,
	"how": true, "why": true, "are": true, "does": true, "which": true,
	"that": true, "this": true, "can": true, "its": true, "their": true,
	"from": true, "into": true, "about": true, "between": true,
}

// tokens lowercases, strips punctuation, and drops short words and
// stopwords.
func tokens(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	var out []string
	for _, f := range strings.Fields(b.String()) {
		if len(f) < 3 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
