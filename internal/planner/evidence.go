// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"strings"
	"unicode"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Evidence classification outcome for one entity against one claim.
type verdict int

const (
	verdictNone verdict = iota
	verdictSupport
	verdictRefute
)

// refuteCues are phrases whose presence in an otherwise-matching
// abstract flips the entity from supporting to refuting evidence.
var refuteCues = []string{
	"no evidence",
	"contrary to",
	"contradict",
	"refute",
	"fails to",
	"does not support",
	"inconsistent with",
	"casts doubt",
}

// classify decides whether an entity bears on a claim. An entity whose
// title and abstract cover at least half of the claim's significant
// tokens counts as evidence; refutation cues flip the direction.
func classify(claim string, e types.Entity) verdict {
	claimTokens := tokenize(claim)
	if len(claimTokens) == 0 || e.FetchStatus == types.FetchFailed {
		return verdictNone
	}

	text := strings.ToLower(e.Title + " " + e.Abstract)
	present := map[string]bool{}
	for _, tok := range tokenize(text) {
		present[tok] = true
	}

	hits := 0
	for _, tok := range claimTokens {
		if present[tok] {
			hits++
		}
	}
	if hits*2 < len(claimTokens) {
		return verdictNone
	}

	for _, cue := range refuteCues {
		if strings.Contains(text, cue) {
			return verdictRefute
		}
	}
	return verdictSupport
}

// questionStopwords excluded when tokenizing claims and questions.
var questionStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "what": true,
	"how": true, "why": true, "are": true, "does": true, "which": true,
	"that": true, "this": true, "can": true, "its": true, "their": true,
	"from": true, "into": true, "about": true, "between": true,
}

func tokenize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	var out []string
	for _, f := range strings.Fields(b.String()) {
		if len(f) < 3 || questionStopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
