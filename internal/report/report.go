// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report synthesizes session state into the final structured
// report and renders it for humans and machines.
// See docs/ARCHITECTURE.md § Report Synthesis.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Input carries everything synthesis needs from a finished session.
type Input struct {
	SessionID string
	Topic     string
	Started   time.Time
	Finished  time.Time

	Entities   []types.Entity
	Hypotheses []types.Hypothesis
	Gaps       []types.Gap
	Stats      types.SessionStats

	// CitedBy maps canonical IDs to their inbound citation counts in the
	// session graph.
	CitedBy map[string]int
}

// Synthesize builds the report. Confirmed hypotheses become findings at
// full strength; hypotheses still under evaluation become best-effort
// findings at their current confidence. Refuted and revised hypotheses
// are dropped: a revision's conclusion lives in its child.
func Synthesize(in Input) types.Report {
	rep := types.Report{
		SessionID: in.SessionID,
		Topic:     in.Topic,
		Started:   in.Started,
		Finished:  in.Finished,
		Gaps:      in.Gaps,
		Stats:     in.Stats,
	}

	byID := make(map[string]types.Entity, len(in.Entities))
	for _, e := range in.Entities {
		byID[e.CanonicalID] = e
	}

	cited := map[string]bool{}
	for _, h := range in.Hypotheses {
		if h.State == types.HypothesisRefuted || h.State == types.HypothesisRevised {
			continue
		}
		f := types.Finding{
			Claim:      h.Claim,
			Confidence: h.Confidence,
			Label:      types.LabelConfidence(h.Confidence),
			Citations:  append([]string(nil), h.Supporting...),
		}
		sort.Strings(f.Citations)
		for _, id := range f.Citations {
			cited[id] = true
		}
		rep.Findings = append(rep.Findings, f)
	}

	// Strongest findings first; claim text breaks ties for stable output.
	sort.SliceStable(rep.Findings, func(i, j int) bool {
		if rep.Findings[i].Confidence != rep.Findings[j].Confidence {
			return rep.Findings[i].Confidence > rep.Findings[j].Confidence
		}
		return rep.Findings[i].Claim < rep.Findings[j].Claim
	})

	ids := make([]string, 0, len(cited))
	for id := range cited {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		year := 0
		if !e.Date.IsZero() {
			year = e.Date.Year()
		}
		rep.Citations = append(rep.Citations, types.CitationRef{
			CanonicalID: e.CanonicalID,
			Title:       e.Title,
			Authors:     e.Authors,
			Venue:       e.Venue,
			Year:        year,
			DOI:         e.IDs.DOI,
			Sources:     e.Sources,
			CitedBy:     in.CitedBy[e.CanonicalID],
		})
	}
	return rep
}

// FormatText writes a human-readable report to w.
func FormatText(rep types.Report, w io.Writer) {
	fmt.Fprintf(w, "Research report: %s\n", rep.Topic)
	fmt.Fprintf(w, "Session %s, %d iterations, stopped: %s\n",
		rep.SessionID, rep.Stats.Iterations, rep.Stats.StopReason)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	if len(rep.Findings) == 0 {
		fmt.Fprintln(w, "\nNo findings.")
	} else {
		fmt.Fprintln(w, "\nFindings:")
		for i, f := range rep.Findings {
			fmt.Fprintf(w, "%-3d [%-8s %.2f] %s\n", i+1, f.Label, f.Confidence, f.Claim)
			for _, c := range f.Citations {
				fmt.Fprintf(w, "      - %s\n", c)
			}
		}
	}

	if len(rep.Gaps) > 0 {
		fmt.Fprintln(w, "\nOpen gaps:")
		for _, g := range rep.Gaps {
			fmt.Fprintf(w, "  - %s (coverage %d", g.Question, g.Coverage)
			if len(g.Groups) > 0 {
				fmt.Fprintf(w, ": %s", strings.Join(g.Groups, ", "))
			}
			fmt.Fprintln(w, ")")
		}
	}

	if len(rep.Citations) > 0 {
		fmt.Fprintln(w, "\nSources cited:")
		for _, c := range rep.Citations {
			line := c.Title
			if line == "" {
				line = c.CanonicalID
			}
			if len(c.Authors) > 0 {
				line += " / " + formatAuthors(c.Authors)
			}
			if c.Year > 0 {
				line += fmt.Sprintf(" (%d)", c.Year)
			}
			if c.CitedBy > 0 {
				line += fmt.Sprintf(", cited by %d in graph", c.CitedBy)
			}
			fmt.Fprintf(w, "  [%s] %s\n", c.CanonicalID, line)
		}
	}

	fmt.Fprintf(w, "\n%d entities visited, %d failed, %d edges, depth %d\n",
		rep.Stats.EntitiesVisited, rep.Stats.EntitiesFailed,
		rep.Stats.Edges, rep.Stats.MaxDepthReached)
}

// FormatJSON writes the report as indented JSON to w.
func FormatJSON(rep types.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func formatAuthors(authors []string) string {
	if len(authors) == 1 {
		return authors[0]
	}
	return authors[0] + " et al."
}
