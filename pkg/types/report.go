// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConfidenceLabel buckets a confidence score for display.
type ConfidenceLabel string

const (
	ConfidenceHigh     ConfidenceLabel = "high"
	ConfidenceModerate ConfidenceLabel = "moderate"
	ConfidenceLow      ConfidenceLabel = "low"
)

// LabelConfidence maps a score in [0,1] to a display label.
func LabelConfidence(score float64) ConfidenceLabel {
	switch {
	case score >= 0.75:
		return ConfidenceHigh
	case score >= 0.4:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

// Finding is one confirmed or best-effort conclusion in the report.
type Finding struct {
	Claim      string          `json:"claim" yaml:"claim"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Label      ConfidenceLabel `json:"label" yaml:"label"`

	// Citations lists canonical entity IDs supporting the finding.
	Citations []string `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// Gap is an unresolved question flagged explicitly in the report.
type Gap struct {
	Question string   `json:"question" yaml:"question"`
	Coverage int      `json:"coverage" yaml:"coverage"`
	Groups   []string `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// CitationRef is the display metadata for one cited entity, keyed by
// canonical ID in the report's flat citation list.
type CitationRef struct {
	CanonicalID string   `json:"canonical_id" yaml:"canonical_id"`
	Title       string   `json:"title" yaml:"title"`
	Authors     []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Venue       string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	Year        int      `json:"year,omitempty" yaml:"year,omitempty"`
	DOI         string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	Sources     []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// CitedBy counts how many works in the session graph cite this one.
	CitedBy int `json:"cited_by,omitempty" yaml:"cited_by,omitempty"`
}

// SessionStats summarizes how the session spent its budgets.
type SessionStats struct {
	Iterations      int            `json:"iterations" yaml:"iterations"`
	EntitiesVisited int            `json:"entities_visited" yaml:"entities_visited"`
	EntitiesFailed  int            `json:"entities_failed" yaml:"entities_failed"`
	Edges           int            `json:"edges" yaml:"edges"`
	MaxDepthReached int            `json:"max_depth_reached" yaml:"max_depth_reached"`
	SourceBreakdown map[string]int `json:"source_breakdown,omitempty" yaml:"source_breakdown,omitempty"`

	// Converged is true when the loop stopped because two consecutive
	// iterations produced no new entities and no new hypotheses.
	Converged bool `json:"converged" yaml:"converged"`

	// StopReason names what ended the session: "validated", "converged",
	// "iteration-budget", "entity-budget", or "deadline".
	StopReason string `json:"stop_reason" yaml:"stop_reason"`
}

// Report is the structured output of a research session. Partial results
// are always valid: a session cut short by budget still reports whatever
// graph and hypothesis state exists.
type Report struct {
	SessionID string    `json:"session_id" yaml:"session_id"`
	Topic     string    `json:"topic" yaml:"topic"`
	Started   time.Time `json:"started" yaml:"started"`
	Finished  time.Time `json:"finished" yaml:"finished"`

	Findings  []Finding     `json:"findings" yaml:"findings"`
	Gaps      []Gap         `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Citations []CitationRef `json:"citations" yaml:"citations"`
	Stats     SessionStats  `json:"stats" yaml:"stats"`
}
