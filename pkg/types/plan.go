// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// QuestionStatus tracks a research question through the planner loop.
type QuestionStatus string

const (
	QuestionOpen       QuestionStatus = "open"
	QuestionInProgress QuestionStatus = "in-progress"
	QuestionAnswered   QuestionStatus = "answered"
	QuestionAbandoned  QuestionStatus = "abandoned"
)

// Question is one open question or coverage gap in the research plan.
// Priority is recomputed every planner iteration from current coverage.
type Question struct {
	// ID is a session-unique identifier.
	ID string `json:"id" yaml:"id"`

	// Text is the question as posed to the source adapters.
	Text string `json:"text" yaml:"text"`

	// Status follows open → in-progress → {answered | abandoned}.
	Status QuestionStatus `json:"status" yaml:"status"`

	// Priority orders questions for the planner; higher runs first.
	// Unresolved questions escalate each iteration, capped by GapConfig.
	Priority float64 `json:"priority" yaml:"priority"`

	// Coverage is the number of distinct independent source groups
	// corroborating entities that address this question.
	Coverage int `json:"coverage" yaml:"coverage"`

	// Groups lists the independence groups counted in Coverage.
	Groups []string `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Validated reports whether coverage meets the independence threshold.
func (q *Question) Validated(threshold int) bool {
	return q.Coverage >= threshold
}
