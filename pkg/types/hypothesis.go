// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// HypothesisState is the lifecycle of a candidate answer.
// proposed → verifying → {confirmed | refuted | revised}.
type HypothesisState string

const (
	HypothesisProposed  HypothesisState = "proposed"
	HypothesisVerifying HypothesisState = "verifying"
	HypothesisConfirmed HypothesisState = "confirmed"
	HypothesisRefuted   HypothesisState = "refuted"
	HypothesisRevised   HypothesisState = "revised"
)

// Resolved reports whether the state is terminal for evidence purposes.
func (s HypothesisState) Resolved() bool {
	return s == HypothesisConfirmed || s == HypothesisRefuted || s == HypothesisRevised
}

// Hypothesis is a text claim under evaluation. Hypotheses form a tree:
// a revised hypothesis spawns children carrying amended claims, with the
// branching factor per node bounded by ThinkingConfig.
type Hypothesis struct {
	// ID is a session-unique identifier.
	ID string `json:"id" yaml:"id"`

	// Claim is the candidate answer or sub-question text.
	Claim string `json:"claim" yaml:"claim"`

	// ParentID links a child to the hypothesis it refines. Empty for roots.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// Children lists IDs of spawned alternatives or refinements.
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`

	// Supporting and Refuting list canonical entity IDs recorded as evidence.
	Supporting []string `json:"supporting,omitempty" yaml:"supporting,omitempty"`
	Refuting   []string `json:"refuting,omitempty" yaml:"refuting,omitempty"`

	// Confidence is in [0,1]. Supporting evidence adds a diminishing
	// increment; refuting evidence subtracts a larger fixed decrement.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// State is the current lifecycle state.
	State HypothesisState `json:"state" yaml:"state"`
}
