// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package thinking maintains the hypothesis tree. Confidence moves
// asymmetrically: supporting evidence adds a diminishing increment while
// refuting evidence subtracts a larger fixed step, so piling on
// agreeable papers cannot outshout a contradiction.
// See docs/ARCHITECTURE.md § Hypothesis Engine.
package thinking

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/deep-research/pkg/types"
)

// initialConfidence is the neutral starting point for a new hypothesis.
const initialConfidence = 0.5

// Engine owns every hypothesis in a session.
type Engine struct {
	mu    sync.Mutex
	cfg   types.ThinkingConfig
	hyps  map[string]*types.Hypothesis
	order []string
}

// NewEngine builds an empty hypothesis tree with the given policy.
func NewEngine(cfg types.ThinkingConfig) *Engine {
	if cfg.MaxBranching <= 0 {
		cfg.MaxBranching = 3
	}
	return &Engine{
		cfg:  cfg,
		hyps: make(map[string]*types.Hypothesis),
	}
}

// Propose adds a hypothesis. parentID may be empty for a root. When the
// parent already carries the maximum number of unresolved children, the
// rivals are force-resolved first: the highest-confidence child survives
// as verifying, the rest are refuted.
func (e *Engine) Propose(claim, parentID string) (types.Hypothesis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var parent *types.Hypothesis
	if parentID != "" {
		var ok bool
		parent, ok = e.hyps[parentID]
		if !ok {
			return types.Hypothesis{}, fmt.Errorf("thinking: unknown parent %s", parentID)
		}
		e.enforceBranchingLocked(parent)
	}

	h := &types.Hypothesis{
		ID:         uuid.NewString(),
		Claim:      claim,
		ParentID:   parentID,
		Confidence: initialConfidence,
		State:      types.HypothesisProposed,
	}
	e.hyps[h.ID] = h
	e.order = append(e.order, h.ID)
	if parent != nil {
		parent.Children = append(parent.Children, h.ID)
	}
	return *h, nil
}

// enforceBranchingLocked resolves rival children when the cap is hit.
func (e *Engine) enforceBranchingLocked(parent *types.Hypothesis) {
	var unresolved []*types.Hypothesis
	for _, cid := range parent.Children {
		if c := e.hyps[cid]; c != nil && !c.State.Resolved() {
			unresolved = append(unresolved, c)
		}
	}
	if len(unresolved) < e.cfg.MaxBranching {
		return
	}

	sort.Slice(unresolved, func(i, j int) bool {
		return unresolved[i].Confidence > unresolved[j].Confidence
	})
	// Best rival keeps verifying; the rest lose the competition.
	for _, c := range unresolved[1:] {
		c.State = types.HypothesisRefuted
	}
	if unresolved[0].State == types.HypothesisProposed {
		unresolved[0].State = types.HypothesisVerifying
	}
}

// Support records a supporting entity. The increment diminishes with
// the amount of support already recorded; duplicate evidence is ignored.
func (e *Engine) Support(id, entityID string) (types.Hypothesis, error) {
	return e.update(id, entityID, true)
}

// Refute records a refuting entity with the fixed decrement.
func (e *Engine) Refute(id, entityID string) (types.Hypothesis, error) {
	return e.update(id, entityID, false)
}

func (e *Engine) update(id, entityID string, supporting bool) (types.Hypothesis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.hyps[id]
	if !ok {
		return types.Hypothesis{}, fmt.Errorf("thinking: unknown hypothesis %s", id)
	}
	if h.State.Resolved() {
		return types.Hypothesis{}, fmt.Errorf("thinking: hypothesis %s already %s", id, h.State)
	}

	if supporting {
		if contains(h.Supporting, entityID) {
			return *h, nil
		}
		h.Confidence += e.cfg.SupportBase / float64(1+len(h.Supporting))
		h.Supporting = append(h.Supporting, entityID)
	} else {
		if contains(h.Refuting, entityID) {
			return *h, nil
		}
		h.Confidence -= e.cfg.RefuteDecrement
		h.Refuting = append(h.Refuting, entityID)
	}

	if h.Confidence > 1 {
		h.Confidence = 1
	}
	if h.Confidence < 0 {
		h.Confidence = 0
	}

	switch {
	case h.Confidence >= e.cfg.ConfirmThreshold:
		h.State = types.HypothesisConfirmed
	case h.Confidence <= e.cfg.RefuteThreshold:
		h.State = types.HypothesisRefuted
	default:
		h.State = types.HypothesisVerifying
	}
	return *h, nil
}

// Revise closes a hypothesis as revised and spawns a child carrying the
// amended claim. The child starts neutral; evidence does not carry over.
func (e *Engine) Revise(id, newClaim string) (types.Hypothesis, error) {
	e.mu.Lock()
	h, ok := e.hyps[id]
	if !ok {
		e.mu.Unlock()
		return types.Hypothesis{}, fmt.Errorf("thinking: unknown hypothesis %s", id)
	}
	if h.State.Resolved() {
		e.mu.Unlock()
		return types.Hypothesis{}, fmt.Errorf("thinking: hypothesis %s already %s", id, h.State)
	}
	h.State = types.HypothesisRevised
	e.mu.Unlock()

	return e.Propose(newClaim, id)
}

// Get returns a hypothesis by ID.
func (e *Engine) Get(id string) (types.Hypothesis, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.hyps[id]
	if !ok {
		return types.Hypothesis{}, false
	}
	return *h, true
}

// All returns every hypothesis in creation order.
func (e *Engine) All() []types.Hypothesis {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.Hypothesis, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.hyps[id])
	}
	return out
}

// Unresolved returns the hypotheses still collecting evidence.
func (e *Engine) Unresolved() []types.Hypothesis {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []types.Hypothesis
	for _, id := range e.order {
		if h := e.hyps[id]; !h.State.Resolved() {
			out = append(out, *h)
		}
	}
	return out
}

// AllResolved reports whether every hypothesis reached a terminal state.
// An empty tree is not resolved; the session has nothing to conclude.
func (e *Engine) AllResolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.hyps) == 0 {
		return false
	}
	for _, h := range e.hyps {
		if !h.State.Resolved() {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
