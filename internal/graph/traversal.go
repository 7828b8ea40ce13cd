// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"sync"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Node is one frontier entry: a queued entity with its discovery depth.
type Node struct {
	ID        string
	Depth     int
	Relevance float64

	seq int
}

// Traversal is the bounded depth-first frontier over the citation graph.
// The stack is explicit and grouped by depth: Pop takes the deepest
// non-empty level, the highest relevance within it, and the earliest
// insertion on ties. The store's state machine makes revisits impossible,
// so cycles terminate.
type Traversal struct {
	mu    sync.Mutex
	cfg   types.TraversalConfig
	store *Store

	levels   map[int][]Node
	deepest  int
	seq      int
	popped   int
	maxDepth int
}

// NewTraversal builds an empty frontier over store.
func NewTraversal(cfg types.TraversalConfig, store *Store) *Traversal {
	return &Traversal{
		cfg:    cfg,
		store:  store,
		levels: make(map[int][]Node),
	}
}

// Push queues an entity for expansion. Entities beyond the depth bound,
// already queued or visited, or arriving after the entity budget is
// spent are skipped; the boolean reports whether the node was queued.
func (t *Traversal) Push(ctx context.Context, id string, depth int, relevance float64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if depth > t.cfg.MaxDepth || t.exhaustedLocked() {
		return false, nil
	}

	state, err := t.store.State(ctx, id)
	if err != nil {
		return false, err
	}
	if state != types.NodeUnvisited {
		return false, nil
	}
	if err := t.store.MarkState(ctx, id, types.NodeQueued); err != nil {
		return false, err
	}

	t.seq++
	t.levels[depth] = append(t.levels[depth], Node{ID: id, Depth: depth, Relevance: relevance, seq: t.seq})
	if depth > t.deepest {
		t.deepest = depth
	}
	return true, nil
}

// Pop removes and returns the next node to expand, marking it visiting.
// It returns false when the frontier is empty or the entity budget is
// spent.
func (t *Traversal) Pop(ctx context.Context) (Node, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.exhaustedLocked() {
		return Node{}, false, nil
	}

	depth := t.deepest
	for depth >= 0 && len(t.levels[depth]) == 0 {
		depth--
	}
	if depth < 0 {
		return Node{}, false, nil
	}

	level := t.levels[depth]
	best := 0
	for i := 1; i < len(level); i++ {
		if level[i].Relevance > level[best].Relevance ||
			(level[i].Relevance == level[best].Relevance && level[i].seq < level[best].seq) {
			best = i
		}
	}
	node := level[best]
	t.levels[depth] = append(level[:best], level[best+1:]...)

	if err := t.store.MarkState(ctx, node.ID, types.NodeVisiting); err != nil {
		return Node{}, false, err
	}

	t.popped++
	if node.Depth > t.maxDepth {
		t.maxDepth = node.Depth
	}
	return node, true, nil
}

// Visited marks a popped node fully expanded.
func (t *Traversal) Visited(ctx context.Context, id string) error {
	return t.store.MarkState(ctx, id, types.NodeVisited)
}

// Failed marks a popped node terminally failed. Failed expansions still
// consume budget; the partial graph remains valid.
func (t *Traversal) Failed(ctx context.Context, id string) error {
	return t.store.MarkState(ctx, id, types.NodeFailed)
}

// Len reports the number of queued nodes.
func (t *Traversal) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, level := range t.levels {
		n += len(level)
	}
	return n
}

// Popped reports how many nodes have been taken for expansion.
func (t *Traversal) Popped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.popped
}

// MaxDepthReached reports the deepest level actually expanded.
func (t *Traversal) MaxDepthReached() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxDepth
}

// Exhausted reports whether the entity budget is spent.
func (t *Traversal) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exhaustedLocked()
}

func (t *Traversal) exhaustedLocked() bool {
	return t.cfg.MaxEntities > 0 && t.popped >= t.cfg.MaxEntities
}
