// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/pkg/types"
)

func newTestTraversal(t *testing.T, cfg types.TraversalConfig) (*Traversal, *Store) {
	t.Helper()
	s := newTestStore(t)
	return NewTraversal(cfg, s), s
}

func seed(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.UpsertEntity(context.Background(), types.Entity{CanonicalID: id}))
	}
}

func TestPopTakesDeepestLevelFirst(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 3, MaxEntities: 10})
	ctx := context.Background()
	seed(t, s, "shallow", "deep")

	_, err := tr.Push(ctx, "shallow", 0, 1.0)
	require.NoError(t, err)
	_, err = tr.Push(ctx, "deep", 2, 0.1)
	require.NoError(t, err)

	node, ok, err := tr.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "deep", node.ID, "depth-first: deeper level wins despite lower relevance")
}

func TestPopOrdersByRelevanceWithinLevel(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 2, MaxEntities: 10})
	ctx := context.Background()
	seed(t, s, "low", "high", "mid")

	for _, p := range []struct {
		id  string
		rel float64
	}{{"low", 0.2}, {"high", 0.9}, {"mid", 0.5}} {
		_, err := tr.Push(ctx, p.id, 1, p.rel)
		require.NoError(t, err)
	}

	var order []string
	for {
		node, ok, err := tr.Pop(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		order = append(order, node.ID)
		require.NoError(t, tr.Visited(ctx, node.ID))
	}
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestPopBreaksTiesByInsertionOrder(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 2, MaxEntities: 10})
	ctx := context.Background()
	seed(t, s, "first", "second")

	_, err := tr.Push(ctx, "first", 1, 0.5)
	require.NoError(t, err)
	_, err = tr.Push(ctx, "second", 1, 0.5)
	require.NoError(t, err)

	node, ok, err := tr.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", node.ID)
}

func TestPushSkipsBeyondMaxDepth(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 1, MaxEntities: 10})
	ctx := context.Background()
	seed(t, s, "toodeep")

	queued, err := tr.Push(ctx, "toodeep", 2, 1.0)
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, 0, tr.Len())

	// The skipped node stays unvisited for a shallower rediscovery.
	state, err := s.State(ctx, "toodeep")
	require.NoError(t, err)
	assert.Equal(t, types.NodeUnvisited, state)
}

func TestPushSkipsNonUnvisited(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 2, MaxEntities: 10})
	ctx := context.Background()
	seed(t, s, "x")

	queued, err := tr.Push(ctx, "x", 0, 1.0)
	require.NoError(t, err)
	assert.True(t, queued)

	// Second push of a queued node is a no-op.
	queued, err = tr.Push(ctx, "x", 1, 1.0)
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, 1, tr.Len())
}

func TestEntityBudgetHaltsPops(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 2, MaxEntities: 2})
	ctx := context.Background()
	seed(t, s, "a", "b", "c")

	for _, id := range []string{"a", "b", "c"} {
		_, err := tr.Push(ctx, id, 0, 1.0)
		require.NoError(t, err)
	}

	popped := 0
	for {
		node, ok, err := tr.Pop(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		popped++
		require.NoError(t, tr.Visited(ctx, node.ID))
	}
	assert.Equal(t, 2, popped)
	assert.True(t, tr.Exhausted())

	// Budget also stops new pushes.
	seed(t, s, "d")
	queued, err := tr.Push(ctx, "d", 0, 1.0)
	require.NoError(t, err)
	assert.False(t, queued)
}

func TestCycleVisitedOnce(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 5, MaxEntities: 10})
	ctx := context.Background()
	seed(t, s, "a", "b")

	// A cites B, B cites A. Expanding each pushes the other.
	_, err := tr.Push(ctx, "a", 0, 1.0)
	require.NoError(t, err)

	node, ok, err := tr.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", node.ID)
	_, err = tr.Push(ctx, "b", node.Depth+1, 0.5)
	require.NoError(t, err)
	require.NoError(t, tr.Visited(ctx, "a"))

	node, ok, err = tr.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", node.ID)
	// B rediscovers A; A is already visited, so the push is a no-op.
	queued, err := tr.Push(ctx, "a", node.Depth+1, 0.5)
	require.NoError(t, err)
	assert.False(t, queued)
	require.NoError(t, tr.Visited(ctx, "b"))

	_, ok, err = tr.Pop(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "frontier must drain: the cycle terminates")
	assert.Equal(t, 2, tr.Popped())
}

func TestMaxDepthReached(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 3, MaxEntities: 10})
	ctx := context.Background()
	seed(t, s, "a", "b")

	_, err := tr.Push(ctx, "a", 0, 1.0)
	require.NoError(t, err)
	_, err = tr.Push(ctx, "b", 2, 1.0)
	require.NoError(t, err)

	for {
		node, ok, err := tr.Pop(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NoError(t, tr.Visited(ctx, node.ID))
	}
	assert.Equal(t, 2, tr.MaxDepthReached())
}

func TestFailedExpansionConsumesBudget(t *testing.T) {
	tr, s := newTestTraversal(t, types.TraversalConfig{MaxDepth: 2, MaxEntities: 5})
	ctx := context.Background()
	seed(t, s, "x")

	_, err := tr.Push(ctx, "x", 0, 1.0)
	require.NoError(t, err)

	node, ok, err := tr.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, tr.Failed(ctx, node.ID))

	assert.Equal(t, 1, tr.Popped())
	state, err := s.State(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, types.NodeFailed, state)
}
