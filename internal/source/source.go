// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source normalizes scholarly reference APIs into canonical
// entity records and citation stubs. Each adapter translates exactly one
// source's schema; it never retries and never mutates shared state.
// See docs/ARCHITECTURE.md § Source Adapters.
package source

import (
	"context"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Record is one work as reported by a single source, in canonical shape.
type Record struct {
	IDs       types.SourceIDs
	Title     string
	Authors   []string
	Abstract  string
	Date      time.Time
	Venue     string
	Relevance float64

	// Refs holds citation stubs reported inline with the record.
	Refs []Stub
}

// Stub is a citation link to another work, carrying whatever identity
// and metadata the source exposes. A stub may be as thin as one ID.
type Stub struct {
	IDs       types.SourceIDs
	Title     string
	Authors   []string
	Year      int
	Direction types.EdgeDirection
}

// IsEmpty reports whether the stub carries neither an ID nor a title
// worth queuing.
func (s Stub) IsEmpty() bool {
	return s.IDs.IsEmpty() && s.Title == ""
}

// Adapter is the contract each source implements (Strategy pattern).
// Search discovers seed records for a query; References expands the
// citation neighborhood of a known work. Both respect ctx deadlines and
// fail with the typed errors in this package.
type Adapter interface {
	// Name is the adapter identifier (e.g. "openalex").
	Name() string

	// Group names the independence group. Adapters hitting the same
	// underlying database share a group and count once for coverage.
	Group() string

	// Search returns up to limit seed records for a free-text topic.
	Search(ctx context.Context, topic string, limit int) ([]Record, error)

	// References returns up to limit citation stubs for the work
	// identified by ids. Sources without a citation graph return an
	// empty slice.
	References(ctx context.Context, ids types.SourceIDs, limit int) ([]Stub, error)
}

// positionScore converts a rank position into a relevance score in
// [0.1, 1.0]. Sources return results sorted by relevance, so the score
// decays with position.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}
