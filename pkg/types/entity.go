// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the deep-research engine.
// See docs/ARCHITECTURE.md § Data Model.
package types

import "time"

// FetchStatus records the outcome of fetching an entity's metadata.
type FetchStatus string

const (
	FetchOK      FetchStatus = "ok"
	FetchPartial FetchStatus = "partial"
	FetchFailed  FetchStatus = "failed"
)

// SourceIDs holds the source-specific identifiers known for a work.
// Any subset may be populated; identity resolution unions them on merge.
type SourceIDs struct {
	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`
	ArXiv    string `json:"arxiv,omitempty" yaml:"arxiv,omitempty"`
	PubMed   string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	OpenAlex string `json:"openalex,omitempty" yaml:"openalex,omitempty"`
}

// IsEmpty reports whether no universal identifier is known.
func (ids SourceIDs) IsEmpty() bool {
	return ids.DOI == "" && ids.ArXiv == "" && ids.PubMed == "" && ids.OpenAlex == ""
}

// Entity is a paper, article, or topic node in the citation graph.
// Created on first successful fetch; rediscoveries from other sources are
// merged in place by the identity resolver, never duplicated.
type Entity struct {
	// CanonicalID is the deduplicated identity key, derived from the
	// strongest universal identifier (DOI preferred) or a fingerprint.
	CanonicalID string `json:"canonical_id" yaml:"canonical_id"`

	// IDs holds the source-specific identifiers seen for this work.
	IDs SourceIDs `json:"ids" yaml:"ids"`

	// Title is the work title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Abstract is the work abstract or summary.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date" yaml:"date"`

	// Venue is the journal, conference, or repository name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Sources lists the adapter names that contributed to this entity.
	Sources []string `json:"sources" yaml:"sources"`

	// Relevance is the best relevance score seen for this entity,
	// inherited from the query that discovered it.
	Relevance float64 `json:"relevance" yaml:"relevance"`

	// FetchStatus records whether metadata for this entity was fetched
	// fully, partially, or not at all.
	FetchStatus FetchStatus `json:"fetch_status" yaml:"fetch_status"`
}

// HasSource reports whether the named adapter already contributed.
func (e *Entity) HasSource(name string) bool {
	for _, s := range e.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// EdgeDirection gives the semantics of a citation edge as reported by
// the source: the From entity cites the To entity, or is cited by it.
type EdgeDirection string

const (
	EdgeCites   EdgeDirection = "cites"
	EdgeCitedBy EdgeDirection = "cited-by"
)

// CitationEdge is a directed relation between two entities, tagged with
// the adapter that reported it. Edges are deduplicated on the
// (From, To, Direction) triple; Source keeps the first reporter.
type CitationEdge struct {
	From      string        `json:"from" yaml:"from"`
	To        string        `json:"to" yaml:"to"`
	Direction EdgeDirection `json:"direction" yaml:"direction"`
	Source    string        `json:"source" yaml:"source"`
}

// NodeState is the per-entity traversal state. An entity moves
// unvisited → queued → visiting → {visited | failed} exactly once per
// session; cycles are cut by the queued/visited checks, never re-entered.
type NodeState string

const (
	NodeUnvisited NodeState = "unvisited"
	NodeQueued    NodeState = "queued"
	NodeVisiting  NodeState = "visiting"
	NodeVisited   NodeState = "visited"
	NodeFailed    NodeState = "failed"
)

// CanTransition reports whether the one-way lifecycle permits from → to.
func CanTransition(from, to NodeState) bool {
	switch from {
	case NodeUnvisited:
		return to == NodeQueued
	case NodeQueued:
		return to == NodeVisiting
	case NodeVisiting:
		return to == NodeVisited || to == NodeFailed
	default:
		return false
	}
}
