// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph persists the citation graph: canonical entities, typed
// edges, and per-node traversal state. All mutation goes through one
// Store, which serializes writers; readers see a consistent snapshot.
// See docs/ARCHITECTURE.md § Citation Graph.
package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Store manages the citation graph SQLite database. An empty path opens
// an in-memory database scoped to the session.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// NewStore opens or creates the graph database and its schema. The
// connection pool is pinned to one connection so writes serialize at
// the store, not in SQLITE_BUSY retries.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening graph database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating graph schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			doi TEXT,
			arxiv_id TEXT,
			pubmed_id TEXT,
			openalex_id TEXT,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			date TEXT,
			venue TEXT,
			sources TEXT,
			relevance REAL,
			fetch_status TEXT NOT NULL DEFAULT 'partial',
			state TEXT NOT NULL DEFAULT 'unvisited'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_state ON entities(state)`,
		`CREATE TABLE IF NOT EXISTS edges (
			from_id TEXT NOT NULL REFERENCES entities(id),
			to_id TEXT NOT NULL REFERENCES entities(id),
			direction TEXT NOT NULL,
			source TEXT,
			UNIQUE(from_id, to_id, direction)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// UpsertEntity writes the canonical entity, preserving its traversal
// state. The resolver owns merge semantics; the store persists whatever
// canonical view it is given.
func (s *Store) UpsertEntity(ctx context.Context, e types.Entity) error {
	if e.CanonicalID == "" {
		return fmt.Errorf("upserting entity: empty canonical ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	authorsJSON, _ := json.Marshal(e.Authors)
	sourcesJSON, _ := json.Marshal(e.Sources)
	dateStr := ""
	if !e.Date.IsZero() {
		dateStr = e.Date.Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (id, doi, arxiv_id, pubmed_id, openalex_id, title, authors, abstract, date, venue, sources, relevance, fetch_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			doi=excluded.doi, arxiv_id=excluded.arxiv_id,
			pubmed_id=excluded.pubmed_id, openalex_id=excluded.openalex_id,
			title=excluded.title, authors=excluded.authors,
			abstract=excluded.abstract, date=excluded.date,
			venue=excluded.venue, sources=excluded.sources,
			relevance=excluded.relevance, fetch_status=excluded.fetch_status`,
		e.CanonicalID, e.IDs.DOI, e.IDs.ArXiv, e.IDs.PubMed, e.IDs.OpenAlex,
		e.Title, string(authorsJSON), e.Abstract, dateStr, e.Venue,
		string(sourcesJSON), e.Relevance, string(e.FetchStatus),
	)
	if err != nil {
		return fmt.Errorf("upserting entity %s: %w", e.CanonicalID, err)
	}
	return nil
}

// UpsertEdge records a citation link. Unknown endpoints get stub rows so
// foreign keys hold; duplicate (from, to, direction) triples are ignored.
func (s *Store) UpsertEdge(ctx context.Context, e types.CitationEdge) error {
	if e.From == "" || e.To == "" {
		return fmt.Errorf("upserting edge: empty endpoint")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range []string{e.From, e.To} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entities (id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("inserting entity stub %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO edges (from_id, to_id, direction, source) VALUES (?, ?, ?, ?)`,
		e.From, e.To, string(e.Direction), e.Source); err != nil {
		return fmt.Errorf("upserting edge %s -> %s: %w", e.From, e.To, err)
	}

	return tx.Commit()
}

// MarkState transitions a node's traversal state, enforcing the one-way
// lifecycle. Invalid transitions fail without mutating.
func (s *Store) MarkState(ctx context.Context, id string, to types.NodeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT state FROM entities WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("marking state: unknown entity %s", id)
	}
	if err != nil {
		return fmt.Errorf("reading state of %s: %w", id, err)
	}

	from := types.NodeState(current)
	if !types.CanTransition(from, to) {
		return fmt.Errorf("marking state: invalid transition %s -> %s for %s", from, to, id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET state = ? WHERE id = ?`, string(to), id); err != nil {
		return fmt.Errorf("updating state of %s: %w", id, err)
	}
	return tx.Commit()
}

// State returns the traversal state of a node.
func (s *Store) State(ctx context.Context, id string) (types.NodeState, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM entities WHERE id = ?`, id).Scan(&state)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("unknown entity %s", id)
	}
	if err != nil {
		return "", fmt.Errorf("reading state of %s: %w", id, err)
	}
	return types.NodeState(state), nil
}

// Entity returns one entity by canonical ID.
func (s *Store) Entity(ctx context.Context, id string) (types.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, doi, arxiv_id, pubmed_id, openalex_id, title, authors, abstract, date, venue, sources, relevance, fetch_status
		 FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return types.Entity{}, fmt.Errorf("unknown entity %s", id)
	}
	return e, err
}

// Entities returns all entities ordered by descending relevance.
func (s *Store) Entities(ctx context.Context) ([]types.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doi, arxiv_id, pubmed_id, openalex_id, title, authors, abstract, date, venue, sources, relevance, fetch_status
		 FROM entities ORDER BY relevance DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Edges returns all citation edges.
func (s *Store) Edges(ctx context.Context) ([]types.CitationEdge, error) {
	return s.queryEdges(ctx,
		`SELECT from_id, to_id, direction, source FROM edges`)
}

// Neighbors returns the edges touching id. A non-empty direction is
// interpreted relative to id: EdgeCites selects the works id cites,
// EdgeCitedBy the works citing id, whichever way the reporting source
// oriented the stored edge. An empty direction returns everything.
func (s *Store) Neighbors(ctx context.Context, id string, dir types.EdgeDirection) ([]types.CitationEdge, error) {
	switch dir {
	case types.EdgeCites:
		return s.queryEdges(ctx,
			`SELECT from_id, to_id, direction, source FROM edges
			 WHERE (from_id = ? AND direction = ?) OR (to_id = ? AND direction = ?)`,
			id, string(types.EdgeCites), id, string(types.EdgeCitedBy))
	case types.EdgeCitedBy:
		return s.queryEdges(ctx,
			`SELECT from_id, to_id, direction, source FROM edges
			 WHERE (to_id = ? AND direction = ?) OR (from_id = ? AND direction = ?)`,
			id, string(types.EdgeCites), id, string(types.EdgeCitedBy))
	default:
		return s.queryEdges(ctx,
			`SELECT from_id, to_id, direction, source FROM edges WHERE from_id = ? OR to_id = ?`, id, id)
	}
}

func (s *Store) queryEdges(ctx context.Context, query string, args ...any) ([]types.CitationEdge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var out []types.CitationEdge
	for rows.Next() {
		var e types.CitationEdge
		var direction string
		var src sql.NullString
		if err := rows.Scan(&e.From, &e.To, &direction, &src); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Direction = types.EdgeDirection(direction)
		e.Source = src.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats summarizes the stored graph for session reporting.
type Stats struct {
	Entities int
	Edges    int
	Visited  int
	Failed   int
}

// Stats counts entities, edges, and terminal node states.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM entities`).Scan(&st.Entities); err != nil {
		return Stats{}, fmt.Errorf("counting entities: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM edges`).Scan(&st.Edges); err != nil {
		return Stats{}, fmt.Errorf("counting edges: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM entities WHERE state = 'visited'`).Scan(&st.Visited); err != nil {
		return Stats{}, fmt.Errorf("counting visited: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM entities WHERE state = 'failed'`).Scan(&st.Failed); err != nil {
		return Stats{}, fmt.Errorf("counting failed: %w", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (types.Entity, error) {
	var e types.Entity
	var fetchStatus string
	var doi, arxiv, pubmed, openalex, title, abstract, venue sql.NullString
	var authorsJSON, sourcesJSON, dateStr sql.NullString
	var relevance sql.NullFloat64

	err := row.Scan(&e.CanonicalID, &doi, &arxiv, &pubmed, &openalex,
		&title, &authorsJSON, &abstract, &dateStr, &venue,
		&sourcesJSON, &relevance, &fetchStatus)
	if err != nil {
		return types.Entity{}, err
	}

	e.IDs = types.SourceIDs{DOI: doi.String, ArXiv: arxiv.String, PubMed: pubmed.String, OpenAlex: openalex.String}
	e.Title = title.String
	e.Abstract = abstract.String
	e.Venue = venue.String
	e.Relevance = relevance.Float64
	e.FetchStatus = types.FetchStatus(fetchStatus)
	if authorsJSON.String != "" {
		json.Unmarshal([]byte(authorsJSON.String), &e.Authors)
	}
	if sourcesJSON.String != "" {
		json.Unmarshal([]byte(sourcesJSON.String), &e.Sources)
	}
	if dateStr.String != "" {
		if t, perr := time.Parse(time.RFC3339, dateStr.String); perr == nil {
			e.Date = t
		}
	}
	return e, nil
}
