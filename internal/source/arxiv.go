// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API. arXiv exposes no citation graph, so
// References always returns an empty slice.
type Arxiv struct {
	Client *http.Client
	Config types.SourceConfig
	HTTP   types.HTTPConfig
}

// Name returns the adapter identifier.
func (a *Arxiv) Name() string { return "arxiv" }

// Group returns the independence group.
func (a *Arxiv) Group() string { return a.Config.Group }

// Search queries the arXiv API and returns seed records.
func (a *Arxiv) Search(ctx context.Context, topic string, limit int) ([]Record, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if limit <= 0 {
		limit = 10
	}

	terms := strings.Fields(topic)
	url := fmt.Sprintf("%s?search_query=all:%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, strings.Join(terms, "+"), limit)

	resp, err := httputil.Get(ctx, a.Client, url, a.header())
	if err != nil {
		return nil, fmt.Errorf("arXiv search: %w", err)
	}
	defer resp.Body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arXiv search: %w: %v", ErrMalformed, err)
	}

	total := len(feed.Entries)
	var records []Record
	for i, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		r := Record{
			IDs:       types.SourceIDs{ArXiv: arxivID, DOI: normalizeDOI(entry.DOI)},
			Title:     strings.TrimSpace(entry.Title),
			Abstract:  strings.TrimSpace(entry.Summary),
			Relevance: positionScore(i, total),
		}
		for _, au := range entry.Authors {
			r.Authors = append(r.Authors, strings.TrimSpace(au.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			r.Date = t
		}
		if entry.JournalRef != "" {
			r.Venue = strings.TrimSpace(entry.JournalRef)
		}
		records = append(records, r)
	}
	return records, nil
}

// References reports no links: arXiv does not serve citation data.
func (a *Arxiv) References(ctx context.Context, ids types.SourceIDs, limit int) ([]Stub, error) {
	return nil, nil
}

func (a *Arxiv) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", a.HTTP.UserAgent)
	return h
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string        `xml:"id"`
	Title      string        `xml:"title"`
	Summary    string        `xml:"summary"`
	Published  string        `xml:"published"`
	DOI        string        `xml:"doi"`
	JournalRef string        `xml:"journal_ref"`
	Authors    []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// normalizeDOI strips resolver URL prefixes and lowercases, so the same
// DOI matches regardless of which source reported it.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}
