// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API paper endpoint.
// Declared as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,venue"

// SemanticScholar queries the Semantic Scholar Graph API. It serves both
// directions of the citation graph: /references for outgoing links and
// /citations for incoming ones.
type SemanticScholar struct {
	Client *http.Client
	Config types.SourceConfig
	HTTP   types.HTTPConfig

	// APIKey raises rate limits when present.
	APIKey string
}

// Name returns the adapter identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// Group returns the independence group.
func (s *SemanticScholar) Group() string { return s.Config.Group }

// Search queries the paper search endpoint and returns seed records.
func (s *SemanticScholar) Search(ctx context.Context, topic string, limit int) ([]Record, error) {
	if topic == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"query":  {topic},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {semanticFields},
	}

	resp, err := httputil.Get(ctx, s.Client, semanticAPIBase+"/search?"+params.Encode(), s.header())
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar search: %w", err)
	}
	defer resp.Body.Close()

	var sr semanticSearchResponse
	if err := httputil.DecodeJSON(resp.Body, &sr); err != nil {
		return nil, fmt.Errorf("Semantic Scholar search: %w", err)
	}

	total := len(sr.Data)
	var records []Record
	for i, paper := range sr.Data {
		r := semanticRecord(paper)
		r.Relevance = positionScore(i, total)
		records = append(records, r)
	}
	return records, nil
}

// References returns outgoing links from /references and incoming links
// from /citations, each capped at limit.
func (s *SemanticScholar) References(ctx context.Context, ids types.SourceIDs, limit int) ([]Stub, error) {
	selector := semanticSelector(ids)
	if selector == "" {
		return nil, fmt.Errorf("Semantic Scholar references: no usable ID: %w", ErrNotFound)
	}
	if limit <= 0 {
		limit = 10
	}

	refs, err := s.linked(ctx, selector, "references", "citedPaper", types.EdgeCites, limit)
	if err != nil {
		return nil, err
	}

	citers, err := s.linked(ctx, selector, "citations", "citingPaper", types.EdgeCitedBy, limit)
	if err != nil {
		// Outgoing links alone are a valid partial result.
		return refs, nil
	}
	return append(refs, citers...), nil
}

// linked fetches one direction of the citation graph. endpoint is
// "references" or "citations"; key names the nested paper field.
func (s *SemanticScholar) linked(ctx context.Context, selector, endpoint, key string, dir types.EdgeDirection, limit int) ([]Stub, error) {
	params := url.Values{
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {"title,authors,externalIds,year"},
	}
	reqURL := fmt.Sprintf("%s/%s/%s?%s", semanticAPIBase, selector, endpoint, params.Encode())

	resp, err := httputil.Get(ctx, s.Client, reqURL, s.header())
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var lr semanticLinkResponse
	if err := httputil.DecodeJSON(resp.Body, &lr); err != nil {
		return nil, fmt.Errorf("Semantic Scholar %s: %w", endpoint, err)
	}

	var stubs []Stub
	for _, item := range lr.Data {
		paper := item.CitedPaper
		if key == "citingPaper" {
			paper = item.CitingPaper
		}
		if paper.PaperID == "" && paper.Title == "" {
			continue
		}
		stub := Stub{
			IDs: types.SourceIDs{
				DOI:   normalizeDOI(paper.ExternalIDs.DOI),
				ArXiv: paper.ExternalIDs.ArXiv,
			},
			Title:     paper.Title,
			Year:      paper.Year,
			Direction: dir,
		}
		for _, a := range paper.Authors {
			stub.Authors = append(stub.Authors, a.Name)
		}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}

func (s *SemanticScholar) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", s.HTTP.UserAgent)
	if s.APIKey != "" {
		h.Set("x-api-key", s.APIKey)
	}
	return h
}

// semanticRecord converts one paper into canonical shape.
func semanticRecord(paper semanticPaper) Record {
	r := Record{
		IDs: types.SourceIDs{
			DOI:    normalizeDOI(paper.ExternalIDs.DOI),
			ArXiv:  paper.ExternalIDs.ArXiv,
			PubMed: paper.ExternalIDs.PubMed,
		},
		Title:    paper.Title,
		Abstract: paper.Abstract,
		Venue:    paper.Venue,
	}
	for _, a := range paper.Authors {
		r.Authors = append(r.Authors, a.Name)
	}
	if paper.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", paper.PublicationDate); err == nil {
			r.Date = t
		}
	} else if paper.Year > 0 {
		r.Date = time.Date(paper.Year, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return r
}

// semanticSelector picks the paper/{selector} path segment for ids.
func semanticSelector(ids types.SourceIDs) string {
	switch {
	case ids.DOI != "":
		return "DOI:" + ids.DOI
	case ids.ArXiv != "":
		return "arXiv:" + ids.ArXiv
	case ids.PubMed != "":
		return "PMID:" + ids.PubMed
	default:
		return ""
	}
}

// Semantic Scholar API JSON structures.
type semanticSearchResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticLinkResponse struct {
	Data []semanticLink `json:"data"`
}

type semanticLink struct {
	CitedPaper  semanticPaper `json:"citedPaper"`
	CitingPaper semanticPaper `json:"citingPaper"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Venue           string              `json:"venue"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI    string `json:"DOI"`
	ArXiv  string `json:"ArXiv"`
	PubMed string `json:"PubMed"`
}
