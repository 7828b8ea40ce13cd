// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex Works API. Outgoing references come from
// the work's referenced_works list; incoming citations from the cites:
// filter.
type OpenAlex struct {
	Client *http.Client
	Config types.SourceConfig
	HTTP   types.HTTPConfig

	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the adapter identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Group returns the independence group.
func (o *OpenAlex) Group() string { return o.Config.Group }

// Search queries the OpenAlex API and returns seed records.
func (o *OpenAlex) Search(ctx context.Context, topic string, limit int) ([]Record, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}

	params := url.Values{
		"search":   {topic},
		"per_page": {fmt.Sprintf("%d", limit)},
		"page":     {"1"},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	resp, err := httputil.Get(ctx, o.Client, openAlexAPIBase+"?"+params.Encode(), o.header())
	if err != nil {
		return nil, fmt.Errorf("OpenAlex search: %w", err)
	}
	defer resp.Body.Close()

	var oar openAlexResponse
	if err := httputil.DecodeJSON(resp.Body, &oar); err != nil {
		return nil, fmt.Errorf("OpenAlex search: %w", err)
	}

	total := len(oar.Results)
	var records []Record
	for i, work := range oar.Results {
		r := openAlexRecord(work)
		r.Relevance = positionScore(i, total)
		records = append(records, r)
	}
	return records, nil
}

// References expands the citation neighborhood of a known work: its
// referenced_works as outgoing links, then works matching the cites:
// filter as incoming links until limit is reached.
func (o *OpenAlex) References(ctx context.Context, ids types.SourceIDs, limit int) ([]Stub, error) {
	selector := openAlexSelector(ids)
	if selector == "" {
		return nil, fmt.Errorf("OpenAlex references: no usable ID: %w", ErrNotFound)
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}
	reqURL := openAlexAPIBase + "/" + selector
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := httputil.Get(ctx, o.Client, reqURL, o.header())
	if err != nil {
		return nil, fmt.Errorf("OpenAlex references: %w", err)
	}
	defer resp.Body.Close()

	var work openAlexWork
	if err := httputil.DecodeJSON(resp.Body, &work); err != nil {
		return nil, fmt.Errorf("OpenAlex references: %w", err)
	}

	var stubs []Stub
	for _, ref := range work.ReferencedWorks {
		if len(stubs) >= limit {
			break
		}
		wid := extractOpenAlexID(ref)
		if wid == "" {
			continue
		}
		stubs = append(stubs, Stub{
			IDs:       types.SourceIDs{OpenAlex: wid},
			Direction: types.EdgeCites,
		})
	}

	if len(stubs) < limit {
		citers, err := o.citingWorks(ctx, extractOpenAlexID(work.ID), limit-len(stubs))
		if err != nil {
			// Partial results are still valid; outgoing links stand alone.
			return stubs, nil
		}
		stubs = append(stubs, citers...)
	}
	return stubs, nil
}

// citingWorks fetches works whose reference lists include wid.
func (o *OpenAlex) citingWorks(ctx context.Context, wid string, limit int) ([]Stub, error) {
	if wid == "" || limit <= 0 {
		return nil, nil
	}

	params := url.Values{
		"filter":   {"cites:" + wid},
		"per_page": {fmt.Sprintf("%d", limit)},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	resp, err := httputil.Get(ctx, o.Client, openAlexAPIBase+"?"+params.Encode(), o.header())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var oar openAlexResponse
	if err := httputil.DecodeJSON(resp.Body, &oar); err != nil {
		return nil, err
	}

	var stubs []Stub
	for _, work := range oar.Results {
		r := openAlexRecord(work)
		stubs = append(stubs, Stub{
			IDs:       r.IDs,
			Title:     r.Title,
			Authors:   r.Authors,
			Year:      r.Date.Year(),
			Direction: types.EdgeCitedBy,
		})
	}
	return stubs, nil
}

func (o *OpenAlex) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", o.HTTP.UserAgent)
	return h
}

// openAlexRecord converts one work into canonical shape.
func openAlexRecord(work openAlexWork) Record {
	r := Record{
		IDs: types.SourceIDs{
			DOI:      normalizeDOI(work.DOI),
			OpenAlex: extractOpenAlexID(work.ID),
		},
		Title:    work.Title,
		Abstract: reconstructAbstract(work.AbstractInvertedIndex),
		Venue:    work.PrimaryLocation.Source.DisplayName,
	}
	for _, authorship := range work.Authorships {
		if authorship.Author.DisplayName != "" {
			r.Authors = append(r.Authors, authorship.Author.DisplayName)
		}
	}
	if work.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", work.PublicationDate); err == nil {
			r.Date = t
		}
	} else if work.PublicationYear > 0 {
		r.Date = time.Date(work.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	for _, ref := range work.ReferencedWorks {
		wid := extractOpenAlexID(ref)
		if wid == "" {
			continue
		}
		r.Refs = append(r.Refs, Stub{
			IDs:       types.SourceIDs{OpenAlex: wid},
			Direction: types.EdgeCites,
		})
	}
	return r
}

// openAlexSelector picks the works/{selector} path segment for ids.
func openAlexSelector(ids types.SourceIDs) string {
	switch {
	case ids.OpenAlex != "":
		return ids.OpenAlex
	case ids.DOI != "":
		return "doi:" + ids.DOI
	default:
		return ""
	}
}

// extractOpenAlexID strips the https://openalex.org/ prefix from a work
// URL, leaving the bare ID (e.g. "W2741809807").
func extractOpenAlexID(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	return id
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	// Build position→word map.
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string             `json:"id"`
	Title                 string             `json:"title"`
	DOI                   string             `json:"doi"`
	PublicationDate       string             `json:"publication_date"`
	PublicationYear       int                `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int   `json:"abstract_inverted_index"`
	ReferencedWorks       []string           `json:"referenced_works"`
	PrimaryLocation       openAlexLocation   `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source openAlexVenue `json:"source"`
}

type openAlexVenue struct {
	DisplayName string `json:"display_name"`
}
