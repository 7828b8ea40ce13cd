// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// crossrefAPIBase is the Crossref Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// Crossref queries the Crossref REST API. Reference lists give outgoing
// links; Crossref exposes no public cited-by index.
type Crossref struct {
	Client *http.Client
	Config types.SourceConfig
	HTTP   types.HTTPConfig

	// Email joins the polite pool via the User-Agent, per Crossref
	// etiquette.
	Email string
}

// Name returns the adapter identifier.
func (c *Crossref) Name() string { return "crossref" }

// Group returns the independence group.
func (c *Crossref) Group() string { return c.Config.Group }

// Search queries the works endpoint and returns seed records.
func (c *Crossref) Search(ctx context.Context, topic string, limit int) ([]Record, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("empty Crossref query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"query": {topic},
		"rows":  {fmt.Sprintf("%d", limit)},
	}

	resp, err := httputil.Get(ctx, c.Client, crossrefAPIBase+"?"+params.Encode(), c.header())
	if err != nil {
		return nil, fmt.Errorf("Crossref search: %w", err)
	}
	defer resp.Body.Close()

	var cr crossrefSearchResponse
	if err := httputil.DecodeJSON(resp.Body, &cr); err != nil {
		return nil, fmt.Errorf("Crossref search: %w", err)
	}

	total := len(cr.Message.Items)
	var records []Record
	for i, item := range cr.Message.Items {
		r := crossrefRecord(item)
		if r.IDs.DOI == "" && r.Title == "" {
			continue
		}
		r.Relevance = positionScore(i, total)
		records = append(records, r)
	}
	return records, nil
}

// References fetches the work by DOI and returns its reference list as
// outgoing stubs.
func (c *Crossref) References(ctx context.Context, ids types.SourceIDs, limit int) ([]Stub, error) {
	if ids.DOI == "" {
		return nil, fmt.Errorf("Crossref references: no DOI: %w", ErrNotFound)
	}
	if limit <= 0 {
		limit = 10
	}

	reqURL := crossrefAPIBase + "/" + url.PathEscape(ids.DOI)
	resp, err := httputil.Get(ctx, c.Client, reqURL, c.header())
	if err != nil {
		return nil, fmt.Errorf("Crossref references: %w", err)
	}
	defer resp.Body.Close()

	var cr crossrefWorkResponse
	if err := httputil.DecodeJSON(resp.Body, &cr); err != nil {
		return nil, fmt.Errorf("Crossref references: %w", err)
	}

	var stubs []Stub
	for _, ref := range cr.Message.Reference {
		if len(stubs) >= limit {
			break
		}
		stub := Stub{
			IDs:       types.SourceIDs{DOI: normalizeDOI(ref.DOI)},
			Title:     firstNonEmpty(ref.ArticleTitle, ref.VolumeTitle, ref.Unstructured),
			Direction: types.EdgeCites,
		}
		if y, err := strconv.Atoi(ref.Year); err == nil {
			stub.Year = y
		}
		if ref.Author != "" {
			stub.Authors = []string{ref.Author}
		}
		if stub.IsEmpty() {
			continue
		}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}

func (c *Crossref) header() http.Header {
	ua := c.HTTP.UserAgent
	if c.Email != "" {
		ua = fmt.Sprintf("%s (mailto:%s)", ua, c.Email)
	}
	h := http.Header{}
	h.Set("User-Agent", ua)
	return h
}

// crossrefRecord converts one work item into canonical shape.
func crossrefRecord(item crossrefWork) Record {
	r := Record{
		IDs:      types.SourceIDs{DOI: normalizeDOI(item.DOI)},
		Abstract: stripJATS(item.Abstract),
	}
	if len(item.Title) > 0 {
		r.Title = strings.TrimSpace(item.Title[0])
	}
	if len(item.ContainerTitle) > 0 {
		r.Venue = item.ContainerTitle[0]
	}
	for _, a := range item.Author {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	if dp := item.Issued.DateParts; len(dp) > 0 && len(dp[0]) > 0 {
		y, m, d := dp[0][0], 1, 1
		if len(dp[0]) > 1 {
			m = dp[0][1]
		}
		if len(dp[0]) > 2 {
			d = dp[0][2]
		}
		r.Date = time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}
	for _, ref := range item.Reference {
		doi := normalizeDOI(ref.DOI)
		if doi == "" {
			continue
		}
		r.Refs = append(r.Refs, Stub{
			IDs:       types.SourceIDs{DOI: doi},
			Direction: types.EdgeCites,
		})
	}
	return r
}

// stripJATS removes the JATS markup Crossref wraps abstracts in.
func stripJATS(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Crossref API JSON structures.
type crossrefSearchResponse struct {
	Message crossrefItems `json:"message"`
}

type crossrefItems struct {
	Items []crossrefWork `json:"items"`
}

type crossrefWorkResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI            string              `json:"DOI"`
	Title          []string            `json:"title"`
	ContainerTitle []string            `json:"container-title"`
	Abstract       string              `json:"abstract"`
	Author         []crossrefAuthor    `json:"author"`
	Issued         crossrefDate        `json:"issued"`
	Reference      []crossrefReference `json:"reference"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefReference struct {
	DOI          string `json:"DOI"`
	ArticleTitle string `json:"article-title"`
	VolumeTitle  string `json:"volume-title"`
	Unstructured string `json:"unstructured"`
	Author       string `json:"author"`
	Year         string `json:"year"`
}
