// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// pubmedAPIBase is the NCBI E-utilities endpoint. Declared as a var so
// tests can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMed queries NCBI E-utilities: esearch for discovery, esummary for
// metadata, elink for both citation directions.
type PubMed struct {
	Client *http.Client
	Config types.SourceConfig
	HTTP   types.HTTPConfig

	// APIKey raises NCBI rate limits when present.
	APIKey string
}

// Name returns the adapter identifier.
func (p *PubMed) Name() string { return "pubmed" }

// Group returns the independence group.
func (p *PubMed) Group() string { return p.Config.Group }

// Search runs esearch for PMIDs, then esummary for their metadata.
// esearch returns IDs in relevance order, so position scoring applies.
func (p *PubMed) Search(ctx context.Context, topic string, limit int) ([]Record, error) {
	if topic == "" {
		return nil, fmt.Errorf("empty PubMed query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := p.params()
	params.Set("db", "pubmed")
	params.Set("term", topic)
	params.Set("retmax", fmt.Sprintf("%d", limit))
	params.Set("sort", "relevance")

	resp, err := httputil.Get(ctx, p.Client, pubmedAPIBase+"/esearch.fcgi?"+params.Encode(), p.header())
	if err != nil {
		return nil, fmt.Errorf("PubMed search: %w", err)
	}
	defer resp.Body.Close()

	var es pubmedSearchResponse
	if err := httputil.DecodeJSON(resp.Body, &es); err != nil {
		return nil, fmt.Errorf("PubMed search: %w", err)
	}
	if len(es.Result.IDList) == 0 {
		return nil, nil
	}

	return p.summaries(ctx, es.Result.IDList)
}

// References runs elink in both directions: pubmed_pubmed_refs for
// outgoing links and pubmed_pubmed_citedin for incoming ones. elink
// returns bare PMIDs; stubs stay thin until the traversal expands them.
func (p *PubMed) References(ctx context.Context, ids types.SourceIDs, limit int) ([]Stub, error) {
	if ids.PubMed == "" {
		return nil, fmt.Errorf("PubMed references: no PMID: %w", ErrNotFound)
	}
	if limit <= 0 {
		limit = 10
	}

	params := p.params()
	params.Set("dbfrom", "pubmed")
	params.Set("id", ids.PubMed)
	params.Set("linkname", "pubmed_pubmed_refs,pubmed_pubmed_citedin")

	resp, err := httputil.Get(ctx, p.Client, pubmedAPIBase+"/elink.fcgi?"+params.Encode(), p.header())
	if err != nil {
		return nil, fmt.Errorf("PubMed references: %w", err)
	}
	defer resp.Body.Close()

	var el pubmedLinkResponse
	if err := httputil.DecodeJSON(resp.Body, &el); err != nil {
		return nil, fmt.Errorf("PubMed references: %w", err)
	}

	var stubs []Stub
	for _, set := range el.LinkSets {
		for _, db := range set.LinkSetDBs {
			dir := types.EdgeCites
			if db.LinkName == "pubmed_pubmed_citedin" {
				dir = types.EdgeCitedBy
			}
			for _, pmid := range db.Links {
				stubs = append(stubs, Stub{
					IDs:       types.SourceIDs{PubMed: pmid},
					Direction: dir,
				})
				if len(stubs) >= limit {
					return stubs, nil
				}
			}
		}
	}
	return stubs, nil
}

// summaries fetches esummary metadata for a PMID batch.
func (p *PubMed) summaries(ctx context.Context, pmids []string) ([]Record, error) {
	params := p.params()
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))

	resp, err := httputil.Get(ctx, p.Client, pubmedAPIBase+"/esummary.fcgi?"+params.Encode(), p.header())
	if err != nil {
		return nil, fmt.Errorf("PubMed summary: %w", err)
	}
	defer resp.Body.Close()

	// The result map mixes the "uids" list with per-PMID objects, so it
	// decodes as raw messages keyed by PMID.
	var env struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := httputil.DecodeJSON(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("PubMed summary: %w", err)
	}

	total := len(pmids)
	var records []Record
	for i, pmid := range pmids {
		raw, ok := env.Result[pmid]
		if !ok {
			continue
		}
		var doc pubmedSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}

		r := Record{
			IDs:       types.SourceIDs{PubMed: pmid},
			Title:     doc.Title,
			Venue:     doc.FullJournalName,
			Relevance: positionScore(i, total),
		}
		for _, a := range doc.Authors {
			if a.Name != "" {
				r.Authors = append(r.Authors, a.Name)
			}
		}
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" {
				r.IDs.DOI = normalizeDOI(aid.Value)
			}
		}
		r.Date = parsePubDate(doc.PubDate)
		records = append(records, r)
	}
	return records, nil
}

func (p *PubMed) params() url.Values {
	v := url.Values{"retmode": {"json"}}
	if p.APIKey != "" {
		v.Set("api_key", p.APIKey)
	}
	return v
}

func (p *PubMed) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", p.HTTP.UserAgent)
	return h
}

// parsePubDate handles the progressively vaguer formats esummary emits.
func parsePubDate(s string) time.Time {
	for _, layout := range []string{"2006 Jan 2", "2006 Jan", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NCBI E-utilities JSON structures.
type pubmedSearchResponse struct {
	Result pubmedSearchResult `json:"esearchresult"`
}

type pubmedSearchResult struct {
	IDList []string `json:"idlist"`
}

type pubmedSummary struct {
	Title           string            `json:"title"`
	PubDate         string            `json:"pubdate"`
	FullJournalName string            `json:"fulljournalname"`
	Authors         []pubmedAuthor    `json:"authors"`
	ArticleIDs      []pubmedArticleID `json:"articleids"`
}

type pubmedAuthor struct {
	Name string `json:"name"`
}

type pubmedArticleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}

type pubmedLinkResponse struct {
	LinkSets []pubmedLinkSet `json:"linksets"`
}

type pubmedLinkSet struct {
	LinkSetDBs []pubmedLinkSetDB `json:"linksetdbs"`
}

type pubmedLinkSetDB struct {
	LinkName string   `json:"linkname"`
	Links    []string `json:"links"`
}
