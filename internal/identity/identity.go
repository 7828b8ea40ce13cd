// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity resolves records from different sources to canonical
// entities. Universal identifiers (DOI, arXiv ID, PMID, OpenAlex ID)
// match exactly; records without a shared identifier fall back to fuzzy
// matching on normalized title, first-author surname, and year.
// See docs/ARCHITECTURE.md § Identity Resolution.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pdiddy/deep-research/internal/source"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Resolver maintains the alias indexes mapping source identifiers to
// canonical entities. Merging is commutative and idempotent: resolving
// the same records in any order converges to the same entity set.
type Resolver struct {
	mu sync.Mutex

	entities map[string]*types.Entity

	byDOI      map[string]string
	byArxiv    map[string]string
	byPubMed   map[string]string
	byOpenAlex map[string]string

	// byTitle maps a normalized title to candidate canonical IDs for
	// fuzzy matching.
	byTitle map[string][]string
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		entities:   make(map[string]*types.Entity),
		byDOI:      make(map[string]string),
		byArxiv:    make(map[string]string),
		byPubMed:   make(map[string]string),
		byOpenAlex: make(map[string]string),
		byTitle:    make(map[string][]string),
	}
}

// Resolve merges a full record reported by src into the entity set and
// returns a copy of the canonical entity.
func (r *Resolver) Resolve(rec source.Record, src string) types.Entity {
	incoming := types.Entity{
		IDs:         rec.IDs,
		Title:       rec.Title,
		Authors:     rec.Authors,
		Abstract:    rec.Abstract,
		Date:        rec.Date,
		Venue:       rec.Venue,
		Relevance:   rec.Relevance,
		FetchStatus: types.FetchOK,
	}
	return r.merge(incoming, src)
}

// ResolveStub merges a thin citation stub. Stub entities start as
// partial fetches until a later expansion fills them in.
func (r *Resolver) ResolveStub(st source.Stub, src string) types.Entity {
	incoming := types.Entity{
		IDs:         st.IDs,
		Title:       st.Title,
		Authors:     st.Authors,
		FetchStatus: types.FetchPartial,
	}
	if st.Year > 0 {
		incoming.Date = yearDate(st.Year)
	}
	return r.merge(incoming, src)
}

// Lookup returns the canonical entity for any known identifier, or false.
func (r *Resolver) Lookup(ids types.SourceIDs) (types.Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cid := r.findByIDs(ids); cid != "" {
		return *r.entities[cid], true
	}
	return types.Entity{}, false
}

// Get returns the canonical entity by canonical ID, or false.
func (r *Resolver) Get(canonicalID string) (types.Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[canonicalID]
	if !ok {
		return types.Entity{}, false
	}
	return *e, true
}

// All returns copies of every canonical entity.
func (r *Resolver) All() []types.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, *e)
	}
	return out
}

func (r *Resolver) merge(incoming types.Entity, src string) types.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	cid := r.findByIDs(incoming.IDs)
	if cid == "" {
		cid = r.findByFuzzy(incoming)
	}

	if cid == "" {
		cid = canonicalID(incoming)
		incoming.CanonicalID = cid
		incoming.Sources = []string{src}
		stored := incoming
		r.entities[cid] = &stored
		r.index(cid, incoming.IDs, incoming.Title)
		return stored
	}

	dst := r.entities[cid]
	mergeInto(dst, incoming)
	if !dst.HasSource(src) {
		dst.Sources = append(dst.Sources, src)
	}
	// Newly learned identifiers become aliases of the existing entity.
	r.index(cid, dst.IDs, dst.Title)
	return *dst
}

// findByIDs looks for an entity sharing any universal identifier.
func (r *Resolver) findByIDs(ids types.SourceIDs) string {
	if ids.DOI != "" {
		if cid, ok := r.byDOI[ids.DOI]; ok {
			return cid
		}
	}
	if ids.ArXiv != "" {
		if cid, ok := r.byArxiv[ids.ArXiv]; ok {
			return cid
		}
	}
	if ids.PubMed != "" {
		if cid, ok := r.byPubMed[ids.PubMed]; ok {
			return cid
		}
	}
	if ids.OpenAlex != "" {
		if cid, ok := r.byOpenAlex[ids.OpenAlex]; ok {
			return cid
		}
	}
	return ""
}

// findByFuzzy matches on normalized title plus compatible first-author
// surname and year. Missing fields on either side are compatible; a
// one-year disagreement is tolerated for preprint/published pairs. When
// several candidates are plausible the one with more corroborating
// sources wins.
func (r *Resolver) findByFuzzy(incoming types.Entity) string {
	key := normalizeTitle(incoming.Title)
	if key == "" {
		return ""
	}
	best := ""
	bestSources := -1
	for _, cid := range r.byTitle[key] {
		cand := r.entities[cid]
		if !surnameCompatible(cand.Authors, incoming.Authors) {
			continue
		}
		if !yearCompatible(cand.Date.Year(), incoming.Date.Year()) {
			continue
		}
		if len(cand.Sources) > bestSources {
			best = cid
			bestSources = len(cand.Sources)
		}
	}
	return best
}

func (r *Resolver) index(cid string, ids types.SourceIDs, title string) {
	if ids.DOI != "" {
		r.byDOI[ids.DOI] = cid
	}
	if ids.ArXiv != "" {
		r.byArxiv[ids.ArXiv] = cid
	}
	if ids.PubMed != "" {
		r.byPubMed[ids.PubMed] = cid
	}
	if ids.OpenAlex != "" {
		r.byOpenAlex[ids.OpenAlex] = cid
	}
	if key := normalizeTitle(title); key != "" {
		for _, existing := range r.byTitle[key] {
			if existing == cid {
				return
			}
		}
		r.byTitle[key] = append(r.byTitle[key], cid)
	}
}

// mergeInto fills empty fields of dst from src, unions identifiers, and
// keeps the higher relevance score. Fetch status only upgrades.
func mergeInto(dst *types.Entity, src types.Entity) {
	if dst.IDs.DOI == "" {
		dst.IDs.DOI = src.IDs.DOI
	}
	if dst.IDs.ArXiv == "" {
		dst.IDs.ArXiv = src.IDs.ArXiv
	}
	if dst.IDs.PubMed == "" {
		dst.IDs.PubMed = src.IDs.PubMed
	}
	if dst.IDs.OpenAlex == "" {
		dst.IDs.OpenAlex = src.IDs.OpenAlex
	}
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" && src.Abstract != "" {
		dst.Abstract = src.Abstract
	}
	if dst.Date.IsZero() && !src.Date.IsZero() {
		dst.Date = src.Date
	}
	if dst.Venue == "" && src.Venue != "" {
		dst.Venue = src.Venue
	}
	if src.Relevance > dst.Relevance {
		dst.Relevance = src.Relevance
	}
	if statusRank(src.FetchStatus) > statusRank(dst.FetchStatus) {
		dst.FetchStatus = src.FetchStatus
	}
}

func statusRank(s types.FetchStatus) int {
	switch s {
	case types.FetchOK:
		return 2
	case types.FetchPartial:
		return 1
	default:
		return 0
	}
}

// canonicalID picks the strongest available identifier: DOI, then arXiv,
// then PMID, then OpenAlex, then a metadata fingerprint.
func canonicalID(e types.Entity) string {
	switch {
	case e.IDs.DOI != "":
		return "doi:" + e.IDs.DOI
	case e.IDs.ArXiv != "":
		return "arxiv:" + e.IDs.ArXiv
	case e.IDs.PubMed != "":
		return "pmid:" + e.IDs.PubMed
	case e.IDs.OpenAlex != "":
		return "openalex:" + e.IDs.OpenAlex
	default:
		return "work:" + fingerprint(e.Title, e.Authors, e.Date.Year())
	}
}

// fingerprint hashes normalized title, first-author surname, and year
// into a short stable slug.
func fingerprint(title string, authors []string, year int) string {
	key := fmt.Sprintf("%s|%s|%d", normalizeTitle(title), firstSurname(authors), year)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}

// normalizeTitle returns a lowercased, punctuation-stripped version of
// the title with collapsed whitespace.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// firstSurname extracts the last token of the first author's name.
func firstSurname(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	fields := strings.Fields(strings.ToLower(authors[0]))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func surnameCompatible(a, b []string) bool {
	sa, sb := firstSurname(a), firstSurname(b)
	if sa == "" || sb == "" {
		return true
	}
	return sa == sb
}

func yearCompatible(a, b int) bool {
	if a <= 1 || b <= 1 {
		return true
	}
	diff := a - b
	return diff >= -1 && diff <= 1
}

func yearDate(year int) time.Time {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
}
