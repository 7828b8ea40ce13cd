// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identity

import (
	"testing"
	"time"

	"github.com/pdiddy/deep-research/internal/source"
	"github.com/pdiddy/deep-research/pkg/types"
)

func TestResolveMergesOnDOI(t *testing.T) {
	r := NewResolver()

	a := r.Resolve(source.Record{
		IDs:       types.SourceIDs{DOI: "10.1/x", ArXiv: "2301.07041"},
		Title:     "Attention Is All You Need",
		Relevance: 0.8,
	}, "arxiv")
	b := r.Resolve(source.Record{
		IDs:       types.SourceIDs{DOI: "10.1/x", OpenAlex: "W1"},
		Title:     "Attention Is All You Need",
		Abstract:  "We propose a new architecture.",
		Relevance: 0.5,
	}, "openalex")

	if a.CanonicalID != b.CanonicalID {
		t.Fatalf("canonical IDs differ: %q vs %q", a.CanonicalID, b.CanonicalID)
	}
	if b.CanonicalID != "doi:10.1/x" {
		t.Errorf("CanonicalID = %q, want doi:10.1/x", b.CanonicalID)
	}
	if len(r.All()) != 1 {
		t.Fatalf("entity count = %d, want 1", len(r.All()))
	}

	// Union of identifiers and sources, empty fields filled, higher
	// relevance kept.
	if b.IDs.ArXiv != "2301.07041" || b.IDs.OpenAlex != "W1" {
		t.Errorf("IDs = %+v, want union", b.IDs)
	}
	if b.Abstract == "" {
		t.Error("abstract should be filled from second record")
	}
	if b.Relevance != 0.8 {
		t.Errorf("Relevance = %f, want max 0.8", b.Relevance)
	}
	if !b.HasSource("arxiv") || !b.HasSource("openalex") {
		t.Errorf("Sources = %v, want both", b.Sources)
	}
}

func TestResolveMergesOnFuzzyTitle(t *testing.T) {
	r := NewResolver()

	r.Resolve(source.Record{
		Title:   "Deep Learning: A Survey!",
		Authors: []string{"Yann LeCun"},
		Date:    time.Date(2015, 5, 1, 0, 0, 0, 0, time.UTC),
	}, "arxiv")
	// Preprint published a year later, punctuation differs, same lead
	// surname: still the same work.
	got := r.Resolve(source.Record{
		IDs:     types.SourceIDs{DOI: "10.1/survey"},
		Title:   "deep learning  a survey",
		Authors: []string{"Y. LeCun"},
		Date:    time.Date(2016, 2, 1, 0, 0, 0, 0, time.UTC),
	}, "crossref")

	if n := len(r.All()); n != 1 {
		t.Fatalf("entity count = %d, want 1 after fuzzy merge", n)
	}
	if got.IDs.DOI != "10.1/survey" {
		t.Errorf("DOI = %q, want learned alias", got.IDs.DOI)
	}
}

func TestResolveFuzzyRejectsDifferentSurname(t *testing.T) {
	r := NewResolver()

	r.Resolve(source.Record{
		Title:   "A Common Title",
		Authors: []string{"Alice Smith"},
		Date:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "arxiv")
	r.Resolve(source.Record{
		Title:   "A Common Title",
		Authors: []string{"Bob Jones"},
		Date:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "crossref")

	if n := len(r.All()); n != 2 {
		t.Fatalf("entity count = %d, want 2 distinct works", n)
	}
}

func TestResolveFuzzyRejectsDistantYear(t *testing.T) {
	r := NewResolver()

	r.Resolve(source.Record{
		Title:   "A Common Title",
		Authors: []string{"Alice Smith"},
		Date:    time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "arxiv")
	r.Resolve(source.Record{
		Title:   "A Common Title",
		Authors: []string{"Alice Smith"},
		Date:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "crossref")

	if n := len(r.All()); n != 2 {
		t.Fatalf("entity count = %d, want 2 for a 10-year gap", n)
	}
}

func TestResolveFuzzyPrefersMoreCorroboratedEntity(t *testing.T) {
	r := NewResolver()

	// Two distinct works share a title: same title republished a decade
	// apart, so fuzzy matching keeps them separate.
	rec := source.Record{
		IDs:   types.SourceIDs{DOI: "10.1/old"},
		Title: "A Shared Title",
		Date:  time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	r.Resolve(rec, "crossref")
	r.Resolve(rec, "openalex")
	r.Resolve(source.Record{
		IDs:   types.SourceIDs{ArXiv: "2001.00001"},
		Title: "A Shared Title",
		Date:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "arxiv")

	// A dateless stub is year-compatible with both candidates; the
	// two-source entity wins the tie.
	got := r.ResolveStub(source.Stub{Title: "A Shared Title"}, "pubmed")
	if got.CanonicalID != "doi:10.1/old" {
		t.Errorf("CanonicalID = %q, want the more corroborated doi:10.1/old", got.CanonicalID)
	}
	if !got.HasSource("pubmed") {
		t.Errorf("Sources = %v, want pubmed recorded", got.Sources)
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	records := []source.Record{
		{IDs: types.SourceIDs{ArXiv: "2301.07041"}, Title: "Work One", Relevance: 0.9},
		{IDs: types.SourceIDs{DOI: "10.1/a", ArXiv: "2301.07041"}, Title: "Work One", Relevance: 0.4},
		{IDs: types.SourceIDs{DOI: "10.1/b"}, Title: "Work Two"},
	}

	forward := NewResolver()
	for _, rec := range records {
		forward.Resolve(rec, "s")
	}
	backward := NewResolver()
	for i := len(records) - 1; i >= 0; i-- {
		backward.Resolve(records[i], "s")
	}

	if len(forward.All()) != 2 || len(backward.All()) != 2 {
		t.Fatalf("entity counts = %d/%d, want 2/2", len(forward.All()), len(backward.All()))
	}

	fe, ok := forward.Lookup(types.SourceIDs{ArXiv: "2301.07041"})
	if !ok {
		t.Fatal("forward lookup failed")
	}
	be, ok := backward.Lookup(types.SourceIDs{ArXiv: "2301.07041"})
	if !ok {
		t.Fatal("backward lookup failed")
	}
	// Merged field content converges regardless of order; the canonical
	// key may differ by arrival order but identifies the same entity.
	if fe.IDs != be.IDs || fe.Relevance != be.Relevance {
		t.Errorf("merge diverged: %+v vs %+v", fe, be)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver()
	rec := source.Record{IDs: types.SourceIDs{DOI: "10.1/x"}, Title: "Same Work"}

	first := r.Resolve(rec, "crossref")
	second := r.Resolve(rec, "crossref")

	if len(r.All()) != 1 {
		t.Fatalf("entity count = %d, want 1", len(r.All()))
	}
	if first.CanonicalID != second.CanonicalID {
		t.Error("idempotent resolve changed canonical ID")
	}
	if len(second.Sources) != 1 {
		t.Errorf("Sources = %v, want no duplicate source entry", second.Sources)
	}
}

func TestResolveStubThenFullRecord(t *testing.T) {
	r := NewResolver()

	stub := r.ResolveStub(source.Stub{IDs: types.SourceIDs{OpenAlex: "W100"}}, "openalex")
	if stub.FetchStatus != types.FetchPartial {
		t.Errorf("stub status = %q, want partial", stub.FetchStatus)
	}

	full := r.Resolve(source.Record{
		IDs:   types.SourceIDs{OpenAlex: "W100", DOI: "10.1/x"},
		Title: "Now We Know It",
	}, "openalex")

	if len(r.All()) != 1 {
		t.Fatalf("entity count = %d, want 1", len(r.All()))
	}
	if full.CanonicalID != stub.CanonicalID {
		t.Errorf("canonical ID changed from %q to %q", stub.CanonicalID, full.CanonicalID)
	}
	if full.FetchStatus != types.FetchOK {
		t.Errorf("status = %q, want upgraded to ok", full.FetchStatus)
	}
	if full.Title != "Now We Know It" {
		t.Errorf("Title = %q", full.Title)
	}

	// The DOI learned during merge now resolves to the same entity.
	if _, ok := r.Lookup(types.SourceIDs{DOI: "10.1/x"}); !ok {
		t.Error("learned DOI alias should resolve")
	}
}

func TestCanonicalIDPreference(t *testing.T) {
	tests := []struct {
		name string
		ids  types.SourceIDs
		want string
	}{
		{"doi wins", types.SourceIDs{DOI: "10.1/x", ArXiv: "2301.07041", PubMed: "1", OpenAlex: "W1"}, "doi:10.1/x"},
		{"arxiv next", types.SourceIDs{ArXiv: "2301.07041", PubMed: "1", OpenAlex: "W1"}, "arxiv:2301.07041"},
		{"pmid next", types.SourceIDs{PubMed: "1", OpenAlex: "W1"}, "pmid:1"},
		{"openalex last", types.SourceIDs{OpenAlex: "W1"}, "openalex:W1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			e := r.Resolve(source.Record{IDs: tt.ids, Title: "T"}, "s")
			if e.CanonicalID != tt.want {
				t.Errorf("CanonicalID = %q, want %q", e.CanonicalID, tt.want)
			}
		})
	}
}

func TestCanonicalIDFingerprintFallback(t *testing.T) {
	r := NewResolver()
	e := r.Resolve(source.Record{
		Title:   "Untracked Work",
		Authors: []string{"Ada Lovelace"},
		Date:    time.Date(1843, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "s")

	if len(e.CanonicalID) != len("work:")+12 || e.CanonicalID[:5] != "work:" {
		t.Errorf("CanonicalID = %q, want work:<12-hex fingerprint>", e.CanonicalID)
	}

	// Same metadata fingerprints identically in a fresh resolver.
	r2 := NewResolver()
	e2 := r2.Resolve(source.Record{
		Title:   "untracked  work?",
		Authors: []string{"A. Lovelace"},
		Date:    time.Date(1843, 6, 1, 0, 0, 0, 0, time.UTC),
	}, "s")
	if e2.CanonicalID != e.CanonicalID {
		t.Errorf("fingerprints differ: %q vs %q", e.CanonicalID, e2.CanonicalID)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "Deep Learning: A Survey!", "deep learning a survey"},
		{"whitespace", "  spaced   out  ", "spaced out"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeTitle(tt.in); got != tt.want {
				t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
