// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/deep-research/pkg/types"
)

func testHTTP() types.HTTPConfig {
	return types.HTTPConfig{UserAgent: "deep-research/test"}
}

func testSource(group string) types.SourceConfig {
	return types.SourceConfig{Enabled: true, Group: group, BucketCapacity: 5, RefillPerSecond: 1}
}

// jsonServer responds to every request with a fixed status and body.
func jsonServer(statusCode int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	}))
}

// --- positionScore ---

func TestPositionScore(t *testing.T) {
	tests := []struct {
		name  string
		i     int
		total int
		want  float64
	}{
		{"single result", 0, 1, 1.0},
		{"first of many", 0, 10, 1.0},
		{"last of two", 1, 2, 0.1},
		{"last of ten", 9, 10, 0.1},
		{"middle of three", 1, 3, 0.55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := positionScore(tt.i, tt.total)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("positionScore(%d, %d) = %f, want %f", tt.i, tt.total, got, tt.want)
			}
		})
	}
}

// --- normalizeDOI ---

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare DOI", "10.1234/abc", "10.1234/abc"},
		{"https prefix", "https://doi.org/10.1234/abc", "10.1234/abc"},
		{"http prefix", "http://doi.org/10.1234/abc", "10.1234/abc"},
		{"doi scheme", "doi:10.1234/abc", "10.1234/abc"},
		{"uppercase", "10.1234/ABC", "10.1234/abc"},
		{"whitespace", "  10.1234/abc ", "10.1234/abc"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeDOI(tt.in); got != tt.want {
				t.Errorf("normalizeDOI(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- Stub.IsEmpty ---

func TestStubIsEmpty(t *testing.T) {
	if !(Stub{}).IsEmpty() {
		t.Error("zero stub should be empty")
	}
	if (Stub{Title: "x"}).IsEmpty() {
		t.Error("stub with title should not be empty")
	}
	if (Stub{IDs: types.SourceIDs{DOI: "10.1/x"}}).IsEmpty() {
		t.Error("stub with DOI should not be empty")
	}
}

// --- Adapters registry ---

func TestAdaptersBuildsEnabledOnly(t *testing.T) {
	cfg := types.DefaultSessionConfig().Sources
	cfg.Crossref.Enabled = false
	cfg.PubMed.Enabled = false

	adapters := Adapters(cfg)
	if len(adapters) != 3 {
		t.Fatalf("len(adapters) = %d, want 3", len(adapters))
	}

	names := map[string]bool{}
	for _, a := range adapters {
		names[a.Name()] = true
	}
	for _, want := range []string{"arxiv", "openalex", "semantic_scholar"} {
		if !names[want] {
			t.Errorf("missing adapter %q", want)
		}
	}
	if names["crossref"] || names["pubmed"] {
		t.Error("disabled adapters should not be built")
	}
}

func TestAdaptersGroups(t *testing.T) {
	adapters := Adapters(types.DefaultSessionConfig().Sources)
	if len(adapters) != 5 {
		t.Fatalf("len(adapters) = %d, want 5", len(adapters))
	}

	groups := map[string]string{}
	for _, a := range adapters {
		groups[a.Name()] = a.Group()
	}
	// OpenAlex and Crossref index the same DOI corpus.
	if groups["openalex"] != groups["crossref"] {
		t.Errorf("openalex group %q should equal crossref group %q", groups["openalex"], groups["crossref"])
	}
	if groups["arxiv"] == groups["openalex"] {
		t.Error("arxiv and openalex should be independent groups")
	}
}
