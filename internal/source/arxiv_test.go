// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/pdiddy/deep-research/pkg/types"
)

const sampleArxivAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v5</id>
    <title>Attention Is All You Need</title>
    <summary>  We propose a new architecture based on attention.  </summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>Language model pre-training.</summary>
    <published>2018-10-11T00:50:01Z</published>
    <author><name>Jacob Devlin</name></author>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	ts := jsonServer(http.StatusOK, sampleArxivAtom)
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	a := &Arxiv{Client: ts.Client(), Config: testSource("arxiv"), HTTP: testHTTP()}
	records, err := a.Search(context.Background(), "attention", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	r0 := records[0]
	// Version suffix should be stripped from the arXiv ID.
	if r0.IDs.ArXiv != "1706.03762" {
		t.Errorf("ArXiv ID = %q, want %q", r0.IDs.ArXiv, "1706.03762")
	}
	if r0.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", r0.Title)
	}
	if r0.Abstract != "We propose a new architecture based on attention." {
		t.Errorf("Abstract = %q, want trimmed summary", r0.Abstract)
	}
	if len(r0.Authors) != 2 || r0.Authors[0] != "Ashish Vaswani" {
		t.Errorf("Authors = %v", r0.Authors)
	}
	if r0.Date.Year() != 2017 {
		t.Errorf("Date = %v, want 2017", r0.Date)
	}
	if r0.Relevance != 1.0 {
		t.Errorf("first Relevance = %f, want 1.0", r0.Relevance)
	}
	if records[1].Relevance >= r0.Relevance {
		t.Error("relevance should decay with position")
	}
}

func TestArxivSearchEmptyQuery(t *testing.T) {
	a := &Arxiv{Client: &http.Client{}, HTTP: testHTTP()}
	if _, err := a.Search(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestArxivSearchRateLimited(t *testing.T) {
	ts := jsonServer(http.StatusTooManyRequests, "")
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	a := &Arxiv{Client: ts.Client(), HTTP: testHTTP()}
	_, err := a.Search(context.Background(), "attention", 10)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestArxivSearchMalformed(t *testing.T) {
	ts := jsonServer(http.StatusOK, "<not-a-feed")
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	a := &Arxiv{Client: ts.Client(), HTTP: testHTTP()}
	_, err := a.Search(context.Background(), "attention", 10)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestArxivReferencesAlwaysEmpty(t *testing.T) {
	a := &Arxiv{Client: &http.Client{}, HTTP: testHTTP()}
	stubs, err := a.References(context.Background(), types.SourceIDs{ArXiv: "1706.03762"}, 10)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(stubs) != 0 {
		t.Errorf("len(stubs) = %d, want 0", len(stubs))
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"versioned", "http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"unversioned", "http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"old style", "http://arxiv.org/abs/cs/0112017v2", "cs/0112017"},
		{"no abs path", "http://example.com/foo", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractArxivID(tt.in); got != tt.want {
				t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
