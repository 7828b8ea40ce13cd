// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"net/http"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Adapters builds the enabled adapters from configuration. All adapters
// share one HTTP client whose timeout enforces the per-call bound.
func Adapters(cfg types.SourcesConfig) []Adapter {
	client := &http.Client{Timeout: cfg.Timeout}

	var out []Adapter
	if cfg.Arxiv.Enabled {
		out = append(out, &Arxiv{Client: client, Config: cfg.Arxiv, HTTP: cfg.HTTPConfig})
	}
	if cfg.OpenAlex.Enabled {
		out = append(out, &OpenAlex{Client: client, Config: cfg.OpenAlex, HTTP: cfg.HTTPConfig, Email: cfg.OpenAlexEmail})
	}
	if cfg.SemanticScholar.Enabled {
		out = append(out, &SemanticScholar{Client: client, Config: cfg.SemanticScholar, HTTP: cfg.HTTPConfig, APIKey: cfg.SemanticScholarAPIKey})
	}
	if cfg.Crossref.Enabled {
		out = append(out, &Crossref{Client: client, Config: cfg.Crossref, HTTP: cfg.HTTPConfig, Email: cfg.CrossrefEmail})
	}
	if cfg.PubMed.Enabled {
		out = append(out, &PubMed{Client: client, Config: cfg.PubMed, HTTP: cfg.HTTPConfig, APIKey: cfg.PubMedAPIKey})
	}
	return out
}
