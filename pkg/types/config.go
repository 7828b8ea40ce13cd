// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-call HTTP request timeout. Adapters must never
	// block past it; retry policy lives in the planner, not the adapter.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deep-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig holds per-source settings: whether the adapter runs, its
// independence group, and its token bucket.
type SourceConfig struct {
	// Enabled controls whether the adapter participates in the session.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Group names the independence group. Adapters sharing an underlying
	// database share a group and count once for coverage.
	Group string `json:"group" yaml:"group"`

	// BucketCapacity is the token bucket burst capacity C.
	BucketCapacity int `json:"bucket_capacity" yaml:"bucket_capacity"`

	// RefillPerSecond is the token refill rate R.
	RefillPerSecond float64 `json:"refill_per_second" yaml:"refill_per_second"`
}

// SourcesConfig groups adapter settings and credentials.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// AcquireTimeout is the longest a unit of work waits for a rate
	// limit token before failing with a RateLimited error.
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`

	Arxiv           SourceConfig `json:"arxiv" yaml:"arxiv"`
	OpenAlex        SourceConfig `json:"openalex" yaml:"openalex"`
	SemanticScholar SourceConfig `json:"semantic_scholar" yaml:"semantic_scholar"`
	Crossref        SourceConfig `json:"crossref" yaml:"crossref"`
	PubMed          SourceConfig `json:"pubmed" yaml:"pubmed"`

	// SemanticScholarAPIKey raises Semantic Scholar rate limits. Optional.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// CrossrefEmail is sent in the User-Agent for the Crossref polite pool.
	CrossrefEmail string `json:"crossref_email,omitempty" yaml:"crossref_email,omitempty"`

	// PubMedAPIKey raises NCBI E-utilities rate limits. Optional.
	PubMedAPIKey string `json:"pubmed_api_key,omitempty" yaml:"pubmed_api_key,omitempty"`
}

// TraversalConfig bounds the depth-first citation expansion.
type TraversalConfig struct {
	// MaxDepth is the deepest citation level expanded from a seed.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxEntities caps the total number of entities visited per session.
	MaxEntities int `json:"max_entities" yaml:"max_entities"`

	// MaxRefsPerSource caps how many citation stubs one source may
	// contribute per expanded entity.
	MaxRefsPerSource int `json:"max_refs_per_source" yaml:"max_refs_per_source"`
}

// GapConfig holds coverage scoring policy. Exposed as configuration
// rather than hard-coded; tests treat these as parameters.
type GapConfig struct {
	// CoverageThreshold is the number of independent source groups
	// required before a question counts as validated (default 2).
	CoverageThreshold int `json:"coverage_threshold" yaml:"coverage_threshold"`

	// PriorityStep is added to an open question's priority each
	// iteration it stays unresolved.
	PriorityStep float64 `json:"priority_step" yaml:"priority_step"`

	// PriorityCap bounds escalation so one stubborn question cannot
	// starve the rest of the plan.
	PriorityCap float64 `json:"priority_cap" yaml:"priority_cap"`
}

// ThinkingConfig holds hypothesis engine policy.
type ThinkingConfig struct {
	// SupportBase scales the diminishing support increment:
	// each supporting entity adds SupportBase/(1+supportCount).
	SupportBase float64 `json:"support_base" yaml:"support_base"`

	// RefuteDecrement is subtracted per refuting entity. Larger than the
	// support increment: refutation outweighs confirmation.
	RefuteDecrement float64 `json:"refute_decrement" yaml:"refute_decrement"`

	// ConfirmThreshold and RefuteThreshold are the confidence bounds for
	// the confirmed and refuted states.
	ConfirmThreshold float64 `json:"confirm_threshold" yaml:"confirm_threshold"`
	RefuteThreshold  float64 `json:"refute_threshold" yaml:"refute_threshold"`

	// MaxBranching caps children per hypothesis; exceeding it forces a
	// resolution between rival children by confidence.
	MaxBranching int `json:"max_branching" yaml:"max_branching"`
}

// SessionConfig groups all settings for one research session.
type SessionConfig struct {
	// MaxIterations bounds the planner loop.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Deadline is the wall-clock budget for the whole session. Zero
	// means no wall-clock bound.
	Deadline time.Duration `json:"deadline" yaml:"deadline"`

	// Parallelism caps concurrent fetches across all sources.
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	// RetryMax bounds planner-side retries on rate-limited fetches.
	RetryMax int `json:"retry_max" yaml:"retry_max"`

	// RetryBase is the base delay for exponential retry backoff.
	RetryBase time.Duration `json:"retry_base" yaml:"retry_base"`

	// SeedResults is how many results each source contributes per query.
	SeedResults int `json:"seed_results" yaml:"seed_results"`

	Sources   SourcesConfig   `json:"sources" yaml:"sources"`
	Traversal TraversalConfig `json:"traversal" yaml:"traversal"`
	Gaps      GapConfig       `json:"gaps" yaml:"gaps"`
	Thinking  ThinkingConfig  `json:"thinking" yaml:"thinking"`
}

// DefaultSessionConfig returns the default session settings.
func DefaultSessionConfig() SessionConfig {
	src := func(group string) SourceConfig {
		return SourceConfig{
			Enabled:         true,
			Group:           group,
			BucketCapacity:  5,
			RefillPerSecond: 1,
		}
	}
	return SessionConfig{
		MaxIterations: 10,
		Deadline:      5 * time.Minute,
		Parallelism:   4,
		RetryMax:      3,
		RetryBase:     500 * time.Millisecond,
		SeedResults:   5,
		Sources: SourcesConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   15 * time.Second,
				UserAgent: "deep-research/0.1",
			},
			AcquireTimeout: 30 * time.Second,
			Arxiv:          src("arxiv"),
			OpenAlex:       src("doi-metadata"),
			// Crossref and OpenAlex both index the DOI metadata corpus,
			// so they share an independence group.
			Crossref:        src("doi-metadata"),
			SemanticScholar: src("semantic-scholar"),
			PubMed:          src("ncbi"),
		},
		Traversal: TraversalConfig{
			MaxDepth:         2,
			MaxEntities:      50,
			MaxRefsPerSource: 3,
		},
		Gaps: GapConfig{
			CoverageThreshold: 2,
			PriorityStep:      0.5,
			PriorityCap:       10,
		},
		Thinking: ThinkingConfig{
			SupportBase:      0.25,
			RefuteDecrement:  0.35,
			ConfirmThreshold: 0.85,
			RefuteThreshold:  0.15,
			MaxBranching:     3,
		},
	}
}
