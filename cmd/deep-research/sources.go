package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/ratelimit"
	"github.com/pdiddy/deep-research/internal/source"
	"github.com/pdiddy/deep-research/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured source adapters",
	Long: `Sources lists each reference API adapter with its independence group and
rate limit bucket. Sources sharing a group index the same underlying corpus
and count once for cross-validation coverage.`,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := sessionConfig(cmd)
	if err != nil {
		return err
	}
	adapters := source.Adapters(cfg.Sources)
	limiter := ratelimit.New(cfg.Sources)
	quotas := limiter.Quotas()

	fmt.Fprintf(os.Stdout, "%-18s  %-18s  %-8s  %s\n", "Source", "Group", "Tokens", "Rate")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 60))
	for _, a := range adapters {
		sc := sourceConfig(cfg.Sources, a.Name())
		fmt.Fprintf(os.Stdout, "%-18s  %-18s  %-8.0f  %g/s burst %d\n",
			a.Name(), a.Group(), quotas[a.Name()], sc.RefillPerSecond, sc.BucketCapacity)
	}
	return nil
}

func sourceConfig(cfg types.SourcesConfig, name string) types.SourceConfig {
	switch name {
	case "arxiv":
		return cfg.Arxiv
	case "openalex":
		return cfg.OpenAlex
	case "semantic_scholar":
		return cfg.SemanticScholar
	case "crossref":
		return cfg.Crossref
	case "pubmed":
		return cfg.PubMed
	}
	return types.SourceConfig{}
}
