package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/graph"
	"github.com/pdiddy/deep-research/internal/planner"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/internal/source"
	"github.com/pdiddy/deep-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Run an autonomous research session on a topic",
	Long: `Run seeds a research session from the topic, searches every enabled
source, expands the citation graph depth-first within the configured budgets,
and prints a report of findings, open gaps, and citations. Partial results are
reported even when a budget cuts the session short.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().Int("max-depth", 0, "deepest citation level to expand (default 2)")
	researchCmd.Flags().Int("max-entities", 0, "entity budget per session (default 50)")
	researchCmd.Flags().Int("max-iterations", 0, "planner iteration budget (default 10)")
	researchCmd.Flags().Duration("timeout", 0, "wall-clock budget for the session (default 5m)")
	researchCmd.Flags().Int("parallelism", 0, "concurrent fetches across sources (default 4)")
	researchCmd.Flags().Int("seed-results", 0, "results per source per query (default 5)")
	researchCmd.Flags().String("db", "", "graph database path (default in-memory)")
	researchCmd.Flags().Bool("json", false, "print the report as JSON")
	researchCmd.Flags().String("export", "", "also write the report to this path (.json or .yaml)")
	researchCmd.Flags().StringSlice("disable", nil, "sources to disable (e.g. pubmed,crossref)")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a research topic")
	}
	topic := strings.Join(args, " ")

	cfg, err := sessionConfig(cmd)
	if err != nil {
		return err
	}

	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	log, err := buildLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	dbPath, _ := cmd.Flags().GetString("db")
	store, err := graph.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	adapters := source.Adapters(cfg.Sources)
	if len(adapters) == 0 {
		return fmt.Errorf("all sources are disabled")
	}

	session := planner.New(cfg, adapters, store, log)
	rep, err := session.Run(cmd.Context(), topic)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if err := report.FormatJSON(rep, os.Stdout); err != nil {
			return err
		}
	} else {
		report.FormatText(rep, os.Stdout)
	}

	if exportPath, _ := cmd.Flags().GetString("export"); exportPath != "" {
		if err := report.Export(rep, exportPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report exported to %s\n", exportPath)
	}
	return nil
}

// sessionConfig layers the config file, flag overrides, and secrets onto
// the defaults. Flags win over the file.
func sessionConfig(cmd *cobra.Command) (types.SessionConfig, error) {
	cfg := types.DefaultSessionConfig()

	// Config structs carry yaml tags; Squash flattens the embedded HTTP
	// settings under sources.
	if err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.Squash = true
	}); err != nil {
		return types.SessionConfig{}, fmt.Errorf("reading config: %w", err)
	}

	if v, _ := cmd.Flags().GetInt("max-depth"); v > 0 {
		cfg.Traversal.MaxDepth = v
	}
	if v, _ := cmd.Flags().GetInt("max-entities"); v > 0 {
		cfg.Traversal.MaxEntities = v
	}
	if v, _ := cmd.Flags().GetInt("max-iterations"); v > 0 {
		cfg.MaxIterations = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		cfg.Deadline = v
	}
	if v, _ := cmd.Flags().GetInt("parallelism"); v > 0 {
		cfg.Parallelism = v
	}
	if v, _ := cmd.Flags().GetInt("seed-results"); v > 0 {
		cfg.SeedResults = v
	}

	disabled, _ := cmd.Flags().GetStringSlice("disable")
	for _, name := range disabled {
		switch strings.TrimSpace(name) {
		case "arxiv":
			cfg.Sources.Arxiv.Enabled = false
		case "openalex":
			cfg.Sources.OpenAlex.Enabled = false
		case "semantic_scholar":
			cfg.Sources.SemanticScholar.Enabled = false
		case "crossref":
			cfg.Sources.Crossref.Enabled = false
		case "pubmed":
			cfg.Sources.PubMed.Enabled = false
		}
	}

	cfg.Sources.SemanticScholarAPIKey = secretDefault("semantic-scholar-api-key", cfg.Sources.SemanticScholarAPIKey)
	cfg.Sources.OpenAlexEmail = secretDefault("openalex-email", cfg.Sources.OpenAlexEmail)
	cfg.Sources.CrossrefEmail = secretDefault("crossref-email", cfg.Sources.CrossrefEmail)
	cfg.Sources.PubMedAPIKey = secretDefault("pubmed-api-key", cfg.Sources.PubMedAPIKey)
	return cfg, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	return cfg.Build()
}
