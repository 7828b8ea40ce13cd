package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadConfigFile(t *testing.T, yaml string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deep-research.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
}

func TestSessionConfigReadsConfigFile(t *testing.T) {
	loadConfigFile(t, `max_iterations: 3
sources:
  timeout: 20s
traversal:
  max_depth: 4
thinking:
  confirm_threshold: 0.9
`)

	cfg, err := sessionConfig(researchCmd)
	if err != nil {
		t.Fatalf("sessionConfig: %v", err)
	}

	if cfg.MaxIterations != 3 {
		t.Errorf("MaxIterations = %d, want 3 from the file", cfg.MaxIterations)
	}
	if cfg.Sources.Timeout != 20*time.Second {
		t.Errorf("Sources.Timeout = %v, want 20s from the file", cfg.Sources.Timeout)
	}
	if cfg.Traversal.MaxDepth != 4 {
		t.Errorf("Traversal.MaxDepth = %d, want 4 from the file", cfg.Traversal.MaxDepth)
	}
	if cfg.Thinking.ConfirmThreshold != 0.9 {
		t.Errorf("Thinking.ConfirmThreshold = %f, want 0.9 from the file", cfg.Thinking.ConfirmThreshold)
	}

	// Settings the file leaves out keep their defaults.
	if cfg.Gaps.CoverageThreshold != 2 {
		t.Errorf("Gaps.CoverageThreshold = %d, want default 2", cfg.Gaps.CoverageThreshold)
	}
	if !cfg.Sources.PubMed.Enabled {
		t.Error("PubMed should stay enabled by default")
	}
}

func TestSessionConfigFlagsOverrideFile(t *testing.T) {
	loadConfigFile(t, `traversal:
  max_depth: 4
`)

	if err := researchCmd.Flags().Set("max-depth", "6"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	t.Cleanup(func() { researchCmd.Flags().Set("max-depth", "0") })

	cfg, err := sessionConfig(researchCmd)
	if err != nil {
		t.Fatalf("sessionConfig: %v", err)
	}
	if cfg.Traversal.MaxDepth != 6 {
		t.Errorf("Traversal.MaxDepth = %d, want the flag to win over the file", cfg.Traversal.MaxDepth)
	}
}

func TestSessionConfigWithoutFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := sessionConfig(researchCmd)
	if err != nil {
		t.Fatalf("sessionConfig: %v", err)
	}
	if cfg.MaxIterations != 10 || cfg.Traversal.MaxEntities != 50 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
