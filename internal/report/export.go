// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// ExportYAML writes the report to path as YAML.
func ExportYAML(rep types.Report, path string) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return writeExport(path, data)
}

// ExportJSON writes the report to path as indented JSON.
func ExportJSON(rep types.Report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return writeExport(path, append(data, '\n'))
}

// Export picks the format from the file extension: .json for JSON,
// anything else for YAML.
func Export(rep types.Report, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ExportJSON(rep, path)
	}
	return ExportYAML(rep, path)
}

func writeExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
