// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

// LoadManifest reads a YAML document manifest. Relative document
// directories are resolved against the manifest's own directory.
func LoadManifest(path string) (types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Manifest{}, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m types.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return types.Manifest{}, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, d := range m.Documents {
		if d.Directory != "" && !filepath.IsAbs(d.Directory) {
			m.Documents[i].Directory = filepath.Join(base, d.Directory)
		}
	}
	return m, nil
}

// SaveManifest writes m as YAML.
func SaveManifest(path string, m types.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// Normalize fills unset selectors with their defaults: chart format A,
// sectioned citations, supplement version 1 and the default thresholds. An
// unset name is taken from the directory.
func Normalize(cfg types.DocumentConfig) types.DocumentConfig {
	if cfg.Name == "" {
		cfg.Name = filepath.Base(cfg.Directory)
	}
	if cfg.ChartFormat == "" {
		cfg.ChartFormat = types.ChartFormatA
	}
	if cfg.CitationVersion == 0 {
		cfg.CitationVersion = types.CitationSectioned
	}
	if cfg.SupplementVersion == 0 {
		cfg.SupplementVersion = types.SupplementV1
	}
	cfg.Thresholds = cfg.Thresholds.WithDefaults()
	return cfg
}

// Validate reports configuration errors that make a document unparseable.
func Validate(cfg types.DocumentConfig) error {
	var errs []error
	if cfg.GuidelineXML == "" {
		errs = append(errs, errors.New("guideline_xml is required"))
	}
	if !cfg.ChartFormat.Valid() {
		errs = append(errs, fmt.Errorf("unknown chart_format %q", cfg.ChartFormat))
	}
	if !cfg.CitationVersion.Valid() {
		errs = append(errs, fmt.Errorf("unknown citation_version %d", cfg.CitationVersion))
	}
	if !cfg.SupplementVersion.Valid() {
		errs = append(errs, fmt.Errorf("unknown supplement_version %d", cfg.SupplementVersion))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("document %s: %w", cfg.Name, err)
	}
	return nil
}
