package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnalyzerProfile is one media type's entry in the analyzer catalog: an
// optional case-specific analyzer id and a size ceiling in bytes (zero
// means unbounded).
type AnalyzerProfile struct {
	CustomID string `yaml:"custom_id"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// AnalyzerCatalog maps media types to their analyzer profiles. Deployments
// override it with a YAML file; the defaults carry sensible ceilings.
type AnalyzerCatalog struct {
	Document AnalyzerProfile `yaml:"document"`
	Image    AnalyzerProfile `yaml:"image"`
	Video    AnalyzerProfile `yaml:"video"`
}

func DefaultCatalog() AnalyzerCatalog {
	return AnalyzerCatalog{
		Document: AnalyzerProfile{MaxBytes: 0},
		Image:    AnalyzerProfile{MaxBytes: 20 << 20},
		Video:    AnalyzerProfile{MaxBytes: 500 << 20},
	}
}

// LoadCatalog reads the catalog YAML at path, layered over the defaults.
// An empty path returns the defaults unchanged.
func LoadCatalog(path string) (AnalyzerCatalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return AnalyzerCatalog{}, fmt.Errorf("read analyzer catalog: %w", err)
	}

	var overlay struct {
		Analyzers AnalyzerCatalog `yaml:"analyzers"`
	}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return AnalyzerCatalog{}, fmt.Errorf("parse analyzer catalog: %w", err)
	}

	mergeProfile(&catalog.Document, overlay.Analyzers.Document)
	mergeProfile(&catalog.Image, overlay.Analyzers.Image)
	mergeProfile(&catalog.Video, overlay.Analyzers.Video)
	return catalog, nil
}

func mergeProfile(base *AnalyzerProfile, overlay AnalyzerProfile) {
	if overlay.CustomID != "" {
		base.CustomID = overlay.CustomID
	}
	if overlay.MaxBytes != 0 {
		base.MaxBytes = overlay.MaxBytes
	}
}
