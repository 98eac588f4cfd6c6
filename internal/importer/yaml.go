package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/opportunity-ingestor/internal/models"
)

// sourcesFile is the on-disk shape of a sources seed file.
type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Name      string                `yaml:"name"`
	URL       string                `yaml:"url"`
	Type      string                `yaml:"opportunity_type"`
	RateLimit string                `yaml:"rate_limit"`
	MaxPages  int                   `yaml:"max_pages"`
	Enabled   *bool                 `yaml:"enabled"`
	Selectors models.SelectorConfig `yaml:"selectors"`
}

// LoadSourcesFile reads a YAML seed file of source definitions. A missing
// file is not an error; it returns an empty slice so startup can proceed
// with whatever the database already holds.
func LoadSourcesFile(path string) ([]*models.Source, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	sources := make([]*models.Source, 0, len(file.Sources))
	for i, entry := range file.Sources {
		source, entryErr := entryToSource(entry)
		if entryErr != nil {
			return nil, fmt.Errorf("sources file %s, entry %d: %w", path, i+1, entryErr)
		}
		sources = append(sources, source)
	}
	return sources, nil
}

func entryToSource(entry sourceEntry) (*models.Source, error) {
	if entry.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if entry.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	opportunityType := models.OpportunityType(entry.Type)
	if !opportunityType.Valid() {
		return nil, fmt.Errorf("opportunity_type must be financing or support, got %q", entry.Type)
	}
	if entry.MaxPages < 0 {
		return nil, fmt.Errorf("max_pages must be non-negative")
	}

	// Seed entries default to enabled; the Excel import defaults to disabled
	// because uploaded sheets are reviewed through the API first.
	enabled := true
	if entry.Enabled != nil {
		enabled = *entry.Enabled
	}

	return &models.Source{
		Name:      entry.Name,
		URL:       entry.URL,
		Type:      opportunityType,
		RateLimit: models.NormalizeRateLimit(entry.RateLimit),
		MaxPages:  entry.MaxPages,
		Selectors: entry.Selectors.MergeWithDefaults(),
		Enabled:   enabled,
	}, nil
}
