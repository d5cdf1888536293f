package firewall

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is a rule catalog as loaded from YAML.
type Catalog struct {
	Version     string `yaml:"version" json:"version"`
	CatalogName string `yaml:"catalog_name" json:"catalog_name"`
	Rules       []Rule `yaml:"rules" json:"rules"`
}

// LoadCatalog loads a rule catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses YAML bytes into a Catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing rule catalog YAML: %w", err)
	}
	if err := validateCatalog(&c); err != nil {
		return nil, fmt.Errorf("validating rule catalog: %w", err)
	}
	return &c, nil
}

// validateCatalog checks catalog integrity. Rule-level validation
// (pattern compilation, weight bounds) happens in NewEngine.
func validateCatalog(c *Catalog) error {
	if c.Version == "" {
		return fmt.Errorf("catalog version is required")
	}
	if c.CatalogName == "" {
		return fmt.Errorf("catalog_name is required")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("at least one rule is required")
	}
	for i, r := range c.Rules {
		if r.Pattern == "" {
			return fmt.Errorf("rule %d: pattern is required", i)
		}
		if r.Category == "" {
			return fmt.Errorf("rule %d: category is required", i)
		}
	}
	return nil
}
