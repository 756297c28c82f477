// Package seed holds the default template catalog given to users whose library is empty.
//
// The built-in catalog is embedded from defaults.yaml. A deployment may replace it with
// its own YAML file of the same shape (see the seed.catalog config key).
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/placeholder"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Catalog is an ordered list of templates to create for a new user
type Catalog struct {
	Templates []models.DefaultTemplate `yaml:"templates" json:"templates"`
}

// Default returns the embedded catalog
func Default() *Catalog {
	c, err := Parse(defaultsYAML)
	if err != nil {
		// the embedded file is part of the build
		panic(fmt.Sprintf("seed: embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every template has a name and every snippet a category
func (c *Catalog) Validate() error {
	for i, t := range c.Templates {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("template %d must contain 'name' field", i)
		}
		for j, s := range t.Snippets {
			if strings.TrimSpace(s.Category) == "" {
				return fmt.Errorf("template %q snippet %d must contain 'category' field", t.Name, j)
			}
		}
	}
	return nil
}

// Names returns the template names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Templates))
	for _, t := range c.Templates {
		names = append(names, t.Name)
	}
	return names
}

// Placeholders returns the distinct placeholder names used by a catalog template
func (c *Catalog) Placeholders(name string) []string {
	for _, t := range c.Templates {
		if t.Name != name {
			continue
		}
		texts := make([]string, 0, len(t.Snippets))
		for _, s := range t.Snippets {
			texts = append(texts, s.Text)
		}
		return placeholder.ExtractAll(texts...)
	}
	return nil
}
