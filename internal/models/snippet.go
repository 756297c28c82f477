package models

import "time"

// DefaultSnippetLabel is the label given to freshly added snippets.
const DefaultSnippetLabel = "New Snippet"

// Snippet is a labeled, categorized block of text inside a template
type Snippet struct {
	ID         string    `json:"id" yaml:"id"`
	TemplateID string    `json:"template_id" yaml:"template_id"`
	Category   string    `json:"category" yaml:"category"`
	Label      string    `json:"label" yaml:"label"`
	Text       string    `json:"text" yaml:"text"`
	Active     bool      `json:"active" yaml:"active"`
	SortOrder  int       `json:"sort_order" yaml:"sort_order"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// DefaultSnippet is a seed snippet from the default catalog
type DefaultSnippet struct {
	Category  string `yaml:"category" json:"category"`
	Label     string `yaml:"label" json:"label"`
	Text      string `yaml:"text" json:"text"`
	Active    bool   `yaml:"active" json:"active"`
	SortOrder int    `yaml:"sort_order" json:"sort_order"`
}

// DefaultTemplate is a seed template from the default catalog
type DefaultTemplate struct {
	Name     string           `yaml:"name" json:"name"`
	Snippets []DefaultSnippet `yaml:"snippets" json:"snippets"`
}
