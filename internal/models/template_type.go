package models

import "time"

// CategoryBlank is the universal category, always selectable and never exclusive.
const CategoryBlank = "Blank"

// GlobalCategories is the category vocabulary of untyped templates.
var GlobalCategories = []string{
	CategoryBlank,
	"Product",
	"Material",
	"Structure",
	"Illustration",
	"Theme",
	"Reference",
	"Photography",
	"Constraints",
}

// TemplateType is a reusable category schema anchored to a master template.
// Its vocabulary is the set of categories used by the master's snippets.
type TemplateType struct {
	ID               string    `json:"id" yaml:"id"`
	UserID           string    `json:"user_id" yaml:"user_id"`
	Name             string    `json:"name" yaml:"name"`
	MasterTemplateID string    `json:"master_template_id" yaml:"master_template_id"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
}

// PlaceholderValue is the stored value of one placeholder key for one template.
// At most one row exists per (TemplateID, UserID, Key).
type PlaceholderValue struct {
	ID         string `json:"id" yaml:"id"`
	TemplateID string `json:"template_id" yaml:"template_id"`
	UserID     string `json:"user_id" yaml:"user_id"`
	Key        string `json:"key" yaml:"key"`
	Value      string `json:"value" yaml:"value"`
}

// UserData is everything a user owns, as returned by a bulk load
type UserData struct {
	Templates         []TemplateWithSnippets `json:"templates" yaml:"templates"`
	PlaceholderValues []PlaceholderValue     `json:"placeholder_values" yaml:"placeholder_values"`
	TemplateTypes     []TemplateType         `json:"template_types" yaml:"template_types"`
}
