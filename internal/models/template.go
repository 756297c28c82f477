package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultTemplateName is the name given to templates created with "add template".
const DefaultTemplateName = "New Template"

// Template is a named, ordered container of snippets owned by one user
type Template struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	Name      string    `json:"name" yaml:"name"`
	SortOrder int       `json:"sort_order" yaml:"sort_order"`
	TypeID    *string   `json:"type_id" yaml:"type_id,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// TemplateWithSnippets is a template together with its snippets in sort order
type TemplateWithSnippets struct {
	Template `yaml:",inline"`
	Snippets []Snippet `json:"snippets" yaml:"snippets"`
}

// IsTyped reports whether the template references a TemplateType
func (t Template) IsTyped() bool {
	return t.TypeID != nil && *t.TypeID != ""
}

// HasType reports whether the template references the given type
func (t Template) HasType(typeID string) bool {
	return t.IsTyped() && *t.TypeID == typeID
}

// Snippet returns the snippet with the given id
func (t *TemplateWithSnippets) Snippet(id string) (*Snippet, bool) {
	for i := range t.Snippets {
		if t.Snippets[i].ID == id {
			return &t.Snippets[i], true
		}
	}
	return nil, false
}

// ActiveSnippets returns the active snippets in order
func (t TemplateWithSnippets) ActiveSnippets() []Snippet {
	var active []Snippet
	for _, s := range t.Snippets {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// NextSnippetOrder returns the sort position that appends after every snippet
func (t TemplateWithSnippets) NextSnippetOrder() int {
	next := len(t.Snippets)
	for _, s := range t.Snippets {
		if s.SortOrder >= next {
			next = s.SortOrder + 1
		}
	}
	return next
}

// SortSnippets orders snippets by ascending sort position, keeping ties stable
func (t *TemplateWithSnippets) SortSnippets() {
	sort.SliceStable(t.Snippets, func(i, j int) bool {
		return t.Snippets[i].SortOrder < t.Snippets[j].SortOrder
	})
}

// SortTemplates orders templates by ascending sort position, keeping ties stable
func SortTemplates(templates []TemplateWithSnippets) {
	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].SortOrder < templates[j].SortOrder
	})
}

// Implement list.Item interface for bubbles list component

// FilterValue returns the value used for filtering in lists
func (t TemplateWithSnippets) FilterValue() string {
	return cleanString(t.Name)
}

// Title satisfies the list.Item interface
func (t TemplateWithSnippets) Title() string {
	if t.Name != "" {
		return cleanString(t.Name)
	}
	return cleanString(t.ID)
}

// Description satisfies the list.Item interface
func (t TemplateWithSnippets) Description() string {
	active := len(t.ActiveSnippets())
	desc := fmt.Sprintf("%d snippets, %d active", len(t.Snippets), active)
	if !t.UpdatedAt.IsZero() {
		desc += " • Last edited: " + t.UpdatedAt.Format("2006-01-02 15:04")
	}
	return desc
}

// cleanString removes characters that break single-line rendering
func cleanString(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
		} else if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
