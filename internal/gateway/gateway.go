// Package gateway persists composer rows to a backing store.
//
// SYSTEM ARCHITECTURE ROLE:
// The gateway is the only component that talks to storage. The composition store
// never waits on it for state: it calls the gateway from effect goroutines after the
// in-memory update has already happened.
//
// KEY RESPONSIBILITIES:
// - Bulk load of everything a user owns (templates with snippets, values, types)
// - Row level create/update/delete for templates, snippets and template types
// - Upsert of placeholder values keyed by (template_id, user_id, key)
//
// IMPLEMENTATIONS:
// - Memory: process-local maps, used by tests and the "memory" backend
// - SQLite: single-file local database (modernc.org/sqlite)
// - Supabase: PostgREST tables of a Supabase project
//
// Deletes are idempotent in every implementation. Deleting a template also removes
// its snippets and placeholder values.
package gateway

import (
	"context"

	"github.com/dpshade/prompt-composer/internal/models"
)

// Table names shared by the SQL and PostgREST backends
const (
	TableTemplates         = "templates"
	TableSnippets          = "snippets"
	TableTemplateTypes     = "template_types"
	TablePlaceholderValues = "placeholder_values"
)

// PlaceholderConflictColumns is the uniqueness key of placeholder values
const PlaceholderConflictColumns = "template_id,user_id,key"

// Gateway is the persistence contract of the composition store
type Gateway interface {
	LoadUserData(ctx context.Context, userID string) (*models.UserData, error)

	CreateTemplate(ctx context.Context, t models.Template) error
	UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) error
	DeleteTemplate(ctx context.Context, id string) error

	CreateSnippets(ctx context.Context, snippets []models.Snippet) error
	UpdateSnippet(ctx context.Context, id string, patch SnippetPatch) error
	DeleteSnippet(ctx context.Context, id string) error

	CreateTemplateType(ctx context.Context, tt models.TemplateType) error
	DeleteTemplateType(ctx context.Context, id string) error

	UpsertPlaceholderValue(ctx context.Context, v models.PlaceholderValue) error
}

// TemplatePatch lists the template columns to change. Nil fields are left alone.
type TemplatePatch struct {
	Name      *string
	SortOrder *int
	// SetType applies TypeID, so a nil TypeID with SetType clears the type
	SetType bool
	TypeID  *string
}

// Empty reports whether the patch changes nothing
func (p TemplatePatch) Empty() bool {
	return p.Name == nil && p.SortOrder == nil && !p.SetType
}

// Apply copies the patched columns onto t
func (p TemplatePatch) Apply(t *models.Template) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.SortOrder != nil {
		t.SortOrder = *p.SortOrder
	}
	if p.SetType {
		t.TypeID = copyString(p.TypeID)
	}
}

// Columns returns the patch as a column → value map
func (p TemplatePatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.SortOrder != nil {
		cols["sort_order"] = *p.SortOrder
	}
	if p.SetType {
		if p.TypeID != nil {
			cols["type_id"] = *p.TypeID
		} else {
			cols["type_id"] = nil
		}
	}
	return cols
}

// SnippetPatch lists the snippet columns to change. Nil fields are left alone.
type SnippetPatch struct {
	Category  *string
	Label     *string
	Text      *string
	Active    *bool
	SortOrder *int
}

// Empty reports whether the patch changes nothing
func (p SnippetPatch) Empty() bool {
	return p.Category == nil && p.Label == nil && p.Text == nil && p.Active == nil && p.SortOrder == nil
}

// Apply copies the patched columns onto s
func (p SnippetPatch) Apply(s *models.Snippet) {
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.Label != nil {
		s.Label = *p.Label
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	if p.SortOrder != nil {
		s.SortOrder = *p.SortOrder
	}
}

// Columns returns the patch as a column → value map
func (p SnippetPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Label != nil {
		cols["label"] = *p.Label
	}
	if p.Text != nil {
		cols["text"] = *p.Text
	}
	if p.Active != nil {
		cols["active"] = *p.Active
	}
	if p.SortOrder != nil {
		cols["sort_order"] = *p.SortOrder
	}
	return cols
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// assemble groups snippets under their templates, dropping snippets whose
// template is not in the list, and sorts both levels by sort position
func assemble(templates []models.Template, snippets []models.Snippet) []models.TemplateWithSnippets {
	out := make([]models.TemplateWithSnippets, 0, len(templates))
	index := make(map[string]int, len(templates))
	for _, t := range templates {
		index[t.ID] = len(out)
		out = append(out, models.TemplateWithSnippets{Template: t, Snippets: []models.Snippet{}})
	}
	for _, s := range snippets {
		if i, ok := index[s.TemplateID]; ok {
			out[i].Snippets = append(out[i].Snippets, s)
		}
	}
	for i := range out {
		out[i].SortSnippets()
	}
	models.SortTemplates(out)
	return out
}
