package store

import (
	"context"

	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/models"
)

// Effect is a persistence call produced by a state transition.
//
// Effects run concurrently. The only ordering the runner enforces is that an
// effect waits for in-flight effects that create a row it references, so a
// snippet insert never overtakes the insert of its template.
type Effect interface {
	// Name identifies the effect in logs and metrics
	Name() string
	// Creates lists the ids of rows the effect inserts
	Creates() []string
	// DependsOn lists the ids of rows the effect references
	DependsOn() []string
	Apply(ctx context.Context, gw gateway.Gateway) error
}

// CreateTemplate inserts a template row
type CreateTemplate struct {
	Template models.Template
}

func (e CreateTemplate) Name() string      { return gateway.OpCreateTemplate }
func (e CreateTemplate) Creates() []string { return []string{e.Template.ID} }
func (e CreateTemplate) DependsOn() []string {
	if e.Template.IsTyped() {
		return []string{*e.Template.TypeID}
	}
	return nil
}

func (e CreateTemplate) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.CreateTemplate(ctx, e.Template)
}

// UpdateTemplate patches a template row
type UpdateTemplate struct {
	ID    string
	Patch gateway.TemplatePatch
}

func (e UpdateTemplate) Name() string      { return gateway.OpUpdateTemplate }
func (e UpdateTemplate) Creates() []string { return nil }
func (e UpdateTemplate) DependsOn() []string {
	if e.Patch.SetType && e.Patch.TypeID != nil {
		return []string{e.ID, *e.Patch.TypeID}
	}
	return []string{e.ID}
}

func (e UpdateTemplate) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.UpdateTemplate(ctx, e.ID, e.Patch)
}

// DeleteTemplate deletes a template row and its dependents
type DeleteTemplate struct {
	ID string
}

func (e DeleteTemplate) Name() string        { return gateway.OpDeleteTemplate }
func (e DeleteTemplate) Creates() []string   { return nil }
func (e DeleteTemplate) DependsOn() []string { return []string{e.ID} }

func (e DeleteTemplate) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.DeleteTemplate(ctx, e.ID)
}

// CreateSnippets inserts snippet rows in one batch
type CreateSnippets struct {
	Snippets []models.Snippet
}

func (e CreateSnippets) Name() string { return gateway.OpCreateSnippets }

func (e CreateSnippets) Creates() []string {
	ids := make([]string, 0, len(e.Snippets))
	for _, s := range e.Snippets {
		ids = append(ids, s.ID)
	}
	return ids
}

func (e CreateSnippets) DependsOn() []string {
	var ids []string
	seen := map[string]bool{}
	for _, s := range e.Snippets {
		if !seen[s.TemplateID] {
			seen[s.TemplateID] = true
			ids = append(ids, s.TemplateID)
		}
	}
	return ids
}

func (e CreateSnippets) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.CreateSnippets(ctx, e.Snippets)
}

// UpdateSnippet patches a snippet row
type UpdateSnippet struct {
	ID    string
	Patch gateway.SnippetPatch
}

func (e UpdateSnippet) Name() string        { return gateway.OpUpdateSnippet }
func (e UpdateSnippet) Creates() []string   { return nil }
func (e UpdateSnippet) DependsOn() []string { return []string{e.ID} }

func (e UpdateSnippet) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.UpdateSnippet(ctx, e.ID, e.Patch)
}

// DeleteSnippet deletes a snippet row
type DeleteSnippet struct {
	ID string
}

func (e DeleteSnippet) Name() string        { return gateway.OpDeleteSnippet }
func (e DeleteSnippet) Creates() []string   { return nil }
func (e DeleteSnippet) DependsOn() []string { return []string{e.ID} }

func (e DeleteSnippet) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.DeleteSnippet(ctx, e.ID)
}

// CreateTemplateType inserts a template type row
type CreateTemplateType struct {
	Type models.TemplateType
}

func (e CreateTemplateType) Name() string        { return gateway.OpCreateTemplateType }
func (e CreateTemplateType) Creates() []string   { return []string{e.Type.ID} }
func (e CreateTemplateType) DependsOn() []string { return []string{e.Type.MasterTemplateID} }

func (e CreateTemplateType) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.CreateTemplateType(ctx, e.Type)
}

// DeleteTemplateType deletes a template type row
type DeleteTemplateType struct {
	ID string
}

func (e DeleteTemplateType) Name() string        { return gateway.OpDeleteTemplateType }
func (e DeleteTemplateType) Creates() []string   { return nil }
func (e DeleteTemplateType) DependsOn() []string { return []string{e.ID} }

func (e DeleteTemplateType) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.DeleteTemplateType(ctx, e.ID)
}

// UpsertPlaceholder writes a placeholder value keyed by (template, user, key)
type UpsertPlaceholder struct {
	Value models.PlaceholderValue
}

func (e UpsertPlaceholder) Name() string        { return gateway.OpUpsertPlaceholder }
func (e UpsertPlaceholder) Creates() []string   { return nil }
func (e UpsertPlaceholder) DependsOn() []string { return []string{e.Value.TemplateID} }

func (e UpsertPlaceholder) Apply(ctx context.Context, gw gateway.Gateway) error {
	return gw.UpsertPlaceholderValue(ctx, e.Value)
}
