package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/placeholder"
	"github.com/dpshade/prompt-composer/internal/renderer"
	"github.com/dpshade/prompt-composer/internal/store"
)

// TemplateSummary is one row of a template listing
type TemplateSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	SortOrder int     `json:"sort_order"`
	TypeID    *string `json:"type_id"`
	TypeName  string  `json:"type_name,omitempty"`
	Snippets  int     `json:"snippets"`
	Enabled   int     `json:"active_snippets"`
	IsActive  bool    `json:"is_active"`
	IsMaster  bool    `json:"is_master"`
}

// SnippetView is a snippet with its placeholder count
type SnippetView struct {
	models.Snippet
	Vars int `json:"vars"`
}

// TemplateView is the full view of one template
type TemplateView struct {
	models.Template
	Snippets     []SnippetView        `json:"snippets"`
	IsActive     bool                 `json:"is_active"`
	Type         *models.TemplateType `json:"type,omitempty"`
	MasterOf     *models.TemplateType `json:"master_of,omitempty"`
	Vocabulary   []string             `json:"vocabulary"`
	Placeholders []string             `json:"placeholders"`
	Values       map[string]string    `json:"values"`
}

// RenderOutput is the result of the render command
type RenderOutput struct {
	TemplateID   string           `json:"template_id"`
	Format       string           `json:"format"`
	Text         string           `json:"text,omitempty"`
	Blocks       []renderer.Block `json:"blocks,omitempty"`
	Placeholders []string         `json:"placeholders"`
}

// resolveTemplate returns id, or the active template's id when id is empty
func resolveTemplate(snap store.State, id string) (string, error) {
	if id == "" {
		id = snap.ActiveID
	}
	if _, ok := snap.Template(id); !ok {
		if id == "" {
			return "", errors.NotFoundError("Template", "(active)")
		}
		return "", errors.NotFoundError("Template", id)
	}
	return id, nil
}

func summarize(snap store.State) []TemplateSummary {
	summaries := make([]TemplateSummary, 0, len(snap.Templates))
	masters := map[string]bool{}
	for _, tt := range snap.Types {
		masters[tt.MasterTemplateID] = true
	}
	for _, t := range snap.Templates {
		s := TemplateSummary{
			ID:        t.ID,
			Name:      t.Name,
			SortOrder: t.SortOrder,
			TypeID:    t.TypeID,
			Snippets:  len(t.Snippets),
			Enabled:   len(t.ActiveSnippets()),
			IsActive:  t.ID == snap.ActiveID,
			IsMaster:  masters[t.ID],
		}
		if tt, ok := snap.ResolvedType(t.ID); ok {
			s.TypeName = tt.Name
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// BuildTemplateView assembles the view of one template from a snapshot
func BuildTemplateView(snap store.State, id string) (TemplateView, bool) {
	t, ok := snap.Template(id)
	if !ok {
		return TemplateView{}, false
	}
	view := TemplateView{
		Template:     t.Template,
		Snippets:     make([]SnippetView, 0, len(t.Snippets)),
		IsActive:     t.ID == snap.ActiveID,
		Vocabulary:   snap.Vocabulary(id),
		Placeholders: snap.Placeholders(id),
		Values:       snap.ValueMap(id),
	}
	for _, sn := range t.Snippets {
		view.Snippets = append(view.Snippets, SnippetView{Snippet: sn, Vars: len(placeholder.Extract(sn.Text))})
	}
	if tt, ok := snap.ResolvedType(id); ok {
		view.Type = &tt
	}
	for _, tt := range snap.Types {
		if tt.MasterTemplateID == id {
			master := tt
			view.MasterOf = &master
		}
	}
	return view, true
}

// checkCategory rejects categories taken by another snippet. A typed template
// only accepts its options; an untyped one also accepts any other name.
func checkCategory(st *store.Store, snippetID, category string) error {
	options, err := st.CategoryOptions(snippetID)
	if err != nil {
		return err
	}
	for _, o := range options {
		if o.Name != category {
			continue
		}
		if o.Disabled {
			return categoryTaken(category)
		}
		return nil
	}

	snap := st.Snapshot()
	_, templateID, _ := snap.Snippet(snippetID)
	if _, typed := snap.ResolvedType(templateID); typed {
		return errors.ValidationError(fmt.Sprintf("Category %q is not available for this template", category)).
			WithContext("category", category)
	}
	tpl, _ := snap.Template(templateID)
	for _, other := range tpl.Snippets {
		if other.ID != snippetID && other.Category == category {
			return categoryTaken(category)
		}
	}
	return nil
}

func categoryTaken(category string) error {
	return errors.ValidationError(fmt.Sprintf("Category %q is already used by another snippet of this template", category)).
		WithContext("category", category)
}

// applyEdits edits a snippet through a draft so category changes prefill like the editor does
func applyEdits(st *store.Store, snippetID string, label, text, category *string) (models.Snippet, error) {
	d, err := st.BeginEdit(snippetID)
	if err != nil {
		return models.Snippet{}, err
	}
	if category != nil && *category != d.Current().Category {
		if err := checkCategory(st, snippetID, *category); err != nil {
			return models.Snippet{}, err
		}
		d.ChangeCategory(*category)
	}
	if label != nil {
		d.SetLabel(*label)
	}
	if text != nil {
		d.SetText(*text)
	}
	if err := st.SaveDraft(d); err != nil {
		return models.Snippet{}, err
	}
	sn, _, _ := st.Snapshot().Snippet(snippetID)
	return sn, nil
}

// ListTemplatesCommand lists the user's templates in order
type ListTemplatesCommand struct {
	storeCommand
}

func (c *ListTemplatesCommand) GetName() string { return "list-templates" }

func (c *ListTemplatesCommand) GetDescription() string {
	return "List templates in display order"
}

func (c *ListTemplatesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	summaries := summarize(c.store.Snapshot())
	return success(summaries, fmt.Sprintf("Found %d templates", len(summaries))), nil
}

// GetTemplateCommand shows one template with its snippets, type and values
type GetTemplateCommand struct {
	storeCommand
	ID string `json:"id"`
}

func (c *GetTemplateCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *GetTemplateCommand) GetName() string { return "get-template" }

func (c *GetTemplateCommand) GetDescription() string {
	return "Show a template (the active one by default)"
}

func (c *GetTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	snap := c.store.Snapshot()
	id, err := resolveTemplate(snap, c.ID)
	if err != nil {
		return nil, err
	}
	view, _ := BuildTemplateView(snap, id)
	return success(view, ""), nil
}

// AddTemplateCommand creates a template and makes it active
type AddTemplateCommand struct {
	storeCommand
	Name string `json:"name"`
}

func (c *AddTemplateCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *AddTemplateCommand) GetName() string { return "add-template" }

func (c *AddTemplateCommand) GetDescription() string {
	return "Create a template at the end of the list"
}

func (c *AddTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	t := c.store.AddTemplate()
	if strings.TrimSpace(c.Name) != "" {
		if err := c.store.RenameTemplate(t.ID, c.Name); err != nil {
			return nil, err
		}
		t, _ = c.store.Snapshot().Template(t.ID)
	}
	return success(t, fmt.Sprintf("Created template %q", t.Name)), nil
}

// RenameTemplateCommand renames a template; a blank name leaves it unchanged
type RenameTemplateCommand struct {
	storeCommand
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

func (c *RenameTemplateCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *RenameTemplateCommand) GetName() string { return "rename-template" }

func (c *RenameTemplateCommand) GetDescription() string {
	return "Rename a template"
}

func (c *RenameTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.store.RenameTemplate(c.ID, c.Name); err != nil {
		return nil, err
	}
	t, _ := c.store.Snapshot().Template(c.ID)
	return success(t.Template, fmt.Sprintf("Template is named %q", t.Name)), nil
}

// DeleteTemplateCommand deletes a template. Deleting a master needs confirm.
type DeleteTemplateCommand struct {
	storeCommand
	ID      string `json:"id" validate:"required"`
	Confirm bool   `json:"confirm"`
}

func (c *DeleteTemplateCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *DeleteTemplateCommand) GetName() string { return "delete-template" }

func (c *DeleteTemplateCommand) GetDescription() string {
	return "Delete a template (a master template also deletes its type)"
}

func (c *DeleteTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	plan, err := c.store.PlanDeleteTemplate(c.ID)
	if err != nil {
		return nil, err
	}
	if err := c.store.DeleteTemplate(c.ID, c.Confirm); err != nil {
		return nil, err
	}
	msg := "Template deleted"
	if plan.IsMaster {
		msg = fmt.Sprintf("Template and type %q deleted; %d template(s) are now untyped", plan.TypeName, len(plan.AffectedTemplates))
	}
	return success(plan, msg), nil
}

// ReorderTemplatesCommand places templates in the given order
type ReorderTemplatesCommand struct {
	storeCommand
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (c *ReorderTemplatesCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *ReorderTemplatesCommand) GetName() string { return "reorder-templates" }

func (c *ReorderTemplatesCommand) GetDescription() string {
	return "Reorder templates; unlisted templates keep their relative order after the listed ones"
}

func (c *ReorderTemplatesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	c.store.ReorderTemplates(c.IDs)
	return success(summarize(c.store.Snapshot()), "Templates reordered"), nil
}

// SetActiveCommand selects the active template
type SetActiveCommand struct {
	storeCommand
	ID string `json:"id" validate:"required"`
}

func (c *SetActiveCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *SetActiveCommand) GetName() string { return "set-active" }

func (c *SetActiveCommand) GetDescription() string {
	return "Select the active template"
}

func (c *SetActiveCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.store.SetActive(c.ID); err != nil {
		return nil, err
	}
	return success(map[string]string{"active_template_id": c.ID}, "Active template changed"), nil
}

// SearchTemplatesCommand fuzzy-searches template names and snippet labels
type SearchTemplatesCommand struct {
	storeCommand
	Query string `json:"query"`
}

func (c *SearchTemplatesCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *SearchTemplatesCommand) GetName() string { return "search" }

func (c *SearchTemplatesCommand) GetDescription() string {
	return "Fuzzy search templates by name and snippet labels"
}

func (c *SearchTemplatesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	results := c.store.SearchTemplates(c.Query)
	snap := c.store.Snapshot()
	all := summarize(snap)
	byID := make(map[string]TemplateSummary, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}
	matches := make([]TemplateSummary, 0, len(results))
	for _, t := range results {
		matches = append(matches, byID[t.ID])
	}
	return success(matches, fmt.Sprintf("Found %d templates matching %q", len(matches), c.Query)), nil
}

// ListTypesCommand lists template types
type ListTypesCommand struct {
	storeCommand
}

func (c *ListTypesCommand) GetName() string { return "list-types" }

func (c *ListTypesCommand) GetDescription() string {
	return "List template types and their masters"
}

func (c *ListTypesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	types := c.store.Snapshot().Types
	if types == nil {
		types = []models.TemplateType{}
	}
	return success(types, fmt.Sprintf("Found %d types", len(types))), nil
}

// CreateTypeCommand creates a type anchored to a master template
type CreateTypeCommand struct {
	storeCommand
	Name     string `json:"name"`
	MasterID string `json:"master_id"`
}

func (c *CreateTypeCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *CreateTypeCommand) GetName() string { return "create-type" }

func (c *CreateTypeCommand) GetDescription() string {
	return "Create a template type whose master is the given (or active) template"
}

func (c *CreateTypeCommand) Execute(ctx context.Context) (*CommandResult, error) {
	masterID, err := resolveTemplate(c.store.Snapshot(), c.MasterID)
	if err != nil {
		return nil, err
	}
	tt, err := c.store.CreateTemplateType(c.Name, masterID)
	if err != nil {
		return nil, err
	}
	if tt.ID == "" {
		return success(nil, "Type name is blank; nothing created"), nil
	}
	return success(tt, fmt.Sprintf("Created type %q", tt.Name)), nil
}

// SetTypeCommand assigns a type to a template; an empty type id clears it
type SetTypeCommand struct {
	storeCommand
	TemplateID string `json:"template_id"`
	TypeID     string `json:"type_id"`
}

func (c *SetTypeCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *SetTypeCommand) GetName() string { return "set-type" }

func (c *SetTypeCommand) GetDescription() string {
	return "Set or clear the type of a template"
}

func (c *SetTypeCommand) Execute(ctx context.Context) (*CommandResult, error) {
	id, err := resolveTemplate(c.store.Snapshot(), c.TemplateID)
	if err != nil {
		return nil, err
	}
	var typeID *string
	if c.TypeID != "" {
		typeID = &c.TypeID
	}
	if err := c.store.SetTemplateType(id, typeID); err != nil {
		return nil, err
	}
	view, _ := BuildTemplateView(c.store.Snapshot(), id)
	if typeID == nil {
		return success(view, "Template is now untyped"), nil
	}
	return success(view, "Template type set"), nil
}

// AddSnippetCommand appends a snippet, optionally with initial fields
type AddSnippetCommand struct {
	storeCommand
	TemplateID string  `json:"template_id"`
	Label      *string `json:"label"`
	Text       *string `json:"text"`
	Category   *string `json:"category"`
}

func (c *AddSnippetCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *AddSnippetCommand) GetName() string { return "add-snippet" }

func (c *AddSnippetCommand) GetDescription() string {
	return "Append a snippet to a template (the active one by default)"
}

func (c *AddSnippetCommand) Execute(ctx context.Context) (*CommandResult, error) {
	id, err := resolveTemplate(c.store.Snapshot(), c.TemplateID)
	if err != nil {
		return nil, err
	}
	sn, err := c.store.AddSnippet(id)
	if err != nil {
		return nil, err
	}
	if c.Label != nil || c.Text != nil || c.Category != nil {
		if sn, err = applyEdits(c.store, sn.ID, c.Label, c.Text, c.Category); err != nil {
			return nil, err
		}
	}
	return success(sn, fmt.Sprintf("Added snippet %q", sn.Label)), nil
}

// EditSnippetCommand saves label, text and category of a snippet in one update
type EditSnippetCommand struct {
	storeCommand
	ID       string  `json:"id" validate:"required"`
	Label    *string `json:"label"`
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

func (c *EditSnippetCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *EditSnippetCommand) GetName() string { return "edit-snippet" }

func (c *EditSnippetCommand) GetDescription() string {
	return "Edit a snippet's label, text or category"
}

func (c *EditSnippetCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sn, err := applyEdits(c.store, c.ID, c.Label, c.Text, c.Category)
	if err != nil {
		return nil, err
	}
	return success(sn, "Snippet saved"), nil
}

// ToggleSnippetCommand includes or excludes a snippet from the prompt
type ToggleSnippetCommand struct {
	storeCommand
	ID string `json:"id" validate:"required"`
}

func (c *ToggleSnippetCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *ToggleSnippetCommand) GetName() string { return "toggle-snippet" }

func (c *ToggleSnippetCommand) GetDescription() string {
	return "Toggle whether a snippet is part of the prompt"
}

func (c *ToggleSnippetCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.store.ToggleSnippet(c.ID); err != nil {
		return nil, err
	}
	sn, _, _ := c.store.Snapshot().Snippet(c.ID)
	state := "disabled"
	if sn.Active {
		state = "enabled"
	}
	return success(sn, fmt.Sprintf("Snippet %s", state)), nil
}

// DeleteSnippetCommand removes a snippet
type DeleteSnippetCommand struct {
	storeCommand
	ID string `json:"id" validate:"required"`
}

func (c *DeleteSnippetCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *DeleteSnippetCommand) GetName() string { return "delete-snippet" }

func (c *DeleteSnippetCommand) GetDescription() string {
	return "Delete a snippet"
}

func (c *DeleteSnippetCommand) Execute(ctx context.Context) (*CommandResult, error) {
	c.store.DeleteSnippet(c.ID)
	return success(nil, "Snippet deleted"), nil
}

// ReorderSnippetsCommand places a template's snippets in the given order
type ReorderSnippetsCommand struct {
	storeCommand
	TemplateID string   `json:"template_id"`
	IDs        []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (c *ReorderSnippetsCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *ReorderSnippetsCommand) GetName() string { return "reorder-snippets" }

func (c *ReorderSnippetsCommand) GetDescription() string {
	return "Reorder the snippets of a template"
}

func (c *ReorderSnippetsCommand) Execute(ctx context.Context) (*CommandResult, error) {
	id, err := resolveTemplate(c.store.Snapshot(), c.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := c.store.ReorderSnippets(id, c.IDs); err != nil {
		return nil, err
	}
	view, _ := BuildTemplateView(c.store.Snapshot(), id)
	return success(view, "Snippets reordered"), nil
}

// CategoryOptionsCommand lists the categories a snippet may switch to
type CategoryOptionsCommand struct {
	storeCommand
	SnippetID string `json:"snippet_id" validate:"required"`
}

func (c *CategoryOptionsCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *CategoryOptionsCommand) GetName() string { return "category-options" }

func (c *CategoryOptionsCommand) GetDescription() string {
	return "List selectable categories for a snippet"
}

func (c *CategoryOptionsCommand) Execute(ctx context.Context) (*CommandResult, error) {
	options, err := c.store.CategoryOptions(c.SnippetID)
	if err != nil {
		return nil, err
	}
	return success(options, ""), nil
}

// SetPlaceholderCommand sets a placeholder value for a template
type SetPlaceholderCommand struct {
	storeCommand
	TemplateID string `json:"template_id"`
	Key        string `json:"key" validate:"placeholder"`
	Value      string `json:"value"`
}

func (c *SetPlaceholderCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *SetPlaceholderCommand) GetName() string { return "set-placeholder" }

func (c *SetPlaceholderCommand) GetDescription() string {
	return "Set the value of a placeholder"
}

func (c *SetPlaceholderCommand) Execute(ctx context.Context) (*CommandResult, error) {
	id, err := resolveTemplate(c.store.Snapshot(), c.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := c.store.SetPlaceholderValue(id, c.Key, c.Value); err != nil {
		return nil, err
	}
	value := models.PlaceholderValue{TemplateID: id, UserID: c.store.UserID(), Key: c.Key, Value: c.Value}
	return success(value, fmt.Sprintf("%s = %q", placeholder.Label(c.Key), c.Value)), nil
}

// Render formats
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatSpans    = "spans"
	FormatMarkdown = "markdown"
)

// RenderCommand renders the final prompt of a template
type RenderCommand struct {
	storeCommand
	TemplateID string `json:"template_id"`
	Format     string `json:"format" validate:"omitempty,oneof=text json spans markdown"`
	Width      int    `json:"width" validate:"gte=0"`
}

func (c *RenderCommand) SetParameters(params map[string]interface{}) error {
	return decodeParams(params, c)
}

func (c *RenderCommand) GetName() string { return "render" }

func (c *RenderCommand) GetDescription() string {
	return "Render the final prompt (text, json, spans or markdown)"
}

func (c *RenderCommand) Execute(ctx context.Context) (*CommandResult, error) {
	id, err := resolveTemplate(c.store.Snapshot(), c.TemplateID)
	if err != nil {
		return nil, err
	}
	r, err := c.store.Preview(id)
	if err != nil {
		return nil, err
	}

	out := RenderOutput{TemplateID: id, Format: c.Format, Placeholders: r.Placeholders()}
	if out.Format == "" {
		out.Format = FormatText
	}

	switch out.Format {
	case FormatJSON:
		out.Text, err = r.RenderJSON()
	case FormatSpans:
		out.Blocks = r.RenderBlocks()
	case FormatMarkdown:
		width := c.Width
		if width == 0 {
			width = 80
		}
		out.Text, err = r.RenderMarkdown(width)
	default:
		out.Text = r.RenderText()
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "Failed to render prompt")
	}
	return success(out, ""), nil
}
