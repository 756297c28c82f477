package store

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/placeholder"
)

// State is one user's composer data. Transitions never modify their receiver:
// each returns a new State together with the effects that persist the change.
type State struct {
	UserID    string                        `json:"user_id"`
	Templates []models.TemplateWithSnippets `json:"templates"`
	Values    []models.PlaceholderValue     `json:"placeholder_values"`
	Types     []models.TemplateType         `json:"template_types"`
	ActiveID  string                        `json:"active_template_id"`
}

// NewState builds a state from a bulk load. The first template becomes active.
func NewState(userID string, data *models.UserData) State {
	s := State{UserID: userID}
	if data != nil {
		s.Templates = data.Templates
		s.Values = data.PlaceholderValues
		s.Types = data.TemplateTypes
	}
	s = s.clone()
	models.SortTemplates(s.Templates)
	for i := range s.Templates {
		s.Templates[i].SortSnippets()
	}
	if len(s.Templates) > 0 {
		s.ActiveID = s.Templates[0].ID
	}
	return s
}

// clone deep-copies every slice so a transition can edit freely
func (s State) clone() State {
	out := State{UserID: s.UserID, ActiveID: s.ActiveID}
	out.Templates = make([]models.TemplateWithSnippets, len(s.Templates))
	for i, t := range s.Templates {
		t.TypeID = copyString(t.TypeID)
		t.Snippets = append([]models.Snippet(nil), t.Snippets...)
		out.Templates[i] = t
	}
	out.Values = append([]models.PlaceholderValue(nil), s.Values...)
	out.Types = append([]models.TemplateType(nil), s.Types...)
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ---- lookups -----------------------------------------------------------

func (s State) templateIndex(id string) int {
	for i := range s.Templates {
		if s.Templates[i].ID == id {
			return i
		}
	}
	return -1
}

// Template returns the template with the given id
func (s State) Template(id string) (models.TemplateWithSnippets, bool) {
	if i := s.templateIndex(id); i >= 0 {
		return s.Templates[i], true
	}
	return models.TemplateWithSnippets{}, false
}

// Active returns the active template
func (s State) Active() (models.TemplateWithSnippets, bool) {
	return s.Template(s.ActiveID)
}

// snippetIndex locates a snippet across all templates
func (s State) snippetIndex(id string) (int, int) {
	for i := range s.Templates {
		for j := range s.Templates[i].Snippets {
			if s.Templates[i].Snippets[j].ID == id {
				return i, j
			}
		}
	}
	return -1, -1
}

// Snippet returns the snippet with the given id and the template holding it
func (s State) Snippet(id string) (models.Snippet, string, bool) {
	i, j := s.snippetIndex(id)
	if i < 0 {
		return models.Snippet{}, "", false
	}
	return s.Templates[i].Snippets[j], s.Templates[i].ID, true
}

// Type returns the template type with the given id
func (s State) Type(id string) (models.TemplateType, bool) {
	for _, tt := range s.Types {
		if tt.ID == id {
			return tt, true
		}
	}
	return models.TemplateType{}, false
}

// typeMastered returns the type whose master is templateID
func (s State) typeMastered(templateID string) (models.TemplateType, bool) {
	for _, tt := range s.Types {
		if tt.MasterTemplateID == templateID {
			return tt, true
		}
	}
	return models.TemplateType{}, false
}

// ---- derived views ------------------------------------------------------

// ValueMap returns the key → value map of one template
func (s State) ValueMap(templateID string) map[string]string {
	values := map[string]string{}
	for _, v := range s.Values {
		if v.TemplateID == templateID {
			values[v.Key] = v.Value
		}
	}
	return values
}

// Placeholders returns the distinct placeholder names of a template's active snippets
func (s State) Placeholders(templateID string) []string {
	t, ok := s.Template(templateID)
	if !ok {
		return nil
	}
	var texts []string
	for _, sn := range t.ActiveSnippets() {
		texts = append(texts, sn.Text)
	}
	return placeholder.ExtractAll(texts...)
}

// UsedCategories returns the categories of a template's snippets, active or not,
// in snippet order without duplicates
func (s State) UsedCategories(templateID string) []string {
	t, ok := s.Template(templateID)
	if !ok {
		return nil
	}
	var used []string
	seen := map[string]bool{}
	for _, sn := range t.Snippets {
		if !seen[sn.Category] {
			seen[sn.Category] = true
			used = append(used, sn.Category)
		}
	}
	return used
}

// ResolvedType returns the type a template references, if it still exists
func (s State) ResolvedType(templateID string) (models.TemplateType, bool) {
	t, ok := s.Template(templateID)
	if !ok || !t.IsTyped() {
		return models.TemplateType{}, false
	}
	return s.Type(*t.TypeID)
}

// MasterSnippets returns the snippets of the master of a template's type
func (s State) MasterSnippets(templateID string) []models.Snippet {
	tt, ok := s.ResolvedType(templateID)
	if !ok {
		return nil
	}
	master, ok := s.Template(tt.MasterTemplateID)
	if !ok {
		return nil
	}
	return append([]models.Snippet(nil), master.Snippets...)
}

// Vocabulary returns the categories a template's snippets may use: the master's
// categories for a typed template, the global list otherwise. Blank always comes first.
func (s State) Vocabulary(templateID string) []string {
	if _, ok := s.ResolvedType(templateID); !ok {
		return append([]string(nil), models.GlobalCategories...)
	}
	vocab := []string{models.CategoryBlank}
	seen := map[string]bool{models.CategoryBlank: true}
	for _, sn := range s.MasterSnippets(templateID) {
		if !seen[sn.Category] {
			seen[sn.Category] = true
			vocab = append(vocab, sn.Category)
		}
	}
	return vocab
}

// CategoryOption is one selectable category for a snippet
type CategoryOption struct {
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

// CategoryOptions lists the categories a snippet may switch to. A category used by
// another snippet of the same template is disabled, except Blank and the snippet's own.
func (s State) CategoryOptions(snippetID string) ([]CategoryOption, error) {
	sn, templateID, ok := s.Snippet(snippetID)
	if !ok {
		return nil, apperrors.NotFoundError("Snippet", snippetID)
	}
	t, _ := s.Template(templateID)

	usedByOthers := map[string]bool{}
	for _, other := range t.Snippets {
		if other.ID != sn.ID {
			usedByOthers[other.Category] = true
		}
	}

	vocab := s.Vocabulary(templateID)
	hasOwn := false
	options := make([]CategoryOption, 0, len(vocab)+1)
	for _, cat := range vocab {
		if cat == sn.Category {
			hasOwn = true
		}
		disabled := usedByOthers[cat] && cat != models.CategoryBlank && cat != sn.Category
		options = append(options, CategoryOption{Name: cat, Disabled: disabled})
	}
	// a category outside the vocabulary (e.g. after a type change) stays selectable
	if !hasOwn {
		options = append(options, CategoryOption{Name: sn.Category})
	}
	return options, nil
}

// nextTemplateOrder appends after every template
func (s State) nextTemplateOrder() int {
	next := len(s.Templates)
	for _, t := range s.Templates {
		if t.SortOrder >= next {
			next = t.SortOrder + 1
		}
	}
	return next
}

// ---- transitions ---------------------------------------------------------

// AddTemplate appends a template named "New Template" and makes it active
func (s State) AddTemplate(id string, now time.Time) (State, []Effect) {
	next := s.clone()
	t := models.Template{
		ID:        id,
		UserID:    s.UserID,
		Name:      models.DefaultTemplateName,
		SortOrder: s.nextTemplateOrder(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	next.Templates = append(next.Templates, models.TemplateWithSnippets{Template: t, Snippets: []models.Snippet{}})
	next.ActiveID = id
	return next, []Effect{CreateTemplate{Template: t}}
}

// SetActive selects the active template
func (s State) SetActive(id string) (State, error) {
	if s.templateIndex(id) < 0 {
		return s, apperrors.NotFoundError("Template", id)
	}
	next := s.clone()
	next.ActiveID = id
	return next, nil
}

// DeletePlan describes what deleting a template would do
type DeletePlan struct {
	TemplateID string `json:"template_id"`
	// Refused is set when the template is the only one left
	Refused bool `json:"refused"`
	// IsMaster is set when the template anchors a type, which is deleted with it
	IsMaster bool   `json:"is_master"`
	TypeID   string `json:"type_id,omitempty"`
	TypeName string `json:"type_name,omitempty"`
	// AffectedTemplates are the other templates that lose their type
	AffectedTemplates []string `json:"affected_templates,omitempty"`
}

// NeedsConfirmation reports whether the delete must be confirmed by the caller
func (p DeletePlan) NeedsConfirmation() bool {
	return p.IsMaster
}

// PlanDeleteTemplate computes the consequences of deleting a template
func (s State) PlanDeleteTemplate(id string) (DeletePlan, error) {
	if s.templateIndex(id) < 0 {
		return DeletePlan{}, apperrors.NotFoundError("Template", id)
	}
	plan := DeletePlan{TemplateID: id, Refused: len(s.Templates) <= 1}
	if tt, ok := s.typeMastered(id); ok {
		plan.IsMaster = true
		plan.TypeID = tt.ID
		plan.TypeName = tt.Name
		for _, t := range s.Templates {
			if t.ID != id && t.HasType(tt.ID) {
				plan.AffectedTemplates = append(plan.AffectedTemplates, t.ID)
			}
		}
	}
	return plan, nil
}

// DeleteTemplate removes a template. The only template is never deleted, and a
// master template is deleted only when confirmed; it takes its type along and
// every template referencing that type becomes untyped.
func (s State) DeleteTemplate(id string, confirmed bool) (State, []Effect, error) {
	plan, err := s.PlanDeleteTemplate(id)
	if err != nil {
		return s, nil, err
	}
	if plan.Refused {
		return s, nil, apperrors.NewAppError(apperrors.ErrCodeLastTemplate, "Cannot delete the only template").
			WithContext("template_id", id)
	}
	if plan.NeedsConfirmation() && !confirmed {
		return s, nil, apperrors.NewAppError(apperrors.ErrCodeConfirmationRequired,
			fmt.Sprintf("Deleting this template also deletes the type %q; %d other template(s) will become untyped", plan.TypeName, len(plan.AffectedTemplates))).
			WithContext("plan", plan).
			WithContext("affected_count", len(plan.AffectedTemplates))
	}

	next := s.clone()
	effects := []Effect{DeleteTemplate{ID: id}}

	i := next.templateIndex(id)
	next.Templates = append(next.Templates[:i], next.Templates[i+1:]...)

	values := next.Values[:0]
	for _, v := range next.Values {
		if v.TemplateID != id {
			values = append(values, v)
		}
	}
	next.Values = values

	if plan.IsMaster {
		types := next.Types[:0]
		for _, tt := range next.Types {
			if tt.ID != plan.TypeID {
				types = append(types, tt)
			}
		}
		next.Types = types
		effects = append(effects, DeleteTemplateType{ID: plan.TypeID})

		for k := range next.Templates {
			if next.Templates[k].HasType(plan.TypeID) {
				next.Templates[k].TypeID = nil
				effects = append(effects, UpdateTemplate{ID: next.Templates[k].ID, Patch: gateway.TemplatePatch{SetType: true}})
			}
		}
	}

	if next.ActiveID == id {
		next.ActiveID = ""
		if len(next.Templates) > 0 {
			next.ActiveID = next.Templates[0].ID
		}
	}
	return next, effects, nil
}

// RenameTemplate sets a template's name. Blank names are ignored.
func (s State) RenameTemplate(id, name string) (State, []Effect, error) {
	i := s.templateIndex(id)
	if i < 0 {
		return s, nil, apperrors.NotFoundError("Template", id)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return s, nil, nil
	}
	next := s.clone()
	next.Templates[i].Name = name
	return next, []Effect{UpdateTemplate{ID: id, Patch: gateway.TemplatePatch{Name: &name}}}, nil
}

// reorderIDs returns the final id order: listed known ids first, then every
// unlisted id in its current order. Unknown and repeated ids are dropped.
func reorderIDs(current []string, requested []string) []string {
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	placed := make(map[string]bool, len(current))
	order := make([]string, 0, len(current))
	for _, id := range requested {
		if known[id] && !placed[id] {
			placed[id] = true
			order = append(order, id)
		}
	}
	for _, id := range current {
		if !placed[id] {
			order = append(order, id)
		}
	}
	return order
}

// ReorderTemplates assigns positions 0..n-1 following ids. Every template gets
// one update, issued concurrently by the runner.
func (s State) ReorderTemplates(ids []string) (State, []Effect) {
	current := make([]string, len(s.Templates))
	for i, t := range s.Templates {
		current[i] = t.ID
	}
	order := reorderIDs(current, ids)

	next := s.clone()
	effects := make([]Effect, 0, len(order))
	for pos, id := range order {
		i := next.templateIndex(id)
		next.Templates[i].SortOrder = pos
		p := pos
		effects = append(effects, UpdateTemplate{ID: id, Patch: gateway.TemplatePatch{SortOrder: &p}})
	}
	models.SortTemplates(next.Templates)
	return next, effects
}

// ReorderSnippets assigns positions 0..n-1 to a template's snippets following ids
func (s State) ReorderSnippets(templateID string, ids []string) (State, []Effect, error) {
	ti := s.templateIndex(templateID)
	if ti < 0 {
		return s, nil, apperrors.NotFoundError("Template", templateID)
	}
	current := make([]string, len(s.Templates[ti].Snippets))
	for i, sn := range s.Templates[ti].Snippets {
		current[i] = sn.ID
	}
	order := reorderIDs(current, ids)

	next := s.clone()
	t := &next.Templates[ti]
	effects := make([]Effect, 0, len(order))
	for pos, id := range order {
		sn, _ := t.Snippet(id)
		sn.SortOrder = pos
		p := pos
		effects = append(effects, UpdateSnippet{ID: id, Patch: gateway.SnippetPatch{SortOrder: &p}})
	}
	t.SortSnippets()
	return next, effects, nil
}

// SetTemplateType sets or, with a nil typeID, clears a template's type.
// Snippet categories are left as they are.
func (s State) SetTemplateType(templateID string, typeID *string) (State, []Effect, error) {
	i := s.templateIndex(templateID)
	if i < 0 {
		return s, nil, apperrors.NotFoundError("Template", templateID)
	}
	if typeID != nil && *typeID == "" {
		typeID = nil
	}
	if typeID != nil {
		if _, ok := s.Type(*typeID); !ok {
			return s, nil, apperrors.NotFoundError("Template type", *typeID)
		}
	}
	next := s.clone()
	next.Templates[i].TypeID = copyString(typeID)
	return next, []Effect{UpdateTemplate{ID: templateID, Patch: gateway.TemplatePatch{SetType: true, TypeID: copyString(typeID)}}}, nil
}

// CreateTemplateType creates a type anchored to masterID and assigns it to the
// master. Blank names are ignored and return a zero type.
func (s State) CreateTemplateType(id, name, masterID string, now time.Time) (State, models.TemplateType, []Effect, error) {
	i := s.templateIndex(masterID)
	if i < 0 {
		return s, models.TemplateType{}, nil, apperrors.NotFoundError("Template", masterID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return s, models.TemplateType{}, nil, nil
	}

	tt := models.TemplateType{
		ID:               id,
		UserID:           s.UserID,
		Name:             name,
		MasterTemplateID: masterID,
		CreatedAt:        now,
	}
	next := s.clone()
	next.Types = append(next.Types, tt)
	typeID := id
	next.Templates[i].TypeID = &typeID

	return next, tt, []Effect{
		CreateTemplateType{Type: tt},
		UpdateTemplate{ID: masterID, Patch: gateway.TemplatePatch{SetType: true, TypeID: copyString(&typeID)}},
	}, nil
}

// NewSnippetDefaults returns the category, label and text a new snippet of a
// template starts with. Untyped templates start Blank and empty; typed templates
// start from the first master category the template does not use yet.
func (s State) NewSnippetDefaults(templateID string) (category, label, text string) {
	category, label, text = models.CategoryBlank, models.DefaultSnippetLabel, ""
	master := s.MasterSnippets(templateID)
	if len(master) == 0 {
		return
	}
	used := map[string]bool{}
	for _, c := range s.UsedCategories(templateID) {
		used[c] = true
	}
	for _, m := range master {
		if m.Category == models.CategoryBlank || used[m.Category] {
			continue
		}
		return m.Category, m.Label, m.Text
	}
	return
}

// AddSnippet appends an active snippet to a template
func (s State) AddSnippet(templateID, id string, now time.Time) (State, models.Snippet, []Effect, error) {
	i := s.templateIndex(templateID)
	if i < 0 {
		return s, models.Snippet{}, nil, apperrors.NotFoundError("Template", templateID)
	}
	category, label, text := s.NewSnippetDefaults(templateID)
	sn := models.Snippet{
		ID:         id,
		TemplateID: templateID,
		Category:   category,
		Label:      label,
		Text:       text,
		Active:     true,
		SortOrder:  s.Templates[i].NextSnippetOrder(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	next := s.clone()
	next.Templates[i].Snippets = append(next.Templates[i].Snippets, sn)
	return next, sn, []Effect{CreateSnippets{Snippets: []models.Snippet{sn}}}, nil
}

// SaveSnippet writes label, text and category of a snippet as one update
func (s State) SaveSnippet(id string, fields SnippetFields, now time.Time) (State, []Effect, error) {
	i, j := s.snippetIndex(id)
	if i < 0 {
		return s, nil, apperrors.NotFoundError("Snippet", id)
	}
	next := s.clone()
	sn := &next.Templates[i].Snippets[j]
	sn.Label = fields.Label
	sn.Text = fields.Text
	sn.Category = fields.Category
	sn.UpdatedAt = now

	label, text, category := fields.Label, fields.Text, fields.Category
	return next, []Effect{UpdateSnippet{ID: id, Patch: gateway.SnippetPatch{Label: &label, Text: &text, Category: &category}}}, nil
}

// ToggleSnippet flips a snippet's active flag
func (s State) ToggleSnippet(id string) (State, []Effect, error) {
	i, j := s.snippetIndex(id)
	if i < 0 {
		return s, nil, apperrors.NotFoundError("Snippet", id)
	}
	next := s.clone()
	sn := &next.Templates[i].Snippets[j]
	sn.Active = !sn.Active
	active := sn.Active
	return next, []Effect{UpdateSnippet{ID: id, Patch: gateway.SnippetPatch{Active: &active}}}, nil
}

// DeleteSnippet removes a snippet. Deleting an absent snippet changes nothing
// but still issues the idempotent gateway delete.
func (s State) DeleteSnippet(id string) (State, []Effect) {
	next := s.clone()
	if i, j := next.snippetIndex(id); i >= 0 {
		snippets := next.Templates[i].Snippets
		next.Templates[i].Snippets = append(snippets[:j], snippets[j+1:]...)
	}
	return next, []Effect{DeleteSnippet{ID: id}}
}

// SetPlaceholderValue records the value of key for a template, replacing any
// previous value. The returned effect is meant to be debounced.
func (s State) SetPlaceholderValue(templateID, key, value, id string) (State, UpsertPlaceholder, error) {
	if s.templateIndex(templateID) < 0 {
		return s, UpsertPlaceholder{}, apperrors.NotFoundError("Template", templateID)
	}
	next := s.clone()
	for k := range next.Values {
		v := &next.Values[k]
		if v.TemplateID == templateID && v.Key == key {
			v.Value = value
			return next, UpsertPlaceholder{Value: *v}, nil
		}
	}
	v := models.PlaceholderValue{ID: id, TemplateID: templateID, UserID: s.UserID, Key: key, Value: value}
	next.Values = append(next.Values, v)
	return next, UpsertPlaceholder{Value: v}, nil
}
