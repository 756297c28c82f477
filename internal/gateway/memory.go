package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dpshade/prompt-composer/internal/models"
)

// Operation names reported by Memory.Calls and used for failure injection
const (
	OpLoad               = "load"
	OpCreateTemplate     = "create_template"
	OpUpdateTemplate     = "update_template"
	OpDeleteTemplate     = "delete_template"
	OpCreateSnippets     = "create_snippets"
	OpUpdateSnippet      = "update_snippet"
	OpDeleteSnippet      = "delete_snippet"
	OpCreateTemplateType = "create_template_type"
	OpDeleteTemplateType = "delete_template_type"
	OpUpsertPlaceholder  = "upsert_placeholder"
)

// Memory is a process-local gateway
type Memory struct {
	mu        sync.Mutex
	templates map[string]models.Template
	snippets  map[string]models.Snippet
	types     map[string]models.TemplateType
	values    map[valueKey]models.PlaceholderValue
	calls     map[string]int
	failures  map[string]error
	now       func() time.Time
}

type valueKey struct {
	templateID string
	userID     string
	key        string
}

// NewMemory creates an empty in-memory gateway
func NewMemory() *Memory {
	return &Memory{
		templates: make(map[string]models.Template),
		snippets:  make(map[string]models.Snippet),
		types:     make(map[string]models.TemplateType),
		values:    make(map[valueKey]models.PlaceholderValue),
		calls:     make(map[string]int),
		failures:  make(map[string]error),
		now:       time.Now,
	}
}

// FailOn makes every later call of op return err. A nil err clears the failure.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op was invoked, failed calls included
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.calls[op]++
	return m.failures[op]
}

// LoadUserData returns a copy of everything userID owns
func (m *Memory) LoadUserData(ctx context.Context, userID string) (*models.UserData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpLoad); err != nil {
		return nil, err
	}

	var templates []models.Template
	for _, t := range m.templates {
		if t.UserID == userID {
			t.TypeID = copyString(t.TypeID)
			templates = append(templates, t)
		}
	}
	var snippets []models.Snippet
	for _, s := range m.snippets {
		snippets = append(snippets, s)
	}

	data := &models.UserData{
		Templates:         assemble(templates, snippets),
		PlaceholderValues: []models.PlaceholderValue{},
		TemplateTypes:     []models.TemplateType{},
	}
	for _, v := range m.values {
		if v.UserID == userID {
			data.PlaceholderValues = append(data.PlaceholderValues, v)
		}
	}
	for _, tt := range m.types {
		if tt.UserID == userID {
			data.TemplateTypes = append(data.TemplateTypes, tt)
		}
	}
	return data, nil
}

// CreateTemplate inserts a template row
func (m *Memory) CreateTemplate(ctx context.Context, t models.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateTemplate); err != nil {
		return err
	}
	t.TypeID = copyString(t.TypeID)
	m.templates[t.ID] = t
	return nil
}

// UpdateTemplate patches a template row; unknown ids are ignored
func (m *Memory) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpdateTemplate); err != nil {
		return err
	}
	t, ok := m.templates[id]
	if !ok {
		return nil
	}
	patch.Apply(&t)
	t.UpdatedAt = m.now()
	m.templates[id] = t
	return nil
}

// DeleteTemplate removes a template with its snippets and placeholder values
func (m *Memory) DeleteTemplate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDeleteTemplate); err != nil {
		return err
	}
	delete(m.templates, id)
	for sid, s := range m.snippets {
		if s.TemplateID == id {
			delete(m.snippets, sid)
		}
	}
	for k := range m.values {
		if k.templateID == id {
			delete(m.values, k)
		}
	}
	return nil
}

// CreateSnippets inserts a batch of snippet rows
func (m *Memory) CreateSnippets(ctx context.Context, snippets []models.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateSnippets); err != nil {
		return err
	}
	for _, s := range snippets {
		m.snippets[s.ID] = s
	}
	return nil
}

// UpdateSnippet patches a snippet row; unknown ids are ignored
func (m *Memory) UpdateSnippet(ctx context.Context, id string, patch SnippetPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpdateSnippet); err != nil {
		return err
	}
	s, ok := m.snippets[id]
	if !ok {
		return nil
	}
	patch.Apply(&s)
	s.UpdatedAt = m.now()
	m.snippets[id] = s
	return nil
}

// DeleteSnippet removes a snippet row
func (m *Memory) DeleteSnippet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDeleteSnippet); err != nil {
		return err
	}
	delete(m.snippets, id)
	return nil
}

// CreateTemplateType inserts a template type row
func (m *Memory) CreateTemplateType(ctx context.Context, tt models.TemplateType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateTemplateType); err != nil {
		return err
	}
	m.types[tt.ID] = tt
	return nil
}

// DeleteTemplateType removes a type and clears it from referencing templates
func (m *Memory) DeleteTemplateType(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDeleteTemplateType); err != nil {
		return err
	}
	delete(m.types, id)
	for tid, t := range m.templates {
		if t.HasType(id) {
			t.TypeID = nil
			m.templates[tid] = t
		}
	}
	return nil
}

// UpsertPlaceholderValue inserts or replaces the value for (template, user, key)
func (m *Memory) UpsertPlaceholderValue(ctx context.Context, v models.PlaceholderValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpsertPlaceholder); err != nil {
		return err
	}
	k := valueKey{templateID: v.TemplateID, userID: v.UserID, key: v.Key}
	if existing, ok := m.values[k]; ok {
		v.ID = existing.ID
	} else if v.ID == "" {
		v.ID = uuid.NewString()
	}
	m.values[k] = v
	return nil
}
