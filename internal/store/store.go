// Package store is the composition store: the in-memory state of one user's
// templates, snippets, types and placeholder values.
//
// Every operation updates the state synchronously and hands the resulting
// persistence effects to an AsyncRunner. Placeholder writes are debounced per
// template and key. A failed effect is logged and reported but never undone.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/debounce"
	apperrors "github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/metrics"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/renderer"
	"github.com/dpshade/prompt-composer/internal/seed"
)

// DefaultDebounce is the quiescence window of placeholder writes
const DefaultDebounce = 300 * time.Millisecond

// Options tune a Store. Zero values select the defaults.
type Options struct {
	Debounce time.Duration
	Catalog  *seed.Catalog
	NewID    func() string
	Now      func() time.Time
	OnError  func(Effect, error)
}

// Store serializes operations on one user's state
type Store struct {
	userID string

	mu    sync.Mutex
	state State

	gw       gateway.Gateway
	runner   *AsyncRunner
	debounce *debounce.Keyed
	catalog  *seed.Catalog
	log      *logrus.Entry

	newID func() string
	now   func() time.Time
}

// New creates a store for userID. The store holds no data until Load is called.
func New(userID string, gw gateway.Gateway, log *logrus.Entry, opts Options) (*Store, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.UnauthorizedError("a user id is required to open a store")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("user_id", userID)

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Catalog == nil {
		opts.Catalog = seed.Default()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	runner := NewAsyncRunner(gw, log)
	if opts.OnError != nil {
		runner.OnError(opts.OnError)
	}

	return &Store{
		userID:   userID,
		state:    State{UserID: userID},
		gw:       gw,
		runner:   runner,
		debounce: debounce.New(opts.Debounce),
		catalog:  opts.Catalog,
		log:      log,
		newID:    opts.NewID,
		now:      opts.Now,
	}, nil
}

// UserID returns the owner of the store
func (s *Store) UserID() string {
	return s.userID
}

// Load fetches the user's data. A user without templates first receives the
// default catalog.
func (s *Store) Load(ctx context.Context) error {
	userID := s.UserID()
	data, err := s.gw.LoadUserData(ctx, userID)
	if err != nil {
		return apperrors.StorageError("load user data", err)
	}

	if len(data.Templates) == 0 && len(s.catalog.Templates) > 0 {
		seeded := s.seed(ctx)
		s.log.WithField("templates", seeded).Info("Seeded default templates")
		if data, err = s.gw.LoadUserData(ctx, userID); err != nil {
			return apperrors.StorageError("load user data", err)
		}
	}

	s.mu.Lock()
	s.state = NewState(userID, data)
	s.mu.Unlock()
	return nil
}

// seed writes the catalog for an empty library. A template whose insert fails
// is skipped together with its snippets.
func (s *Store) seed(ctx context.Context) int {
	seeded := 0
	now := s.now()
	for i, dt := range s.catalog.Templates {
		t := models.Template{
			ID:        s.newID(),
			UserID:    s.UserID(),
			Name:      dt.Name,
			SortOrder: i,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.gw.CreateTemplate(ctx, t); err != nil {
			s.log.WithError(err).WithField("template", dt.Name).Warn("Skipping default template")
			continue
		}
		seeded++

		snippets := make([]models.Snippet, 0, len(dt.Snippets))
		for _, ds := range dt.Snippets {
			snippets = append(snippets, models.Snippet{
				ID:         s.newID(),
				TemplateID: t.ID,
				Category:   ds.Category,
				Label:      ds.Label,
				Text:       ds.Text,
				Active:     ds.Active,
				SortOrder:  ds.SortOrder,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		if len(snippets) == 0 {
			continue
		}
		if err := s.gw.CreateSnippets(ctx, snippets); err != nil {
			s.log.WithError(err).WithField("template", dt.Name).Warn("Failed to seed snippets")
		}
	}
	return seeded
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// commit installs next and submits its effects; callers hold s.mu
func (s *Store) commit(op string, next State, effects []Effect) {
	s.state = next
	metrics.OperationsTotal.WithLabelValues(op).Inc()
	if len(effects) > 0 {
		s.runner.Submit(effects...)
	}
}

// AddTemplate appends an empty template and makes it active
func (s *Store) AddTemplate() models.TemplateWithSnippets {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	next, effects := s.state.AddTemplate(id, s.now())
	s.commit("add_template", next, effects)
	t, _ := next.Template(id)
	return t
}

// SetActive selects the active template
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.SetActive(id)
	if err != nil {
		return err
	}
	s.commit("set_active", next, nil)
	return nil
}

// PlanDeleteTemplate reports what deleting a template would do
func (s *Store) PlanDeleteTemplate(id string) (DeletePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PlanDeleteTemplate(id)
}

// DeleteTemplate deletes a template. A master template needs confirmed=true.
func (s *Store) DeleteTemplate(id string, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.state.DeleteTemplate(id, confirmed)
	if err != nil {
		return err
	}
	s.commit("delete_template", next, effects)
	return nil
}

// RenameTemplate renames a template; a blank name changes nothing
func (s *Store) RenameTemplate(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.state.RenameTemplate(id, name)
	if err != nil {
		return err
	}
	s.commit("rename_template", next, effects)
	return nil
}

// ReorderTemplates moves templates into the order of ids
func (s *Store) ReorderTemplates(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects := s.state.ReorderTemplates(ids)
	s.commit("reorder_templates", next, effects)
}

// ReorderSnippets moves a template's snippets into the order of ids
func (s *Store) ReorderSnippets(templateID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.state.ReorderSnippets(templateID, ids)
	if err != nil {
		return err
	}
	s.commit("reorder_snippets", next, effects)
	return nil
}

// SetTemplateType assigns a type to a template, or clears it when typeID is nil
func (s *Store) SetTemplateType(templateID string, typeID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.state.SetTemplateType(templateID, typeID)
	if err != nil {
		return err
	}
	s.commit("set_template_type", next, effects)
	return nil
}

// CreateTemplateType creates a type whose master is masterID. A blank name
// returns a zero type and no error.
func (s *Store) CreateTemplateType(name, masterID string) (models.TemplateType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, tt, effects, err := s.state.CreateTemplateType(s.newID(), name, masterID, s.now())
	if err != nil || tt.ID == "" {
		return tt, err
	}
	s.commit("create_template_type", next, effects)
	return tt, nil
}

// AddSnippet appends a snippet to a template
func (s *Store) AddSnippet(templateID string) (models.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, sn, effects, err := s.state.AddSnippet(templateID, s.newID(), s.now())
	if err != nil {
		return models.Snippet{}, err
	}
	s.commit("add_snippet", next, effects)
	return sn, nil
}

// BeginEdit opens a draft of a snippet
func (s *Store) BeginEdit(snippetID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn, templateID, ok := s.state.Snippet(snippetID)
	if !ok {
		return nil, apperrors.NotFoundError("Snippet", snippetID)
	}
	_, typed := s.state.ResolvedType(templateID)
	return newDraft(sn, typed, s.state.MasterSnippets(templateID)), nil
}

// SaveDraft persists the draft's label, text and category together. A clean
// draft is not written.
func (s *Store) SaveDraft(d *Draft) error {
	if !d.Dirty() {
		return nil
	}
	if err := s.SaveSnippet(d.SnippetID, d.Current()); err != nil {
		return err
	}
	d.markSaved()
	return nil
}

// SaveSnippet writes a snippet's editable fields in one update
func (s *Store) SaveSnippet(id string, fields SnippetFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.state.SaveSnippet(id, fields, s.now())
	if err != nil {
		return err
	}
	s.commit("save_snippet", next, effects)
	return nil
}

// ToggleSnippet flips whether a snippet takes part in the preview
func (s *Store) ToggleSnippet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := s.state.ToggleSnippet(id)
	if err != nil {
		return err
	}
	s.commit("toggle_snippet", next, effects)
	return nil
}

// DeleteSnippet removes a snippet
func (s *Store) DeleteSnippet(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects := s.state.DeleteSnippet(id)
	s.commit("delete_snippet", next, effects)
}

// SetPlaceholderValue stores a value locally and schedules its durable write.
// Writes to the same template and key within the debounce window collapse into
// one upsert of the last value.
func (s *Store) SetPlaceholderValue(templateID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effect, err := s.state.SetPlaceholderValue(templateID, key, value, s.newID())
	if err != nil {
		return err
	}
	s.commit("set_placeholder", next, nil)
	s.debounce.Trigger(templateID+"-"+key, func() {
		s.runner.Submit(effect)
	})
	return nil
}

// CategoryOptions lists the categories a snippet may take
func (s *Store) CategoryOptions(snippetID string) ([]CategoryOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CategoryOptions(snippetID)
}

// Preview returns a renderer over a template's snippets and values. An empty
// id selects the active template.
func (s *Store) Preview(templateID string) (*renderer.Renderer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if templateID == "" {
		templateID = s.state.ActiveID
	}
	t, ok := s.state.Template(templateID)
	if !ok {
		return nil, apperrors.NotFoundError("Template", templateID)
	}
	return renderer.NewRenderer(t.Snippets, s.state.ValueMap(templateID)), nil
}

// SearchTemplates fuzzy-matches templates by name and snippet labels. An empty
// query returns every template.
func (s *Store) SearchTemplates(query string) []models.TemplateWithSnippets {
	snap := s.Snapshot()
	if strings.TrimSpace(query) == "" {
		return snap.Templates
	}

	searchStrings := make([]string, len(snap.Templates))
	for i, t := range snap.Templates {
		labels := make([]string, 0, len(t.Snippets))
		for _, sn := range t.Snippets {
			labels = append(labels, sn.Label)
		}
		searchStrings[i] = fmt.Sprintf("%s %s", t.Name, strings.Join(labels, " "))
	}

	var results []models.TemplateWithSnippets
	for _, match := range fuzzy.Find(query, searchStrings) {
		results = append(results, snap.Templates[match.Index])
	}
	return results
}

// Flush issues pending placeholder writes and waits for every effect
func (s *Store) Flush() {
	s.debounce.Flush()
	s.runner.Wait()
}

// Close flushes pending writes. Later placeholder writes are issued without delay.
func (s *Store) Close() {
	s.debounce.Stop()
	s.runner.Wait()
}
