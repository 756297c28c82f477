package gateway

import (
	"context"
	"fmt"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/models"
)

// Querier starts PostgREST queries. Both *supa.Client and *postgrest.Client satisfy it.
type Querier interface {
	From(table string) *postgrest.QueryBuilder
}

// Supabase is a gateway backed by the PostgREST API of a Supabase project.
// Cascades are the database's job: snippets and placeholder_values reference
// templates with ON DELETE CASCADE and templates.type_id is ON DELETE SET NULL.
type Supabase struct {
	client Querier
	now    func() time.Time
}

// NewSupabase wraps an existing client
func NewSupabase(client Querier) *Supabase {
	return &Supabase{client: client, now: time.Now}
}

// DialSupabase creates a Supabase client for url and key
func DialSupabase(url, key string) (*supa.Client, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
	}
	return client, nil
}

func (s *Supabase) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// snippetRow is a snippet as returned by the inner join on templates
type snippetRow struct {
	models.Snippet
	Templates map[string]interface{} `json:"templates,omitempty"`
}

// LoadUserData fetches the four tables in parallel
func (s *Supabase) LoadUserData(ctx context.Context, userID string) (*models.UserData, error) {
	var (
		templates []models.Template
		rows      []snippetRow
		values    []models.PlaceholderValue
		types     []models.TemplateType
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		_, err := s.client.From(TableTemplates).
			Select("*", "", false).
			Eq("user_id", userID).
			Order("sort_order", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&templates)
		if err != nil {
			return apperrors.NetworkError("load templates", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		// snippets carry no user_id; filter through the owning template
		_, err := s.client.From(TableSnippets).
			Select("*, templates!inner(user_id)", "", false).
			Eq("templates.user_id", userID).
			Order("sort_order", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&rows)
		if err != nil {
			return apperrors.NetworkError("load snippets", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		_, err := s.client.From(TablePlaceholderValues).
			Select("*", "", false).
			Eq("user_id", userID).
			ExecuteTo(&values)
		if err != nil {
			return apperrors.NetworkError("load placeholder values", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		_, err := s.client.From(TableTemplateTypes).
			Select("*", "", false).
			Eq("user_id", userID).
			ExecuteTo(&types)
		if err != nil {
			return apperrors.NetworkError("load template types", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snippets := make([]models.Snippet, 0, len(rows))
	for _, r := range rows {
		snippets = append(snippets, r.Snippet)
	}
	if values == nil {
		values = []models.PlaceholderValue{}
	}
	if types == nil {
		types = []models.TemplateType{}
	}

	return &models.UserData{
		Templates:         assemble(templates, snippets),
		PlaceholderValues: values,
		TemplateTypes:     types,
	}, nil
}

// CreateTemplate inserts a template row
func (s *Supabase) CreateTemplate(ctx context.Context, t models.Template) error {
	_, _, err := s.client.From(TableTemplates).
		Insert(t, false, "", "minimal", "").
		Execute()
	if err != nil {
		return apperrors.NetworkError("insert template", err)
	}
	return nil
}

// UpdateTemplate patches a template row
func (s *Supabase) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) error {
	if patch.Empty() {
		return nil
	}
	cols := patch.Columns()
	cols["updated_at"] = s.stamp()
	_, _, err := s.client.From(TableTemplates).
		Update(cols, "minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return apperrors.NetworkError("update template", err)
	}
	return nil
}

// DeleteTemplate removes a template row; the database cascades to its snippets and values
func (s *Supabase) DeleteTemplate(ctx context.Context, id string) error {
	_, _, err := s.client.From(TableTemplates).
		Delete("minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return apperrors.NetworkError("delete template", err)
	}
	return nil
}

// CreateSnippets inserts a batch of snippet rows in one request
func (s *Supabase) CreateSnippets(ctx context.Context, snippets []models.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	_, _, err := s.client.From(TableSnippets).
		Insert(snippets, false, "", "minimal", "").
		Execute()
	if err != nil {
		return apperrors.NetworkError("insert snippets", err)
	}
	return nil
}

// UpdateSnippet patches a snippet row
func (s *Supabase) UpdateSnippet(ctx context.Context, id string, patch SnippetPatch) error {
	if patch.Empty() {
		return nil
	}
	cols := patch.Columns()
	cols["updated_at"] = s.stamp()
	_, _, err := s.client.From(TableSnippets).
		Update(cols, "minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return apperrors.NetworkError("update snippet", err)
	}
	return nil
}

// DeleteSnippet removes a snippet row
func (s *Supabase) DeleteSnippet(ctx context.Context, id string) error {
	_, _, err := s.client.From(TableSnippets).
		Delete("minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return apperrors.NetworkError("delete snippet", err)
	}
	return nil
}

// CreateTemplateType inserts a template type row
func (s *Supabase) CreateTemplateType(ctx context.Context, tt models.TemplateType) error {
	_, _, err := s.client.From(TableTemplateTypes).
		Insert(tt, false, "", "minimal", "").
		Execute()
	if err != nil {
		return apperrors.NetworkError("insert template type", err)
	}
	return nil
}

// DeleteTemplateType removes a type row; referencing templates are cleared by the database
func (s *Supabase) DeleteTemplateType(ctx context.Context, id string) error {
	_, _, err := s.client.From(TableTemplateTypes).
		Delete("minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return apperrors.NetworkError("delete template type", err)
	}
	return nil
}

// UpsertPlaceholderValue writes the value for (template, user, key), merging on conflict
func (s *Supabase) UpsertPlaceholderValue(ctx context.Context, v models.PlaceholderValue) error {
	row := map[string]interface{}{
		"template_id": v.TemplateID,
		"user_id":     v.UserID,
		"key":         v.Key,
		"value":       v.Value,
		"updated_at":  s.stamp(),
	}
	_, _, err := s.client.From(TablePlaceholderValues).
		Upsert(row, PlaceholderConflictColumns, "minimal", "").
		Execute()
	if err != nil {
		return apperrors.NetworkError("upsert placeholder value", err)
	}
	return nil
}
