package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dpshade/prompt-composer/internal/models"
)

// Rows reference each other by id without foreign keys: effects reach the
// gateway concurrently, so a snippet may be written before its template.
// DeleteTemplate removes dependent rows itself.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS templates (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0,
	type_id TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_templates_user ON templates(user_id, sort_order);

CREATE TABLE IF NOT EXISTS snippets (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	category TEXT NOT NULL,
	label TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snippets_template ON snippets(template_id, sort_order);

CREATE TABLE IF NOT EXISTS template_types (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	master_template_id TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS placeholder_values (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL,
	UNIQUE(template_id, user_id, key)
);
`

const timeLayout = time.RFC3339Nano

// SQLite is a gateway backed by a local SQLite file
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection serializes writers and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initialize() error {
	if _, err := s.db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Path returns the database file path
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LoadUserData reads everything userID owns
func (s *SQLite) LoadUserData(ctx context.Context, userID string) (*models.UserData, error) {
	templates, err := s.loadTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	snippets, err := s.loadSnippets(ctx, userID)
	if err != nil {
		return nil, err
	}
	values, err := s.loadValues(ctx, userID)
	if err != nil {
		return nil, err
	}
	types, err := s.loadTypes(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.UserData{
		Templates:         assemble(templates, snippets),
		PlaceholderValues: values,
		TemplateTypes:     types,
	}, nil
}

func (s *SQLite) loadTemplates(ctx context.Context, userID string) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, sort_order, type_id, created_at, updated_at
		FROM templates WHERE user_id = ? ORDER BY sort_order`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var t models.Template
		var typeID sql.NullString
		var created, updated string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.SortOrder, &typeID, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if typeID.Valid {
			v := typeID.String
			t.TypeID = &v
		}
		t.CreatedAt = parseTime(created)
		t.UpdatedAt = parseTime(updated)
		out = append(out, t)
	}
	return out, rows.Err()
}

// loadSnippets selects snippets through their owning template
func (s *SQLite) loadSnippets(ctx context.Context, userID string) ([]models.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.template_id, s.category, s.label, s.text, s.active, s.sort_order, s.created_at, s.updated_at
		FROM snippets s
		JOIN templates t ON t.id = s.template_id
		WHERE t.user_id = ?
		ORDER BY s.sort_order`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snippets: %w", err)
	}
	defer rows.Close()

	var out []models.Snippet
	for rows.Next() {
		var sn models.Snippet
		var active int
		var created, updated string
		if err := rows.Scan(&sn.ID, &sn.TemplateID, &sn.Category, &sn.Label, &sn.Text, &active, &sn.SortOrder, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
		sn.Active = active != 0
		sn.CreatedAt = parseTime(created)
		sn.UpdatedAt = parseTime(updated)
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *SQLite) loadValues(ctx context.Context, userID string) ([]models.PlaceholderValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, user_id, key, value
		FROM placeholder_values WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query placeholder values: %w", err)
	}
	defer rows.Close()

	out := []models.PlaceholderValue{}
	for rows.Next() {
		var v models.PlaceholderValue
		if err := rows.Scan(&v.ID, &v.TemplateID, &v.UserID, &v.Key, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan placeholder value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLite) loadTypes(ctx context.Context, userID string) ([]models.TemplateType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, master_template_id, created_at
		FROM template_types WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query template types: %w", err)
	}
	defer rows.Close()

	out := []models.TemplateType{}
	for rows.Next() {
		var tt models.TemplateType
		var created string
		if err := rows.Scan(&tt.ID, &tt.UserID, &tt.Name, &tt.MasterTemplateID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan template type: %w", err)
		}
		tt.CreatedAt = parseTime(created)
		out = append(out, tt)
	}
	return out, rows.Err()
}

// CreateTemplate inserts a template row
func (s *SQLite) CreateTemplate(ctx context.Context, t models.Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, user_id, name, sort_order, type_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.SortOrder, nullable(t.TypeID), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

// UpdateTemplate patches a template row
func (s *SQLite) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) error {
	if patch.Empty() {
		return nil
	}
	return s.update(ctx, TableTemplates, id, patch.Columns())
}

// DeleteTemplate removes a template with its snippets and placeholder values
func (s *SQLite) DeleteTemplate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM snippets WHERE template_id = ?`,
		`DELETE FROM placeholder_values WHERE template_id = ?`,
		`DELETE FROM templates WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete template: %w", err)
		}
	}
	return tx.Commit()
}

// CreateSnippets inserts a batch of snippets in one transaction
func (s *SQLite) CreateSnippets(ctx context.Context, snippets []models.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snippets (id, template_id, category, label, text, active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snippet insert: %w", err)
	}
	defer stmt.Close()

	for _, sn := range snippets {
		if _, err := stmt.ExecContext(ctx, sn.ID, sn.TemplateID, sn.Category, sn.Label, sn.Text,
			boolInt(sn.Active), sn.SortOrder, formatTime(sn.CreatedAt), formatTime(sn.UpdatedAt)); err != nil {
			return fmt.Errorf("failed to insert snippet: %w", err)
		}
	}
	return tx.Commit()
}

// UpdateSnippet patches a snippet row
func (s *SQLite) UpdateSnippet(ctx context.Context, id string, patch SnippetPatch) error {
	if patch.Empty() {
		return nil
	}
	cols := patch.Columns()
	if active, ok := cols["active"].(bool); ok {
		cols["active"] = boolInt(active)
	}
	return s.update(ctx, TableSnippets, id, cols)
}

// DeleteSnippet removes a snippet row
func (s *SQLite) DeleteSnippet(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete snippet: %w", err)
	}
	return nil
}

// CreateTemplateType inserts a template type row
func (s *SQLite) CreateTemplateType(ctx context.Context, tt models.TemplateType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO template_types (id, user_id, name, master_template_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		tt.ID, tt.UserID, tt.Name, tt.MasterTemplateID, formatTime(tt.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert template type: %w", err)
	}
	return nil
}

// DeleteTemplateType removes a type and clears it from referencing templates
func (s *SQLite) DeleteTemplateType(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE templates SET type_id = NULL, updated_at = ? WHERE type_id = ?`, s.stamp(), id); err != nil {
		return fmt.Errorf("failed to clear template type: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM template_types WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete template type: %w", err)
	}
	return tx.Commit()
}

// UpsertPlaceholderValue inserts or replaces the value for (template, user, key)
func (s *SQLite) UpsertPlaceholderValue(ctx context.Context, v models.PlaceholderValue) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO placeholder_values (id, template_id, user_id, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(template_id, user_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		v.ID, v.TemplateID, v.UserID, v.Key, v.Value, s.stamp())
	if err != nil {
		return fmt.Errorf("failed to upsert placeholder value: %w", err)
	}
	return nil
}

// update writes cols to the row with the given id, stamping updated_at
func (s *SQLite) update(ctx context.Context, table, id string, cols map[string]interface{}) error {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]interface{}, 0, len(names)+2)
	for _, name := range names {
		sets = append(sets, name+" = ?")
		args = append(args, cols[name])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.stamp(), id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
