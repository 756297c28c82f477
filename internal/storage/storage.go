// Package storage exports a user's composer library to YAML and imports it back.
//
// The file format references templates by name rather than id, so a library can be
// moved between users and backends. Import always appends: existing templates are
// never overwritten.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/store"
)

// FormatVersion is written to every export
const FormatVersion = 1

// Library is the portable form of a user's data
type Library struct {
	Version    int               `yaml:"version"`
	ExportedAt time.Time         `yaml:"exported_at"`
	Templates  []LibraryTemplate `yaml:"templates"`
	Types      []LibraryType     `yaml:"types,omitempty"`
}

// LibraryTemplate is one template with its snippets and placeholder values
type LibraryTemplate struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type,omitempty"`
	Snippets []LibrarySnippet  `yaml:"snippets"`
	Values   map[string]string `yaml:"values,omitempty"`
}

type LibrarySnippet struct {
	Category string `yaml:"category"`
	Label    string `yaml:"label"`
	Text     string `yaml:"text"`
	Active   bool   `yaml:"active"`
}

// LibraryType names a type and its master template
type LibraryType struct {
	Name   string `yaml:"name"`
	Master string `yaml:"master"`
}

// Export converts a state snapshot into a library. Templates keep their order.
func Export(snap store.State, now time.Time) *Library {
	lib := &Library{Version: FormatVersion, ExportedAt: now.UTC()}

	names := make(map[string]string, len(snap.Templates))
	for _, t := range snap.Templates {
		names[t.ID] = t.Name
	}

	for _, t := range snap.Templates {
		lt := LibraryTemplate{Name: t.Name}
		if t.TypeID != nil {
			if tt, ok := snap.Type(*t.TypeID); ok {
				lt.Type = tt.Name
			}
		}
		for _, sn := range t.Snippets {
			lt.Snippets = append(lt.Snippets, LibrarySnippet{
				Category: sn.Category,
				Label:    sn.Label,
				Text:     sn.Text,
				Active:   sn.Active,
			})
		}
		if values := snap.ValueMap(t.ID); len(values) > 0 {
			lt.Values = values
		}
		lib.Templates = append(lib.Templates, lt)
	}

	for _, tt := range snap.Types {
		lib.Types = append(lib.Types, LibraryType{Name: tt.Name, Master: names[tt.MasterTemplateID]})
	}
	return lib
}

// Validate checks that every type reference resolves inside the library
func (l *Library) Validate() error {
	if l.Version != FormatVersion {
		return apperrors.ValidationError(fmt.Sprintf("unsupported library version %d", l.Version))
	}

	templates := map[string]bool{}
	for _, t := range l.Templates {
		if strings.TrimSpace(t.Name) == "" {
			return apperrors.ValidationError("library template has no name")
		}
		templates[t.Name] = true
	}

	types := map[string]bool{}
	for _, tt := range l.Types {
		if strings.TrimSpace(tt.Name) == "" {
			return apperrors.ValidationError("library type has no name")
		}
		if !templates[tt.Master] {
			return apperrors.ValidationError(fmt.Sprintf("type %q references unknown master %q", tt.Name, tt.Master))
		}
		types[tt.Name] = true
	}

	for _, t := range l.Templates {
		if t.Type != "" && !types[t.Type] {
			return apperrors.ValidationError(fmt.Sprintf("template %q references unknown type %q", t.Name, t.Type))
		}
	}
	return nil
}

// Encode writes the library as YAML
func (l *Library) Encode(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(l); err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}
	return encoder.Close()
}

// Decode reads and validates a YAML library
func Decode(r io.Reader) (*Library, error) {
	var lib Library
	if err := yaml.NewDecoder(r).Decode(&lib); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Cannot parse library")
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// WriteFile saves the library, replacing path atomically
func WriteFile(path string, lib *Library) error {
	var buf bytes.Buffer
	if err := lib.Encode(&buf); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write library: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace library: %w", err)
	}
	return nil
}

// ReadFile loads a library from disk
func ReadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ImportResult counts what an import created
type ImportResult struct {
	Templates int `json:"templates"`
	Snippets  int `json:"snippets"`
	Types     int `json:"types"`
	Values    int `json:"values"`
}

// Import appends the library to the store through regular store operations,
// so every change persists like an interactive edit. The active template is kept.
func Import(st *store.Store, lib *Library) (ImportResult, error) {
	var result ImportResult
	if err := lib.Validate(); err != nil {
		return result, err
	}

	previous := st.Snapshot().ActiveID
	ids := make(map[string]string, len(lib.Templates))
	created := make([]string, 0, len(lib.Templates))

	for _, lt := range lib.Templates {
		t := st.AddTemplate()
		if err := st.RenameTemplate(t.ID, lt.Name); err != nil {
			return result, err
		}
		// duplicate names resolve to the first template
		if _, seen := ids[lt.Name]; !seen {
			ids[lt.Name] = t.ID
		}
		created = append(created, t.ID)
		result.Templates++

		for _, ls := range lt.Snippets {
			sn, err := st.AddSnippet(t.ID)
			if err != nil {
				return result, err
			}
			fields := store.SnippetFields{Category: ls.Category, Label: ls.Label, Text: ls.Text}
			if fields.Category == "" {
				fields.Category = models.CategoryBlank
			}
			if err := st.SaveSnippet(sn.ID, fields); err != nil {
				return result, err
			}
			if !ls.Active {
				if err := st.ToggleSnippet(sn.ID); err != nil {
					return result, err
				}
			}
			result.Snippets++
		}

		for key, value := range lt.Values {
			if err := st.SetPlaceholderValue(t.ID, key, value); err != nil {
				return result, err
			}
			result.Values++
		}
	}

	typeIDs := make(map[string]string, len(lib.Types))
	for _, lt := range lib.Types {
		tt, err := st.CreateTemplateType(lt.Name, ids[lt.Master])
		if err != nil {
			return result, err
		}
		typeIDs[lt.Name] = tt.ID
		result.Types++
	}

	for i, lt := range lib.Templates {
		if lt.Type == "" {
			continue
		}
		typeID := typeIDs[lt.Type]
		if err := st.SetTemplateType(created[i], &typeID); err != nil {
			return result, err
		}
	}

	if previous != "" {
		if err := st.SetActive(previous); err != nil {
			return result, err
		}
	}
	return result, nil
}
