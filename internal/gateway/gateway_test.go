package gateway

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dpshade/prompt-composer/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

// backends returns every local gateway implementation under test
func backends(t *testing.T) map[string]Gateway {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "composer.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Gateway{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func seedTemplate(t *testing.T, gw Gateway, id, user string, order int, snippets ...models.Snippet) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	if err := gw.CreateTemplate(ctx, models.Template{ID: id, UserID: user, Name: id, SortOrder: order, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	for i := range snippets {
		snippets[i].TemplateID = id
	}
	if err := gw.CreateSnippets(ctx, snippets); err != nil {
		t.Fatalf("CreateSnippets failed: %v", err)
	}
}

func TestLoadUserDataScopesAndSorts(t *testing.T) {
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedTemplate(t, gw, "b", "u1", 5,
				models.Snippet{ID: "b2", Category: "Blank", Label: "two", SortOrder: 1, Active: true},
				models.Snippet{ID: "b1", Category: "Blank", Label: "one", SortOrder: 0, Active: false},
			)
			seedTemplate(t, gw, "a", "u1", 2)
			seedTemplate(t, gw, "other", "u2", 0, models.Snippet{ID: "o1", Category: "Blank"})

			data, err := gw.LoadUserData(ctx, "u1")
			if err != nil {
				t.Fatalf("LoadUserData failed: %v", err)
			}
			if len(data.Templates) != 2 {
				t.Fatalf("Expected 2 templates, got %d", len(data.Templates))
			}
			if data.Templates[0].ID != "a" || data.Templates[1].ID != "b" {
				t.Errorf("Expected order [a b], got [%s %s]", data.Templates[0].ID, data.Templates[1].ID)
			}
			snips := data.Templates[1].Snippets
			if len(snips) != 2 || snips[0].ID != "b1" || snips[1].ID != "b2" {
				t.Errorf("Expected snippets [b1 b2], got %+v", snips)
			}
			if snips[0].Active {
				t.Error("Expected b1 to stay inactive")
			}
		})
	}
}

func TestUpsertPlaceholderKeepsOneRow(t *testing.T) {
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedTemplate(t, gw, "t", "u1", 0)
			for _, v := range []string{"first", "second", "third"} {
				if err := gw.UpsertPlaceholderValue(ctx, models.PlaceholderValue{TemplateID: "t", UserID: "u1", Key: "tone", Value: v}); err != nil {
					t.Fatalf("Upsert failed: %v", err)
				}
			}
			if err := gw.UpsertPlaceholderValue(ctx, models.PlaceholderValue{TemplateID: "t", UserID: "u1", Key: "who", Value: "devs"}); err != nil {
				t.Fatal(err)
			}

			data, err := gw.LoadUserData(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if len(data.PlaceholderValues) != 2 {
				t.Fatalf("Expected 2 rows, got %d", len(data.PlaceholderValues))
			}
			for _, v := range data.PlaceholderValues {
				if v.Key == "tone" && v.Value != "third" {
					t.Errorf("Expected last write to win, got %q", v.Value)
				}
			}
		})
	}
}

func TestDeleteTemplateCascades(t *testing.T) {
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedTemplate(t, gw, "keep", "u1", 0, models.Snippet{ID: "k1", Category: "Blank"})
			seedTemplate(t, gw, "gone", "u1", 1, models.Snippet{ID: "g1", Category: "Blank"})
			if err := gw.UpsertPlaceholderValue(ctx, models.PlaceholderValue{TemplateID: "gone", UserID: "u1", Key: "x", Value: "1"}); err != nil {
				t.Fatal(err)
			}

			if err := gw.DeleteTemplate(ctx, "gone"); err != nil {
				t.Fatalf("DeleteTemplate failed: %v", err)
			}
			if err := gw.DeleteTemplate(ctx, "gone"); err != nil {
				t.Errorf("Expected second delete to be a no-op, got %v", err)
			}

			data, err := gw.LoadUserData(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if len(data.Templates) != 1 || data.Templates[0].ID != "keep" {
				t.Errorf("Expected only 'keep' to remain, got %+v", data.Templates)
			}
			if len(data.PlaceholderValues) != 0 {
				t.Errorf("Expected placeholder values to be removed, got %+v", data.PlaceholderValues)
			}

			// re-creating the id must not resurrect old snippets
			seedTemplate(t, gw, "gone", "u1", 2)
			data, _ = gw.LoadUserData(ctx, "u1")
			for _, tpl := range data.Templates {
				if tpl.ID == "gone" && len(tpl.Snippets) != 0 {
					t.Errorf("Expected snippets to be deleted with their template, got %+v", tpl.Snippets)
				}
			}
		})
	}
}

func TestUpdatesApplyPatches(t *testing.T) {
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedTemplate(t, gw, "t", "u1", 0, models.Snippet{ID: "s", Category: "Blank", Label: "old", Text: "x", Active: true})

			if err := gw.UpdateTemplate(ctx, "t", TemplatePatch{Name: strPtr("Renamed"), SortOrder: intPtr(3), SetType: true, TypeID: strPtr("ty")}); err != nil {
				t.Fatal(err)
			}
			if err := gw.UpdateSnippet(ctx, "s", SnippetPatch{Label: strPtr("new"), Active: boolPtr(false)}); err != nil {
				t.Fatal(err)
			}
			if err := gw.UpdateSnippet(ctx, "missing", SnippetPatch{Label: strPtr("x")}); err != nil {
				t.Errorf("Expected update of unknown id to be ignored, got %v", err)
			}

			data, err := gw.LoadUserData(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			tpl := data.Templates[0]
			if tpl.Name != "Renamed" || tpl.SortOrder != 3 || !tpl.HasType("ty") {
				t.Errorf("Unexpected template after patch: %+v", tpl.Template)
			}
			s := tpl.Snippets[0]
			if s.Label != "new" || s.Active || s.Text != "x" {
				t.Errorf("Unexpected snippet after patch: %+v", s)
			}

			if err := gw.UpdateTemplate(ctx, "t", TemplatePatch{SetType: true}); err != nil {
				t.Fatal(err)
			}
			data, _ = gw.LoadUserData(ctx, "u1")
			if data.Templates[0].IsTyped() {
				t.Error("Expected type to be cleared")
			}
		})
	}
}

func TestDeleteTemplateTypeClearsReferences(t *testing.T) {
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedTemplate(t, gw, "master", "u1", 0)
			seedTemplate(t, gw, "child", "u1", 1)
			if err := gw.CreateTemplateType(ctx, models.TemplateType{ID: "ty", UserID: "u1", Name: "Brief", MasterTemplateID: "master", CreatedAt: time.Now()}); err != nil {
				t.Fatal(err)
			}
			for _, id := range []string{"master", "child"} {
				if err := gw.UpdateTemplate(ctx, id, TemplatePatch{SetType: true, TypeID: strPtr("ty")}); err != nil {
					t.Fatal(err)
				}
			}

			data, _ := gw.LoadUserData(ctx, "u1")
			if len(data.TemplateTypes) != 1 || data.TemplateTypes[0].MasterTemplateID != "master" {
				t.Fatalf("Unexpected types %+v", data.TemplateTypes)
			}

			if err := gw.DeleteTemplateType(ctx, "ty"); err != nil {
				t.Fatal(err)
			}
			if err := gw.DeleteTemplateType(ctx, "ty"); err != nil {
				t.Errorf("Expected second delete to be a no-op, got %v", err)
			}
			data, _ = gw.LoadUserData(ctx, "u1")
			if len(data.TemplateTypes) != 0 {
				t.Errorf("Expected no types, got %+v", data.TemplateTypes)
			}
			for _, tpl := range data.Templates {
				if tpl.IsTyped() {
					t.Errorf("Expected %s to be untyped", tpl.ID)
				}
			}
		})
	}
}

func TestSnippetBeforeTemplateIsAccepted(t *testing.T) {
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := gw.CreateSnippets(ctx, []models.Snippet{{ID: "early", TemplateID: "late", Category: "Blank"}}); err != nil {
				t.Fatalf("Expected out-of-order insert to succeed, got %v", err)
			}
			seedTemplate(t, gw, "late", "u1", 0)

			data, _ := gw.LoadUserData(ctx, "u1")
			if len(data.Templates[0].Snippets) != 1 {
				t.Errorf("Expected the early snippet to attach, got %+v", data.Templates[0].Snippets)
			}
		})
	}
}

func TestMemoryFailureInjection(t *testing.T) {
	m := NewMemory()
	m.FailOn(OpDeleteSnippet, context.DeadlineExceeded)
	if err := m.DeleteSnippet(context.Background(), "x"); err != context.DeadlineExceeded {
		t.Errorf("Expected injected error, got %v", err)
	}
	m.FailOn(OpDeleteSnippet, nil)
	if err := m.DeleteSnippet(context.Background(), "x"); err != nil {
		t.Errorf("Expected failure to be cleared, got %v", err)
	}
	if m.Calls(OpDeleteSnippet) != 2 {
		t.Errorf("Expected 2 calls, got %d", m.Calls(OpDeleteSnippet))
	}
}

func TestPatchColumns(t *testing.T) {
	cols := TemplatePatch{SetType: true}.Columns()
	if v, ok := cols["type_id"]; !ok || v != nil {
		t.Errorf("Expected explicit null type_id, got %v", cols)
	}
	if !(SnippetPatch{}).Empty() {
		t.Error("Expected empty snippet patch")
	}
	if (TemplatePatch{SetType: true}).Empty() {
		t.Error("Expected SetType patch to be non-empty")
	}
}
