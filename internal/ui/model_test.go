package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/seed"
	"github.com/dpshade/prompt-composer/internal/store"
)

type fakeClipboard struct {
	text string
}

func (f *fakeClipboard) WriteAll(text string) error {
	f.text = text
	return nil
}

func newTestModel(t *testing.T) (*Model, *store.Store, *gateway.Memory) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)

	gw := gateway.NewMemory()
	st, err := store.New("u1", gw, logrus.NewEntry(l), store.Options{
		Catalog:  seed.Default(),
		Debounce: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	t.Cleanup(st.Close)

	m := NewModel(st, nil)
	m.SetClipboard(&fakeClipboard{})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, st, gw
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		m.Update(keyMsg(k))
	}
}

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+w":
		return tea.KeyMsg{Type: tea.KeyCtrlW}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func templateNamed(t *testing.T, st *store.Store, name string) models.TemplateWithSnippets {
	t.Helper()
	for _, tpl := range st.Snapshot().Templates {
		if tpl.Name == name {
			return tpl
		}
	}
	t.Fatalf("Expected a template named %q", name)
	return models.TemplateWithSnippets{}
}

func TestNewModelSelectsActiveTemplate(t *testing.T) {
	m, st, _ := newTestModel(t)

	if m.templateID != st.Snapshot().ActiveID {
		t.Errorf("Expected active template %s to be selected, got %s", st.Snapshot().ActiveID, m.templateID)
	}
	view := m.View()
	if !strings.Contains(view, "Prompt Composer") {
		t.Errorf("Expected the library header, got %q", view)
	}
	if !strings.Contains(view, "You are Persona") {
		t.Errorf("Expected the preview to show the unfilled placeholder, got %q", view)
	}
}

func TestNewTemplateIsNamedThroughPrompt(t *testing.T) {
	m, st, _ := newTestModel(t)

	press(m, "n")
	if !m.prompt.IsActive() {
		t.Fatal("Expected the name prompt to open")
	}
	typeText(m, "X")
	press(m, "enter")

	snap := st.Snapshot()
	if len(snap.Templates) != 3 {
		t.Fatalf("Expected 3 templates, got %d", len(snap.Templates))
	}
	last := snap.Templates[2]
	if last.Name != "New TemplateX" {
		t.Errorf("Expected name 'New TemplateX', got %q", last.Name)
	}
	if m.templateID != last.ID {
		t.Errorf("Expected the new template to be selected")
	}
}

func TestToggleAndCopy(t *testing.T) {
	m, st, _ := newTestModel(t)
	clip := &fakeClipboard{}
	m.SetClipboard(clip)

	press(m, "enter")
	if m.viewMode != ViewSnippets {
		t.Fatalf("Expected the snippet board, got view %d", m.viewMode)
	}

	press(m, "space")
	role := templateNamed(t, st, "4W").Snippets[0]
	if role.Active {
		t.Error("Expected the first snippet to be disabled")
	}

	press(m, "c")
	if clip.text == "" {
		t.Fatal("Expected the prompt to be copied")
	}
	if strings.Contains(clip.text, "You are") {
		t.Errorf("Expected the disabled snippet to be left out, got %q", clip.text)
	}
	if !strings.HasPrefix(clip.text, "Help me Outcome") {
		t.Errorf("Expected the prompt to start with the objective, got %q", clip.text)
	}
}

func TestPlaceholderFormWritesValues(t *testing.T) {
	m, st, gw := newTestModel(t)
	id := m.templateID

	press(m, "p")
	if m.viewMode != ViewPlaceholders {
		t.Fatalf("Expected the placeholder form, got view %d", m.viewMode)
	}
	typeText(m, "a poet")

	if got := st.Snapshot().ValueMap(id)["persona"]; got != "a poet" {
		t.Errorf("Expected persona 'a poet', got %q", got)
	}

	st.Flush()
	if calls := gw.Calls(gateway.OpUpsertPlaceholder); calls != 1 {
		t.Errorf("Expected keystrokes to collapse into 1 write, got %d", calls)
	}

	press(m, "down")
	if m.placeholderCursor != 1 {
		t.Errorf("Expected the second placeholder to be focused, got %d", m.placeholderCursor)
	}
	if m.valueInput.Value() != "" {
		t.Errorf("Expected an empty value for outcome, got %q", m.valueInput.Value())
	}

	press(m, "esc")
	if m.viewMode != ViewTemplates {
		t.Errorf("Expected to return to the library, got view %d", m.viewMode)
	}
}

func TestEditorSavesDraft(t *testing.T) {
	m, st, _ := newTestModel(t)

	press(m, "enter", "e")
	if m.viewMode != ViewEditSnippet {
		t.Fatalf("Expected the editor, got view %d", m.viewMode)
	}
	typeText(m, "s")
	press(m, "ctrl+s")

	if m.viewMode != ViewSnippets {
		t.Errorf("Expected to return to the board, got view %d", m.viewMode)
	}
	if label := templateNamed(t, st, "4W").Snippets[0].Label; label != "Roles" {
		t.Errorf("Expected label 'Roles', got %q", label)
	}
	if m.statusMsg != "Snippet saved" {
		t.Errorf("Expected a saved status, got %q", m.statusMsg)
	}
}

func TestEditorEscapeDiscards(t *testing.T) {
	m, st, gw := newTestModel(t)

	press(m, "enter", "e")
	typeText(m, "zz")
	press(m, "esc")

	if label := templateNamed(t, st, "4W").Snippets[0].Label; label != "Role" {
		t.Errorf("Expected label 'Role', got %q", label)
	}
	st.Flush()
	if calls := gw.Calls(gateway.OpUpdateSnippet); calls != 0 {
		t.Errorf("Expected no snippet write, got %d", calls)
	}
}

func TestEditorWrapsSelection(t *testing.T) {
	m, st, _ := newTestModel(t)

	press(m, "enter", "e", "ctrl+w")
	typeText(m, "You")
	press(m, "enter", "ctrl+s")

	if text := templateNamed(t, st, "4W").Snippets[0].Text; text != "{You} are {persona}" {
		t.Errorf("Expected '{You} are {persona}', got %q", text)
	}
}

func TestEditorRejectsOverlappingWrap(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(m, "enter", "e", "ctrl+w")
	typeText(m, "are {pers")
	press(m, "enter")

	if m.editor.err == "" {
		t.Error("Expected an error for a range touching a placeholder")
	}
	if text := m.editor.Draft().Current().Text; text != "You are {persona}" {
		t.Errorf("Expected the text to be unchanged, got %q", text)
	}
}

func TestDeleteMasterAsksForConfirmation(t *testing.T) {
	m, st, _ := newTestModel(t)

	press(m, "t")
	typeText(m, "Brief")
	press(m, "enter")
	if n := len(st.Snapshot().Types); n != 1 {
		t.Fatalf("Expected 1 type, got %d", n)
	}

	press(m, "d")
	if m.pendingDelete == nil {
		t.Fatal("Expected the delete to wait for confirmation")
	}
	if view := m.View(); !strings.Contains(view, "Brief") {
		t.Errorf("Expected the confirmation to name the type, got %q", view)
	}

	press(m, "n")
	if n := len(st.Snapshot().Templates); n != 2 {
		t.Fatalf("Expected the delete to be cancelled, got %d templates", n)
	}

	press(m, "d", "y")
	snap := st.Snapshot()
	if len(snap.Templates) != 1 || len(snap.Types) != 0 {
		t.Errorf("Expected 1 template and no types, got %d and %d", len(snap.Templates), len(snap.Types))
	}
}

func TestDeleteOnlyTemplateWarns(t *testing.T) {
	m, st, _ := newTestModel(t)

	press(m, "d")
	press(m, "d")

	if n := len(st.Snapshot().Templates); n != 1 {
		t.Fatalf("Expected 1 template, got %d", n)
	}
	if m.statusType != "warning" {
		t.Errorf("Expected a warning, got %q: %q", m.statusType, m.statusMsg)
	}
}

func TestCycleTypeAndReorder(t *testing.T) {
	m, st, _ := newTestModel(t)
	master := m.templateID

	press(m, "t")
	typeText(m, "Brief")
	press(m, "enter")

	press(m, "J")
	snap := st.Snapshot()
	if snap.Templates[1].ID != master {
		t.Fatalf("Expected the master to move down")
	}

	press(m, "k")
	if m.templateID == master {
		t.Fatalf("Expected the selection to follow the list cursor")
	}
	press(m, "y")
	teammate := templateNamed(t, st, "AI Teammate")
	if !teammate.IsTyped() {
		t.Fatal("Expected AI Teammate to take the type")
	}

	press(m, "y")
	if templateNamed(t, st, "AI Teammate").IsTyped() {
		t.Error("Expected the type to be cleared")
	}
}

func TestSaveFailureShowsStatus(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := m.Update(saveFailedMsg{err: errors.New("boom")})
	if cmd == nil {
		t.Error("Expected a status timer")
	}
	if !strings.Contains(m.View(), "Change was not saved: boom") {
		t.Errorf("Expected the failure in the status bar, got %q", m.statusMsg)
	}
}

func TestFuzzyFilter(t *testing.T) {
	ranks := fuzzyFilter("tmate", []string{"4W", "AI Teammate"})
	if len(ranks) != 1 || ranks[0].Index != 1 {
		t.Errorf("Expected only AI Teammate to match, got %+v", ranks)
	}
}

func TestColorsForCategory(t *testing.T) {
	if got := ColorsForCategory("Product").Border; got != "#F59E0B" {
		t.Errorf("Expected the Product border, got %s", got)
	}
	if got := ColorsForCategory("Unknown"); got != ColorsForCategory("Blank") {
		t.Errorf("Expected unknown categories to use the Blank colors, got %+v", got)
	}
}
