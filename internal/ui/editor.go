package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/prompt-composer/internal/placeholder"
	"github.com/dpshade/prompt-composer/internal/store"
)

// Editor field indices
const (
	labelField = iota
	categoryField
	textField
	fieldCount
)

// wrap prompt modes
const (
	wrapNone = iota
	wrapSelection
	unwrapName
)

// SnippetEditor edits one snippet through a store draft. Nothing is written
// until the editor is submitted.
type SnippetEditor struct {
	draft   *store.Draft
	options []store.CategoryOption

	label    textinput.Model
	text     textarea.Model
	wrap     textinput.Model
	wrapMode int

	focused   int
	submitted bool
	cancelled bool
	err       string
}

var editorKeys = struct {
	Next, Prev, Save, Cancel, Wrap, Unwrap, Left, Right key.Binding
}{
	Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("Shift+Tab", "previous field")),
	Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("Ctrl+s", "save")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "discard")),
	Wrap:   key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("Ctrl+w", "make placeholder")),
	Unwrap: key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("Ctrl+u", "remove placeholder")),
	Left:   key.NewBinding(key.WithKeys("left", "h")),
	Right:  key.NewBinding(key.WithKeys("right", "l")),
}

// NewSnippetEditor opens an editor over a draft
func NewSnippetEditor(draft *store.Draft, options []store.CategoryOption) *SnippetEditor {
	label := textinput.New()
	label.Placeholder = "Label"
	label.CharLimit = 120
	label.Width = 50
	label.SetValue(draft.Current().Label)
	label.CursorEnd()
	label.Focus()

	text := textarea.New()
	text.ShowLineNumbers = false
	text.CharLimit = 0
	text.MaxHeight = 0
	text.SetWidth(70)
	text.SetHeight(8)
	text.SetValue(draft.Current().Text)

	wrap := textinput.New()
	wrap.CharLimit = 200
	wrap.Width = 50

	return &SnippetEditor{
		draft:   draft,
		options: options,
		label:   label,
		text:    text,
		wrap:    wrap,
		focused: labelField,
	}
}

// Draft returns the draft being edited
func (e *SnippetEditor) Draft() *store.Draft {
	return e.draft
}

func (e *SnippetEditor) IsSubmitted() bool { return e.submitted }
func (e *SnippetEditor) IsCancelled() bool { return e.cancelled }

// Resize fits the text area to the terminal
func (e *SnippetEditor) Resize(width, height int) {
	if width > 10 {
		e.text.SetWidth(width - 6)
		e.label.Width = width - 10
	}
	if height > 16 {
		e.text.SetHeight(height - 16)
	}
}

// Update handles a key press
func (e *SnippetEditor) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if e.wrapMode != wrapNone {
		return e.updateWrapPrompt(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, editorKeys.Save):
		e.submitted = true
		return nil
	case key.Matches(keyMsg, editorKeys.Cancel):
		e.draft.Reset()
		e.cancelled = true
		return nil
	case key.Matches(keyMsg, editorKeys.Next):
		e.focus((e.focused + 1) % fieldCount)
		return nil
	case key.Matches(keyMsg, editorKeys.Prev):
		e.focus((e.focused + fieldCount - 1) % fieldCount)
		return nil
	case key.Matches(keyMsg, editorKeys.Wrap):
		e.openWrapPrompt(wrapSelection, "Text to turn into a placeholder")
		return nil
	case key.Matches(keyMsg, editorKeys.Unwrap):
		e.openWrapPrompt(unwrapName, "Placeholder to remove")
		return nil
	}

	var cmd tea.Cmd
	switch e.focused {
	case labelField:
		e.label, cmd = e.label.Update(keyMsg)
		e.draft.SetLabel(e.label.Value())
	case categoryField:
		switch {
		case key.Matches(keyMsg, editorKeys.Left):
			e.cycleCategory(-1)
		case key.Matches(keyMsg, editorKeys.Right):
			e.cycleCategory(1)
		}
	case textField:
		e.text, cmd = e.text.Update(keyMsg)
		e.draft.SetText(e.text.Value())
	}
	return cmd
}

func (e *SnippetEditor) focus(field int) {
	e.focused = field
	e.label.Blur()
	e.text.Blur()
	switch field {
	case labelField:
		e.label.Focus()
	case textField:
		e.text.Focus()
	}
}

// cycleCategory moves to the next selectable category in direction dir
func (e *SnippetEditor) cycleCategory(dir int) {
	n := len(e.options)
	if n == 0 {
		return
	}
	current := e.categoryIndex()
	for step := 1; step <= n; step++ {
		i := ((current+dir*step)%n + n) % n
		if !e.options[i].Disabled {
			e.draft.ChangeCategory(e.options[i].Name)
			e.syncInputs()
			return
		}
	}
}

func (e *SnippetEditor) categoryIndex() int {
	for i, o := range e.options {
		if o.Name == e.draft.Current().Category {
			return i
		}
	}
	return 0
}

// syncInputs copies the draft into the inputs after a category change
func (e *SnippetEditor) syncInputs() {
	current := e.draft.Current()
	if e.label.Value() != current.Label {
		e.label.SetValue(current.Label)
		e.label.CursorEnd()
	}
	if e.text.Value() != current.Text {
		e.text.SetValue(current.Text)
	}
}

func (e *SnippetEditor) openWrapPrompt(mode int, prompt string) {
	e.wrapMode = mode
	e.err = ""
	e.wrap.Reset()
	e.wrap.Placeholder = prompt
	e.wrap.Focus()
}

func (e *SnippetEditor) updateWrapPrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		e.wrapMode = wrapNone
		e.wrap.Blur()
		return nil
	case tea.KeyEnter:
		e.applyWrapPrompt(e.wrap.Value())
		e.wrapMode = wrapNone
		e.wrap.Blur()
		return nil
	}
	var cmd tea.Cmd
	e.wrap, cmd = e.wrap.Update(msg)
	return cmd
}

// applyWrapPrompt wraps the first occurrence of the entered text, or removes
// the entered placeholder
func (e *SnippetEditor) applyWrapPrompt(input string) {
	if input == "" {
		return
	}
	switch e.wrapMode {
	case wrapSelection:
		text := e.draft.Current().Text
		start := strings.Index(text, input)
		if start < 0 {
			e.err = fmt.Sprintf("%q is not in the text", input)
			return
		}
		if !e.draft.WrapSelection(start, start+len(input)) {
			e.err = "Selection cannot become a placeholder"
			return
		}
	case unwrapName:
		e.draft.Unwrap(strings.Trim(input, "{}"))
	}
	e.syncInputs()
}

// View renders the editor
func (e *SnippetEditor) View() string {
	current := e.draft.Current()

	var categories []string
	for _, o := range e.options {
		categories = append(categories, CreateOption(o.Name, o.Name == current.Category, o.Disabled))
	}
	categoryRow := lipgloss.JoinHorizontal(lipgloss.Left, categories...)
	if e.focused != categoryField {
		categoryRow = CreateCategoryChip(current.Category)
	}

	dirty := ""
	if e.draft.Dirty() {
		dirty = StyleWarning.Render("unsaved")
	}

	vars := make([]string, 0)
	for _, name := range e.draft.Placeholders() {
		vars = append(vars, placeholder.Token(name))
	}

	elements := []string{
		lipgloss.JoinHorizontal(lipgloss.Left, CreateMainHeader("Edit Snippet"), dirty),
		StyleFormLabel.Render("Label"),
		e.label.View(),
		"",
		StyleFormLabel.Render("Category") + StyleTextDim.Render("  ←/→ to change"),
		categoryRow,
		"",
		StyleFormLabel.Render("Text"),
		e.text.View(),
		CreateMetadata("Placeholders: " + strings.Join(vars, " ")),
	}
	if e.wrapMode != wrapNone {
		elements = append(elements, e.wrap.View())
	}
	if e.err != "" {
		elements = append(elements, CreateStatus(e.err, "error"))
	}
	elements = append(elements, CreateContextualHelp(
		[]string{"Tab next field", "Ctrl+s save", "Esc discard"},
		[]string{"Ctrl+w make placeholder • Ctrl+u remove placeholder"},
		true, 0,
	))
	return lipgloss.JoinVertical(lipgloss.Left, elements...)
}
