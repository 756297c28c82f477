// Package ui is the interactive composer: a template list with a live preview,
// a snippet board for the selected template, a snippet editor and a
// placeholder form.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/dpshade/prompt-composer/internal/clipboard"
	apperrors "github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/placeholder"
	"github.com/dpshade/prompt-composer/internal/renderer"
	"github.com/dpshade/prompt-composer/internal/store"
)

// ViewMode represents the current view in the TUI
type ViewMode int

const (
	ViewTemplates ViewMode = iota
	ViewSnippets
	ViewEditSnippet
	ViewPlaceholders
)

// saveFailedMsg carries a write the backend rejected
type saveFailedMsg struct {
	err error
}

// waitForSaveError blocks until the store reports a failed write
func waitForSaveError(errs <-chan error) tea.Cmd {
	if errs == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return saveFailedMsg{err: err}
	}
}

// tickMsg is sent to clear the status message
type tickMsg time.Time

// clearStatusCmd returns a command that clears the status message after a delay
func clearStatusCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model represents the TUI application state
type Model struct {
	store    *store.Store
	clip     clipboard.Writer
	saveErrs <-chan error
	viewMode ViewMode
	// returnView is the board the placeholder form goes back to
	returnView ViewMode

	// UI components
	templateList list.Model
	viewport     viewport.Model
	help         help.Model
	keys         KeyMap
	prompt       *PromptModal
	editor       *SnippetEditor
	valueInput   textinput.Model

	// Selection
	templateID        string
	snippetCursor     int
	placeholderCursor int
	pendingDelete     *store.DeletePlan

	markdown bool

	// Window dimensions
	width  int
	height int

	// Status messages
	statusMsg     string
	statusType    string
	statusTimeout int

	showExpandedHelp bool
}

// KeyMap defines all key bindings
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	MoveUp     key.Binding
	MoveDown   key.Binding
	Enter      key.Binding
	Back       key.Binding
	Quit       key.Binding
	Help       key.Binding
	Copy       key.Binding
	New        key.Binding
	Rename     key.Binding
	Delete     key.Binding
	Edit       key.Binding
	Toggle     key.Binding
	Values     key.Binding
	CreateType key.Binding
	CycleType  key.Binding
	Markdown   key.Binding
	ConfirmYes key.Binding
	ConfirmNo  key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.MoveUp, k.MoveDown},
		{k.Enter, k.Back, k.New, k.Rename},
		{k.Edit, k.Toggle, k.Delete, k.Values},
		{k.CreateType, k.CycleType, k.Markdown, k.Copy},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	MoveUp:     key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "reorder up")),
	MoveDown:   key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "reorder down")),
	Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "open")),
	Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "back")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Copy:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy prompt")),
	New:        key.NewBinding(key.WithKeys("n", "a"), key.WithHelp("n", "new")),
	Rename:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
	Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit snippet")),
	Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("Space", "toggle snippet")),
	Values:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "fill placeholders")),
	CreateType: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "create type")),
	CycleType:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "change type")),
	Markdown:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "markdown preview")),
	ConfirmYes: key.NewBinding(key.WithKeys("y", "Y")),
	ConfirmNo:  key.NewBinding(key.WithKeys("n", "N", "esc")),
}

// fuzzyFilter ranks list items with sahilm/fuzzy
func fuzzyFilter(term string, targets []string) []list.Rank {
	matches := fuzzy.Find(term, targets)
	ranks := make([]list.Rank, len(matches))
	for i, m := range matches {
		ranks[i] = list.Rank{Index: m.Index, MatchedIndexes: m.MatchedIndexes}
	}
	return ranks
}

// NewModel creates a TUI over a loaded store. saveErrs, when set, delivers
// writes the backend rejected.
func NewModel(st *store.Store, saveErrs <-chan error) *Model {
	initializeColors()

	l := list.New(nil, list.NewDefaultDelegate(), 30, 20)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Filter = fuzzyFilter

	vp := viewport.New(60, 20)
	vp.Style = lipgloss.NewStyle()

	value := textinput.New()
	value.CharLimit = 500
	value.Width = 50

	m := &Model{
		store:        st,
		clip:         clipboard.System,
		saveErrs:     saveErrs,
		viewMode:     ViewTemplates,
		templateList: l,
		viewport:     vp,
		help:         help.New(),
		keys:         keys,
		prompt:       NewPromptModal(),
		valueInput:   value,
	}
	if active, ok := st.Snapshot().Active(); ok {
		m.templateID = active.ID
	}
	m.refresh()
	return m
}

// SetClipboard replaces the clipboard the copy key writes to
func (m *Model) SetClipboard(w clipboard.Writer) {
	m.clip = w
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return waitForSaveError(m.saveErrs)
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.statusTimeout > 0 {
			m.statusTimeout--
			if m.statusTimeout == 0 {
				m.statusMsg = ""
			} else {
				return m, clearStatusCmd()
			}
		}
		return m, nil

	case saveFailedMsg:
		cmd := m.setStatus("Change was not saved: "+errorText(msg.err), "error")
		return m, tea.Batch(cmd, waitForSaveError(m.saveErrs))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPreview()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.templateList, cmd = m.templateList.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.prompt.IsActive() {
		return m.updatePrompt(msg)
	}
	if m.pendingDelete != nil {
		return m.updateConfirmDelete(msg)
	}

	switch m.viewMode {
	case ViewEditSnippet:
		return m.updateEditor(msg)
	case ViewPlaceholders:
		return m.updatePlaceholders(msg)
	case ViewSnippets:
		return m.updateSnippets(msg)
	default:
		return m.updateTemplates(msg)
	}
}

func (m *Model) updateTemplates(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// the list owns every key while its filter is being typed
	if m.templateList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.templateList, cmd = m.templateList.Update(msg)
		m.syncSelection()
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showExpandedHelp = !m.showExpandedHelp
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if m.templateID == "" {
			return m, nil
		}
		if err := m.store.SetActive(m.templateID); err != nil {
			return m, m.setStatus(errorText(err), "error")
		}
		m.viewMode = ViewSnippets
		m.snippetCursor = 0
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.New):
		t := m.store.AddTemplate()
		m.templateID = t.ID
		m.refresh()
		m.prompt.Open(promptRename, "Name the new template", "Template name", t.Name)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Rename):
		if t, ok := m.selectedTemplate(); ok {
			m.prompt.Open(promptRename, "Rename template", "Template name", t.Name)
			return m, textinput.Blink
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		return m, m.deleteTemplate(false)
	case key.Matches(msg, m.keys.MoveUp):
		return m, m.moveTemplate(-1)
	case key.Matches(msg, m.keys.MoveDown):
		return m, m.moveTemplate(1)
	case key.Matches(msg, m.keys.CreateType):
		if _, ok := m.selectedTemplate(); ok {
			m.prompt.Open(promptTypeName, "Create a type from this template", "Type name", "")
			return m, textinput.Blink
		}
		return m, nil
	}

	if cmd, handled := m.handleShared(msg); handled {
		return m, cmd
	}

	var cmd tea.Cmd
	m.templateList, cmd = m.templateList.Update(msg)
	m.syncSelection()
	return m, cmd
}

// handleShared handles the keys of both board views
func (m *Model) handleShared(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Copy):
		return m.copyPrompt(), true
	case key.Matches(msg, m.keys.Values):
		m.openPlaceholders()
		return textinput.Blink, true
	case key.Matches(msg, m.keys.CycleType):
		return m.cycleType(), true
	case key.Matches(msg, m.keys.Markdown):
		m.markdown = !m.markdown
		m.renderPreview()
		return nil, true
	}
	return nil, false
}

func (m *Model) updateSnippets(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t, ok := m.selectedTemplate()
	if !ok {
		m.viewMode = ViewTemplates
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.viewMode = ViewTemplates
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.showExpandedHelp = !m.showExpandedHelp
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.snippetCursor > 0 {
			m.snippetCursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.snippetCursor < len(t.Snippets)-1 {
			m.snippetCursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.MoveUp):
		return m, m.moveSnippet(t, -1)
	case key.Matches(msg, m.keys.MoveDown):
		return m, m.moveSnippet(t, 1)
	case key.Matches(msg, m.keys.New):
		sn, err := m.store.AddSnippet(t.ID)
		if err != nil {
			return m, m.setStatus(errorText(err), "error")
		}
		m.refresh()
		m.snippetCursor = len(t.Snippets)
		return m, m.openEditor(sn.ID)
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Enter):
		if sn, ok := m.selectedSnippet(t); ok {
			return m, m.openEditor(sn.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		if sn, ok := m.selectedSnippet(t); ok {
			if err := m.store.ToggleSnippet(sn.ID); err != nil {
				return m, m.setStatus(errorText(err), "error")
			}
			m.refresh()
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if sn, ok := m.selectedSnippet(t); ok {
			m.store.DeleteSnippet(sn.ID)
			m.refresh()
			return m, m.setStatus("Deleted snippet "+sn.Label, "success")
		}
		return m, nil
	}

	cmd, _ := m.handleShared(msg)
	return m, cmd
}

func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd := m.editor.Update(msg)

	switch {
	case m.editor.IsSubmitted():
		if err := m.store.SaveDraft(m.editor.Draft()); err != nil {
			m.editor.submitted = false
			m.editor.err = errorText(err)
			return m, nil
		}
		m.closeEditor()
		return m, m.setStatus("Snippet saved", "success")
	case m.editor.IsCancelled():
		m.closeEditor()
		return m, nil
	}
	return m, cmd
}

func (m *Model) updatePlaceholders(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.store.Snapshot().Placeholders(m.templateID)

	switch msg.Type {
	case tea.KeyEsc:
		m.valueInput.Blur()
		m.viewMode = m.returnView
		return m, nil
	case tea.KeyUp, tea.KeyShiftTab:
		if m.placeholderCursor > 0 {
			m.placeholderCursor--
			m.loadPlaceholderValue(names)
		}
		return m, nil
	case tea.KeyDown, tea.KeyTab, tea.KeyEnter:
		if m.placeholderCursor < len(names)-1 {
			m.placeholderCursor++
			m.loadPlaceholderValue(names)
		}
		return m, nil
	}

	if len(names) == 0 {
		return m, nil
	}

	before := m.valueInput.Value()
	var cmd tea.Cmd
	m.valueInput, cmd = m.valueInput.Update(msg)
	if value := m.valueInput.Value(); value != before {
		if err := m.store.SetPlaceholderValue(m.templateID, names[m.placeholderCursor], value); err != nil {
			return m, m.setStatus(errorText(err), "error")
		}
		m.renderPreview()
	}
	return m, cmd
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd := m.prompt.Update(msg)
	if !m.prompt.IsSubmitted() {
		return m, cmd
	}

	value := m.prompt.Value()
	purpose := m.prompt.Purpose()
	m.prompt.Close()

	switch purpose {
	case promptRename:
		if err := m.store.RenameTemplate(m.templateID, value); err != nil {
			return m, m.setStatus(errorText(err), "error")
		}
		m.refresh()
		return m, nil
	case promptTypeName:
		tt, err := m.store.CreateTemplateType(value, m.templateID)
		if err != nil {
			return m, m.setStatus(errorText(err), "error")
		}
		if tt.ID == "" {
			return m, nil
		}
		m.refresh()
		return m, m.setStatus("Created type "+tt.Name, "success")
	}
	return m, nil
}

func (m *Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ConfirmYes):
		m.pendingDelete = nil
		return m, m.deleteTemplate(true)
	case key.Matches(msg, m.keys.ConfirmNo):
		m.pendingDelete = nil
	}
	return m, nil
}

// deleteTemplate deletes the selected template. A master template is only
// deleted once the user confirmed the plan.
func (m *Model) deleteTemplate(confirmed bool) tea.Cmd {
	t, ok := m.selectedTemplate()
	if !ok {
		return nil
	}
	plan, err := m.store.PlanDeleteTemplate(t.ID)
	if err != nil {
		return m.setStatus(errorText(err), "error")
	}
	if plan.Refused {
		return m.setStatus("The only template cannot be deleted", "warning")
	}
	if plan.NeedsConfirmation() && !confirmed {
		m.pendingDelete = &plan
		return nil
	}
	if err := m.store.DeleteTemplate(t.ID, confirmed); err != nil {
		return m.setStatus(errorText(err), "error")
	}
	m.templateID = ""
	if active, ok := m.store.Snapshot().Active(); ok {
		m.templateID = active.ID
	}
	m.viewMode = ViewTemplates
	m.refresh()
	return m.setStatus("Deleted "+t.Name, "success")
}

func (m *Model) moveTemplate(dir int) tea.Cmd {
	snap := m.store.Snapshot()
	ids := make([]string, len(snap.Templates))
	for i, t := range snap.Templates {
		ids[i] = t.ID
	}
	if !swapID(ids, m.templateID, dir) {
		return nil
	}
	m.store.ReorderTemplates(ids)
	m.refresh()
	return nil
}

func (m *Model) moveSnippet(t models.TemplateWithSnippets, dir int) tea.Cmd {
	sn, ok := m.selectedSnippet(t)
	if !ok {
		return nil
	}
	ids := make([]string, len(t.Snippets))
	for i, s := range t.Snippets {
		ids[i] = s.ID
	}
	if !swapID(ids, sn.ID, dir) {
		return nil
	}
	if err := m.store.ReorderSnippets(t.ID, ids); err != nil {
		return m.setStatus(errorText(err), "error")
	}
	m.snippetCursor += dir
	m.refresh()
	return nil
}

// swapID swaps id with its neighbor in direction dir
func swapID(ids []string, id string, dir int) bool {
	for i := range ids {
		if ids[i] != id {
			continue
		}
		j := i + dir
		if j < 0 || j >= len(ids) {
			return false
		}
		ids[i], ids[j] = ids[j], ids[i]
		return true
	}
	return false
}

// cycleType moves the selected template to the next type, wrapping to untyped
func (m *Model) cycleType() tea.Cmd {
	t, ok := m.selectedTemplate()
	if !ok {
		return nil
	}
	types := m.store.Snapshot().Types
	next := 0
	if t.IsTyped() {
		for i, tt := range types {
			if tt.ID == *t.TypeID {
				next = i + 1
				break
			}
		}
	}

	var typeID *string
	label := "Type cleared"
	if next < len(types) {
		typeID = &types[next].ID
		label = "Type: " + types[next].Name
	}
	if err := m.store.SetTemplateType(t.ID, typeID); err != nil {
		return m.setStatus(errorText(err), "error")
	}
	m.refresh()
	return m.setStatus(label, "info")
}

func (m *Model) copyPrompt() tea.Cmd {
	r, err := m.store.Preview(m.templateID)
	if err != nil {
		return m.setStatus(errorText(err), "error")
	}
	if err := clipboard.CopyTo(m.clip, r.RenderText()); err != nil {
		return m.setStatus(errorText(err), "error")
	}
	return m.setStatus("Copied prompt to clipboard", "success")
}

func (m *Model) openEditor(snippetID string) tea.Cmd {
	draft, err := m.store.BeginEdit(snippetID)
	if err != nil {
		return m.setStatus(errorText(err), "error")
	}
	options, err := m.store.CategoryOptions(snippetID)
	if err != nil {
		return m.setStatus(errorText(err), "error")
	}
	m.editor = NewSnippetEditor(draft, options)
	m.editor.Resize(m.width, m.height)
	m.viewMode = ViewEditSnippet
	return textinput.Blink
}

func (m *Model) closeEditor() {
	m.editor = nil
	m.viewMode = ViewSnippets
	m.refresh()
}

func (m *Model) openPlaceholders() {
	m.returnView = m.viewMode
	m.viewMode = ViewPlaceholders
	m.placeholderCursor = 0
	m.loadPlaceholderValue(m.store.Snapshot().Placeholders(m.templateID))
	m.valueInput.Focus()
}

func (m *Model) loadPlaceholderValue(names []string) {
	if m.placeholderCursor >= len(names) {
		m.valueInput.SetValue("")
		return
	}
	values := m.store.Snapshot().ValueMap(m.templateID)
	m.valueInput.SetValue(values[names[m.placeholderCursor]])
	m.valueInput.Placeholder = placeholder.Label(names[m.placeholderCursor])
	m.valueInput.CursorEnd()
}

func (m *Model) setStatus(text, statusType string) tea.Cmd {
	m.statusMsg = text
	m.statusType = statusType
	m.statusTimeout = 3
	return clearStatusCmd()
}

func errorText(err error) string {
	if apperrors.IsAppError(err) {
		return apperrors.GetAppError(err).Message
	}
	return err.Error()
}

func (m *Model) selectedTemplate() (models.TemplateWithSnippets, bool) {
	return m.store.Snapshot().Template(m.templateID)
}

func (m *Model) selectedSnippet(t models.TemplateWithSnippets) (models.Snippet, bool) {
	if m.snippetCursor < 0 || m.snippetCursor >= len(t.Snippets) {
		return models.Snippet{}, false
	}
	return t.Snippets[m.snippetCursor], true
}

// syncSelection follows the list cursor
func (m *Model) syncSelection() {
	item, ok := m.templateList.SelectedItem().(models.TemplateWithSnippets)
	if !ok || item.ID == m.templateID {
		return
	}
	m.templateID = item.ID
	m.renderPreview()
}

// refresh reloads the list from the store and keeps the selection
func (m *Model) refresh() {
	snap := m.store.Snapshot()
	items := make([]list.Item, len(snap.Templates))
	selected := -1
	for i, t := range snap.Templates {
		items[i] = t
		if t.ID == m.templateID {
			selected = i
		}
	}
	m.templateList.SetItems(items)
	if selected < 0 && len(snap.Templates) > 0 {
		selected = 0
		m.templateID = snap.Templates[0].ID
	}
	if selected >= 0 {
		m.templateList.Select(selected)
	}

	if t, ok := snap.Template(m.templateID); ok {
		if m.snippetCursor >= len(t.Snippets) {
			m.snippetCursor = len(t.Snippets) - 1
		}
		if m.snippetCursor < 0 {
			m.snippetCursor = 0
		}
	}
	m.renderPreview()
}

func (m *Model) resize() {
	listWidth := m.width / 3
	bodyHeight := m.height - 6
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.templateList.SetSize(listWidth, bodyHeight)
	m.viewport.Width = m.width - listWidth - 8
	m.viewport.Height = bodyHeight - 2
	if m.editor != nil {
		m.editor.Resize(m.width, m.height)
	}
}

// renderPreview renders the selected template into the viewport
func (m *Model) renderPreview() {
	r, err := m.store.Preview(m.templateID)
	if err != nil {
		m.viewport.SetContent("")
		return
	}
	width := m.viewport.Width
	if m.markdown {
		out, err := r.RenderMarkdown(width)
		if err == nil {
			m.viewport.SetContent(out)
			return
		}
	}
	m.viewport.SetContent(renderBlocks(r.RenderBlocks(), width))
}

// renderBlocks shows filled placeholders in the value color and unfilled ones
// in the warning color
func renderBlocks(blocks []renderer.Block, width int) string {
	if len(blocks) == 0 {
		return StyleTextDim.Render("No active snippets")
	}
	body := lipgloss.NewStyle()
	if width > 0 {
		body = body.Width(width)
	}

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		var sb strings.Builder
		for _, span := range b.Spans {
			switch span.Kind {
			case renderer.SpanFilled:
				sb.WriteString(StyleFilled.Render(span.Value))
			case renderer.SpanUnfilled:
				sb.WriteString(StyleUnfilled.Render(span.Value))
			default:
				sb.WriteString(span.Value)
			}
		}
		header := lipgloss.JoinHorizontal(lipgloss.Left, CreateCategoryChip(b.Category), " ", StyleFormLabel.Render(b.Label))
		parts = append(parts, header+"\n"+body.Render(sb.String()))
	}
	return strings.Join(parts, "\n\n")
}

// View renders the current view
func (m *Model) View() string {
	if m.prompt.IsActive() {
		return CenterModal(m.prompt.View(), m.width, m.height)
	}
	if m.pendingDelete != nil {
		return CenterModal(m.renderConfirmDelete(), m.width, m.height)
	}

	var mainView string
	switch m.viewMode {
	case ViewEditSnippet:
		mainView = m.editor.View()
	case ViewPlaceholders:
		mainView = m.renderPlaceholdersView()
	case ViewSnippets:
		mainView = m.renderSnippetsView()
	default:
		mainView = m.renderTemplatesView()
	}

	if m.statusMsg != "" {
		mainView = lipgloss.JoinVertical(lipgloss.Left, mainView, CreateStatus(m.statusMsg, m.statusType))
	}
	return AddMainPadding(mainView)
}

func (m *Model) renderTemplatesView() string {
	header := CreateMainHeader("Prompt Composer")
	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.templateList.View(),
		StyleContentContainer.Render(m.viewport.View()),
	)
	footer := m.renderHelp(
		[]string{"enter open", "n new", "r rename", "c copy"},
		[]string{"p fill placeholders • t create type • y change type", "K/J reorder • d delete • m markdown • / filter • q quit"},
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderSnippetsView() string {
	snap := m.store.Snapshot()
	t, ok := snap.Template(m.templateID)
	if !ok {
		return "No template selected"
	}

	meta := fmt.Sprintf("%d snippets • %d placeholders", len(t.Snippets), len(snap.Placeholders(t.ID)))
	if tt, typed := snap.ResolvedType(t.ID); typed {
		meta += " • Type: " + tt.Name
	}

	rows := make([]string, 0, len(t.Snippets))
	for i, sn := range t.Snippets {
		check := "[ ]"
		if sn.Active {
			check = "[x]"
		}
		row := lipgloss.JoinHorizontal(lipgloss.Left,
			check, " ", CreateCategoryChip(sn.Category), " ", sn.Label, " ",
			CreateVarCount(len(placeholder.Extract(sn.Text))),
		)
		if i == m.snippetCursor {
			row = StyleFocused.Render("▶ ") + row
		} else {
			row = "  " + row
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		rows = append(rows, StyleTextDim.Render("No snippets yet"))
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Width(m.width/3).Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
		StyleContentContainer.Render(m.viewport.View()),
	)
	footer := m.renderHelp(
		[]string{"space toggle", "e edit", "a add", "c copy", "esc back"},
		[]string{"p fill placeholders • y change type • m markdown", "K/J reorder • d delete • q quit"},
	)
	return lipgloss.JoinVertical(lipgloss.Left, CreateMainHeader(t.Name), CreateMetadata(meta), body, footer)
}

func (m *Model) renderPlaceholdersView() string {
	snap := m.store.Snapshot()
	names := snap.Placeholders(m.templateID)
	values := snap.ValueMap(m.templateID)

	rows := make([]string, 0, len(names))
	for i, name := range names {
		value := values[name]
		shown := StyleUnfilled.Render(placeholder.Label(name))
		if strings.TrimSpace(value) != "" {
			shown = StyleFilled.Render(value)
		}
		if i == m.placeholderCursor {
			rows = append(rows, StyleFocused.Render("▶ "+name), m.valueInput.View())
		} else {
			rows = append(rows, StyleUnselected.Render("  "+name)+" "+shown)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, StyleTextDim.Render("This template has no placeholders"))
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Width(m.width/3).Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
		StyleContentContainer.Render(m.viewport.View()),
	)
	footer := m.renderHelp([]string{"↑/↓ choose", "type to fill", "esc back"}, nil)
	return lipgloss.JoinVertical(lipgloss.Left, CreateMainHeader("Placeholders"), body, footer)
}

func (m *Model) renderConfirmDelete() string {
	plan := m.pendingDelete
	snap := m.store.Snapshot()
	name := plan.TemplateID
	if t, ok := snap.Template(plan.TemplateID); ok {
		name = t.Name
	}
	lines := []string{
		StyleWarning.Render("Delete " + name + "?"),
		"",
		fmt.Sprintf("This template is the master of type %q, which is deleted with it.", plan.TypeName),
	}
	if n := len(plan.AffectedTemplates); n > 0 {
		lines = append(lines, fmt.Sprintf("%d other templates lose their type.", n))
	}
	lines = append(lines, "", StyleTextDim.Render("y delete • n cancel"))
	return StyleModal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderHelp(essential, additional []string) string {
	if m.showExpandedHelp && len(additional) == 0 {
		return m.help.FullHelpView(m.keys.FullHelp())
	}
	return CreateContextualHelp(essential, additional, m.showExpandedHelp, m.width)
}
