package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptModal asks for one line of text, such as a template name
type PromptModal struct {
	title     string
	input     textinput.Model
	isActive  bool
	submitted bool
	// purpose tells the model what to do with the value
	purpose int
}

// Prompt purposes
const (
	promptRename = iota + 1
	promptTypeName
)

// NewPromptModal creates an inactive modal
func NewPromptModal() *PromptModal {
	input := textinput.New()
	input.CharLimit = 120
	input.Width = 40
	return &PromptModal{input: input}
}

// Open activates the modal with an initial value
func (p *PromptModal) Open(purpose int, title, placeholder, value string) {
	p.title = title
	p.purpose = purpose
	p.input.Placeholder = placeholder
	p.input.SetValue(value)
	p.input.CursorEnd()
	p.input.Focus()
	p.isActive = true
	p.submitted = false
}

func (p *PromptModal) IsActive() bool    { return p.isActive }
func (p *PromptModal) IsSubmitted() bool { return p.submitted }
func (p *PromptModal) Purpose() int      { return p.purpose }
func (p *PromptModal) Value() string     { return p.input.Value() }

// Close deactivates the modal
func (p *PromptModal) Close() {
	p.isActive = false
	p.submitted = false
	p.input.Blur()
}

// Update handles a key press
func (p *PromptModal) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			p.submitted = true
			return nil
		case tea.KeyEsc:
			p.Close()
			return nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

// View renders the modal
func (p *PromptModal) View() string {
	return StyleModal.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		StyleFormLabel.Render(p.title),
		"",
		p.input.View(),
		"",
		StyleTextDim.Render("Enter confirm • Esc cancel"),
	))
}
