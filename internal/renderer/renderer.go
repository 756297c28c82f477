package renderer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/placeholder"
)

// SnippetSeparator joins the rendered text of consecutive active snippets.
const SnippetSeparator = "\n\n"

// SpanKind classifies a piece of rendered snippet text
type SpanKind string

const (
	SpanText     SpanKind = "text"
	SpanFilled   SpanKind = "filled"
	SpanUnfilled SpanKind = "unfilled"
)

// Span is a run of rendered text. Key is set for placeholder spans.
type Span struct {
	Kind  SpanKind `json:"type"`
	Value string   `json:"value"`
	Key   string   `json:"key,omitempty"`
}

// Block is the span sequence of one active snippet
type Block struct {
	SnippetID string `json:"snippet_id"`
	Category  string `json:"category"`
	Label     string `json:"label"`
	Spans     []Span `json:"spans"`
	IsLast    bool   `json:"is_last"`
}

// Renderer composes the final prompt of a template
type Renderer struct {
	snippets []models.Snippet
	values   map[string]string
}

// NewRenderer creates a renderer over snippets in display order and a key → value map
func NewRenderer(snippets []models.Snippet, values map[string]string) *Renderer {
	if values == nil {
		values = map[string]string{}
	}
	return &Renderer{
		snippets: snippets,
		values:   values,
	}
}

// Substitution returns what a placeholder renders as and whether it counts as filled.
// Any value that is non-blank after trimming is filled, even if it equals the label.
func Substitution(name string, values map[string]string) (string, bool) {
	if v := strings.TrimSpace(values[name]); v != "" {
		return v, true
	}
	return placeholder.Label(name), false
}

func (r *Renderer) active() []models.Snippet {
	var active []models.Snippet
	for _, s := range r.snippets {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// renderSnippet substitutes every placeholder of one snippet. Replacement is a textual
// replace-all, so repeated placeholders all receive the same value.
func (r *Renderer) renderSnippet(text string) string {
	out := text
	for _, name := range placeholder.Extract(text) {
		sub, _ := Substitution(name, r.values)
		out = strings.ReplaceAll(out, placeholder.Token(name), sub)
	}
	return out
}

// RenderText renders the final prompt as plain text
func (r *Renderer) RenderText() string {
	active := r.active()
	parts := make([]string, 0, len(active))
	for _, s := range active {
		parts = append(parts, r.renderSnippet(s.Text))
	}
	return strings.Join(parts, SnippetSeparator)
}

// RenderBlocks renders each active snippet as a sequence of classified spans
func (r *Renderer) RenderBlocks() []Block {
	active := r.active()
	blocks := make([]Block, 0, len(active))
	for i, s := range active {
		blocks = append(blocks, Block{
			SnippetID: s.ID,
			Category:  s.Category,
			Label:     s.Label,
			Spans:     Spans(s.Text, r.values),
			IsLast:    i == len(active)-1,
		})
	}
	return blocks
}

// Spans splits text into literal and placeholder spans, substituting placeholder values
func Spans(text string, values map[string]string) []Span {
	var spans []Span
	last := 0
	for _, m := range placeholder.Scan(text) {
		if m.Start > last {
			spans = append(spans, Span{Kind: SpanText, Value: text[last:m.Start]})
		}
		sub, filled := Substitution(m.Name, values)
		kind := SpanUnfilled
		if filled {
			kind = SpanFilled
		}
		spans = append(spans, Span{Kind: kind, Value: sub, Key: m.Name})
		last = m.End
	}
	if last < len(text) {
		spans = append(spans, Span{Kind: SpanText, Value: text[last:]})
	}
	return spans
}

// RenderJSON renders the prompt as a JSON message array for LLM APIs
func (r *Renderer) RenderJSON() (string, error) {
	messages := []Message{
		{
			Role:    "user",
			Content: r.RenderText(),
		},
	}

	jsonBytes, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// Message represents a chat message for LLM APIs
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RenderMarkdown renders the prompt for a terminal, one heading per active snippet
func (r *Renderer) RenderMarkdown(wordWrap int) (string, error) {
	var b strings.Builder
	for _, s := range r.active() {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", s.Label, r.renderSnippet(s.Text))
	}

	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := term.Render(b.String())
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// Placeholders returns the distinct placeholder names of the active snippets
func (r *Renderer) Placeholders() []string {
	active := r.active()
	texts := make([]string, 0, len(active))
	for _, s := range active {
		texts = append(texts, s.Text)
	}
	return placeholder.ExtractAll(texts...)
}
