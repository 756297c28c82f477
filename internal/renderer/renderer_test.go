package renderer

import (
	"encoding/json"
	"testing"

	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/google/go-cmp/cmp"
)

func snip(id, text string, active bool) models.Snippet {
	return models.Snippet{ID: id, Label: id, Category: models.CategoryBlank, Text: text, Active: active}
}

func TestRenderTextSubstitution(t *testing.T) {
	snippets := []models.Snippet{snip("s1", "Hello {name}", true)}

	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"filled", map[string]string{"name": "Sam"}, "Hello Sam"},
		{"trimmed", map[string]string{"name": "  Sam "}, "Hello Sam"},
		{"missing", map[string]string{}, "Hello Name"},
		{"blank", map[string]string{"name": "  "}, "Hello Name"},
		{"nil map", nil, "Hello Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRenderer(snippets, tt.values).RenderText()
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderTextRepeatedPlaceholder(t *testing.T) {
	snippets := []models.Snippet{snip("s1", "{x} and {x} and {panelCount}", true)}
	got := NewRenderer(snippets, map[string]string{"x": "1"}).RenderText()
	if got != "1 and 1 and Panel Count" {
		t.Errorf("Unexpected render %q", got)
	}
}

func TestRenderTextJoinsActiveSnippets(t *testing.T) {
	snippets := []models.Snippet{
		snip("a", "A", true),
		snip("skip", "hidden {secret}", false),
		snip("b", "B", true),
	}
	r := NewRenderer(snippets, nil)

	if got := r.RenderText(); got != "A\n\nB" {
		t.Errorf("Expected %q, got %q", "A\n\nB", got)
	}

	blocks := r.RenderBlocks()
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].SnippetID != "a" || blocks[1].SnippetID != "b" {
		t.Errorf("Unexpected block order: %+v", blocks)
	}
	if blocks[0].IsLast || !blocks[1].IsLast {
		t.Error("Expected only the final block to be marked last")
	}
	if got := r.Placeholders(); len(got) != 0 {
		t.Errorf("Inactive snippet placeholders must be excluded, got %v", got)
	}
}

func TestRenderTextNoActiveSnippets(t *testing.T) {
	r := NewRenderer([]models.Snippet{snip("a", "A", false)}, nil)
	if got := r.RenderText(); got != "" {
		t.Errorf("Expected empty output, got %q", got)
	}
}

func TestSpans(t *testing.T) {
	values := map[string]string{"who": "engineers", "tone": " "}
	got := Spans("Audience: {who}, tone {tone}.", values)
	want := []Span{
		{Kind: SpanText, Value: "Audience: "},
		{Kind: SpanFilled, Value: "engineers", Key: "who"},
		{Kind: SpanText, Value: ", tone "},
		{Kind: SpanUnfilled, Value: "Tone", Key: "tone"},
		{Kind: SpanText, Value: "."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Spans mismatch (-want +got):\n%s", diff)
	}
}

func TestSpansValueEqualToLabelIsFilled(t *testing.T) {
	got := Spans("{name}", map[string]string{"name": "Name"})
	if len(got) != 1 || got[0].Kind != SpanFilled {
		t.Errorf("Expected a filled span, got %+v", got)
	}
}

func TestSpansPlainText(t *testing.T) {
	got := Spans("no placeholders", nil)
	if len(got) != 1 || got[0].Kind != SpanText || got[0].Value != "no placeholders" {
		t.Errorf("Unexpected spans %+v", got)
	}
	if spans := Spans("", nil); len(spans) != 0 {
		t.Errorf("Expected no spans for empty text, got %+v", spans)
	}
}

func TestRenderJSON(t *testing.T) {
	r := NewRenderer([]models.Snippet{snip("a", "Help me {outcome}", true)}, map[string]string{"outcome": "ship"})
	out, err := r.RenderJSON()
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(out), &messages); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != "user" || messages[0].Content != "Help me ship" {
		t.Errorf("Unexpected messages %+v", messages)
	}
}
