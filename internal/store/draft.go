package store

import (
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/placeholder"
)

// SnippetFields are the user-editable fields of a snippet
type SnippetFields struct {
	Label    string `json:"label" validate:"required"`
	Text     string `json:"text"`
	Category string `json:"category" validate:"required"`
}

func fieldsOf(s models.Snippet) SnippetFields {
	return SnippetFields{Label: s.Label, Text: s.Text, Category: s.Category}
}

// Draft holds uncommitted edits of one snippet. Nothing is persisted until the
// draft is saved through Store.SaveDraft; dropping the draft discards the edits.
type Draft struct {
	SnippetID  string
	TemplateID string

	committed SnippetFields
	current   SnippetFields

	typed  bool
	master []models.Snippet
}

func newDraft(s models.Snippet, typed bool, master []models.Snippet) *Draft {
	f := fieldsOf(s)
	return &Draft{
		SnippetID:  s.ID,
		TemplateID: s.TemplateID,
		committed:  f,
		current:    f,
		typed:      typed,
		master:     master,
	}
}

// Committed returns the fields as last saved
func (d *Draft) Committed() SnippetFields {
	return d.committed
}

// Current returns the edited fields
func (d *Draft) Current() SnippetFields {
	return d.current
}

// Dirty reports whether any field differs from the committed snippet
func (d *Draft) Dirty() bool {
	return d.current != d.committed
}

// SetLabel edits the label
func (d *Draft) SetLabel(label string) {
	d.current.Label = label
}

// SetText edits the text
func (d *Draft) SetText(text string) {
	d.current.Text = text
}

// Reset discards the edits
func (d *Draft) Reset() {
	d.current = d.committed
}

// ChangeCategory switches the draft's category. In a typed template, picking a
// master category other than Blank starts from the master snippet's label and
// text, and picking Blank on a draft that is already Blank with empty text
// resets it to a new snippet. Otherwise the text is kept.
func (d *Draft) ChangeCategory(category string) {
	prev := d.current.Category
	d.current.Category = category
	if !d.typed {
		return
	}

	if category == models.CategoryBlank {
		if prev == models.CategoryBlank && d.current.Text == "" {
			d.current.Label = models.DefaultSnippetLabel
		}
		return
	}

	for _, m := range d.master {
		if m.Category == category {
			d.current.Label = m.Label
			d.current.Text = m.Text
			return
		}
	}
}

// Placeholders returns the placeholder names of the draft text
func (d *Draft) Placeholders() []string {
	return placeholder.Extract(d.current.Text)
}

// CanWrap reports whether the byte range [start, end) of the text may become a placeholder
func (d *Draft) CanWrap(start, end int) bool {
	return placeholder.CanWrap(d.current.Text, start, end)
}

// WrapSelection turns the byte range [start, end) of the text into a placeholder
func (d *Draft) WrapSelection(start, end int) bool {
	text, ok := placeholder.Wrap(d.current.Text, start, end)
	if ok {
		d.current.Text = text
	}
	return ok
}

// Unwrap replaces the first {name} in the text by the bare name
func (d *Draft) Unwrap(name string) {
	d.current.Text = placeholder.Unwrap(d.current.Text, name)
}

func (d *Draft) markSaved() {
	d.committed = d.current
}
