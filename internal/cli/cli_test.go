package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-composer/internal/gateway"
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

// harness runs verbs against one memory-backed store, like successive
// invocations of the binary against the same database
type harness struct {
	t   *testing.T
	gw  *gateway.Memory
	out bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, gw: gateway.NewMemory()}
}

func (h *harness) opener() Opener {
	return func(ctx context.Context) (*store.Store, error) {
		l := logrus.New()
		l.SetOutput(io.Discard)
		st, err := store.New("u1", h.gw, logrus.NewEntry(l), store.Options{
			Catalog:  seed.Default(),
			Debounce: 5 * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		return st, st.Load(ctx)
	}
}

// run executes one verb in a fresh CLI and returns its output
func (h *harness) run(format string, clip *fakeClipboard, args ...string) (string, error) {
	h.t.Helper()
	h.out.Reset()

	c := NewCLI(h.opener(), &h.out)
	c.SetFormat(format)
	if clip != nil {
		c.SetClipboard(clip)
	}
	defer c.Close()

	root := &cobra.Command{Use: "composer", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(c.Commands()...)
	root.SetArgs(args)
	root.SetOut(&h.out)
	err := root.ExecuteContext(context.Background())
	return h.out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(OutputTable, nil, args...)
	if err != nil {
		h.t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func (h *harness) ids() []string {
	h.t.Helper()
	out, err := h.run(OutputJSON, nil, "templates")
	if err != nil {
		h.t.Fatalf("templates failed: %v", err)
	}
	var list []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		h.t.Fatalf("Expected JSON list, got %q", out)
	}
	ids := make([]string, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}
	return ids
}

func TestTemplatesSeedsDefaults(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("templates")

	if !strings.Contains(out, "4W") || !strings.Contains(out, "AI Teammate") {
		t.Errorf("Expected seeded templates, got:\n%s", out)
	}

	// a second invocation loads what the first persisted instead of seeding again
	if ids := h.ids(); len(ids) != 2 {
		t.Errorf("Expected 2 templates after reload, got %d", len(ids))
	}
}

func TestSetAndRender(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("add-template", "Launch")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	id := lines[len(lines)-1]

	h.mustRun("add-snippet", "-t", id, "--label", "Intro", "--text", "Hello {who}", "--category", "Product")
	h.mustRun("set", "-t", id, "who", "the", "team")

	out = h.mustRun("render", id)
	if strings.TrimSpace(out) != "Hello the team" {
		t.Errorf("Expected %q, got %q", "Hello the team", out)
	}

	out = h.mustRun("show", id)
	if !strings.Contains(out, "Launch") || !strings.Contains(out, "1 vars") {
		t.Errorf("Unexpected show output:\n%s", out)
	}

	// the first template is active in every new session
	out = h.mustRun("show")
	if !strings.Contains(out, "4W (active)") {
		t.Errorf("Expected the first template to be active, got:\n%s", out)
	}
}

func TestDeleteMasterNeedsConfirm(t *testing.T) {
	h := newHarness(t)
	master := h.ids()[0]
	h.mustRun("create-type", "Briefs", "--master", master)

	out, err := h.run(OutputTable, nil, "delete", master)
	if err == nil {
		t.Fatalf("Expected delete without --confirm to fail")
	}
	if !strings.Contains(out, "--confirm") {
		t.Errorf("Expected the delete plan to be printed, got:\n%s", out)
	}

	h.mustRun("delete", master, "--confirm")
	if ids := h.ids(); len(ids) != 1 {
		t.Errorf("Expected 1 template left, got %d", len(ids))
	}
}

func TestCopy(t *testing.T) {
	h := newHarness(t)
	clip := &fakeClipboard{}

	out, err := h.run(OutputTable, clip, "copy")
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if clip.text == "" || !strings.Contains(out, "Copied") {
		t.Errorf("Expected the prompt on the clipboard, got %q / %q", clip.text, out)
	}
	if strings.Contains(clip.text, "{") {
		t.Errorf("Expected placeholders substituted, got %q", clip.text)
	}
}

func TestExportImport(t *testing.T) {
	src := newHarness(t)
	path := filepath.Join(t.TempDir(), "library.yaml")
	src.mustRun("export", path)

	dst := newHarness(t)
	out := dst.mustRun("import", path)
	if !strings.Contains(out, "Imported 2 templates") {
		t.Errorf("Unexpected import output %q", out)
	}
	// two seeded plus two imported
	if ids := dst.ids(); len(ids) != 4 {
		t.Errorf("Expected 4 templates, got %d", len(ids))
	}
}

func TestErrorsCarryCodes(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(OutputTable, nil, "toggle", "missing")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}
