package clipboard

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

type fakeWriter struct {
	got string
	err error
}

func (f *fakeWriter) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.got = text
	return nil
}

func TestClipboardError(t *testing.T) {
	err := NewClipboardError()

	if err.OS != runtime.GOOS {
		t.Errorf("Expected OS to be %s, got %s", runtime.GOOS, err.OS)
	}
	if err.Error() == "" {
		t.Error("Error message should not be empty")
	}
}

func TestCopyTo(t *testing.T) {
	w := &fakeWriter{}
	if err := CopyTo(w, "Hello team"); err != nil {
		t.Fatalf("CopyTo failed: %v", err)
	}
	if w.got != "Hello team" {
		t.Errorf("Expected %q, got %q", "Hello team", w.got)
	}
}

func TestCopyToRefusesEmpty(t *testing.T) {
	w := &fakeWriter{}
	if err := CopyTo(w, ""); err == nil {
		t.Error("Expected empty text to be refused")
	}
	if w.got != "" {
		t.Errorf("Expected nothing written, got %q", w.got)
	}
}

func TestCopyToErrors(t *testing.T) {
	missing := &fakeWriter{err: NewClipboardError()}
	err := CopyTo(missing, "x")
	var clipErr *ClipboardError
	if !errors.As(err, &clipErr) {
		t.Errorf("Expected ClipboardError to pass through, got %v", err)
	}

	broken := &fakeWriter{err: errors.New("exit status 1")}
	err = CopyTo(broken, "x")
	if err == nil || !strings.Contains(err.Error(), "failed to copy") {
		t.Errorf("Expected wrapped failure, got %v", err)
	}
}

func TestGetInstallInstructions(t *testing.T) {
	if GetInstallInstructions() == "" {
		t.Error("Install instructions should not be empty")
	}
}
