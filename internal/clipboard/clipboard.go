// Package clipboard copies composed prompts to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
)

// ClipboardError reports that no clipboard utility is available
type ClipboardError struct {
	OS      string
	Message string
}

func (e *ClipboardError) Error() string {
	return e.Message
}

// NewClipboardError creates a ClipboardError with installation instructions
func NewClipboardError() *ClipboardError {
	return &ClipboardError{
		OS:      runtime.GOOS,
		Message: "no clipboard utility found. " + GetInstallInstructions(),
	}
}

// Writer puts text on a clipboard
type Writer interface {
	WriteAll(text string) error
}

type systemWriter struct{}

func (systemWriter) WriteAll(text string) error {
	if clipboard.Unsupported {
		return NewClipboardError()
	}
	return clipboard.WriteAll(text)
}

// System is the OS clipboard
var System Writer = systemWriter{}

// Copy puts text on the system clipboard
func Copy(text string) error {
	return CopyTo(System, text)
}

// CopyTo puts text on w. Empty prompts are refused so the clipboard is not cleared by accident.
func CopyTo(w Writer, text string) error {
	if text == "" {
		return errors.New("nothing to copy: the prompt is empty")
	}
	if err := w.WriteAll(text); err != nil {
		var clipErr *ClipboardError
		if errors.As(err, &clipErr) {
			return err
		}
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// CopyWithFallback copies text and returns a status message
func CopyWithFallback(text string) (string, error) {
	if err := Copy(text); err != nil {
		return "", err
	}
	return fmt.Sprintf("Copied %d characters to clipboard!", len([]rune(text))), nil
}

// IsClipboardAvailable reports whether a clipboard utility was found
func IsClipboardAvailable() bool {
	return !clipboard.Unsupported
}

// GetInstallInstructions returns installation instructions for clipboard utilities
func GetInstallInstructions() string {
	switch runtime.GOOS {
	case "linux":
		return "Install a clipboard utility:\n" +
			"  • Ubuntu/Debian: sudo apt install xclip\n" +
			"  • Fedora/RHEL: sudo dnf install xclip\n" +
			"  • Arch: sudo pacman -S xclip\n" +
			"  • For Wayland: install wl-clipboard"
	case "darwin":
		return "pbcopy should be available by default on macOS"
	case "windows":
		return "clip should be available by default on Windows"
	default:
		return fmt.Sprintf("Clipboard not supported on %s", runtime.GOOS)
	}
}
