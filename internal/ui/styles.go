package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Design System Colors - Adaptive based on terminal background
var (
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorAccent    lipgloss.Color

	// Semantic colors
	ColorSuccess lipgloss.Color
	ColorWarning lipgloss.Color
	ColorError   lipgloss.Color
	ColorInfo    lipgloss.Color

	// Neutral colors (contrast-adaptive)
	ColorText      lipgloss.Color
	ColorTextMuted lipgloss.Color
	ColorTextDim   lipgloss.Color
	ColorBorder    lipgloss.Color
	ColorSurface   lipgloss.Color
)

// CategoryColors is the chip palette of one snippet category
type CategoryColors struct {
	Background lipgloss.Color
	Border     lipgloss.Color
	Text       lipgloss.Color
}

// categoryPalette colors the categories of the default catalog. Every other
// category uses the Blank colors.
var categoryPalette = map[string]CategoryColors{
	"Blank":   {Background: "#F1F5F9", Border: "#94A3B8", Text: "#64748B"},
	"Product": {Background: "#FEF3C7", Border: "#F59E0B", Text: "#D97706"},
	"ROLE":    {Background: "#DBEAFE", Border: "#3B82F6", Text: "#2563EB"},
}

// ColorsForCategory returns the palette of a category
func ColorsForCategory(category string) CategoryColors {
	if c, ok := categoryPalette[category]; ok {
		return c
	}
	return categoryPalette["Blank"]
}

// initializeColors sets up adaptive colors based on terminal background
func initializeColors() {
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		setLightThemeColors()
	case "dark":
		setDarkThemeColors()
	default:
		if lipgloss.HasDarkBackground() {
			setDarkThemeColors()
		} else {
			setLightThemeColors()
		}
	}
	buildStyles()
}

func setDarkThemeColors() {
	ColorPrimary = lipgloss.Color("205")
	ColorSecondary = lipgloss.Color("33")
	ColorAccent = lipgloss.Color("214")

	ColorSuccess = lipgloss.Color("10")
	ColorWarning = lipgloss.Color("11")
	ColorError = lipgloss.Color("9")
	ColorInfo = lipgloss.Color("12")

	ColorText = lipgloss.Color("252")
	ColorTextMuted = lipgloss.Color("244")
	ColorTextDim = lipgloss.Color("240")
	ColorBorder = lipgloss.Color("238")
	ColorSurface = lipgloss.Color("236")
}

func setLightThemeColors() {
	ColorPrimary = lipgloss.Color("125")
	ColorSecondary = lipgloss.Color("24")
	ColorAccent = lipgloss.Color("130")

	ColorSuccess = lipgloss.Color("22")
	ColorWarning = lipgloss.Color("136")
	ColorError = lipgloss.Color("160")
	ColorInfo = lipgloss.Color("24")

	ColorText = lipgloss.Color("232")
	ColorTextMuted = lipgloss.Color("240")
	ColorTextDim = lipgloss.Color("244")
	ColorBorder = lipgloss.Color("248")
	ColorSurface = lipgloss.Color("254")
}

// Component Styles
var (
	StyleTitle     lipgloss.Style
	StyleText      lipgloss.Style
	StyleTextMuted lipgloss.Style
	StyleTextDim   lipgloss.Style

	// Interactive states
	StyleFocused    lipgloss.Style
	StyleUnselected lipgloss.Style
	StyleDisabled   lipgloss.Style

	// Status and feedback
	StyleSuccess lipgloss.Style
	StyleWarning lipgloss.Style
	StyleError   lipgloss.Style
	StyleInfo    lipgloss.Style

	// Layout styles
	StyleModal            lipgloss.Style
	StyleContentContainer lipgloss.Style
	StyleMetadata         lipgloss.Style
	StyleFormLabel        lipgloss.Style

	// Placeholder rendering in the preview
	StyleFilled   lipgloss.Style
	StyleUnfilled lipgloss.Style
)

func init() {
	setDarkThemeColors()
	buildStyles()
}

// buildStyles derives every style from the current colors
func buildStyles() {
	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
	StyleText = lipgloss.NewStyle().Foreground(ColorText)
	StyleTextMuted = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleTextDim = lipgloss.NewStyle().Foreground(ColorTextDim)

	StyleFocused = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(ColorSecondary).
		Bold(true).
		Padding(0, 1)
	StyleUnselected = lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
	StyleDisabled = lipgloss.NewStyle().Foreground(ColorTextDim).Strikethrough(true).Padding(0, 1)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Padding(0, 1)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true).Padding(0, 1)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true).Padding(0, 1)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true).Padding(0, 1)

	StyleModal = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2)
	StyleContentContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	StyleMetadata = lipgloss.NewStyle().Foreground(ColorTextDim).Padding(0, 1)
	StyleFormLabel = lipgloss.NewStyle().Foreground(ColorText).Bold(true)

	StyleFilled = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleUnfilled = lipgloss.NewStyle().Foreground(ColorWarning).Italic(true)
}

// CreateCategoryChip renders a category the way snippet rows show it
func CreateCategoryChip(category string) string {
	c := ColorsForCategory(category)
	return lipgloss.NewStyle().
		Foreground(c.Text).
		Background(c.Background).
		BorderForeground(c.Border).
		Padding(0, 1).
		Render(category)
}

// Create header for main page (no back button)
func CreateMainHeader(titleText string) string {
	return StyleTitle.Render(titleText)
}

func CreateMetadata(text string) string {
	return StyleMetadata.Render(text)
}

// Context-aware help creation with proper row display and smart truncation
func CreateContextualHelp(essential []string, additional []string, showExpanded bool, width int) string {
	firstRowParts := append([]string{}, essential...)
	if len(additional) > 0 && !showExpanded {
		firstRowParts = append(firstRowParts, "? more")
	}

	lines := []string{truncateHelp(strings.Join(firstRowParts, " • "), width)}
	if showExpanded {
		for _, row := range additional {
			lines = append(lines, truncateHelp(row, width))
		}
	}
	return StyleTextDim.Render(strings.Join(lines, "\n"))
}

func truncateHelp(text string, width int) string {
	if width > 7 && len(text) > width-4 {
		return text[:width-7] + "..."
	}
	return text
}

func CreateStatus(text string, statusType string) string {
	switch statusType {
	case "success":
		return StyleSuccess.Render(text)
	case "warning":
		return StyleWarning.Render(text)
	case "error":
		return StyleError.Render(text)
	case "info":
		return StyleInfo.Render(text)
	default:
		return StyleText.Render(text)
	}
}

// CreateOption renders one row of a picker
func CreateOption(label string, isSelected, isDisabled bool) string {
	switch {
	case isSelected:
		return StyleFocused.Render("▶ " + label)
	case isDisabled:
		return StyleDisabled.Render("  " + label)
	default:
		return StyleUnselected.Render("  " + label)
	}
}

// CreateVarCount renders the "n vars" badge of a snippet
func CreateVarCount(n int) string {
	if n == 0 {
		return ""
	}
	return StyleTextMuted.Render(fmt.Sprintf("%d vars", n))
}

// Modal centering helper
func CenterModal(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Add consistent padding to main content (left only, no top padding)
func AddMainPadding(content string) string {
	return lipgloss.NewStyle().PaddingLeft(2).Render(content)
}
