// Package placeholder finds and manipulates {name} tokens inside snippet text.
//
// A placeholder is the run of characters between a '{' and the next '}'. Names are
// taken verbatim: spaces and punctuation are allowed, an unterminated '{' or an empty
// "{}" is not a placeholder. Offsets reported by Scan are byte offsets into the text.
package placeholder

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	tokenRe = regexp.MustCompile(`\{([^}]+)\}`)
	upperRe = regexp.MustCompile(`([A-Z])`)
)

// Match is one placeholder occurrence. Start and End delimit the braces, so
// text[Start:End] == "{" + Name + "}".
type Match struct {
	Start int
	End   int
	Name  string
}

// Scan returns every placeholder occurrence in text, in order.
func Scan(text string) []Match {
	locs := tokenRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			Start: loc[0],
			End:   loc[1],
			Name:  text[loc[2]:loc[3]],
		})
	}
	return matches
}

// Extract returns the distinct placeholder names of text in order of first appearance.
func Extract(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range Scan(text) {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		names = append(names, m.Name)
	}
	return names
}

// ExtractAll merges the names of several texts, keeping first-appearance order.
func ExtractAll(texts ...string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, name := range Extract(text) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Token returns the literal "{name}" form of a placeholder name.
func Token(name string) string {
	return "{" + name + "}"
}

// Label turns a camelCase identifier into a display label:
// "panelCount" becomes "Panel Count" and "ABC" becomes "A B C".
func Label(name string) string {
	spaced := upperRe.ReplaceAllString(name, " $1")
	if spaced == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(spaced)
	if r != '\n' && r != '\r' {
		spaced = string(unicode.ToUpper(r)) + spaced[size:]
	}
	return strings.TrimSpace(spaced)
}

// CanWrap reports whether text[start:end] may become a placeholder. The range must be
// non-empty and must not touch any existing placeholder.
func CanWrap(text string, start, end int) bool {
	if start < 0 || end > len(text) || start >= end {
		return false
	}
	for _, m := range Scan(text) {
		if start < m.End && end > m.Start {
			return false
		}
	}
	return true
}

// Wrap encloses text[start:end] in braces. The second result is false, and text is
// returned unchanged, when CanWrap rejects the range.
func Wrap(text string, start, end int) (string, bool) {
	if !CanWrap(text, start, end) {
		return text, false
	}
	return text[:start] + "{" + text[start:end] + "}" + text[end:], true
}

// Unwrap replaces the first "{name}" in text with the bare name.
func Unwrap(text, name string) string {
	return strings.Replace(text, Token(name), name, 1)
}
