// Package textnorm cleans raw message text into previews and search strings.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// PreviewLength is the number of runes kept in a preview before the ellipsis.
	PreviewLength = 90
	// Ellipsis marks a truncated preview.
	Ellipsis = "…"

	MinPrefixLength = 100
	MaxPrefixLength = 20000
)

// Scope selects how much of a message is searchable.
type Scope string

const (
	ScopePreview Scope = "preview"
	ScopePrefix  Scope = "prefix"
	ScopeFull    Scope = "full"
)

const zeroWidthSpace = '\u200b'

// rolePrefix matches UI-emitted role labels. A colon is required so ordinary
// prose that happens to start with "You" or "User" is left alone.
var rolePrefix = regexp.MustCompile(`(?i)^(?:你说|我说|用户说|助手说|ChatGPT说|ChatGPT 说|Assistant says|Assistant|User says|User|You said|You|System)\s*[:：]\s*`)

// Normalize collapses whitespace runs to one space, drops zero-width spaces
// and trims both ends.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if isSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if r == zeroWidthSpace {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// isSpace mirrors the browser's \s class, which also covers the BOM.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

// StripRolePrefix removes a leading "User:"/"Assistant:" style label.
func StripRolePrefix(s string) string {
	t := strings.TrimSpace(s)
	t = rolePrefix.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// Clean is Normalize followed by StripRolePrefix.
func Clean(raw string) string {
	return StripRolePrefix(Normalize(raw))
}

// Preview returns at most PreviewLength runes of the cleaned text, with an
// ellipsis when truncated. An empty result means the message should be dropped.
func Preview(raw string) string {
	t := Clean(raw)
	if t == "" {
		return ""
	}
	if cut, ok := truncate(t, PreviewLength); ok {
		return cut + Ellipsis
	}
	return t
}

// SearchText returns the cleaned text truncated according to scope.
func SearchText(raw string, scope Scope, prefixLength int) string {
	t := Clean(raw)
	if t == "" || scope == ScopeFull {
		return t
	}
	n := PreviewLength
	if scope == ScopePrefix {
		n = Clamp(prefixLength, MinPrefixLength, MaxPrefixLength)
	}
	cut, _ := truncate(t, n)
	return cut
}

// RuneLen counts runes, the unit every length rule in this module uses.
func RuneLen(s string) int {
	return len([]rune(s))
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}

func truncate(s string, n int) (string, bool) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
