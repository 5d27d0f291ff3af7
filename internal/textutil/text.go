package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldDiacritics strips combining marks, so "Čerstvý chléb" becomes
// "Cerstvy chleb".
func FoldDiacritics(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

// CollapseWhitespace trims value and joins internal whitespace runs with a
// single space.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Truncate shortens value to at most limit runes, marking cuts with "...".
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(value)
	if len(r) <= limit {
		return value
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return strings.TrimSpace(string(r[:limit-3])) + "..."
}

// NormalizeHashtags lowercases tags, prefixes them with '#', and drops
// blanks and duplicates while preserving order.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.TrimLeft(tag, "#")
		tag = strings.Join(strings.Fields(tag), "")
		if tag == "" {
			continue
		}
		tag = "#" + tag
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
