// Package content holds the shared naming and text helpers used by every
// pipeline stage when turning generated markdown into stable artifact names.
package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	titlePattern     = regexp.MustCompile(`(?m)^# (.+)$`)
	nonWordPattern   = regexp.MustCompile(`[^\w\s-]`)
	separatorPattern = regexp.MustCompile(`[\s-]+`)
)

// Fold strips diacritics from the provided text, e.g. 'Locução'
// becomes 'Locucao'.
func Fold(text string) string {
	decomposed := norm.NFD.String(text)
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, decomposed)
}

// Slugify converts text to a file-name safe slug, e.g.
// 'Proteção contra Golpes' becomes 'protecao_contra_golpes'.
// Accented characters are folded to their ASCII base form before
// punctuation is stripped.
func Slugify(text string) string {
	slug := nonWordPattern.ReplaceAllString(Fold(text), "")
	slug = separatorPattern.ReplaceAllString(slug, "_")
	return strings.Trim(strings.ToLower(slug), "_")
}

// ExtractTitle returns the first H1 heading of the provided markdown
// document (without the '# ' prefix), or an empty string when the document
// contains no H1.
func ExtractTitle(markdown string) string {
	if match := titlePattern.FindStringSubmatch(markdown); match != nil {
		return strings.TrimSpace(match[1])
	}

	return ""
}

// FileName derives a semantic artifact name from the title when one is
// available, falling back to the item index otherwise. The result has the
// form '<prefix>_<slug><extension>'.
func FileName(title string, prefix string, index int, extension string) string {
	if title != "" {
		if slug := Slugify(title); slug != "" {
			return fmt.Sprintf("%s_%s%s", prefix, slug, extension)
		}
	}

	return fmt.Sprintf("%s_%d%s", prefix, index, extension)
}

// Truncate caps a string at the provided number of runes. Prompt templates
// use this to bound the amount of page text handed to the AI provider.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
