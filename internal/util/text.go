package util

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v\x{00A0}\x{2000}-\x{200B}\x{202F}\x{3000}]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Fold lowercases s and strips diacritics, for accent-insensitive lookups
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// NormalizeLine composes s to NFC, collapses horizontal whitespace and trims it
func NormalizeLine(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CollapseBlankLines trims s and reduces runs of blank lines to one
func CollapseBlankLines(s string) string {
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

// mojibake maps common double-encoded sequences that a codepage round trip
// cannot reverse because the original byte has no printable form.
var mojibake = strings.NewReplacer(
	"Ã¡", "á", "Ã ", "à", "Ã¢", "â", "Ã£", "ã", "Ã§", "ç",
	"Ã©", "é", "Ãª", "ê", "Ã­", "í", "Ã³", "ó", "Ã´", "ô",
	"Ãµ", "õ", "Ãº", "ú", "Ã¼", "ü", "Ã‰", "É", "Ã“", "Ó",
	"Ãš", "Ú", "Ã‡", "Ç", "Ã•", "Õ", "Ã‚", "Â", "Ãƒ", "Ã",
)

// RepairEncoding undoes UTF-8 text that was decoded as Windows-1252 and
// re-encoded. The repaired form is kept only when it is valid UTF-8 and
// carries fewer marker characters than the input.
func RepairEncoding(s string) string {
	if !strings.ContainsAny(s, "ÃÂ") {
		return s
	}

	best := s
	if raw, err := charmap.Windows1252.NewEncoder().String(s); err == nil && utf8.ValidString(raw) {
		if markerCount(raw) < markerCount(best) {
			best = raw
		}
	}
	if replaced := mojibake.Replace(s); markerCount(replaced) < markerCount(best) {
		best = replaced
	}
	return norm.NFC.String(best)
}

func markerCount(s string) int {
	return strings.Count(s, "Ã") + strings.Count(s, "Â")
}
