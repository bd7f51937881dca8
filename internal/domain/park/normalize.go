package park

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, so that
// "Bäckerei" and "Backerei" normalize to the same form.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// glyphReplacer drops trademark and copyright glyphs providers love to embed
// in entity names. They are noise for matching.
var glyphReplacer = strings.NewReplacer("™", "", "®", "", "©", "", "℠", "")

// NormalizeName canonicalizes an upstream entity name for fuzzy comparison:
// lowercase, trademark glyphs stripped, diacritics transliterated,
// punctuation collapsed to single spaces.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = glyphReplacer.Replace(s)

	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		// Punctuation, symbols and whitespace all collapse to one space.
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Slugify derives the canonical URL slug from a name. Slugs are unique within
// their parent scope; the writer is responsible for calling this before
// persisting, there is no save hook.
func Slugify(name string) string {
	return strings.ReplaceAll(NormalizeName(name), " ", "-")
}
