// Package metadata derives book metadata from filesystem path conventions
// and, optionally, enriches it from an external ISBN lookup service.
package metadata

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Derived is the set of attributes the deriver can extract from a path
// alone, with no file content inspection.
type Derived struct {
	AuthorName string
	Title      string
	FileFormat string
	ISBN       string
}

// Derive extracts metadata from filePath, which is expected to follow the
// convention <root>/<AuthorOrPublisher>/<TitleOrSeries>/<file>.
func Derive(filePath string) Derived {
	dir := filepath.Dir(filePath)
	parent := filepath.Base(dir)
	grandparent := filepath.Base(filepath.Dir(dir))

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	return Derived{
		AuthorName: grandparent,
		Title:      parent,
		FileFormat: ext,
		ISBN:       ExtractISBN(stem),
	}
}

// NormalizeName folds a display name to a diacritic-stripped, lowercased
// form with punctuation turned into spaces and whitespace collapsed, so
// author lookups are stable across minor punctuation and spacing
// differences ("J.R.R. Tolkien" vs "J. R. R. Tolkien").
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	decomposed, _, err := transform.String(t, name)
	if err != nil {
		decomposed = name
	}
	decomposed = strings.ToLower(decomposed)
	decomposed = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, decomposed)
	return strings.Join(strings.Fields(decomposed), " ")
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
