package docstore

import (
	"path"
	"strings"

	"github.com/src-d/enry/v2"
)

// sqlLanguageIDs are the editor language identifiers accepted without
// content inspection.
var sqlLanguageIDs = map[string]struct{}{
	"sql":       {},
	"bigquery":  {},
	"googlesql": {},
	"bqsql":     {},
}

// Eligible reports whether the document is a SQL document worth
// estimating. The declared language ID wins when it names a SQL
// dialect; otherwise the language is detected from the file name and
// content.
func Eligible(doc Document) bool {
	if _, ok := sqlLanguageIDs[strings.ToLower(doc.LanguageID)]; ok {
		return true
	}

	lang := enry.GetLanguage(path.Base(doc.URI), []byte(doc.Text))

	return strings.Contains(strings.ToUpper(lang), "SQL")
}
