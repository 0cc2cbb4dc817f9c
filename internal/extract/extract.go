// Package extract converts raw document bytes into normalized plain text
// ready for chunking.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quayside-labs/deskrag/internal/domain"
)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize collapses all whitespace runs to single spaces and trims the
// ends. Chunk offsets refer to the normalized form, so every text that
// reaches the chunker must pass through here exactly once.
func Normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Text extracts plain text from raw document bytes according to kind.
// The result is not yet normalized.
func Text(kind domain.SourceKind, data []byte) (string, error) {
	switch kind {
	case domain.SourceKindHTML:
		return HTML(data), nil
	case domain.SourceKindPDF:
		return PDF(data)
	case domain.SourceKindCSV:
		return CSV(data)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, kind)
	}
}
