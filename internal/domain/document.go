package domain

import (
	"fmt"
	"path"
	"strings"
)

// SourceKind represents the file format of an ingested document
type SourceKind string

const (
	SourceKindHTML SourceKind = "html"
	SourceKindPDF  SourceKind = "pdf"
	SourceKindCSV  SourceKind = "csv"
)

// Document represents one ingested source after text extraction.
// Source is the stable identifier used in citations (a path relative to the
// data root, or an object key); Text is the normalized plain text.
type Document struct {
	Source string
	Kind   SourceKind
	Text   string
}

// KindForPath maps a file path to its SourceKind by extension
func KindForPath(p string) (SourceKind, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return SourceKindHTML, true
	case ".pdf":
		return SourceKindPDF, true
	case ".csv":
		return SourceKindCSV, true
	}
	return "", false
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.Source == "" {
		return fmt.Errorf("document Source is required")
	}

	if !isValidSourceKind(d.Kind) {
		return fmt.Errorf("document Kind is invalid: %s", d.Kind)
	}

	return nil
}

// isValidSourceKind checks if a SourceKind is valid
func isValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceKindHTML, SourceKindPDF, SourceKindCSV:
		return true
	}
	return false
}
