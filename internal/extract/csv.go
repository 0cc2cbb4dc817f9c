package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSV extracts chat-log style text from a CSV document. The first row is
// treated as a header; each following row contributes its "message" column
// (falling back to "text", then to all non-empty fields joined). Rows are
// separated by newlines.
func CSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) < 2 {
		return "", nil
	}

	header := records[0]
	msgCol := columnIndex(header, "message")
	if msgCol < 0 {
		msgCol = columnIndex(header, "text")
	}

	var lines []string
	for _, row := range records[1:] {
		line := ""
		if msgCol >= 0 && msgCol < len(row) {
			line = strings.TrimSpace(row[msgCol])
		}
		if line == "" {
			line = joinFields(row)
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

func joinFields(row []string) string {
	var parts []string
	for _, f := range row {
		f = strings.TrimSpace(f)
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
