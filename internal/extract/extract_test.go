package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside-labs/deskrag/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses runs", "a  b\t\tc", "a b c"},
		{"newlines become spaces", "line one\nline two\r\nline three", "line one line two line three"},
		{"trims ends", "  padded  ", "padded"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
		{"already clean", "already clean", "already clean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestHTML(t *testing.T) {
	raw := []byte(`<!DOCTYPE html>
<html>
<head><title>Q2 Letter</title><style>p { color: red; }</style></head>
<body>
<!-- internal note -->
<script>console.log("tracking");</script>
<h1>Quarterly Letter</h1>
<p>Energy positions drove &amp; led returns.</p>
<table><tr><td>Alpha</td><td>Beta</td></tr></table>
</body>
</html>`)

	text := Normalize(HTML(raw))

	assert.Contains(t, text, "Quarterly Letter")
	assert.Contains(t, text, "Energy positions drove & led returns.")
	assert.Contains(t, text, "Alpha Beta")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "internal note")
	assert.NotContains(t, text, "<")
}

func TestHTMLBlockBoundariesSeparateWords(t *testing.T) {
	text := Normalize(HTML([]byte("<p>first</p><p>second</p>")))
	assert.Equal(t, "first second", text)
}

func TestCSV(t *testing.T) {
	t.Run("prefers message column", func(t *testing.T) {
		data := []byte("ts,user,message\n09:00,ana,Desk is watching ACME\n09:05,raj,Energy spreads widening\n")

		text, err := CSV(data)
		require.NoError(t, err)
		assert.Equal(t, "Desk is watching ACME\nEnergy spreads widening", text)
	})

	t.Run("falls back to text column", func(t *testing.T) {
		data := []byte("ts,text\n09:00,hello desk\n")

		text, err := CSV(data)
		require.NoError(t, err)
		assert.Equal(t, "hello desk", text)
	})

	t.Run("joins fields when no known column", func(t *testing.T) {
		data := []byte("a,b\none,two\n")

		text, err := CSV(data)
		require.NoError(t, err)
		assert.Equal(t, "one two", text)
	})

	t.Run("header only yields empty text", func(t *testing.T) {
		text, err := CSV([]byte("ts,message\n"))
		require.NoError(t, err)
		assert.Equal(t, "", text)
	})

	t.Run("malformed csv fails", func(t *testing.T) {
		_, err := CSV([]byte("a,\"unterminated\n"))
		assert.Error(t, err)
	})
}

func TestPDFInvalidData(t *testing.T) {
	_, err := PDF([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestTextDispatch(t *testing.T) {
	t.Run("html", func(t *testing.T) {
		text, err := Text(domain.SourceKindHTML, []byte("<p>hi</p>"))
		require.NoError(t, err)
		assert.Equal(t, "hi", Normalize(text))
	})

	t.Run("csv", func(t *testing.T) {
		text, err := Text(domain.SourceKindCSV, []byte("message\nhey\n"))
		require.NoError(t, err)
		assert.Equal(t, "hey", text)
	})

	t.Run("unsupported kind", func(t *testing.T) {
		_, err := Text(domain.SourceKind("docx"), []byte("x"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedDocument)
	})
}
