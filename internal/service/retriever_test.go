package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside-labs/deskrag/internal/domain"
)

func retrieverCorpus() []domain.Chunk {
	return []domain.Chunk{
		{Source: "fund_letters/q2_letter.html", Start: 0, End: 50, Text: "Energy positions drove returns this quarter, energy exposure was trimmed late."},
		{Source: "fund_letters/q2_letter.html", Start: 40, End: 90, Text: "Duration risk stayed low while credit spreads tightened across the book."},
		{Source: "fund_letters/q2_macro_addendum.pdf", Start: 0, End: 45, Text: "Macro addendum flags energy supply constraints into the second half."},
		{Source: "chat_logs/desk_chat.csv", Start: 0, End: 30, Text: "Desk watching ACME earnings, flows quiet otherwise."},
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"lowercases", "Energy DROVE Returns", []string{"energy", "drove", "returns"}},
		{"keeps interior apostrophes", "the desk's view", []string{"the", "desk's", "view"}},
		{"splits punctuation", "risk-on; flows, quiet.", []string{"risk", "on", "flows", "quiet"}},
		{"numbers", "q2 returns up 12 pct", []string{"q2", "returns", "up", "12", "pct"}},
		{"empty", "...", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenize(tt.input))
		})
	}
}

func TestRetrieverSearchRelevance(t *testing.T) {
	r := NewRetriever(retrieverCorpus(), DefaultRetrieverConfig())

	results := r.Search("energy exposure", 4)
	require.NotEmpty(t, results)

	// The letter chunk mentions energy twice, the addendum once.
	assert.Equal(t, "fund_letters/q2_letter.html", results[0].Chunk.Source)
	assert.Equal(t, 0, results[0].Chunk.Start)
	for _, sc := range results {
		assert.Greater(t, sc.Score, 0.0)
	}
}

func TestRetrieverExcludesZeroOverlap(t *testing.T) {
	r := NewRetriever(retrieverCorpus(), DefaultRetrieverConfig())

	results := r.Search("energy", 10)
	require.Len(t, results, 2, "only chunks sharing a term may appear")
	for _, sc := range results {
		assert.Contains(t, sc.Chunk.Text, "energy")
	}
}

func TestRetrieverNoMatches(t *testing.T) {
	r := NewRetriever(retrieverCorpus(), DefaultRetrieverConfig())

	assert.Empty(t, r.Search("blockchain tokenomics", 5))
}

func TestRetrieverEmptyQuery(t *testing.T) {
	r := NewRetriever(retrieverCorpus(), DefaultRetrieverConfig())

	assert.Empty(t, r.Search("", 5))
	assert.Empty(t, r.Search("!!!", 5))
}

func TestRetrieverEmptyCorpus(t *testing.T) {
	r := NewRetriever(nil, DefaultRetrieverConfig())

	assert.Equal(t, 0, r.Size())
	assert.Empty(t, r.Search("anything", 5))
}

func TestRetrieverKClamp(t *testing.T) {
	r := NewRetriever(retrieverCorpus(), DefaultRetrieverConfig())

	assert.Len(t, r.Search("energy", 1), 1)
	assert.Empty(t, r.Search("energy", 0))
}

func TestRetrieverCaseInsensitive(t *testing.T) {
	r := NewRetriever(retrieverCorpus(), DefaultRetrieverConfig())

	upper := r.Search("ENERGY", 3)
	lower := r.Search("energy", 3)
	assert.Equal(t, lower, upper)
}

func TestRetrieverDeterministic(t *testing.T) {
	corpus := retrieverCorpus()
	query := "energy credit risk returns"

	first := NewRetriever(corpus, DefaultRetrieverConfig()).Search(query, 4)
	for i := 0; i < 10; i++ {
		again := NewRetriever(corpus, DefaultRetrieverConfig()).Search(query, 4)
		require.Equal(t, first, again, "rebuilt index must rank identically")
	}
}

func TestRetrieverTieBreakByCorpusOrder(t *testing.T) {
	corpus := []domain.Chunk{
		{Source: "a.html", Start: 0, End: 10, Text: "identical text body"},
		{Source: "b.html", Start: 0, End: 10, Text: "identical text body"},
		{Source: "c.html", Start: 0, End: 10, Text: "identical text body"},
	}
	r := NewRetriever(corpus, DefaultRetrieverConfig())

	results := r.Search("identical body", 3)
	require.Len(t, results, 3)
	assert.Equal(t, "a.html", results[0].Chunk.Source)
	assert.Equal(t, "b.html", results[1].Chunk.Source)
	assert.Equal(t, "c.html", results[2].Chunk.Source)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestRetrieverScoreComponents(t *testing.T) {
	r := NewRetriever(retrieverCorpus(), RetrieverConfig{Alpha: 0.65, K1: 1.5, B: 0.75})

	results := r.Search("energy", 1)
	require.Len(t, results, 1)

	sc := results[0]
	assert.Greater(t, sc.BM25, 0.0)
	assert.Greater(t, sc.TFIDF, 0.0)
	assert.LessOrEqual(t, sc.TFIDF, 1.0+1e-9, "cosine similarity stays within unit range")
	assert.InDelta(t, 0.65*sc.BM25+0.35*sc.TFIDF, sc.Score, 1e-9)
}

func TestRetrieverHandle(t *testing.T) {
	h := NewRetrieverHandle()

	_, err := h.Current()
	assert.ErrorIs(t, err, domain.ErrCorpusMissing)

	first := NewRetriever(retrieverCorpus(), DefaultRetrieverConfig())
	h.Swap(first)

	got, err := h.Current()
	require.NoError(t, err)
	assert.Same(t, first, got)

	second := NewRetriever(retrieverCorpus()[:1], DefaultRetrieverConfig())
	h.Swap(second)

	got, err = h.Current()
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, 1, got.Size())
}
