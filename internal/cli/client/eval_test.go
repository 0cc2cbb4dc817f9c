package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvalSuite(t *testing.T) {
	t.Run("suite form", func(t *testing.T) {
		data := []byte(`{"cases":[{"question":"What changed?","expected_sources":["q2_letter"]}],"k":4}`)
		suite, err := parseEvalSuite(data)
		require.NoError(t, err)
		assert.Equal(t, 4, suite.K)
		require.Len(t, suite.Cases, 1)
		assert.Equal(t, "What changed?", suite.Cases[0].Question)
	})

	t.Run("bare array form", func(t *testing.T) {
		data := []byte(`[{"question":"price of ACME?","expected_route":"price"}]`)
		suite, err := parseEvalSuite(data)
		require.NoError(t, err)
		require.Len(t, suite.Cases, 1)
		assert.Equal(t, "price", suite.Cases[0].ExpectedRoute)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := parseEvalSuite([]byte(`{nope`))
		assert.Error(t, err)
	})

	t.Run("rejects empty suite", func(t *testing.T) {
		_, err := parseEvalSuite([]byte(`{"cases":[]}`))
		assert.Error(t, err)
	})

	t.Run("rejects case without question", func(t *testing.T) {
		_, err := parseEvalSuite([]byte(`[{"expected_sources":["a"]}]`))
		assert.Error(t, err)
	})
}

func TestScoreCase(t *testing.T) {
	answer := AskResponse{
		Route:     "extractive",
		Sources:   []string{"fund_letters/q2_letter.html", "chat_logs/desk_chat.csv"},
		UsedTools: []string{"retriever"},
		LatencyMS: 25,
	}

	t.Run("source hit on any overlap", func(t *testing.T) {
		c := EvalCase{
			Question:        "What changed?",
			ExpectedSources: []string{"missing.pdf", "chat_logs/desk_chat.csv"},
		}
		result := scoreCase(c, answer)
		assert.True(t, result.SourceHit)
		assert.Equal(t, int64(25), result.LatencyMS)
	})

	t.Run("source miss", func(t *testing.T) {
		c := EvalCase{Question: "What changed?", ExpectedSources: []string{"missing.pdf"}}
		result := scoreCase(c, answer)
		assert.False(t, result.SourceHit)
	})

	t.Run("route match", func(t *testing.T) {
		c := EvalCase{Question: "What changed?", ExpectedRoute: "extractive"}
		result := scoreCase(c, answer)
		assert.True(t, result.RouteMatch)
	})

	t.Run("route mismatch", func(t *testing.T) {
		c := EvalCase{Question: "What changed?", ExpectedRoute: "rag+llm"}
		result := scoreCase(c, answer)
		assert.False(t, result.RouteMatch)
	})
}
