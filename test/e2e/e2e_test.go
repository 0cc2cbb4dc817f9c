//go:build e2e

package e2e

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// answerPayload mirrors the /answer response body.
type answerPayload struct {
	Text      string `json:"text"`
	Citations []struct {
		Source string `json:"source"`
		Start  int    `json:"start"`
		End    int    `json:"end"`
	} `json:"citations"`
	Sources    []string `json:"sources"`
	Route      string   `json:"route"`
	UsedTools  []string `json:"used_tools"`
	RetrievedK int      `json:"retrieved_k"`
	LatencyMS  int64    `json:"latency_ms"`
}

// ingestPayload mirrors the /ingest response body.
type ingestPayload struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	BytesRead int64    `json:"bytes_read"`
	Sources   []string `json:"sources"`
}

func (e *E2ETestEnv) ask(t *testing.T, question string, k int) answerPayload {
	t.Helper()
	body := map[string]interface{}{"question": question}
	if k > 0 {
		body["k"] = k
	}
	resp, err := e.Post("/answer", body)
	require.NoError(t, err)

	var answer answerPayload
	require.NoError(t, json.Unmarshal(resp.Data, &answer))
	return answer
}

// TestE2E_ColdStart covers the surface before any corpus exists.
func TestE2E_ColdStart(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health endpoint responds", func(t *testing.T) {
		resp, err := env.Get("/healthz")
		require.NoError(t, err)

		var health struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &health))
		assert.Equal(t, "ok", health.Status)
	})

	t.Run("answer before ingest is rejected", func(t *testing.T) {
		_, err := env.Post("/answer", map[string]string{"question": "What did the letter say?"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 409")
		assert.Contains(t, err.Error(), "run ingest first")
	})

	t.Run("empty question is rejected", func(t *testing.T) {
		_, err := env.Post("/answer", map[string]string{"question": "   "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 400")
		assert.Contains(t, err.Error(), "question is required")
	})
}

// TestE2E_IngestAndAnswer runs the full flow: build the corpus over the
// fixture documents, then route questions through every answer path.
func TestE2E_IngestAndAnswer(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("ingest builds the corpus", func(t *testing.T) {
		resp, err := env.Post("/ingest", nil)
		require.NoError(t, err)

		var stats ingestPayload
		require.NoError(t, json.Unmarshal(resp.Data, &stats))
		assert.Equal(t, 2, stats.Documents)
		assert.GreaterOrEqual(t, stats.Chunks, 2)
		assert.Greater(t, stats.BytesRead, int64(0))
		assert.ElementsMatch(t, []string{
			"chat_logs/desk_chat.csv",
			"fund_letters/q2_letter.html",
		}, stats.Sources)

		require.FileExists(t, env.CorpusPath)
	})

	t.Run("letter question answers extractively with citations", func(t *testing.T) {
		answer := env.ask(t, "What did the letter say about energy exposure?", 0)

		assert.Equal(t, "extractive", answer.Route)
		assert.Contains(t, answer.Text, "energy exposure")
		assert.Contains(t, answer.Text, "[fund_letters/q2_letter.html@")
		assert.Contains(t, answer.Sources, "fund_letters/q2_letter.html")
		assert.Contains(t, answer.UsedTools, "retriever")
		assert.GreaterOrEqual(t, answer.RetrievedK, 1)

		require.NotEmpty(t, answer.Citations)
		assert.Equal(t, "fund_letters/q2_letter.html", answer.Citations[0].Source)
		for _, c := range answer.Citations {
			assert.Greater(t, c.End, c.Start)
		}
	})

	t.Run("chat question cites the chat log", func(t *testing.T) {
		answer := env.ask(t, "Who flagged the settlement break in the chat?", 0)

		assert.Equal(t, "extractive", answer.Route)
		assert.Contains(t, answer.Text, "settlement break")
		assert.Contains(t, answer.Sources, "chat_logs/desk_chat.csv")
	})

	t.Run("price question skips the retriever", func(t *testing.T) {
		answer := env.ask(t, "What is the latest price of ACME?", 0)

		assert.Equal(t, "price", answer.Route)
		assert.Equal(t, "ACME last closed at 104.1 on 2025-07-30.", answer.Text)
		assert.Equal(t, []string{"price_tool"}, answer.UsedTools)
		assert.Empty(t, answer.Citations)
		assert.Empty(t, answer.Sources)
		assert.Zero(t, answer.RetrievedK)
	})

	t.Run("comparison question quotes both symbols", func(t *testing.T) {
		answer := env.ask(t, "Compare ACME and GLOBEX performance", 0)

		assert.Equal(t, "price", answer.Route)
		assert.Contains(t, answer.Text, "ACME returned")
		assert.Contains(t, answer.Text, "vs GLOBEX")
	})

	t.Run("mixed question answers both halves", func(t *testing.T) {
		answer := env.ask(t, "How did GLOBEX close and what does the desk chat say about the settlement break?", 0)

		assert.Equal(t, "rag", answer.Route)
		assert.Contains(t, answer.Text, "GLOBEX last closed at 56.6 on 2025-07-30.")
		assert.Contains(t, answer.Text, "settlement break")
		assert.Contains(t, answer.UsedTools, "price_tool")
		assert.Contains(t, answer.UsedTools, "retriever")
		assert.NotEmpty(t, answer.Citations)
	})

	t.Run("unknown symbol gets a helpful message", func(t *testing.T) {
		answer := env.ask(t, "What is the latest price of ZZZT?", 0)

		assert.Equal(t, "price", answer.Route)
		assert.Contains(t, answer.Text, "not in the price table")
		assert.Contains(t, answer.Text, "ACME, GLOBEX")
	})

	t.Run("question with no matching vocabulary gets the fallback", func(t *testing.T) {
		answer := env.ask(t, "xylophone quasar nebula", 0)

		assert.Equal(t, "extractive", answer.Route)
		assert.Equal(t, "I couldn't find relevant context in the provided documents.", answer.Text)
		assert.Zero(t, answer.RetrievedK)
		assert.Empty(t, answer.Citations)
	})

	t.Run("k caps the retrieved chunks", func(t *testing.T) {
		answer := env.ask(t, "What did the letter say about energy exposure?", 1)

		assert.Equal(t, 1, answer.RetrievedK)
		assert.Len(t, answer.Citations, 1)
	})

	t.Run("metrics journal records the traffic", func(t *testing.T) {
		data, err := os.ReadFile(env.MetricsPath)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.NotEmpty(t, lines)

		events := make(map[string]int)
		for _, line := range lines {
			var rec struct {
				Event string `json:"event"`
			}
			require.NoError(t, json.Unmarshal([]byte(line), &rec))
			events[rec.Event]++
		}
		assert.GreaterOrEqual(t, events["ingest"], 1)
		assert.GreaterOrEqual(t, events["answer"], 7)
	})
}

// TestE2E_Reingest verifies that a second ingest run picks up documents
// added after the first and that answers cite the new content.
func TestE2E_Reingest(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, err := env.Post("/ingest", nil)
	require.NoError(t, err)

	env.WriteDocument("notices/maintenance.html", `<html><body>
<p>The research portal is offline for a scheduled maintenance window on
Saturday August 9th from 06:00 to 09:00 UTC. Ticket updates resume once
the portal is back.</p>
</body></html>`)

	t.Run("second ingest picks up the new document", func(t *testing.T) {
		resp, err := env.Post("/ingest", nil)
		require.NoError(t, err)

		var stats ingestPayload
		require.NoError(t, json.Unmarshal(resp.Data, &stats))
		assert.Equal(t, 3, stats.Documents)
		assert.Contains(t, stats.Sources, "notices/maintenance.html")
	})

	t.Run("answers cite the new document", func(t *testing.T) {
		answer := env.ask(t, "When is the scheduled maintenance window?", 0)

		assert.Equal(t, "extractive", answer.Route)
		assert.Contains(t, answer.Text, "[notices/maintenance.html@")
		require.NotEmpty(t, answer.Citations)
		assert.Equal(t, "notices/maintenance.html", answer.Citations[0].Source)
	})
}
