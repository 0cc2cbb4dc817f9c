//go:build e2e

// Package e2e boots the full HTTP surface over a temporary data directory
// and exercises the ingest and answer flows end to end. Everything runs in
// process: documents live on the local filesystem, the price table is a
// static fixture and no generator is wired, so answers stay extractive.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quayside-labs/deskrag/internal/api/handlers"
	"github.com/quayside-labs/deskrag/internal/prices"
	"github.com/quayside-labs/deskrag/internal/repository"
	"github.com/quayside-labs/deskrag/internal/server"
	"github.com/quayside-labs/deskrag/internal/service"
	"github.com/quayside-labs/deskrag/internal/storage"
)

// Fixture documents. The letter and the chat log carry distinct vocabulary
// so retrieval questions land on a predictable source.
const letterHTML = `<!DOCTYPE html>
<html>
<head><title>Q2 Letter</title><style>p { margin: 0; }</style></head>
<body>
<h1>Quayside Partners Q2 Letter</h1>
<p>We trimmed our energy exposure during the second quarter, cutting the
midstream pipeline basket from nine percent of the book to six percent.
The reduction funded a larger position in ACME, whose order backlog grew
faster than we modelled.</p>
<p>Settlement infrastructure remains the sleeper theme of the year. We
expect clearing volumes to recover before year end and have sized GLOBEX
accordingly.</p>
<script>console.log("tracking");</script>
</body>
</html>`

const deskChatCSV = `ts,author,message
2025-07-01T09:12:00Z,mara,GLOBEX settlement break flagged by ops this morning
2025-07-01T09:14:30Z,jonas,confirmed the settlement break is on the custodian side not ours
2025-07-01T09:20:11Z,mara,hedging the GLOBEX book with futures until the break clears
2025-07-01T10:02:45Z,priya,ACME earnings call moved to Thursday
`

const pricesJSON = `{
  "ACME": [
    {"date": "2025-07-28", "close": 101.25},
    {"date": "2025-07-29", "close": 103.4},
    {"date": "2025-07-30", "close": 104.1}
  ],
  "GLOBEX": [
    {"date": "2025-07-28", "close": 55.2},
    {"date": "2025-07-29", "close": 54.85},
    {"date": "2025-07-30", "close": 56.6}
  ]
}`

// E2ETestEnv holds the running server and the directories it serves from.
type E2ETestEnv struct {
	T           *testing.T
	ServerURL   string
	DocsDir     string
	CorpusPath  string
	MetricsPath string
	HTTPClient  *http.Client

	server *httptest.Server
}

// SetupE2EEnv writes the fixture documents into a temp directory, assembles
// the real service stack over it and starts an HTTP server on the real
// router. The corpus starts empty; tests trigger ingestion themselves.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	t.Helper()

	root := t.TempDir()
	docsDir := filepath.Join(root, "docs")
	writeFixture(t, filepath.Join(docsDir, "fund_letters", "q2_letter.html"), letterHTML)
	writeFixture(t, filepath.Join(docsDir, "chat_logs", "desk_chat.csv"), deskChatCSV)

	pricesPath := filepath.Join(root, "prices.json")
	writeFixture(t, pricesPath, pricesJSON)

	corpusPath := filepath.Join(root, "index", "corpus.jsonl")
	metricsPath := filepath.Join(root, "metrics.jsonl")

	corpusRepo := repository.NewCorpusRepository(corpusPath)
	metricsRepo := repository.NewMetricsRepository(metricsPath)
	handle := service.NewRetrieverHandle()

	ingestSvc := service.NewIngestService(
		storage.NewFSSource(docsDir),
		corpusRepo,
		metricsRepo,
		handle,
		service.ChunkConfig{Window: 600, Overlap: 120},
		service.RetrieverConfig{Alpha: 0.65, K1: 1.5, B: 0.75},
	)

	book, err := prices.Load(pricesPath)
	require.NoError(t, err)

	agentSvc := service.NewAgentService(handle, book, nil, metricsRepo, service.AgentConfig{})

	router := server.NewRouter(server.RouterConfig{
		AnswerHandler: handlers.NewAnswerHandler(agentSvc),
		IngestHandler: handlers.NewIngestHandler(ingestSvc),
	})
	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:           t,
		ServerURL:   srv.URL,
		DocsDir:     docsDir,
		CorpusPath:  corpusPath,
		MetricsPath: metricsPath,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		server:      srv,
	}
}

// Cleanup shuts the server down. The temp directory is removed by testing.
func (e *E2ETestEnv) Cleanup() {
	e.server.Close()
}

// WriteDocument drops a document into the served directory so tests can
// exercise re-ingestion with changed content.
func (e *E2ETestEnv) WriteDocument(relPath, content string) {
	e.T.Helper()
	writeFixture(e.T, filepath.Join(e.DocsDir, filepath.FromSlash(relPath)), content)
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// APIResponse is the standard envelope every endpoint responds with.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get makes a GET request to the API.
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post makes a POST request to the API.
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}
