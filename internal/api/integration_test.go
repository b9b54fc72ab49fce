//go:build integration

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/duckask/duckask/internal/app"
	"github.com/duckask/duckask/internal/auth"
	"github.com/duckask/duckask/internal/nl2sql"
)

func TestAskAndHistoryAgainstDuckDBWithSQLiteHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "learnium.duckdb")
	seed, err := sql.Open("duckdb", dbPath)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	for _, statement := range []string{
		"CREATE TABLE users (id INTEGER, name VARCHAR, signed_up DATE)",
		"INSERT INTO users VALUES (1, 'ada', DATE '2024-01-02'), (2, 'grace', DATE '2024-01-03'), (3, 'linus', NULL)",
		"CHECKPOINT",
	} {
		if _, err := seed.Exec(statement); err != nil {
			t.Fatalf("seed %q error = %v", statement, err)
		}
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("close seed db: %v", err)
	}

	cfg := loadTestConfig(t, map[string]string{
		"DUCKASK_DB_PATH":          dbPath,
		"DUCKASK_HISTORY_ENABLED":  "true",
		"DUCKASK_HISTORY_DSN":      filepath.Join(dir, "history.db"),
		"DUCKASK_CONTEXT_FILE":     "",
		"DUCKASK_AUTH_REQUIRED":    "true",
		"DUCKASK_AUTH_STATIC_KEYS": "analyst-key:analyst:query_reader|history_reader",
	})

	generator := generatorFunc(func(_ context.Context, _ nl2sql.GenerationRequest) (string, error) {
		return "```sql\nSELECT name, signed_up FROM users ORDER BY id\n```", nil
	})
	rt, err := app.Open(context.Background(), cfg, nil, app.WithGenerator(generator))
	if err != nil {
		t.Fatalf("app.Open() error = %v", err)
	}
	defer func() { _ = rt.Close() }()

	validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	server := httptest.NewServer(NewHandler(cfg, Dependencies{
		Session:          rt.Agent,
		AuthMiddleware:   auth.Middleware(nil, validator),
		DependencyTimout: time.Second,
		Readiness: CombineReadinessChecks(
			CheckSchemaLoaded(rt.Agent),
			CheckPing("database", rt.Engine),
			CheckPing("history", rt.HistoryStore()),
		),
	}))
	defer server.Close()
	client := server.Client()

	readyResp, err := client.Get(server.URL + "/v1/ready")
	if err != nil {
		t.Fatalf("GET /v1/ready error = %v", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d", readyResp.StatusCode)
	}

	body, _ := json.Marshal(map[string]string{"question": "who signed up?"})
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/v1/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "analyst-key")
	askResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST /v1/ask error = %v", err)
	}
	defer func() { _ = askResp.Body.Close() }()
	if askResp.StatusCode != http.StatusOK {
		t.Fatalf("ask status = %d", askResp.StatusCode)
	}
	var ask struct {
		Success  bool             `json:"success"`
		RowCount int              `json:"row_count"`
		Query    string           `json:"query"`
		Data     []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(askResp.Body).Decode(&ask); err != nil {
		t.Fatalf("decode ask response: %v", err)
	}
	if !ask.Success || ask.RowCount != 3 {
		t.Fatalf("ask response = %#v", ask)
	}
	if signedUp, _ := ask.Data[0]["signed_up"].(string); !strings.HasPrefix(signedUp, "2024-01-02") || ask.Data[2]["signed_up"] != nil {
		t.Fatalf("dates = %#v", ask.Data)
	}

	historyReq, _ := http.NewRequest(http.MethodGet, server.URL+"/v1/history?limit=5", nil)
	historyReq.Header.Set("Authorization", "Bearer analyst-key")
	historyResp, err := client.Do(historyReq)
	if err != nil {
		t.Fatalf("GET /v1/history error = %v", err)
	}
	defer func() { _ = historyResp.Body.Close() }()
	if historyResp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", historyResp.StatusCode)
	}
	var historyBody struct {
		Count   int `json:"count"`
		Entries []struct {
			NaturalLanguageQuery string `json:"natural_language_query"`
			SQL                  string `json:"sql"`
			RowCount             int    `json:"row_count"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(historyResp.Body).Decode(&historyBody); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if historyBody.Count != 1 || historyBody.Entries[0].NaturalLanguageQuery != "who signed up?" || historyBody.Entries[0].RowCount != 3 {
		t.Fatalf("history = %#v", historyBody)
	}
}

type generatorFunc func(ctx context.Context, req nl2sql.GenerationRequest) (string, error)

func (f generatorFunc) Generate(ctx context.Context, req nl2sql.GenerationRequest) (string, error) {
	return f(ctx, req)
}
