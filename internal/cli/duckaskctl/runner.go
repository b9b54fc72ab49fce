package duckaskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/duckask/duckask/internal/query"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("duckaskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "DuckAsk API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 90*time.Second), "HTTP timeout (e.g. 30s)")
	format := fs.String("format", "json", "result output for ask and query: json|plain|pretty")
	limit := fs.Int("limit", 0, "number of history entries; 0 uses the server default")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}
	if !query.ValidFormat(*format) {
		_, _ = fmt.Fprintf(stderr, "invalid format %q\n", *format)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	method := ""
	path := ""
	var payload any
	returnsResult := false
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "schema":
		method, path = http.MethodGet, "/v1/schema"
	case "history":
		method, path = http.MethodGet, "/v1/history"
		if *limit > 0 {
			path += "?" + url.Values{"limit": {strconv.Itoa(*limit)}}.Encode()
		}
	case "ask":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		method, path = http.MethodPost, "/v1/ask"
		payload = map[string]string{"question": rest}
		returnsResult = true
	case "query":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "query requires a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/query"
		payload = map[string]string{"sql": rest}
		returnsResult = true
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if returnsResult {
		return writeResult(stdout, stderr, responseBody, *format)
	}
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

type wireResult struct {
	Success              bool             `json:"success"`
	Data                 []map[string]any `json:"data"`
	RowCount             int              `json:"row_count"`
	Query                string           `json:"query"`
	Error                string           `json:"error"`
	NaturalLanguageQuery string           `json:"natural_language_query"`
	Columns              []string         `json:"columns"`
	Truncated            bool             `json:"truncated"`
	FailureKind          string           `json:"failure_kind"`
	DurationMs           int64            `json:"duration_ms"`
}

// writeResult prints a pipeline result. A result with success=false exits 1
// even though the server answered 200.
func writeResult(stdout, stderr io.Writer, raw []byte, format string) int {
	if format == query.FormatNameJSON {
		if pretty, ok := prettyJSON(raw); ok {
			_, _ = fmt.Fprintln(stdout, pretty)
		} else {
			_, _ = fmt.Fprintln(stdout, string(raw))
		}
		var status struct {
			Success bool `json:"success"`
		}
		if err := json.Unmarshal(raw, &status); err != nil || !status.Success {
			return 1
		}
		return 0
	}

	result, err := decodeResult(raw)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "decode result: %v\n", err)
		return 1
	}
	if err := query.Render(stdout, result, format); err != nil {
		_, _ = fmt.Fprintf(stderr, "render result: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout)
	if !result.Success {
		return 1
	}
	return 0
}

// decodeResult rebuilds ordered rows from the column list the server sends.
func decodeResult(raw []byte) (query.Result, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var wire wireResult
	if err := decoder.Decode(&wire); err != nil {
		return query.Result{}, err
	}

	keys := query.UniqueNames(wire.Columns)
	rows := make([]query.Row, 0, len(wire.Data))
	for _, item := range wire.Data {
		row := make(query.Row, 0, len(wire.Columns))
		for i, column := range wire.Columns {
			row = append(row, query.Field{Name: column, Value: item[keys[i]]})
		}
		rows = append(rows, row)
	}
	return query.Result{
		Success:              wire.Success,
		Data:                 rows,
		RowCount:             wire.RowCount,
		Query:                wire.Query,
		Error:                wire.Error,
		NaturalLanguageQuery: wire.NaturalLanguageQuery,
		Columns:              wire.Columns,
		Truncated:            wire.Truncated,
		FailureKind:          query.FailureKind(wire.FailureKind),
		DurationMs:           wire.DurationMs,
	}, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: duckaskctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health              GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready               GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema              GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  history             GET /v1/history")
	_, _ = fmt.Fprintln(w, "  ask <question...>   POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  query <sql...>      POST /v1/query")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
