package shopqueryctl

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
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type request struct {
	method string
	path   string
	body   any
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

	fs := flag.NewFlagSet("shopqueryctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "shopquery API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 10s)")
	rowLimit := fs.Int("row-limit", 0, "maximum rows returned by query and ask (0 uses the server limit)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	req, err := buildRequest(strings.TrimSpace(fs.Arg(0)), fs.Args()[1:], *rowLimit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	endpoint := strings.TrimRight(*baseURL, "/") + req.path
	code, responseBody, err := doRequest(ctx, client, req, endpoint, *apiKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
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

// buildRequest maps a command and its positional arguments to an API call. Free text arguments
// are joined with spaces so questions do not need quoting.
func buildRequest(command string, rest []string, rowLimit int) (request, error) {
	text := strings.TrimSpace(strings.Join(rest, " "))
	switch command {
	case "health":
		return request{method: http.MethodGet, path: "/v1/health"}, nil
	case "ready":
		return request{method: http.MethodGet, path: "/v1/ready"}, nil
	case "schema":
		return request{method: http.MethodGet, path: "/v1/schema"}, nil
	case "suggestions":
		return request{method: http.MethodGet, path: "/v1/suggestions"}, nil
	case "tables":
		if text == "" {
			return request{method: http.MethodGet, path: "/v1/tables"}, nil
		}
		return request{method: http.MethodGet, path: "/v1/tables/" + url.PathEscape(text)}, nil
	case "history":
		if text == "" {
			return request{method: http.MethodGet, path: "/v1/history"}, nil
		}
		limit, err := strconv.Atoi(text)
		if err != nil || limit <= 0 {
			return request{}, fmt.Errorf("history limit must be a positive integer, got %q", text)
		}
		return request{method: http.MethodGet, path: "/v1/history?limit=" + strconv.Itoa(limit)}, nil
	case "translate":
		if text == "" {
			return request{}, fmt.Errorf("translate requires a question")
		}
		return request{method: http.MethodPost, path: "/v1/translate", body: map[string]any{"question": text}}, nil
	case "ask":
		if text == "" {
			return request{}, fmt.Errorf("ask requires a question")
		}
		return request{method: http.MethodPost, path: "/v1/ask", body: map[string]any{"question": text, "row_limit": rowLimit}}, nil
	case "validate":
		if text == "" {
			return request{}, fmt.Errorf("validate requires a SQL statement")
		}
		return request{method: http.MethodPost, path: "/v1/validate", body: map[string]any{"sql": text}}, nil
	case "query":
		if text == "" {
			return request{}, fmt.Errorf("query requires a SQL statement")
		}
		return request{method: http.MethodPost, path: "/v1/query", body: map[string]any{"sql": text, "row_limit": rowLimit}}, nil
	default:
		return request{}, fmt.Errorf("unknown command %q", command)
	}
}

func doRequest(ctx context.Context, client *http.Client, r request, endpoint, apiKey string) (int, []byte, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
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
	_, _ = fmt.Fprintln(w, "usage: shopqueryctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health               GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema               GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  suggestions          GET /v1/suggestions")
	_, _ = fmt.Fprintln(w, "  tables [table]       GET /v1/tables[/{table}]")
	_, _ = fmt.Fprintln(w, "  history [limit]      GET /v1/history")
	_, _ = fmt.Fprintln(w, "  translate <question> POST /v1/translate")
	_, _ = fmt.Fprintln(w, "  ask <question>       POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  validate <sql>       POST /v1/validate")
	_, _ = fmt.Fprintln(w, "  query <sql>          POST /v1/query")
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
