//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopquery/shopquery/internal/dataset"
	"github.com/shopquery/shopquery/internal/history"
	"github.com/shopquery/shopquery/internal/nl2sql"
	"github.com/shopquery/shopquery/internal/query"
	duckdbengine "github.com/shopquery/shopquery/internal/query/duckdb"
	"github.com/shopquery/shopquery/internal/schema"
	s3store "github.com/shopquery/shopquery/internal/storage/s3"
)

func TestAskAgainstPublishedDatasetInMinIO(t *testing.T) {
	endpoint := envOr("SHOPQUERY_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("SHOPQUERY_TEST_S3_ENDPOINT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         endpoint,
		Region:           envOr("SHOPQUERY_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("SHOPQUERY_TEST_S3_BUCKET", "shopquery-it"),
		AccessKeyID:      envOr("SHOPQUERY_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("SHOPQUERY_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:           fmt.Sprintf("api-it-%d", time.Now().UnixNano()),
		AutoCreateBucket: true,
	})
	if err != nil {
		t.Fatalf("s3store.New() error = %v", err)
	}

	registry := schema.MustDefault()
	d, err := dataset.NewGenerator(42).Generate(100, 200)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := (dataset.Publisher{Store: store, Registry: registry}).Publish(ctx, "retail", 42, d); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	engine, err := duckdbengine.NewEngine(store, registry, "retail", nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer func() { _ = engine.Close() }()
	executor, err := query.NewExecutor(engine, query.ExecutorOptions{})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	translator, err := nl2sql.NewEngine(registry, nl2sql.RegexExtractor{}, nil)
	if err != nil {
		t.Fatalf("nl2sql.NewEngine() error = %v", err)
	}

	h := NewHandler(loadConfig(t, nil), Dependencies{
		Readiness:  CheckRunner(executor.Ping),
		Registry:   registry,
		Translator: translator,
		Runner:     executor,
		History:    history.NewMemoryRepository(10),
	})

	if rr := serve(h, http.MethodGet, "/v1/ready", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("ready status = %d, body = %s", rr.Code, rr.Body.String())
	}

	response := postAsk(t, h, "Count total orders")
	rows, ok := response["rows"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("rows = %#v", response["rows"])
	}
	first, _ := rows[0].([]any)
	if len(first) != 1 || first[0] != float64(200) {
		t.Fatalf("count row = %#v", rows[0])
	}

	response = postAsk(t, h, "Show all customers from bangalore")
	metadata, _ := response["metadata"].(map[string]any)
	if metadata["success"] != true {
		t.Fatalf("metadata = %#v", metadata)
	}
	for _, row := range response["rows"].([]any) {
		if city := row.([]any)[3]; city != "Bangalore" {
			t.Fatalf("city = %#v", city)
		}
	}
}

func postAsk(t *testing.T, handler http.Handler, question string) map[string]any {
	t.Helper()
	body, err := json.Marshal(map[string]any{"question": question})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body=%s", rr.Code, rr.Body.String())
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode ask response error = %v", err)
	}
	return response
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
