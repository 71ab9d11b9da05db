package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/shopquery/shopquery/internal/config"
	"github.com/shopquery/shopquery/internal/history"
	"github.com/shopquery/shopquery/internal/nl2sql"
	"github.com/shopquery/shopquery/internal/observability"
	"github.com/shopquery/shopquery/internal/query"
	"github.com/shopquery/shopquery/internal/schema"
)

type ReadinessCheck func(ctx context.Context) error

// QueryRunner gates and executes SQL. *query.Executor satisfies it.
type QueryRunner interface {
	Run(ctx context.Context, sqlText string, rowLimit int) (query.Result, query.Metadata, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Registry          *schema.Registry
	Translator        nl2sql.Translator
	Runner            QueryRunner
	History           history.Repository
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := map[string]http.HandlerFunc{
		"GET /v1/schema":         func(w http.ResponseWriter, r *http.Request) { handleSchema(deps, w, r) },
		"GET /v1/suggestions":    func(w http.ResponseWriter, r *http.Request) { handleSuggestions(w, r) },
		"POST /v1/translate":     func(w http.ResponseWriter, r *http.Request) { handleTranslate(deps, w, r) },
		"POST /v1/validate":      func(w http.ResponseWriter, r *http.Request) { handleValidate(w, r) },
		"POST /v1/query":         func(w http.ResponseWriter, r *http.Request) { handleQuery(deps, w, r) },
		"POST /v1/ask":           func(w http.ResponseWriter, r *http.Request) { handleAsk(deps, w, r) },
		"GET /v1/history":        func(w http.ResponseWriter, r *http.Request) { handleListHistory(deps, w, r) },
		"GET /v1/history/{id}":   func(w http.ResponseWriter, r *http.Request) { handleGetHistory(deps, w, r) },
		"GET /v1/tables":         func(w http.ResponseWriter, r *http.Request) { handleListTables(deps, w, r) },
		"GET /v1/tables/{table}": func(w http.ResponseWriter, r *http.Request) { handleGetTable(deps, w, r) },
	}
	guard := protection(cfg, deps)
	for pattern, handler := range protected {
		mux.Handle(pattern, guard(requireQueryReader(handler)))
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
		observability.LoggingMiddleware(deps.Logger),
	}
	if len(cfg.HTTP.CORSAllowedOrigins) > 0 {
		middlewares = append(middlewares, cors.New(cors.Options{
			AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-API-Key", "X-Trace-ID"},
			ExposedHeaders: []string{"X-Trace-ID"},
		}).Handler)
	}
	return chain(mux, middlewares...)
}

func protection(cfg config.Config, deps Dependencies) func(http.Handler) http.Handler {
	if !cfg.Auth.Required {
		return func(next http.Handler) http.Handler { return next }
	}
	if deps.AuthMiddleware == nil {
		deps.Logger.Error("auth required but auth middleware missing")
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		}
	}
	return deps.AuthMiddleware
}

// CheckRunner reports the engine unready until the published dataset can be loaded.
func CheckRunner(ping func(ctx context.Context) error) ReadinessCheck {
	return func(ctx context.Context) error {
		if ping == nil {
			return errors.New("query engine is not configured")
		}
		return ping(ctx)
	}
}

func CheckHistory(repo history.Repository) ReadinessCheck {
	return func(ctx context.Context) error {
		if repo == nil {
			return errors.New("history repository is not configured")
		}
		return repo.HealthCheck(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
