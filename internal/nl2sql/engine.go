package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopquery/shopquery/internal/schema"
)

// Engine translates questions with fixed keyword rules over the schema registry. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	registry    *schema.Registry
	extractor   Extractor
	synthesizer synthesizer
	logger      *slog.Logger
}

func NewEngine(registry *schema.Registry, extractor Extractor, logger *slog.Logger) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("schema registry is required")
	}
	if len(registry.TableNames()) == 0 {
		return nil, fmt.Errorf("schema registry has no tables")
	}
	if extractor == nil {
		extractor = RegexExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry:    registry,
		extractor:   extractor,
		synthesizer: synthesizer{registry: registry},
		logger:      logger,
	}, nil
}

// Translate never fails: faults of any kind produce the fallback translation.
func (e *Engine) Translate(ctx context.Context, question string) (result Translation) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = e.fallback(ctx, question, fmt.Errorf("translation panic: %v", recovered))
		}
	}()

	translation, err := e.translate(ctx, question)
	if err != nil {
		return e.fallback(ctx, question, err)
	}
	return translation
}

func (e *Engine) translate(ctx context.Context, question string) (Translation, error) {
	raw := strings.TrimSpace(question)
	normalized := Normalize(raw)
	if normalized == "" {
		return Translation{}, ErrEmptyQuestion
	}

	entities, err := e.extractor.Extract(ctx, raw)
	if err != nil {
		return Translation{}, fmt.Errorf("extract entities: %w", err)
	}
	table := identifyTable(e.registry, normalized)
	queryType := identifyQueryType(normalized)

	sql, err := e.synthesizer.build(normalized, table, queryType, entities)
	if err != nil {
		return Translation{}, fmt.Errorf("synthesize %s query: %w", queryType, err)
	}

	return Translation{
		Outcome: OutcomeTranslated,
		SQL:     sql,
		Metadata: Metadata{
			OriginalText:   question,
			NormalizedText: normalized,
			Entities:       entities,
			Table:          table,
			QueryType:      queryType,
			Confidence:     scoreConfidence(e.registry, normalized, entities),
		},
	}, nil
}

func (e *Engine) fallback(ctx context.Context, question string, cause error) Translation {
	e.logger.WarnContext(ctx, "translation fell back",
		slog.String("question", question),
		slog.String("error", cause.Error()),
	)
	return fallbackTranslation(question, cause)
}
