package nl2sql

import (
	"context"
	"errors"
)

// FallbackSQL is returned whenever a question cannot be translated.
const (
	FallbackSQL        = "SELECT customers.* FROM customers LIMIT 10"
	FallbackConfidence = 0.3
)

var ErrEmptyQuestion = errors.New("question is empty")

type Outcome string

const (
	OutcomeTranslated Outcome = "translated"
	OutcomeFallback   Outcome = "fallback"
)

type QueryType string

const (
	QueryTypeSelect    QueryType = "select"
	QueryTypeAggregate QueryType = "aggregate"
)

type Metadata struct {
	OriginalText   string    `json:"original_text"`
	NormalizedText string    `json:"normalized_text,omitempty"`
	Entities       Entities  `json:"entities"`
	Table          string    `json:"table"`
	QueryType      QueryType `json:"query_type"`
	Confidence     float64   `json:"confidence"`
	Error          string    `json:"error,omitempty"`
}

// Translation is either a translated statement or the fixed fallback; callers branch on Outcome.
type Translation struct {
	Outcome  Outcome  `json:"outcome"`
	SQL      string   `json:"sql"`
	Metadata Metadata `json:"metadata"`
}

func (t Translation) IsFallback() bool {
	return t.Outcome == OutcomeFallback
}

type Translator interface {
	Translate(ctx context.Context, question string) Translation
}

func fallbackTranslation(question string, cause error) Translation {
	message := "translation failed"
	if cause != nil {
		message = cause.Error()
	}
	return Translation{
		Outcome: OutcomeFallback,
		SQL:     FallbackSQL,
		Metadata: Metadata{
			OriginalText: question,
			Entities:     NewEntities(),
			Table:        "customers",
			QueryType:    QueryTypeSelect,
			Confidence:   FallbackConfidence,
			Error:        message,
		},
	}
}
