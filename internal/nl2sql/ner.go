package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	BackendRegex       = "regex"
	BackendHuggingFace = "huggingface"
	BackendOpenAI      = "openai"
)

// Span is one labelled entity reported by a recognition backend.
type Span struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, text string) ([]Span, error)
}

type RecognizerConfig struct {
	Backend string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewRecognizer builds the configured backend. The regex backend has no recognizer and yields nil.
func NewRecognizer(cfg RecognizerConfig) (Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendRegex:
		return nil, nil
	case BackendHuggingFace:
		return NewHuggingFaceRecognizer(cfg)
	case BackendOpenAI:
		return NewOpenAIRecognizer(cfg)
	default:
		return nil, fmt.Errorf("unsupported NER backend %q", cfg.Backend)
	}
}

var entityLabels = map[string]func(*Entities) *[]string{
	"GPE":      func(e *Entities) *[]string { return &e.Locations },
	"LOC":      func(e *Entities) *[]string { return &e.Locations },
	"DATE":     func(e *Entities) *[]string { return &e.Dates },
	"TIME":     func(e *Entities) *[]string { return &e.Dates },
	"MONEY":    func(e *Entities) *[]string { return &e.Numbers },
	"QUANTITY": func(e *Entities) *[]string { return &e.Numbers },
	"CARDINAL": func(e *Entities) *[]string { return &e.Numbers },
	"ORG":      func(e *Entities) *[]string { return &e.Organizations },
}

type NERExtractor struct {
	recognizer Recognizer
}

func NewNERExtractor(recognizer Recognizer) (*NERExtractor, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	return &NERExtractor{recognizer: recognizer}, nil
}

func (x *NERExtractor) Extract(ctx context.Context, text string) (Entities, error) {
	spans, err := x.recognizer.Recognize(ctx, text)
	if err != nil {
		return Entities{}, fmt.Errorf("%s recognize: %w", x.recognizer.Name(), err)
	}
	entities := NewEntities()
	for _, span := range spans {
		bucket, ok := entityLabels[normalizeLabel(span.Label)]
		if !ok {
			continue
		}
		dst := bucket(&entities)
		*dst = appendFolded(*dst, span.Text)
	}
	return entities, nil
}

// normalizeLabel strips IOB prefixes such as "B-LOC" emitted by token classifiers.
func normalizeLabel(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) > 2 && (strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-")) {
		label = label[2:]
	}
	return label
}

const warmupQuestion = "Show all customers from Mumbai"

// SelectExtractor picks the extraction strategy once at startup. A recognizer that fails its
// warm-up call leaves the process on the regex extractor.
func SelectExtractor(ctx context.Context, recognizer Recognizer, timeout time.Duration, logger *slog.Logger) Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if recognizer == nil {
		logger.Info("entity extractor selected", slog.String("backend", BackendRegex))
		return RegexExtractor{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	warmupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := recognizer.Recognize(warmupCtx, warmupQuestion); err != nil {
		logger.Warn("entity recognizer unavailable, using regex extractor",
			slog.String("backend", recognizer.Name()),
			slog.String("error", err.Error()),
		)
		return RegexExtractor{}
	}
	extractor, err := NewNERExtractor(recognizer)
	if err != nil {
		return RegexExtractor{}
	}
	logger.Info("entity extractor selected", slog.String("backend", recognizer.Name()))
	return extractor
}
