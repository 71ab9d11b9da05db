package nl2sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/go-huggingface"
)

const defaultHuggingFaceNERModel = "dslim/bert-base-NER"

type tokenClassifier interface {
	TokenClassification(ctx context.Context, req *huggingface.TokenClassificationRequest) (huggingface.TokenClassificationResponse, error)
}

type HuggingFaceRecognizer struct {
	client  tokenClassifier
	model   string
	timeout time.Duration
}

func NewHuggingFaceRecognizer(cfg RecognizerConfig) (*HuggingFaceRecognizer, error) {
	token := strings.TrimSpace(cfg.APIKey)
	if token == "" {
		return nil, fmt.Errorf("huggingface api token is required")
	}
	return NewHuggingFaceRecognizerWithClient(huggingface.NewInferenceClient(token), cfg.Model, cfg.Timeout), nil
}

func NewHuggingFaceRecognizerWithClient(client tokenClassifier, model string, timeout time.Duration) *HuggingFaceRecognizer {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultHuggingFaceNERModel
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HuggingFaceRecognizer{client: client, model: model, timeout: timeout}
}

func (r *HuggingFaceRecognizer) Name() string {
	return BackendHuggingFace
}

func (r *HuggingFaceRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.client.TokenClassification(ctx, &huggingface.TokenClassificationRequest{
		Inputs: text,
		Model:  r.model,
	})
	if err != nil {
		return nil, fmt.Errorf("token classification: %w", err)
	}
	spans := make([]Span, 0, len(res))
	for _, item := range res {
		word := strings.TrimSpace(strings.ReplaceAll(item.Word, "##", ""))
		if word == "" {
			continue
		}
		spans = append(spans, Span{Label: item.EntityGroup, Text: word})
	}
	return spans, nil
}
