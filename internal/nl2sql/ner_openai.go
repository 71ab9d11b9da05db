package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const nerSystemPrompt = "You are a named entity recognizer for questions about a retail database. " +
	"Label every entity in the user's text with one of GPE, LOC, DATE, TIME, MONEY, QUANTITY, CARDINAL, ORG. " +
	`Return ONLY a JSON object of the form {"entities":[{"label":"GPE","text":"Mumbai"}]}. ` +
	"Copy entity text exactly as it appears. No markdown, no explanation."

// OpenAIRecognizer asks an OpenAI-compatible chat completion endpoint to label entities.
type OpenAIRecognizer struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIRecognizer(cfg RecognizerConfig) (*OpenAIRecognizer, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAIRecognizer{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (r *OpenAIRecognizer) Name() string {
	return BackendOpenAI
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	body, err := json.Marshal(map[string]any{
		"model": r.model,
		"messages": []map[string]string{
			{"role": "system", "content": nerSystemPrompt},
			{"role": "user", "content": text},
		},
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty chat completion choices")
	}

	var labelled struct {
		Entities []Span `json:"entities"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(parsed.Choices[0].Message.Content)), &labelled); err != nil {
		return nil, fmt.Errorf("decode entity list: %w", err)
	}
	return labelled.Entities, nil
}

func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
