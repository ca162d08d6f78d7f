package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
)

const (
	maxPromptChars    = 8000
	defaultEndpoint   = "https://openrouter.ai/api/v1/chat/completions"
	defaultMaxRetries = 3
	maxBackoffWait    = 30 * time.Second
)

const llmSystemPrompt = `You extract relationship triples from a single turn of conversation for a memory store.
Return ONLY a JSON object with keys "world_facts", "partner_stance", "self_reaction", "overall_sentiment", "entities".
world_facts: array of {"source","relation","target"}.
partner_stance: array of {"source","relation","target","sentiment"} where sentiment is -1..1.
self_reaction: array of {"source","relation","target","rating","sentiment"} where rating is one of "again","hard","good","easy".
overall_sentiment: a single -1..1 number for the whole turn.
entities: array of entity name strings mentioned.
No markdown, no explanation. Start with { and end with }.`

// LLMConfig configures the model-backed strategy.
type LLMConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

func (c LLMConfig) withDefaults() LLMConfig {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}

// LLMStrategy extracts triples with a single chat-completion call,
// retrying transient failures with capped exponential backoff.
type LLMStrategy struct {
	cfg LLMConfig
	log *zap.Logger
}

// NewLLMStrategy validates cfg and returns a ready strategy.
func NewLLMStrategy(cfg LLMConfig, logger *zap.Logger) (*LLMStrategy, error) {
	if cfg.APIKey == "" {
		return nil, kgerrors.Configuration("api_key", "required for the LLM extraction strategy")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMStrategy{cfg: cfg.withDefaults(), log: logger}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Extract implements Strategy.
func (s *LLMStrategy) Extract(ctx context.Context, text, author, agentName string) (Result, error) {
	prompt := buildExtractionPrompt(text, author, agentName)

	var raw string
	attempt := 0
	operation := func() error {
		attempt++
		body, err := s.call(ctx, prompt)
		if err != nil {
			s.log.Warn("llm extraction call failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		raw = body
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = maxBackoffWait
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return Result{}, kgerrors.ExtractionFailure("llm call exhausted retries", err)
	}

	result, err := parseLLMResponse(raw)
	if err != nil {
		return Result{}, kgerrors.ExtractionFailure("response parse failed", err)
	}
	result.Mode = "llm"
	return result, nil
}

// call performs one HTTP round trip. A 5xx or network error is
// retryable; a 4xx is permanent (bad key, bad model, malformed
// request) and short-circuits the backoff loop.
func (s *LLMStrategy) call(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: llmSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.2,
		MaxTokens:      1024,
		Stream:         false,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return "", err // network errors are retryable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("llm: server error %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode >= 400 {
		return "", backoff.Permanent(fmt.Errorf("llm: request rejected %d: %s", resp.StatusCode, string(body)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response envelope: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("llm: provider error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("llm: empty choices array")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("llm: empty message content")
	}
	return content, nil
}

func buildExtractionPrompt(text, author, agentName string) string {
	truncated := text
	if len(truncated) > maxPromptChars {
		truncated = truncated[:maxPromptChars]
	}
	var b strings.Builder
	b.WriteString("AUTHOR: ")
	b.WriteString(author)
	b.WriteString("\nAGENT: ")
	b.WriteString(agentName)
	b.WriteString("\nTEXT:\n")
	b.WriteString(truncated)
	return b.String()
}
