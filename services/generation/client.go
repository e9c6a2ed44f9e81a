package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/finsolve/knowledge-gateway/services"
	"go.uber.org/zap"
)

// Generator is the black-box text-completion collaborator. No determinism
// is assumed; every call is time-bounded by the caller's context.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds generation client configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// HTTPClient calls an OpenAI-style chat completions endpoint.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a generation client against the configured endpoint.
func NewHTTPClient(cfg Config, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete issues one generation call and returns the answer text.
func (c *HTTPClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", services.WrapInternal("failed to encode generation request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", services.WrapInternal("failed to build generation request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", services.ErrGenerationTimeout
		}
		return "", &services.DomainError{
			Type:      services.ErrorTypeExternal,
			Message:   "generation service unavailable",
			Err:       err,
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &services.DomainError{
			Type:      services.ErrorTypeExternal,
			Message:   "generation service unavailable",
			Err:       fmt.Errorf("status %d", resp.StatusCode),
			Retryable: true,
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", services.WrapExternal("failed to decode generation response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", services.WrapExternal("empty generation response", nil)
	}

	c.logger.Debug("generation call completed",
		zap.Duration("latency", time.Since(start)))
	return parsed.Choices[0].Message.Content, nil
}
