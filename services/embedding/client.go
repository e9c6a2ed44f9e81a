package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/finsolve/knowledge-gateway/services"
	"go.uber.org/zap"
)

// Embedder turns text into fixed-dimension vectors. The external embedding
// service is assumed deterministic: identical text yields identical vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// HTTPClient calls an OpenAI-style embeddings endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds embedding client configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewHTTPClient creates an embedding client against the configured endpoint.
func NewHTTPClient(cfg Config, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed embeds each text in order. The response preserves input order.
func (c *HTTPClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, services.WrapInternal("failed to encode embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, services.WrapInternal("failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "embedding service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("embedding service returned status %d", resp.StatusCode), nil)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, services.WrapExternal("failed to decode embedding response", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, services.WrapExternal(
			fmt.Sprintf("embedding count mismatch: sent %d, got %d", len(texts), len(parsed.Data)), nil)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, services.WrapExternal("embedding response index out of range", nil)
		}
		vectors[d.Index] = d.Embedding
	}

	c.logger.Debug("embedded query variants", zap.Int("count", len(texts)))
	return vectors, nil
}

// Dimension returns the configured vector dimension.
func (c *HTTPClient) Dimension() int {
	return c.dimension
}
