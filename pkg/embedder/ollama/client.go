// Package ollama provides an embedding provider backed by a local or
// remote Ollama instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client implements embedder.Provider using Ollama's embeddings API.
type Client struct {
	client     *http.Client
	model      string
	baseURL    string
	dimensions int
}

// Config is the configuration for the Ollama embedder.
type Config struct {
	// Model is the embedding model name. Defaults to "nomic-embed-text".
	Model string

	// BaseURL is the Ollama service address. Defaults to
	// "http://localhost:11434".
	BaseURL string

	// Dimensions is the vector dimension of the chosen model. Defaults to
	// 768 (nomic-embed-text); all-minilm produces 384.
	Dimensions int

	// HTTPClient is an optional custom HTTP client (default 30s timeout).
	HTTPClient *http.Client
}

// NewClient creates a new Ollama embedder client.
func NewClient(cfg *Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = 768
		if model == "all-minilm" {
			dims = 384
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		client:     client,
		model:      model,
		baseURL:    baseURL,
		dimensions: dims,
	}, nil
}

// Embed converts a single text to a vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := map[string]string{
		"model":  c.model,
		"prompt": text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(response.Embedding) == 0 {
		return nil, errors.New("embedding generation failed: empty response from Ollama API")
	}
	return response.Embedding, nil
}

// EmbedBatch embeds each text in turn; the Ollama embeddings endpoint is
// single-input.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		v, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the vector dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close closes the client. The HTTP client requires no explicit teardown.
func (c *Client) Close() error {
	return nil
}
