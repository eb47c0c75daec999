package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/httpx"
	"github.com/yungbote/exampaper-backend/internal/platform/llm"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

const ProviderName = "ollama"

type Config struct {
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	// JSONMode asks /api/generate for format=json.
	JSONMode bool
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = "mistral"
	}
	if strings.TrimSpace(c.EmbedModel) == "" {
		c.EmbedModel = "nomic-embed-text"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

type Client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	return &Client{
		log:  log.With("client", "OllamaClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) Name() string { return ProviderName }

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("ollama http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		observability.Current().ObserveLLMRequest(ProviderName, operation, status, time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("ollama %s: encode request: %w", operation, err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("ollama %s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", operation, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama %s: read response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode, Body: httpx.TruncateBody(raw, 1024)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("ollama %s: decode response: %w", operation, err)
	}
	return nil
}

// Embed calls /api/embed with the whole batch as input.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	req := map[string]any{"model": c.cfg.EmbedModel, "input": inputs}
	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := c.do(ctx, "embed", http.MethodPost, "/api/embed", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to generate embedding using ollama: %w", err)
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = llm.ToFloat32(e)
	}
	if err := llm.CheckEmbeddings(len(inputs), out); err != nil {
		return nil, fmt.Errorf("invalid embedding response from ollama: %w", err)
	}
	return out, nil
}

func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	req := map[string]any{
		"model":  c.cfg.Model,
		"prompt": user,
		"stream": false,
	}
	if strings.TrimSpace(system) != "" {
		req["system"] = system
	}
	if c.cfg.JSONMode {
		req["format"] = "json"
	}
	var resp struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, "generate", http.MethodPost, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

type Health struct {
	Healthy         bool      `json:"healthy"`
	Model           string    `json:"model"`
	Error           string    `json:"error,omitempty"`
	AvailableModels []string  `json:"availableModels,omitempty"`
	Size            int64     `json:"size,omitempty"`
	ModifiedAt      time.Time `json:"modifiedAt,omitempty"`
}

// Health lists the installed models and reports whether the generation model
// is among them. Transport failures are reported in the result, not returned.
func (c *Client) Health(ctx context.Context) Health {
	h := Health{Model: c.cfg.Model}
	var tags struct {
		Models []struct {
			Name       string    `json:"name"`
			Size       int64     `json:"size"`
			ModifiedAt time.Time `json:"modified_at"`
		} `json:"models"`
	}
	if err := c.do(ctx, "tags", http.MethodGet, "/api/tags", nil, &tags); err != nil {
		h.Error = err.Error()
		return h
	}
	for _, m := range tags.Models {
		h.AvailableModels = append(h.AvailableModels, m.Name)
		if m.Name == c.cfg.Model || strings.TrimSuffix(m.Name, ":latest") == c.cfg.Model {
			h.Healthy = true
			h.Size = m.Size
			h.ModifiedAt = m.ModifiedAt
		}
	}
	if !h.Healthy {
		h.Error = fmt.Sprintf("Model %s not found", c.cfg.Model)
	}
	return h
}
