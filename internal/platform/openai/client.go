package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/httpx"
	"github.com/yungbote/exampaper-backend/internal/platform/llm"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

const ProviderName = "openai"

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	EmbedModel  string
	Timeout     time.Duration
	MaxRetries  int
	Temperature *float64
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com"
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = "gpt-4o-mini"
	}
	if strings.TrimSpace(c.EmbedModel) == "" {
		c.EmbedModel = "text-embedding-3-small"
	}
	if c.Timeout <= 0 {
		c.Timeout = 180 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	backoff    time.Duration
	// noTemp is set once the model rejects the temperature parameter.
	noTemp atomic.Bool
}

func NewClient(log *logger.Logger, cfg Config) (llm.Provider, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	cfg = cfg.withDefaults()
	return &client{
		log:        log.With("client", "OpenAIClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backoff:    time.Second,
	}, nil
}

func (c *client) Name() string { return ProviderName }

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func isUnsupportedTemperatureParam(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, marker := range []string{"unsupported parameter", "unknown parameter", "not supported", "does not support", "only the default", "unsupported_value"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: httpx.TruncateBody(raw, 2048)}
	}
	return resp, raw, nil
}

// do retries transport failures and 408/429/5xx with exponential backoff,
// honoring Retry-After.
func (c *client) do(ctx context.Context, operation, method, path string, body any, out any) error {
	backoff := c.backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	start := time.Now()
	metrics := observability.Current()

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			metrics.ObserveLLMRequest(ProviderName, operation, statusFromResp(resp), time.Since(start))
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, httpx.TruncateBody(raw, 512))
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			metrics.ObserveLLMRequest(ProviderName, operation, statusFromRespErr(resp, err), time.Since(start))
			return err
		}

		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	var resp embeddingsResponse
	if err := c.do(ctx, "embed", http.MethodPost, "/v1/embeddings", embeddingsRequest{Model: c.cfg.EmbedModel, Input: clean}, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(clean))
	for pos, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = pos
		}
		if idx < len(out) {
			out[idx] = llm.ToFloat32(d.Embedding)
		}
	}
	if err := llm.CheckEmbeddings(len(clean), out); err != nil {
		return nil, fmt.Errorf("openai embeddings (model=%s): %w", c.cfg.EmbedModel, err)
	}
	return out, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string    `json:"model"`
	Input       []message `json:"input"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				out.WriteString(part.Text)
			}
		}
	}
	return out.String()
}

func (c *client) GenerateText(ctx context.Context, system, user string) (string, error) {
	req := responsesRequest{
		Model: c.cfg.Model,
		Input: []message{{Role: "system", Content: system}, {Role: "user", Content: user}},
	}
	if !c.noTemp.Load() {
		req.Temperature = c.cfg.Temperature
	}

	var resp responsesResponse
	err := c.do(ctx, "generate", http.MethodPost, "/v1/responses", &req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureParam(err) {
		c.noTemp.Store(true)
		req.Temperature = nil
		err = c.do(ctx, "generate", http.MethodPost, "/v1/responses", &req, &resp)
	}
	if err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func statusFromResp(resp *http.Response) string {
	if resp == nil {
		return "unknown"
	}
	return strconv.Itoa(resp.StatusCode)
}

func statusFromRespErr(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	var httpErr *openAIHTTPError
	if errors.As(err, &httpErr) {
		return strconv.Itoa(httpErr.StatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
