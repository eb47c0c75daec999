package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/llm"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

const ProviderName = "gemini"

type Config struct {
	APIKey     string
	Model      string
	EmbedModel string
	// JSONMode sets the response MIME type to application/json.
	JSONMode    bool
	Temperature *float32
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = "gemini-2.0-flash"
	}
	if strings.TrimSpace(c.EmbedModel) == "" {
		c.EmbedModel = "text-embedding-004"
	}
	return c
}

type Client struct {
	log    *logger.Logger
	cfg    Config
	client *genai.Client
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	cfg = cfg.withDefaults()
	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{log: log.With("client", "GeminiClient"), cfg: cfg, client: gc}, nil
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// GenerateText builds a model per call; GenerativeModel carries the system
// instruction as mutable state.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	model := c.client.GenerativeModel(c.cfg.Model)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if c.cfg.JSONMode {
		model.ResponseMIMEType = "application/json"
	}
	if c.cfg.Temperature != nil {
		model.SetTemperature(*c.cfg.Temperature)
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		observability.Current().ObserveLLMRequest(ProviderName, "generate", "error", time.Since(start))
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	observability.Current().ObserveLLMRequest(ProviderName, "generate", "ok", time.Since(start))
	if resp.UsageMetadata != nil {
		c.log.Debug("Gemini token usage",
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"candidate_tokens", resp.UsageMetadata.CandidatesTokenCount,
		)
	}
	return textFromResponse(resp)
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("gemini returned an empty candidate")
	}
	return sb.String(), nil
}

func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	em := c.client.EmbeddingModel(c.cfg.EmbedModel)
	batch := em.NewBatch()
	for _, in := range inputs {
		batch.AddContent(genai.Text(in))
	}
	start := time.Now()
	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		observability.Current().ObserveLLMRequest(ProviderName, "embed", "error", time.Since(start))
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	observability.Current().ObserveLLMRequest(ProviderName, "embed", "ok", time.Since(start))
	return vectorsFromBatch(len(inputs), res)
}

func vectorsFromBatch(n int, res *genai.BatchEmbedContentsResponse) ([][]float32, error) {
	if res == nil {
		return nil, errors.New("gemini embed: empty response")
	}
	out := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, e.Values)
	}
	if err := llm.CheckEmbeddings(n, out); err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	return out, nil
}
