package app

import (
	"context"
	"fmt"

	"github.com/yungbote/exampaper-backend/internal/modules/collections"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/gcp"
	"github.com/yungbote/exampaper-backend/internal/platform/gemini"
	"github.com/yungbote/exampaper-backend/internal/platform/llm"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
	"github.com/yungbote/exampaper-backend/internal/platform/ollama"
	"github.com/yungbote/exampaper-backend/internal/platform/openai"
	"github.com/yungbote/exampaper-backend/internal/platform/pdftext"
	"github.com/yungbote/exampaper-backend/internal/platform/redisbus"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

type Clients struct {
	Blobs     objectstore.Store
	Vectors   vectorstore.Store
	Embedder  llm.Embedder
	Generator llm.TextGenerator
	// Ollama is set whenever either role is served by Ollama.
	Ollama    *ollama.Client
	Extractor pdftext.Extractor
	Bus       redisbus.Bus

	closers []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	blobs, err := resolveMaterialStore(ctx, log, cfg)
	if err != nil {
		return Clients{}, err
	}
	c.Blobs = blobs

	vectors, err := collections.NewStore(log, cfg.Vector)
	if err != nil {
		return Clients{}, err
	}
	c.Vectors = collections.Instrument(vectors, metrics)

	providers := newProviderSet(ctx, log, cfg)
	c.Embedder, err = providers.embedder(cfg.EmbeddingProvider)
	if err == nil {
		c.Generator, err = providers.generator(cfg.GenerationProvider)
	}
	c.Ollama = providers.ollama
	c.closers = append(c.closers, providers.closers...)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init llm provider: %w", err)
	}

	c.Extractor = pdftext.NewLocal()
	if cfg.DocumentAI.Enabled() {
		ocr, err := gcp.NewDocumentOCR(ctx, log, cfg.DocumentAI)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init document ai: %w", err)
		}
		c.closers = append(c.closers, ocr.Close)
		c.Extractor = pdftext.NewFallback(log, c.Extractor, ocr)
	}

	if cfg.Redis.Addr != "" {
		bus, err := redisbus.New(log, cfg.Redis)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis job bus: %w", err)
		}
		c.Bus = bus
		c.closers = append(c.closers, bus.Close)
	}

	log.Info("Clients wired",
		"object_storage", c.Blobs.Provider(),
		"vector_store", c.Vectors.Provider(),
		"embedding_provider", cfg.EmbeddingProvider,
		"generation_provider", cfg.GenerationProvider,
		"document_ai", cfg.DocumentAI.Enabled(),
		"redis", c.Bus != nil,
	)
	return c, nil
}

func (c *Clients) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}

// providerSet builds each LLM backend at most once so embedding and
// generation share a client when they name the same provider.
type providerSet struct {
	ctx     context.Context
	log     *logger.Logger
	cfg     Config
	ollama  *ollama.Client
	openai  llm.Provider
	gemini  *gemini.Client
	closers []func() error
}

func newProviderSet(ctx context.Context, log *logger.Logger, cfg Config) *providerSet {
	return &providerSet{ctx: ctx, log: log, cfg: cfg}
}

func (p *providerSet) embedder(name string) (llm.Embedder, error) {
	return p.get(name)
}

func (p *providerSet) generator(name string) (llm.TextGenerator, error) {
	return p.get(name)
}

func (p *providerSet) get(name string) (llm.Provider, error) {
	switch name {
	case "", ollama.ProviderName:
		if p.ollama == nil {
			c, err := ollama.NewClient(p.log, p.cfg.Ollama)
			if err != nil {
				return nil, err
			}
			p.ollama = c
		}
		return p.ollama, nil
	case openai.ProviderName:
		if p.openai == nil {
			c, err := openai.NewClient(p.log, p.cfg.OpenAI)
			if err != nil {
				return nil, err
			}
			p.openai = c
		}
		return p.openai, nil
	case gemini.ProviderName:
		if p.gemini == nil {
			c, err := gemini.NewClient(p.ctx, p.log, p.cfg.Gemini)
			if err != nil {
				return nil, err
			}
			p.gemini = c
			p.closers = append(p.closers, c.Close)
		}
		return p.gemini, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q (want ollama, openai or gemini)", name)
	}
}
