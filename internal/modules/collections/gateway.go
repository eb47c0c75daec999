package collections

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/llm"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

var ErrEmptyCollection = errors.New("collection is empty")

const (
	defaultEmbedBatch       = 8
	defaultEmbedParallelism = 2
)

type Deps struct {
	Log      *logger.Logger
	Store    vectorstore.Store
	Embedder llm.Embedder

	// EmbedBatch is how many documents go into one embedding call;
	// EmbedParallelism bounds concurrent calls within one upsert.
	EmbedBatch       int
	EmbedParallelism int

	// Intn picks the random chunk index; nil uses math/rand/v2.
	Intn func(n int) int
}

// Gateway is the only path from the core to the vector store. Reads and
// diagnostics degrade to negative results; creation and writes propagate.
type Gateway struct {
	log              *logger.Logger
	store            vectorstore.Store
	embedder         llm.Embedder
	embedBatch       int
	embedParallelism int
	intn             func(n int) int
}

type ExistsResult struct {
	Exists   bool           `json:"exists"`
	ID       string         `json:"id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Stats struct {
	Exists   bool           `json:"exists"`
	Count    int            `json:"count"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Validation struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
	Exists bool     `json:"exists"`
	Count  int      `json:"count"`
}

// Usable reports whether questions can be grounded in the collection. Missing
// metadata alone does not block.
func (v Validation) Usable() bool { return v.Exists && v.Count > 0 }

func New(deps Deps) (*Gateway, error) {
	if deps.Log == nil || deps.Store == nil || deps.Embedder == nil {
		return nil, fmt.Errorf("collections: log, store and embedder are required")
	}
	g := &Gateway{
		log:              deps.Log.With("service", "CollectionGateway", "provider", deps.Store.Provider()),
		store:            deps.Store,
		embedder:         deps.Embedder,
		embedBatch:       deps.EmbedBatch,
		embedParallelism: deps.EmbedParallelism,
		intn:             deps.Intn,
	}
	if g.embedBatch <= 0 {
		g.embedBatch = defaultEmbedBatch
	}
	if g.embedParallelism <= 0 {
		g.embedParallelism = defaultEmbedParallelism
	}
	if g.intn == nil {
		g.intn = rand.IntN
	}
	return g, nil
}

// CreateCollection allocates a fresh collection and confirms the store can
// see it before returning the id.
func (g *Gateway) CreateCollection(ctx context.Context, sourceLabel string) (string, error) {
	id := uuid.NewString()
	meta := map[string]any{"source": strings.TrimSpace(sourceLabel)}
	if err := g.store.CreateCollection(ctx, id, meta); err != nil {
		return "", fmt.Errorf("create collection %s: %w", id, err)
	}
	res, err := g.Exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("verify collection %s: %w", id, err)
	}
	if !res.Exists {
		return "", fmt.Errorf("collection %s was not found after creation", id)
	}
	g.log.Info("Collection created", "collection_id", id, "source", sourceLabel)
	return id, nil
}

// UpsertDocuments embeds every document, then writes them in one call. No
// vector means no write.
func (g *Gateway) UpsertDocuments(ctx context.Context, collectionID string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vecs, err := g.embedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to add documents to collection %s: embedding: %w", collectionID, err)
	}
	records := make([]vectorstore.Record, len(docs))
	for i, d := range docs {
		records[i] = vectorstore.Record{ID: d.ID, Text: d.Text, Metadata: d.Metadata, Vector: vecs[i]}
	}
	if err := g.store.Upsert(ctx, collectionID, records); err != nil {
		return fmt.Errorf("failed to add documents to collection %s: %w", collectionID, err)
	}
	return nil
}

func (g *Gateway) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.embedParallelism)
	for start := 0; start < len(texts); start += g.embedBatch {
		end := min(start+g.embedBatch, len(texts))
		eg.Go(func() error {
			vecs, err := g.embedder.Embed(egCtx, texts[start:end])
			if err != nil {
				return err
			}
			if err := llm.CheckEmbeddings(end-start, vecs); err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) FetchTopK(ctx context.Context, collectionID, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 5
	}
	vecs, err := g.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("collection query failed (embedding): %w", err)
	}
	if err := llm.CheckEmbeddings(1, vecs); err != nil {
		return nil, fmt.Errorf("collection query failed (embedding): %w", err)
	}
	matches, err := g.store.Query(ctx, collectionID, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("collection query failed (%s): %w", collectionID, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Text)
	}
	return out, nil
}

func (g *Gateway) GetDocuments(ctx context.Context, collectionID string) ([]string, error) {
	records, err := g.store.GetAll(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("get documents from %s: %w", collectionID, err)
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out, nil
}

func (g *Gateway) Count(ctx context.Context, collectionID string) (int, error) {
	n, err := g.store.Count(ctx, collectionID)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", collectionID, err)
	}
	return n, nil
}

// Exists maps a missing collection to Exists=false; other failures are
// returned.
func (g *Gateway) Exists(ctx context.Context, collectionID string) (ExistsResult, error) {
	if strings.TrimSpace(collectionID) == "" {
		return ExistsResult{}, nil
	}
	info, err := g.store.GetCollection(ctx, collectionID)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return ExistsResult{}, nil
	}
	if err != nil {
		return ExistsResult{}, err
	}
	return ExistsResult{Exists: true, ID: collectionID, Metadata: info.Metadata}, nil
}

func (g *Gateway) Stats(ctx context.Context, collectionID string) Stats {
	res, err := g.Exists(ctx, collectionID)
	if err != nil || !res.Exists {
		if err != nil {
			g.log.Warn("Collection stats unavailable", "collection_id", collectionID, "error", err)
		}
		return Stats{}
	}
	n, err := g.store.Count(ctx, collectionID)
	if err != nil {
		g.log.Warn("Collection count unavailable", "collection_id", collectionID, "error", err)
		return Stats{}
	}
	return Stats{Exists: true, Count: n, Metadata: res.Metadata}
}

func (g *Gateway) Validate(ctx context.Context, collectionID string) Validation {
	v := Validation{Issues: []string{}}
	res, err := g.Exists(ctx, collectionID)
	if err != nil {
		g.log.Warn("Collection validation failed", "collection_id", collectionID, "error", err)
	}
	if err != nil || !res.Exists {
		v.Issues = append(v.Issues, fmt.Sprintf("Collection '%s' does not exist", collectionID))
		return v
	}
	v.Exists = true
	if len(res.Metadata) == 0 {
		v.Issues = append(v.Issues, "Collection has no metadata")
	}
	n, err := g.store.Count(ctx, collectionID)
	if err != nil {
		g.log.Warn("Collection count failed during validation", "collection_id", collectionID, "error", err)
	}
	v.Count = n
	if n == 0 {
		v.Issues = append(v.Issues, "Collection is empty (no documents)")
	}
	v.Valid = len(v.Issues) == 0
	return v
}

// RandomChunk draws one document uniformly from a full dump. Draws are
// independent, so a paper may reuse a chunk.
func (g *Gateway) RandomChunk(ctx context.Context, collectionID string) (domain.Chunk, error) {
	records, err := g.store.GetAll(ctx, collectionID)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("random chunk from %s: %w", collectionID, err)
	}
	if len(records) == 0 {
		return domain.Chunk{}, fmt.Errorf("random chunk from %s: %w", collectionID, ErrEmptyCollection)
	}
	idx := g.intn(len(records))
	r := records[idx]
	id := r.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", collectionID, idx)
	}
	return domain.Chunk{
		ID:   id,
		Text: r.Text,
		Metadata: map[string]any{
			"source":          collectionID,
			"documentIndex":   idx,
			"totalDocuments":  len(records),
			"selectionMethod": "random",
		},
	}, nil
}
