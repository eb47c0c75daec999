package collections

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

type fakeEmbedder struct {
	calls atomic.Int32
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in)), 1}
	}
	return out, nil
}

// brokenStore fails every call with a non-404 error.
type brokenStore struct{ vectorstore.Store }

var errBackendDown = errors.New("backend down")

func (brokenStore) Provider() string { return "broken" }
func (brokenStore) GetCollection(context.Context, string) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{}, errBackendDown
}
func (brokenStore) Count(context.Context, string) (int, error) { return 0, errBackendDown }
func (brokenStore) Query(context.Context, string, []float32, int) ([]vectorstore.Match, error) {
	return nil, errBackendDown
}

func newGateway(t *testing.T, store vectorstore.Store, emb *fakeEmbedder) *Gateway {
	t.Helper()
	g, err := New(Deps{Log: logger.Nop(), Store: store, Embedder: emb, EmbedBatch: 2, Intn: func(n int) int { return n - 1 }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestCreateUpsertAndRead(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	g := newGateway(t, vectorstore.NewMemory(), emb)

	id, err := g.CreateCollection(ctx, "biology.pdf")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	res, err := g.Exists(ctx, id)
	if err != nil || !res.Exists || res.Metadata["source"] != "biology.pdf" {
		t.Fatalf("Exists: got=%+v err=%v", res, err)
	}

	docs := []domain.Document{
		{ID: id + "_0", Text: "cells", Metadata: map[string]any{"idx": 0}},
		{ID: id + "_1", Text: "mitochondria", Metadata: map[string]any{"idx": 1}},
		{ID: id + "_2", Text: "ribosome", Metadata: map[string]any{"idx": 2}},
	}
	if err := g.UpsertDocuments(ctx, id, docs); err != nil {
		t.Fatalf("UpsertDocuments: %v", err)
	}
	if emb.calls.Load() != 2 {
		t.Fatalf("embed calls with batch 2: want=2 got=%d", emb.calls.Load())
	}
	if n, err := g.Count(ctx, id); err != nil || n != 3 {
		t.Fatalf("Count: want=3 got=%d err=%v", n, err)
	}
	texts, err := g.GetDocuments(ctx, id)
	if err != nil || strings.Join(texts, ",") != "cells,mitochondria,ribosome" {
		t.Fatalf("GetDocuments: got=%v err=%v", texts, err)
	}
	top, err := g.FetchTopK(ctx, id, "mitochondria", 1)
	if err != nil || len(top) != 1 {
		t.Fatalf("FetchTopK: got=%v err=%v", top, err)
	}

	st := g.Stats(ctx, id)
	if !st.Exists || st.Count != 3 {
		t.Fatalf("Stats: got=%+v", st)
	}
	v := g.Validate(ctx, id)
	if !v.Valid || !v.Usable() || len(v.Issues) != 0 {
		t.Fatalf("Validate: got=%+v", v)
	}
}

func TestUpsertFailsWithoutEmbeddings(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()
	_ = store.CreateCollection(ctx, "c", map[string]any{"source": "x"})
	g := newGateway(t, store, &fakeEmbedder{err: errors.New("ollama down")})

	err := g.UpsertDocuments(ctx, "c", []domain.Document{{ID: "c_0", Text: "t"}})
	if err == nil || !strings.Contains(err.Error(), "failed to add documents") {
		t.Fatalf("want wrapped upsert error, got=%v", err)
	}
	if n, _ := store.Count(ctx, "c"); n != 0 {
		t.Fatalf("nothing may be written without vectors, count=%d", n)
	}
}

func TestValidateIssues(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()
	g := newGateway(t, store, &fakeEmbedder{})

	v := g.Validate(ctx, "missing")
	if v.Valid || v.Usable() || len(v.Issues) != 1 || v.Issues[0] != "Collection 'missing' does not exist" {
		t.Fatalf("missing: got=%+v", v)
	}

	_ = store.CreateCollection(ctx, "bare", nil)
	v = g.Validate(ctx, "bare")
	want := []string{"Collection has no metadata", "Collection is empty (no documents)"}
	if v.Valid || v.Usable() || strings.Join(v.Issues, "|") != strings.Join(want, "|") {
		t.Fatalf("bare: want=%v got=%+v", want, v)
	}

	_ = store.Upsert(ctx, "bare", []vectorstore.Record{{ID: "1", Text: "x", Vector: []float32{1}}})
	v = g.Validate(ctx, "bare")
	if v.Valid || !v.Usable() {
		t.Fatalf("no-metadata collection must be usable but not valid: got=%+v", v)
	}
}

func TestReadsDegradeOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t, brokenStore{}, &fakeEmbedder{})

	if st := g.Stats(ctx, "c"); st.Exists || st.Count != 0 {
		t.Fatalf("Stats: want zero value got=%+v", st)
	}
	if _, err := g.Exists(ctx, "c"); !errors.Is(err, errBackendDown) {
		t.Fatalf("Exists: non-404 errors must propagate, got=%v", err)
	}
	if v := g.Validate(ctx, "c"); v.Usable() || len(v.Issues) != 1 {
		t.Fatalf("Validate: got=%+v", v)
	}
	_, err := g.FetchTopK(ctx, "c", "q", 3)
	if err == nil || !strings.HasPrefix(err.Error(), "collection query failed (c)") {
		t.Fatalf("FetchTopK: got=%v", err)
	}
}

func TestRandomChunk(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemory()
	_ = store.CreateCollection(ctx, "c", map[string]any{"source": "x"})
	g := newGateway(t, store, &fakeEmbedder{})

	if _, err := g.RandomChunk(ctx, "c"); !errors.Is(err, ErrEmptyCollection) {
		t.Fatalf("empty: want ErrEmptyCollection got=%v", err)
	}
	_ = store.Upsert(ctx, "c", []vectorstore.Record{
		{ID: "c_0", Text: "first", Vector: []float32{1}},
		{ID: "c_1", Text: "second", Vector: []float32{1}},
	})
	ch, err := g.RandomChunk(ctx, "c")
	if err != nil {
		t.Fatalf("RandomChunk: %v", err)
	}
	if ch.ID != "c_1" || ch.Text != "second" {
		t.Fatalf("chunk: got=%+v", ch)
	}
	if ch.Metadata["documentIndex"] != 1 || ch.Metadata["totalDocuments"] != 2 ||
		ch.Metadata["selectionMethod"] != "random" || ch.Metadata["source"] != "c" {
		t.Fatalf("metadata: got=%v", ch.Metadata)
	}
	if _, err := g.RandomChunk(ctx, "nope"); !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		t.Fatalf("missing: got=%v", err)
	}
}

func TestNewStoreBootstrapError(t *testing.T) {
	_, err := NewStore(logger.Nop(), ProviderConfig{Provider: "pinecone"})
	var be *BootstrapError
	if !errors.As(err, &be) || be.Provider != "pinecone" {
		t.Fatalf("want BootstrapError, got=%v", err)
	}
	store, err := NewStore(logger.Nop(), ProviderConfig{Provider: "memory"})
	if err != nil || store.Provider() != vectorstore.ProviderMemory {
		t.Fatalf("memory: got=%v err=%v", store, err)
	}
}

func TestInstrumentRecordsOps(t *testing.T) {
	m := observability.New()
	store := Instrument(vectorstore.NewMemory(), m)
	ctx := context.Background()
	_ = store.CreateCollection(ctx, "c", nil)
	_, _ = store.Count(ctx, "missing")

	reg := m.Registry()
	if n, err := testutil.GatherAndCount(reg, "exampaper_vector_operations_total"); err != nil || n != 2 {
		t.Fatalf("vector op series: want=2 got=%d err=%v", n, err)
	}
}
