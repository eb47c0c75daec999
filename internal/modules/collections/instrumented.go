package collections

import (
	"context"
	"time"

	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

type instrumented struct {
	inner   vectorstore.Store
	metrics *observability.Metrics
}

// Instrument records latency and outcome of every store call.
func Instrument(inner vectorstore.Store, metrics *observability.Metrics) vectorstore.Store {
	if inner == nil || metrics == nil {
		return inner
	}
	return &instrumented{inner: inner, metrics: metrics}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorOp(s.inner.Provider(), op, status, time.Since(start))
}

func (s *instrumented) Provider() string { return s.inner.Provider() }

func (s *instrumented) CreateCollection(ctx context.Context, name string, metadata map[string]any) (err error) {
	defer func(start time.Time) { s.observe("create_collection", start, err) }(time.Now())
	return s.inner.CreateCollection(ctx, name, metadata)
}

func (s *instrumented) GetCollection(ctx context.Context, name string) (info vectorstore.CollectionInfo, err error) {
	defer func(start time.Time) { s.observe("get_collection", start, err) }(time.Now())
	return s.inner.GetCollection(ctx, name)
}

func (s *instrumented) Count(ctx context.Context, name string) (n int, err error) {
	defer func(start time.Time) { s.observe("count", start, err) }(time.Now())
	return s.inner.Count(ctx, name)
}

func (s *instrumented) Upsert(ctx context.Context, name string, records []vectorstore.Record) (err error) {
	defer func(start time.Time) { s.observe("upsert", start, err) }(time.Now())
	return s.inner.Upsert(ctx, name, records)
}

func (s *instrumented) Query(ctx context.Context, name string, vector []float32, k int) (out []vectorstore.Match, err error) {
	defer func(start time.Time) { s.observe("query", start, err) }(time.Now())
	return s.inner.Query(ctx, name, vector, k)
}

func (s *instrumented) GetAll(ctx context.Context, name string) (out []vectorstore.Record, err error) {
	defer func(start time.Time) { s.observe("get_all", start, err) }(time.Now())
	return s.inner.GetAll(ctx, name)
}
