package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

func TestCreateCollectionRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/col-1" {
			t.Fatalf("request: got=%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, true), nil
	})
	if err := s.CreateCollection(context.Background(), "col-1", map[string]any{"source": "book.pdf"}); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	vectors, _ := captured["vectors"].(map[string]any)
	if vectors["size"] != float64(3) || vectors["distance"] != "Cosine" {
		t.Fatalf("vectors config: got=%v", vectors)
	}
}

func TestUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/col/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("request: got=%s?%s", r.URL.Path, r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"idx": 0}
	err := s.Upsert(context.Background(), "col", []vectorstore.Record{
		{ID: "col_0", Text: "alpha", Vector: []float32{1, 2, 3}, Metadata: meta},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points, _ := captured["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points: want=1 got=%d", len(points))
	}
	first, _ := points[0].(map[string]any)
	if first["id"] != pointID("col", "col_0") {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload, _ := first["payload"].(map[string]any)
	if payload[payloadDocIDKey] != "col_0" || payload[payloadTextKey] != "alpha" {
		t.Fatalf("payload: got=%v", payload)
	}
	if _, mutated := meta[payloadDocIDKey]; mutated {
		t.Fatalf("input metadata mutated")
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.Upsert(context.Background(), "col", []vectorstore.Record{{ID: "a", Vector: []float32{1}}})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("want validation error, got=%v", err)
	}
}

func TestQuerySplitsPayload(t *testing.T) {
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		return okResponse(t, []map[string]any{
			{"id": pointID("col", "col_4"), "score": 0.9, "payload": map[string]any{payloadDocIDKey: "col_4", payloadTextKey: "text four", "idx": 4}},
		}), nil
	})
	got, err := s.Query(context.Background(), "col", []float32{1, 2, 3}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "col_4" || got[0].Text != "text four" || got[0].Score != 0.9 {
		t.Fatalf("unexpected match: %+v", got)
	}
	if _, leaked := got[0].Metadata[payloadTextKey]; leaked {
		t.Fatalf("internal payload keys must not leak into metadata")
	}
}

func TestGetAllScrollsPages(t *testing.T) {
	calls := 0
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return okResponse(t, map[string]any{
				"points":           []map[string]any{{"id": "p1", "payload": map[string]any{payloadTextKey: "one"}}},
				"next_page_offset": "p2",
			}), nil
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["offset"] != "p2" {
			t.Fatalf("offset: want=p2 got=%v", req["offset"])
		}
		return okResponse(t, map[string]any{
			"points":           []map[string]any{{"id": "p2", "payload": map[string]any{payloadTextKey: "two"}}},
			"next_page_offset": nil,
		}), nil
	})
	got, err := s.GetAll(context.Background(), "col")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(got) != 2 || got[1].Text != "two" || got[0].ID != "p1" {
		t.Fatalf("GetAll: got=%+v", got)
	}
}

func TestMissingCollectionMapsToNotFound(t *testing.T) {
	s := newTestStore(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusNotFound, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"Not found"}}`)))}, nil
	})
	if _, err := s.GetCollection(context.Background(), "nope"); !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		t.Fatalf("want ErrCollectionNotFound, got=%v", err)
	}
}

func TestEnvelopeErrorStatus(t *testing.T) {
	if got := parseEnvelopeStatus(json.RawMessage(`{"error":"bad request"}`)); got != "bad request" {
		t.Fatalf("object status: got=%q", got)
	}
	if got := parseEnvelopeStatus(json.RawMessage(`"ok"`)); got != "" {
		t.Fatalf("ok status: got=%q", got)
	}
}

func TestClassifyHTTPCallError(t *testing.T) {
	var opErr *OperationError
	if err := classifyHTTPCallError("query", "timeout", context.DeadlineExceeded); !errors.As(err, &opErr) || opErr.Code != OperationErrorTimeout {
		t.Fatalf("want timeout, got=%v", err)
	}
	if err := classifyHTTPCallError("query", "transport", fmt.Errorf("boom")); !errors.As(err, &opErr) || opErr.Code != OperationErrorTransportFailed {
		t.Fatalf("want transport, got=%v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	var cfgErr *ConfigError
	if err := ValidateConfig(Config{URL: "http://qdrant:6333"}); !errors.As(err, &cfgErr) || cfgErr.Code != ConfigErrorInvalidVectorDim {
		t.Fatalf("missing dim: got=%v", err)
	}
	if err := ValidateConfig(Config{URL: "http://qdrant:6333", VectorDim: 768, Distance: "hamming"}); !errors.As(err, &cfgErr) || cfgErr.Code != ConfigErrorInvalidDistance {
		t.Fatalf("bad distance: got=%v", err)
	}
	if err := ValidateConfig(Config{URL: "http://qdrant:6333", VectorDim: 768}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func newTestStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *store {
	t.Helper()
	return &store{
		log:  newTestLogger(t),
		cfg:  Config{URL: "http://qdrant.local", VectorDim: 3}.withDefaults(),
		http: &http.Client{Transport: roundTripFunc(roundTrip)},
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
