package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

func TestEmbedOrdersByIndex(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/embeddings" || r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Fatalf("request: path=%s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{2, 2}},
				{"index": 0, "embedding": []float64{1, 1}},
			},
		}), nil
	})
	got, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Fatalf("order: got=%v", got)
	}
}

func TestEmbedMissingVectorFails(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{"data": []map[string]any{{"index": 0, "embedding": []float64{1}}}}), nil
	})
	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("want error on short embedding response")
	}
}

func TestGenerateTextRetriesServerErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return rawResponse(http.StatusServiceUnavailable, `{"error":"busy"}`), nil
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"output": []map[string]any{{
				"type": "message", "role": "assistant",
				"content": []map[string]any{{"type": "output_text", "text": `{"question":"q"}`}},
			}},
		}), nil
	})
	c.cfg.MaxRetries = 2
	got, err := c.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if calls != 2 || got != `{"question":"q"}` {
		t.Fatalf("calls=%d text=%q", calls, got)
	}
}

func TestGenerateTextDropsRejectedTemperature(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		if _, ok := body["temperature"]; ok {
			return rawResponse(http.StatusBadRequest, `{"error":{"message":"Unsupported parameter: 'temperature'"}}`), nil
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"output": []map[string]any{{
				"type": "message", "role": "assistant",
				"content": []map[string]any{{"type": "output_text", "text": "ok"}},
			}},
		}), nil
	})
	temp := 0.7
	c.cfg.Temperature = &temp
	if _, err := c.GenerateText(context.Background(), "s", "u"); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if len(bodies) != 2 || !c.noTemp.Load() {
		t.Fatalf("want one retry without temperature, calls=%d", len(bodies))
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return rawResponse(http.StatusUnauthorized, "bad key"), nil
	})
	c.cfg.MaxRetries = 3
	_, err := c.GenerateText(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "401") || calls != 1 {
		t.Fatalf("want single 401 failure, calls=%d err=%v", calls, err)
	}
}

func newTestClient(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *client {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return &client{
		log:        log,
		cfg:        Config{APIKey: "sk-test", MaxRetries: 0}.withDefaults(),
		httpClient: &http.Client{Transport: roundTripFunc(roundTrip)},
		backoff:    time.Millisecond,
	}
}

func jsonResponse(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return rawResponse(status, string(raw))
}

func rawResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader([]byte(body)))}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
