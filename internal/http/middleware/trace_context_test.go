package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext(), RequestLogger(logger.Nop()), Metrics(observability.New()))

	var seen *ctxutil.TraceData
	r.GET("/api/jobs/:id", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/1", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-42" || seen.TraceID == "" {
		t.Fatalf("trace data: got=%+v", seen)
	}
	if rec.Header().Get(headerRequestID) != "req-42" || rec.Header().Get(headerTraceID) != seen.TraceID {
		t.Fatalf("response headers: got=%v", rec.Header())
	}
}

func TestAttachTraceContextReplacesUnsafeClientIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "bad id\nwith newline")
	req.Header.Set(headerTraceID, "trace-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	got := rec.Header().Get(headerRequestID)
	if got == "" || got == "bad id\nwith newline" {
		t.Fatalf("request id should be regenerated: got=%q", got)
	}
	if rec.Header().Get(headerTraceID) != "trace-7" {
		t.Fatalf("trace id: want=trace-7 got=%q", rec.Header().Get(headerTraceID))
	}
}

func TestClientID(t *testing.T) {
	cases := map[string]string{
		"  abc-123 ":              "abc-123",
		"":                        "",
		"has space":               "",
		string(make([]byte, 200)): "",
	}
	for in, want := range cases {
		if got := clientID(in); got != want {
			t.Fatalf("clientID(%q): want=%q got=%q", in, want, got)
		}
	}
}
