package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		configured []string
		origin     string
		allowed    bool
	}{
		{"dev default", nil, "http://localhost:5173", true},
		{"configured", []string{"https://exams.school.org"}, "https://exams.school.org", true},
		{"configured replaces default", []string{"https://exams.school.org"}, "http://localhost:5173", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tc.configured))
			r.OPTIONS("/api/questions/generate/:examId", func(c *gin.Context) {
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodOptions, "/api/questions/generate/x", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.allowed && got != tc.origin {
				t.Fatalf("allow-origin: got=%q want=%q", got, tc.origin)
			}
			if !tc.allowed && got != "" {
				t.Fatalf("allow-origin: got=%q want none", got)
			}
		})
	}
}
