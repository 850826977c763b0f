package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/matraxtyres/tyre_assistant/appctx"
)

func TestCorrelationIdMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIdMiddleware())
	r.GET("/", func(c *gin.Context) {
		cid, _ := appctx.GetCorrelationId(c.Request.Context())
		c.String(http.StatusOK, cid)
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"caller supplied", "abc-123", true},
		{"missing", "", false},
		{"too long", strings.Repeat("x", 65), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(CorrelationIdHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Body.String()
			if got == "" {
				t.Fatalf("no correlation id in context")
			}
			if tc.keep && got != tc.header {
				t.Fatalf("correlation id = %q, want %q", got, tc.header)
			}
			if !tc.keep && got == tc.header {
				t.Fatalf("header %q should have been replaced", tc.header)
			}
			if w.Header().Get(CorrelationIdHeader) != got {
				t.Fatalf("response header = %q, context = %q", w.Header().Get(CorrelationIdHeader), got)
			}
		})
	}
}
