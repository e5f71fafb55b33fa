package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID_HeaderIsSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var fromCtx string
	r.GET("/", func(c *gin.Context) {
		fromCtx = c.GetString(RequestIDKey)
		c.String(200, "ok")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != 200 {
		t.Fatalf("code=%d", w.Code)
	}
	id := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("header %q is not a uuid", id)
	}
	if fromCtx != id {
		t.Fatalf("context id %q != header id %q", fromCtx, id)
	}
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(200, "ok") })

	cases := []struct {
		name   string
		in     string
		reused bool
	}{
		{name: "valid uuid", in: "123e4567-e89b-12d3-a456-426614174000", reused: true},
		{name: "garbage", in: "not-a-uuid", reused: false},
		{name: "missing", in: "", reused: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.in != "" {
				req.Header.Set(RequestIDHeader, tc.in)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			got := w.Header().Get(RequestIDHeader)
			if (got == tc.in) != tc.reused {
				t.Fatalf("in=%q got=%q reused=%v", tc.in, got, tc.reused)
			}
			if got == "" {
				t.Fatalf("missing request id")
			}
		})
	}
}
