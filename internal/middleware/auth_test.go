package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BridgeAuth(token))
	r.GET("/state", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestBridgeAuth(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		header string
		path   string
		code   int
	}{
		{"disabled", "", "", "/state", http.StatusOK},
		{"missing", "s3cret", "", "/state", http.StatusUnauthorized},
		{"bearer ok", "s3cret", "Bearer s3cret", "/state", http.StatusOK},
		{"bearer lowercase scheme", "s3cret", "bearer s3cret", "/state", http.StatusOK},
		{"wrong token", "s3cret", "Bearer nope", "/state", http.StatusUnauthorized},
		{"malformed header", "s3cret", "s3cret", "/state", http.StatusUnauthorized},
		{"query token", "s3cret", "", "/state?token=s3cret", http.StatusOK},
		{"wrong query token", "s3cret", "", "/state?token=x", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			setupRouter(tc.token).ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
