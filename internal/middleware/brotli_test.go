package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brotliRouter(body string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 64}))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusCreated, body) })
	return r
}

func serve(r *gin.Engine, acceptEncoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBrotli_CompressesLargeBody(t *testing.T) {
	body := strings.Repeat("quiz ", 100)
	w := serve(brotliRouter(body), "gzip, br;q=0.9")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))
	assert.Less(t, w.Body.Len(), len(body))

	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))
}

func TestBrotli_PassThrough(t *testing.T) {
	large := strings.Repeat("quiz ", 100)

	w := serve(brotliRouter(large), "gzip")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())

	w = serve(brotliRouter("short"), "br")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "short", w.Body.String())
}

func TestAcceptsBrotli(t *testing.T) {
	for header, want := range map[string]bool{
		"br":                true,
		"gzip, deflate, br": true,
		"BR;q=1.0":          true,
		"gzip":              false,
		"":                  false,
		"brotli, identity":  false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", header)
		assert.Equal(t, want, acceptsBrotli(req), header)
	}
}
