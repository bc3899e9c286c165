package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizattempt/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(auth *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	whoami := func(c *gin.Context) { c.String(http.StatusOK, LearnerID(c)) }
	r.GET("/api", RequireLearnerJWT(auth), whoami)
	r.GET("/ws", RequireLearnerWSAuth(auth), whoami)
	return r
}

func TestRequireLearnerJWT(t *testing.T) {
	auth := service.NewAuthService("secret", time.Hour)
	r := newAuthRouter(auth)
	tok, err := auth.IssueLearnerToken("learner-7")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + tok, http.StatusOK, "learner-7"},
		{"lowercase scheme", "bearer " + tok, http.StatusOK, "learner-7"},
		{"missing", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"wrong scheme", "Basic " + tok, http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestRequireLearnerJWT_OtherSecret(t *testing.T) {
	r := newAuthRouter(service.NewAuthService("secret", time.Hour))
	tok, err := service.NewAuthService("other", time.Hour).IssueLearnerToken("learner-7")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireLearnerWSAuth(t *testing.T) {
	auth := service.NewAuthService("secret", time.Hour)
	r := newAuthRouter(auth)
	tok, err := auth.IssueLearnerToken("learner-9")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "learner-9", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
