package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitRejectsAboveBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	limiter := NewRateLimiter(RateLimiterConfig{RPS: 1, Burst: 2, TTL: time.Minute})
	engine.Use(limiter.RateLimit())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRateLimitIsPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	limiter := NewRateLimiter(RateLimiterConfig{RPS: 1, Burst: 1, TTL: time.Minute})
	engine.Use(limiter.RateLimit())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRequest(http.MethodGet, "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	engine.ServeHTTP(w1, first)
	assert.Equal(t, http.StatusOK, w1.Code)

	// same client exhausted its bucket
	w2 := httptest.NewRecorder()
	engine.ServeHTTP(w2, first)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	// a different client still gets through
	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	w3 := httptest.NewRecorder()
	engine.ServeHTTP(w3, other)
	assert.Equal(t, http.StatusOK, w3.Code)
}
