package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"greendrake/freight/internal/captcha"
	"greendrake/freight/internal/config"
)

func setupRateLimitEngine(t *testing.T, cfg *config.Config, verifier captcha.ITurnstileVerifier) (*gin.Engine, *RateLimiterMiddleware) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	rateLimiter := NewRateLimiterMiddleware(ctx, cfg)
	r.Use(CaptchaMiddleware(cfg, verifier))
	r.Use(rateLimiter.Limit())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r, rateLimiter
}

func doRequest(r http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterMiddleware_HardLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	router, _ := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doRequest(router, "1.2.3.4:12345", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "1.2.3.4:12345", nil).Code)

	// Another client has its own buckets.
	assert.Equal(t, http.StatusOK, doRequest(router, "1.2.3.5:12345", nil).Code)
}

func TestRateLimiterMiddleware_SoftLimit_CaptchaRequired(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	router, _ := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doRequest(router, "5.6.7.8:12345", nil).Code)

	w := doRequest(router, "5.6.7.8:12345", nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
	var respBody map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "Captcha validation required", respBody["error"])
}

func TestRateLimiterMiddleware_SoftLimit_BypassWithCaptchaHeader(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockVerifier := new(MockTurnstileVerifier)
	mockVerifier.On("ValidateHumanToken", "valid-xct", mock.MatchedBy(func(c captcha.Client) bool { return c.IP == "9.1.2.3" })).Return(true)
	router, _ := setupRateLimitEngine(t, cfg, mockVerifier)

	assert.Equal(t, http.StatusOK, doRequest(router, "9.1.2.3:12345", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, "9.1.2.3:12345", map[string]string{HeaderHumanToken: "valid-xct"}).Code)
	mockVerifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRateLimiterMiddleware_HardLimitAppliesToHumans(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockVerifier := new(MockTurnstileVerifier)
	mockVerifier.On("ValidateHumanToken", mock.Anything, mock.Anything).Return(true)
	router, _ := setupRateLimitEngine(t, cfg, mockVerifier)

	headers := map[string]string{HeaderHumanToken: "valid-xct"}
	assert.Equal(t, http.StatusOK, doRequest(router, "7.7.7.7:1", headers).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "7.7.7.7:1", headers).Code)
}

func TestRateLimiterMiddleware_PruneIdleClients(t *testing.T) {
	cfg := &config.Config{RateLimitHardRefillRate: 1, RateLimitHardBucketSize: 1, RateLimitSoftRefillRate: 1, RateLimitSoftBucketSize: 1}
	router, rl := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	start := time.Now()
	rl.now = func() time.Time { return start }
	doRequest(router, "10.0.0.1:1", nil)
	rl.now = func() time.Time { return start.Add(20 * time.Minute) }
	doRequest(router, "10.0.0.2:1", nil)

	rl.now = func() time.Time { return start.Add(40 * time.Minute) }
	assert.Equal(t, 1, rl.prune())
	assert.Len(t, rl.clients, 1)

	// The pruned client starts with a full bucket again.
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1", nil).Code)
}
