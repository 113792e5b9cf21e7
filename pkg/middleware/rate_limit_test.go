package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func limitedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/session/login", mw, func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func hit(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/session/login", nil))
	return w
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	r := limitedRouter(RateLimitMiddleware(0.001, 2))

	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusOK, hit(r).Code)

	w := hit(r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
	require.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestRateLimitInstancesAreIndependent(t *testing.T) {
	a := limitedRouter(RateLimitMiddleware(0.001, 1))
	b := limitedRouter(RateLimitMiddleware(0.001, 1))

	require.Equal(t, http.StatusOK, hit(a).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(a).Code)

	// a fresh middleware instance has its own buckets
	require.Equal(t, http.StatusOK, hit(b).Code)
}

func TestRateLimitSeparatesClientIPs(t *testing.T) {
	r := limitedRouter(RateLimitMiddleware(0.001, 1))

	reqFrom := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/session/login", nil)
		req.RemoteAddr = ip + ":51234"
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, reqFrom("10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, reqFrom("10.0.0.1").Code)
	require.Equal(t, http.StatusOK, reqFrom("10.0.0.2").Code)
}
