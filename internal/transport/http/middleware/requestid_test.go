package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Metrics())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func TestRequestIDGenerated(t *testing.T) {
	r := newEngine()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rid := w.Header().Get(KeyRequestID)
	assert.NotEmpty(t, rid)
}

func TestRequestIDPropagated(t *testing.T) {
	r := newEngine()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(KeyRequestID, "rid-from-gateway")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// 上游带了 id 原样透传，不重新生成
	assert.Equal(t, "rid-from-gateway", w.Header().Get(KeyRequestID))
}

func TestMetricsExposedUnderNamespace(t *testing.T) {
	r := newEngine()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, "vidtube_http_requests_total"))
	assert.True(t, strings.Contains(body, "vidtube_http_request_duration_seconds"))
}
