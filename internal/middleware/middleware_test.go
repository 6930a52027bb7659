package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/metrics"
)

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestRequestIDPropagates(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", ok)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, id)
	assert.Equal(t, id, serve(engine, req).Header().Get(HeaderXRequestID))

	fresh := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NoError(t, uuid.Validate(fresh.Header().Get(HeaderXRequestID)))
}

func TestRequestIDReplacesForeignValues(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", ok)

	for _, v := range []string{"abc-123", strings.Repeat("a", 4096), "x\" level=\"error"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderXRequestID, v)
		got := serve(engine, req).Header().Get(HeaderXRequestID)
		assert.NotEqual(t, v, got)
		assert.NoError(t, uuid.Validate(got))
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestLoggerOmitsShareTokens(t *testing.T) {
	logs := captureLog(t)
	engine := gin.New()
	engine.Use(RequestID(), Logger(), Recovery())
	engine.GET("/api/share/:token", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	engine.GET("/api/panic/:token", func(*gin.Context) { panic("boom") })

	const token = "eyJhbGciOiJIUzI1NiJ9.c2hhcmVk.c2lnbmF0dXJl"
	serve(engine, httptest.NewRequest(http.MethodGet, "/api/share/"+token, nil))
	serve(engine, httptest.NewRequest(http.MethodGet, "/api/panic/"+token, nil))
	serve(engine, httptest.NewRequest(http.MethodGet, "/api/missing/"+token, nil))

	out := logs.String()
	assert.NotContains(t, out, token)
	assert.Contains(t, out, `"path":"/api/share/:token"`)
	assert.Contains(t, out, `"path":"/api/panic/:token"`)
	assert.Contains(t, out, `"path":"unmatched"`)
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), Recovery())
	engine.GET("/", func(*gin.Context) { panic("boom") })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Internal server error"}`, w.Body.String())
}

func TestRateLimitIsPerClient(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(0.001), Burst: 2})
	engine := gin.New()
	engine.Use(limiter.RateLimit())
	engine.GET("/", ok)

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return serve(engine, req).Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, from("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2:1000"))
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(DefaultCORSConfig("http://localhost:5173")))
	engine.GET("/", ok)

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	w := serve(engine, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	foreign := httptest.NewRequest(http.MethodGet, "/", nil)
	foreign.Header.Set("Origin", "https://evil.example.com")
	w = serve(engine, foreign)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardNeverAllowsCredentials(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(DefaultCORSConfig()))
	engine.GET("/", ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := serve(engine, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	config := DefaultCORSConfig("*", "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", allowedOrigin(config, "http://localhost:5173"))
	assert.Equal(t, "*", allowedOrigin(config, "https://evil.example.com"))
}

func TestSecurityHeaders(t *testing.T) {
	engine := gin.New()
	engine.Use(SecurityHeaders(DefaultSecurityConfig()))
	engine.GET("/", ok)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))

	engine = gin.New()
	engine.Use(SecurityHeaders(SecurityConfig{FrameOptions: "SAMEORIGIN"}))
	engine.GET("/", ok)
	w = serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	_, sent := w.Header()["Strict-Transport-Security"]
	assert.False(t, sent)
	_, sent = w.Header()["Content-Security-Policy"]
	assert.False(t, sent)
}

func TestSizeLimit(t *testing.T) {
	config := DefaultSizeLimitConfig()
	config.MaxBodySize = 16
	config.MaxUploadSize = 64

	engine := gin.New()
	engine.Use(SizeLimit(config))
	engine.POST("/", ok)

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	small.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusOK, serve(engine, small).Code)

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	big.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(engine, big).Code)

	upload := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	upload.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	assert.Equal(t, http.StatusOK, serve(engine, upload).Code)
}

func TestCacheNoStore(t *testing.T) {
	engine := gin.New()
	engine.Use(Cache(NoStoreConfig()))
	engine.GET("/", ok)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store, private", w.Header().Get("Cache-Control"))
	assert.Equal(t, "Authorization, Cookie", w.Header().Get("Vary"))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	engine := gin.New()
	engine.Use(Metrics(m))
	engine.GET("/api/share/:token", ok)

	serve(engine, httptest.NewRequest(http.MethodGet, "/api/share/abc", nil))
	serve(engine, httptest.NewRequest(http.MethodGet, "/api/share/def", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/share/:token", "200")))
}
