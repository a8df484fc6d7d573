package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wholesale/orderflow/internal/domain/shared"
)

func setupTestTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return recorder, tp
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func newTracedRouter(t *testing.T, svcToken bool) (*gin.Engine, *tracetest.SpanRecorder, string) {
	t.Helper()
	recorder, tp := setupTestTracer(t)
	svc := newTestJWTService()

	router := gin.New()
	router.Use(
		RequestID(),
		TracingWithConfig(TracingConfig{ServiceName: "orderflow-test", Enabled: true, TracerProvider: tp}),
		SpanErrorMarker(),
		JWTAuthMiddleware(svc),
		SpanActorAttributes(),
	)
	router.GET("/api/v1/orders/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/v1/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})

	token := ""
	if svcToken {
		var err error
		token, err = svc.GenerateToken(newTestActor(shared.RoleAdmin), time.Hour)
		require.NoError(t, err)
	}
	return router, recorder, token
}

func TestTracingWithConfig_RecordsRouteSpan(t *testing.T) {
	router, recorder, token := newTracedRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	req.Header.Set(RequestIDHeader, "req-trace")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /api/v1/orders/:id", span.Name())

	attrs := spanAttributes(span)
	assert.Equal(t, "req-trace", attrs["request_id"].AsString())
	assert.Equal(t, "admin", attrs["role"].AsString())
	assert.NotEmpty(t, attrs["tenant_id"].AsString())
	assert.NotEmpty(t, attrs["user_id"].AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanErrorMarker_ClientError(t *testing.T) {
	router, recorder, _ := newTracedRouter(t, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttributes(spans[0])
	assert.Equal(t, int64(http.StatusUnauthorized), attrs["http.client_error"].AsInt64())
	_, hasRole := attrs["role"]
	assert.False(t, hasRole)
}

func TestSpanErrorMarker_ServerError(t *testing.T) {
	router, recorder, token := newTracedRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	attrs := spanAttributes(spans[0])
	assert.Equal(t, []string{assert.AnError.Error()}, attrs["handler.errors"].AsStringSlice())
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	recorder, tp := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{ServiceName: "orderflow-test", Enabled: false, TracerProvider: tp}))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, recorder.Ended())
}
