package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
	// TracerProvider overrides the global provider; nil uses the global one.
	TracerProvider trace.TracerProvider
}

// TracingWithConfig wraps otelgin. Span names follow "METHOD /route/pattern".
// Place it before the JWT middleware; actor attributes are added by SpanActorAttributes.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanActorAttributes tags the request span with the request ID and actor.
// It must run after RequestID and the JWT middleware.
func SpanActorAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := GetRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if actor, ok := GetActor(c); ok {
				span.SetAttributes(
					attribute.String("tenant_id", actor.TenantID.String()),
					attribute.String("user_id", actor.UserID.String()),
					attribute.String("role", string(actor.Role)),
				)
			}
		}
		c.Next()
	}
}

// SpanErrorMarker marks the request span as failed for 5xx responses and
// records 4xx responses as an attribute.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		case status >= http.StatusBadRequest:
			span.SetAttributes(attribute.Int("http.client_error", status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.StringSlice("handler.errors", c.Errors.Errors()))
		}
	}
}
