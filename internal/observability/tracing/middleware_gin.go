package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/webhookharness/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MiddlewareConfig controls which requests get a server span.
type MiddlewareConfig struct {
	// SkipRoutes lists route templates that are never traced.
	SkipRoutes []string
}

// GinMiddleware instruments inbound HTTP requests. Webhook deliveries also
// carry the event type, event id and verification outcome.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	tracer := otel.Tracer("webhookharness/http")
	skip := make(map[string]struct{}, len(cfg.SkipRoutes))
	for _, route := range cfg.SkipRoutes {
		if route = strings.TrimSpace(route); route != "" {
			skip[route] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.FullPath()]; ok {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		attrs = append(attrs, webhookAttributes(c)...)
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

func webhookAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if eventType := strings.TrimSpace(c.GetString(obscontext.GinEventTypeKey)); eventType != "" {
		attrs = append(attrs, attribute.String("webhook.event_type", eventType))
	}
	if eventID := strings.TrimSpace(c.GetString(obscontext.GinEventIDKey)); eventID != "" {
		attrs = append(attrs, attribute.String("webhook.event_id", eventID))
	}
	if verified, ok := c.Get(obscontext.GinVerifiedKey); ok {
		if v, ok := verified.(bool); ok {
			attrs = append(attrs, attribute.Bool("webhook.verified", v))
		}
	}
	return attrs
}
