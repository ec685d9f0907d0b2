package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/webhookharness/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/webhookharness/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonClientRate = "client-rate"

// WebhookIngestRateLimit throttles deliveries per client address when a
// limiter is configured. Limiter failures fail open so deliveries are not
// lost while redis is unavailable.
func (s *Server) WebhookIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		res, err := s.limiter.AllowClient(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("webhook ingest rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			log := logger.FromContext(ctx)
			log.Warn("webhook ingest rate limit exceeded",
				zap.String("reason", rateLimitReasonClientRate),
				zap.String("endpoint", endpoint),
			)
			recordRateLimitDenied(ctx, endpoint, rateLimitReasonClientRate, s.obsMetrics)

			c.Header("Retry-After", retryAfterSeconds(res.RetryAfter.Seconds()))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonClientRate)
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func retryAfterSeconds(seconds float64) string {
	wait := int(math.Ceil(seconds))
	if wait < 1 {
		wait = 1
	}
	return strconv.Itoa(wait)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
