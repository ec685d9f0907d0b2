package ratelimit

import (
	"context"

	"github.com/smallbiznis/webhookharness/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideWebhookIngestLimiter),
)

func provideWebhookIngestLimiter(lc fx.Lifecycle, cfg config.Config) (*WebhookIngestLimiter, error) {
	limiter, err := NewWebhookIngestLimiter(cfg)
	if err != nil || limiter == nil {
		return limiter, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return limiter.Close()
		},
	})
	return limiter, nil
}
