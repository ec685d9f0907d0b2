package liveevents

import (
	"context"
	"strings"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/webhookharness/internal/config"
	obsmetrics "github.com/smallbiznis/webhookharness/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("liveevents",
	fx.Provide(NewHub),
	fx.Provide(NewSink),
	fx.Invoke(func(lc fx.Lifecycle, hub *Hub) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				hub.Close()
				return nil
			},
		})
	}),
)

type SinkParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Hub       *Hub
	Log       *zap.Logger
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// NewSink returns the hub itself, or a redis bridge in front of it when a
// redis address is configured.
func NewSink(p SinkParams) (Sink, error) {
	var sink Sink = p.Hub

	if p.Config.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     strings.TrimSpace(p.Config.Redis.Addr),
			Password: strings.TrimSpace(p.Config.Redis.Password),
			DB:       p.Config.Redis.DB,
		})
		bridge, err := NewRedisBridge(client, p.Config.Redis.Channel, uuid.NewString(), p.Hub, p.Log)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStart: bridge.Start,
			OnStop: func(ctx context.Context) error {
				err := bridge.Stop(ctx)
				_ = client.Close()
				return err
			},
		})
		sink = bridge
	}

	if p.Metrics != nil {
		sink = &meteredSink{next: sink, metrics: p.Metrics}
	}
	return sink, nil
}

type meteredSink struct {
	next    Sink
	metrics *obsmetrics.Metrics
}

func (s *meteredSink) Publish(ctx context.Context, n Notification) {
	s.next.Publish(ctx, n)
	s.metrics.RecordLiveNotification(ctx, n.Name)
}
