package liveevents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope is the wire form relayed between replicas over a redis channel.
type envelope struct {
	Origin string          `json:"origin"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// RedisBridge publishes notifications to a redis channel and delivers
// every message it receives on that channel to the local hub, so observers
// attached to any replica see deliveries accepted by any other replica.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	log     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewRedisBridge(client *redis.Client, channel, origin string, hub *Hub, log *zap.Logger) (*RedisBridge, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if hub == nil {
		return nil, errors.New("hub is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("redis channel is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		origin:  origin,
		hub:     hub,
		log:     log.Named("liveevents.redis"),
	}, nil
}

// Publish delivers locally right away and relays to the other replicas.
// A relay failure is logged and otherwise ignored.
func (b *RedisBridge) Publish(ctx context.Context, n Notification) {
	b.hub.Publish(ctx, n)

	msg := envelope{Origin: b.origin, Name: n.Name}
	if n.Data != nil {
		raw, err := json.Marshal(n.Data)
		if err != nil {
			b.log.Warn("encode live notification failed", zap.String("name", n.Name), zap.Error(err))
			return
		}
		msg.Data = raw
	}
	body, err := json.Marshal(msg)
	if err != nil {
		b.log.Warn("encode live envelope failed", zap.String("name", n.Name), zap.Error(err))
		return
	}
	if err := b.client.Publish(context.WithoutCancel(ctx), b.channel, body).Err(); err != nil {
		b.log.Warn("relay live notification failed", zap.String("name", n.Name), zap.Error(err))
	}
}

// Start subscribes to the channel and relays remote notifications into the hub
// until Stop is called.
func (b *RedisBridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.handle(msg.Payload)
			}
		}
	}()

	b.log.Info("live notification bridge started", zap.String("channel", b.channel))
	return nil
}

func (b *RedisBridge) handle(payload string) {
	var msg envelope
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.log.Warn("drop malformed live envelope", zap.Error(err))
		return
	}
	if msg.Origin == b.origin || msg.Name == "" {
		return
	}
	n := Notification{Name: msg.Name}
	if len(msg.Data) > 0 {
		n.Data = msg.Data
	}
	b.hub.broadcast(n)
}

func (b *RedisBridge) Stop(ctx context.Context) error {
	b.once.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
	})
	if b.done == nil {
		return nil
	}
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
