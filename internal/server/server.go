package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/webhookharness/internal/clock"
	"github.com/smallbiznis/webhookharness/internal/config"
	"github.com/smallbiznis/webhookharness/internal/liveevents"
	"github.com/smallbiznis/webhookharness/internal/observability"
	obsmiddleware "github.com/smallbiznis/webhookharness/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/webhookharness/internal/observability/metrics"
	obstracing "github.com/smallbiznis/webhookharness/internal/observability/tracing"
	"github.com/smallbiznis/webhookharness/internal/ratelimit"
	"github.com/smallbiznis/webhookharness/internal/secret"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:                obsCfg.Debug(),
		ErrorClassifier:      classifyErrorForLog,
		SlowRequestThreshold: obsCfg.SlowRequest,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{
		SkipRoutes: obsCfg.UntracedRoutes(),
	}))
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type webhookLimiter interface {
	Enabled() bool
	AllowClient(ctx context.Context, clientIP string) (*ratelimit.RateLimitResult, error)
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	events     domain.Service
	secrets    *secret.Service
	live       *liveevents.Hub
	limiter    webhookLimiter
	obsMetrics *obsmetrics.Metrics
	clock      clock.Clock
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Events     domain.Service
	Secrets    *secret.Service
	Live       *liveevents.Hub                 `optional:"true"`
	Limiter    *ratelimit.WebhookIngestLimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics             `optional:"true"`
	Clock      clock.Clock                     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		events:     p.Events,
		secrets:    p.Secrets,
		live:       p.Live,
		obsMetrics: p.ObsMetrics,
		clock:      p.Clock,
	}
	if p.Limiter != nil {
		svc.limiter = p.Limiter
	}
	if svc.clock == nil {
		svc.clock = clock.System()
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.POST("/webhook", s.WebhookIngestRateLimit(), s.ReceiveWebhook)

	api := s.engine.Group("/api")
	api.GET("/events", s.ListEvents)
	api.GET("/events/:id", s.GetEventByID)
	api.DELETE("/events", s.ClearEvents)
	api.GET("/stats", s.GetStats)

	api.GET("/secret", s.GetSecretStatus)
	api.POST("/secret", s.SetSecret)
	api.DELETE("/secret", s.ClearSecret)

	api.GET("/live", s.StreamLiveEvents)
}
