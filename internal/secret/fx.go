package secret

import (
	"github.com/smallbiznis/webhookharness/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("secret",
	fx.Provide(func(cfg config.Config) *Cell {
		return NewCell(cfg.WebhookSecret)
	}),
	fx.Provide(NewService),
	fx.Invoke(startFileWatcher),
)

func startFileWatcher(cfg config.Config, svc *Service, log *zap.Logger) error {
	watcher, err := NewFileWatcher(cfg.ConfigPath, svc, log)
	if err != nil {
		return err
	}
	watcher.Start()
	return nil
}
