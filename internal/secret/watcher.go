package secret

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const fileSecretKey = "webhook.secret"

// FileWatcher applies webhook.secret from a YAML file and re-applies it
// whenever the file changes.
type FileWatcher struct {
	v   *viper.Viper
	svc *Service
	log *zap.Logger

	mu      sync.Mutex
	applied string
}

// NewFileWatcher returns nil, nil when no config file exists. path, when
// set, names the file explicitly.
func NewFileWatcher(path string, svc *Service, log *zap.Logger) (*FileWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("harness")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/webhookharness")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}

	return &FileWatcher{
		v:   v,
		svc: svc,
		log: log.Named("secret.file"),
	}, nil
}

// Start applies the current file contents and begins watching for changes.
func (w *FileWatcher) Start() {
	if w == nil {
		return
	}
	w.apply(context.Background(), w.v.GetString(fileSecretKey))

	w.v.OnConfigChange(func(e fsnotify.Event) {
		w.log.Info("config file changed", zap.String("file", e.Name))
		w.apply(context.Background(), w.v.GetString(fileSecretKey))
	})
	w.v.WatchConfig()
	w.log.Info("watching config file", zap.String("file", w.v.ConfigFileUsed()))
}

// apply only acts on changes to the file value, so a secret set through the
// admin API is kept until the file itself changes.
func (w *FileWatcher) apply(ctx context.Context, value string) {
	value = strings.TrimSpace(value)

	w.mu.Lock()
	defer w.mu.Unlock()
	if value == w.applied {
		return
	}

	if value == "" {
		w.svc.Clear(ctx)
		w.applied = ""
		return
	}
	if _, err := w.svc.Set(ctx, value); err != nil {
		w.log.Warn("ignoring webhook secret from config file", zap.Error(err))
		return
	}
	w.applied = value
}
