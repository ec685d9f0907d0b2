package secret

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/webhookharness/internal/liveevents"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MinLength applies to secrets set at runtime.
const MinLength = 16

var (
	ErrSecretRequired = errors.New("secret_required")
	ErrSecretTooShort = errors.New("secret_too_short")
)

type Status struct {
	Configured bool    `json:"configured"`
	Preview    *string `json:"preview"`
}

type ServiceParam struct {
	fx.In

	Cell *Cell
	Log  *zap.Logger
	Sink liveevents.Sink `optional:"true"`
}

type Service struct {
	cell *Cell
	log  *zap.Logger
	sink liveevents.Sink
}

func NewService(p ServiceParam) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cell: p.Cell,
		log:  log.Named("secret.service"),
		sink: p.Sink,
	}
}

func (s *Service) Status() Status {
	current := s.cell.Load()
	if current == "" {
		return Status{}
	}
	preview := Preview(current)
	return Status{Configured: true, Preview: &preview}
}

// Set replaces the secret. The next verification uses the new value.
func (s *Service) Set(ctx context.Context, value string) (Status, error) {
	if err := Validate(value); err != nil {
		return s.Status(), err
	}
	s.cell.Store(value)
	s.log.Info("webhook secret updated")
	s.notify(ctx, true)
	return s.Status(), nil
}

// Clear removes the secret; subsequent deliveries are stored unverified.
func (s *Service) Clear(ctx context.Context) Status {
	s.cell.Clear()
	s.log.Info("webhook secret cleared")
	s.notify(ctx, false)
	return s.Status()
}

func Validate(value string) error {
	if strings.TrimSpace(value) == "" {
		return ErrSecretRequired
	}
	if utf8.RuneCountInString(value) < MinLength {
		return ErrSecretTooShort
	}
	return nil
}

func (s *Service) notify(ctx context.Context, configured bool) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(ctx, liveevents.Notification{
		Name: liveevents.NameSecretUpdated,
		Data: map[string]bool{"configured": configured},
	})
}
