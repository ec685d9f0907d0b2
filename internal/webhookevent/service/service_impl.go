package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/webhookharness/internal/clock"
	"github.com/smallbiznis/webhookharness/internal/liveevents"
	obslogger "github.com/smallbiznis/webhookharness/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/webhookharness/internal/observability/metrics"
	"github.com/smallbiznis/webhookharness/internal/secret"
	"github.com/smallbiznis/webhookharness/internal/signature"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Secret     *secret.Cell
	Repo       domain.Repository
	Sink       liveevents.Sink     `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	secret     *secret.Cell
	repo       domain.Repository
	sink       liveevents.Sink
	obsMetrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.System()
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("webhookevent.service"),

		genID:      p.GenID,
		clock:      c,
		secret:     p.Secret,
		repo:       p.Repo,
		sink:       p.Sink,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	tree, err := decodePayload(req.Payload)
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	headers := req.Headers
	if headers == nil {
		headers = http.Header{}
	}

	eventType, ok := firstOf(headers.Get(signature.HeaderEvent), tree, eventTypeLookups)
	if !ok {
		eventType = domain.UnknownEventType
	}
	eventID, ok := firstOf(headers.Get(signature.HeaderEventID), tree, eventIDLookups)
	if !ok {
		eventID = domain.LocalEventPrefix + s.genID.Generate().String()
	}
	var commodity *string
	if v, ok := firstOf("", tree, commodityLookups); ok {
		commodity = &v
	}

	providedSig := headers.Get(signature.HeaderSignature)
	providedTS := headers.Get(signature.HeaderTimestamp)
	now := s.clock.Now().UTC().Truncate(time.Microsecond)

	result := signature.Verify(req.Payload, providedSig, providedTS, s.secret.Load(), now)
	s.obsMetrics.RecordSignatureResult(ctx, string(result.Reason))

	snapshot, err := snapshotHeaders(headers)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}

	event := &domain.WebhookEvent{
		EventID:            eventID,
		EventType:          eventType,
		Commodity:          commodity,
		Payload:            string(req.Payload),
		Headers:            snapshot,
		Signature:          optional(providedSig),
		SignatureTimestamp: optional(providedTS),
		SignatureValid:     result.Valid,
		SignatureError:     result.ErrorPtr(),
		ReceivedAt:         now,
	}
	if err := s.repo.Save(ctx, s.db, event); err != nil {
		return nil, fmt.Errorf("save webhook event: %w", err)
	}
	s.obsMetrics.RecordWebhookReceived(ctx, eventType, result.Valid)

	fields := []zap.Field{
		zap.Int64("id", event.ID),
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
		zap.Bool("signature_valid", result.Valid),
		zap.String("signature_reason", string(result.Reason)),
	}
	if commodity != nil {
		fields = append(fields, zap.String("commodity", *commodity))
	}
	if result.TimestampAge != nil {
		fields = append(fields, zap.Int64("timestamp_age_s", *result.TimestampAge))
	}
	obslogger.WithContext(ctx, s.log).Info("webhook received", fields...)

	s.publish(ctx, liveevents.Notification{
		Name: liveevents.NameNewEvent,
		Data: toLiveEvent(event, tree),
	})

	return &domain.IngestResult{
		EventID:      eventID,
		Event:        event,
		Verification: result,
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.QueryFilter{
		EventType: strings.TrimSpace(req.EventType),
		Commodity: strings.TrimSpace(req.Commodity),
		Limit:     normalizeLimit(req.Limit),
		Offset:    normalizeOffset(req.Offset),
	}
	events, total, err := s.repo.Query(ctx, s.db, filter)
	if err != nil {
		return nil, fmt.Errorf("query webhook events: %w", err)
	}
	return &domain.ListResponse{Events: events, Total: total}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.WebhookEvent, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || parsed <= 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrNotFound, domain.ErrInvalidID)
	}
	event, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, fmt.Errorf("find webhook event: %w", err)
	}
	if event == nil {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *Service) Stats(ctx context.Context) (*domain.StatsResponse, error) {
	stats, err := s.repo.Stats(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("webhook event stats: %w", err)
	}
	return &domain.StatsResponse{Stats: stats}, nil
}

func (s *Service) Clear(ctx context.Context) error {
	removed, err := s.repo.Clear(ctx, s.db)
	if err != nil {
		return fmt.Errorf("clear webhook events: %w", err)
	}
	obslogger.WithContext(ctx, s.log).Info("webhook events cleared", zap.Int64("removed", removed))

	s.publish(ctx, liveevents.Notification{Name: liveevents.NameCleared})
	return nil
}

// publish is best effort: a missing or failing sink never changes the
// outcome of the operation that triggered it.
func (s *Service) publish(ctx context.Context, n liveevents.Notification) {
	if s.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("live notification panicked", zap.String("name", n.Name), zap.Any("panic", r))
		}
	}()
	s.sink.Publish(ctx, n)
}

func normalizeLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		return domain.MaxListLimit
	}
	return limit
}

func normalizeOffset(raw string) int {
	offset, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// snapshotHeaders flattens headers to lower-case keys with comma-joined values.
func snapshotHeaders(h http.Header) (datatypes.JSON, error) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flat := make(map[string]string, len(h))
	for _, k := range keys {
		flat[strings.ToLower(k)] = strings.Join(h[k], ", ")
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func toLiveEvent(event *domain.WebhookEvent, payload any) domain.LiveEvent {
	return domain.LiveEvent{
		ID:                 event.ID,
		EventID:            event.EventID,
		EventType:          event.EventType,
		Commodity:          event.Commodity,
		Payload:            payload,
		Headers:            json.RawMessage(event.Headers),
		Signature:          event.Signature,
		SignatureTimestamp: event.SignatureTimestamp,
		SignatureValid:     event.SignatureValid,
		SignatureError:     event.SignatureError,
		ReceivedAt:         event.ReceivedAt,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
