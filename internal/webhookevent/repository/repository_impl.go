package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	obsmetrics "github.com/smallbiznis/webhookharness/internal/observability/metrics"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/domain"
	pkgdb "github.com/smallbiznis/webhookharness/pkg/db"
	"gorm.io/gorm"
)

// maxSaveAttempts bounds retries when a concurrent writer inserts the same
// event id between our delete and insert.
const maxSaveAttempts = 3

type repo struct {
	metrics *obsmetrics.StoreMetrics
}

func Provide(metrics *obsmetrics.StoreMetrics) domain.Repository {
	return &repo{metrics: metrics}
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) (err error) {
	started := time.Now()
	defer func() { r.metrics.ObserveOperation(obsmetrics.StoreOpSave, started, err) }()

	for attempt := 1; ; attempt++ {
		var replaced int64
		event.ID = 0
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Exec(`DELETE FROM webhook_events WHERE event_id = ?`, event.EventID)
			if res.Error != nil {
				return res.Error
			}
			replaced = res.RowsAffected
			return tx.Create(event).Error
		})
		if err == nil {
			if replaced > 0 {
				r.metrics.IncReplaced()
			}
			return nil
		}
		if !pkgdb.IsDuplicateKeyErr(err) || attempt >= maxSaveAttempts {
			return err
		}
		r.metrics.IncSaveRetry()
	}
}

func (r *repo) Query(ctx context.Context, db *gorm.DB, filter domain.QueryFilter) (events []domain.WebhookEvent, total int64, err error) {
	started := time.Now()
	defer func() { r.metrics.ObserveOperation(obsmetrics.StoreOpQuery, started, err) }()

	where := applyFilter(filter)
	if err = db.WithContext(ctx).Model(&domain.WebhookEvent{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	events = []domain.WebhookEvent{}
	err = db.WithContext(ctx).
		Scopes(where).
		Order("received_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func applyFilter(filter domain.QueryFilter) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if v := strings.TrimSpace(filter.EventType); v != "" {
			tx = tx.Where("event_type = ?", v)
		}
		if v := strings.TrimSpace(filter.Commodity); v != "" {
			tx = tx.Where("commodity = ?", v)
		}
		return tx
	}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (_ *domain.WebhookEvent, err error) {
	started := time.Now()
	defer func() { r.metrics.ObserveOperation(obsmetrics.StoreOpFindByID, started, err) }()

	var events []domain.WebhookEvent
	if err = db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&events).Error; err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

type statRow struct {
	EventType       string
	Count           int64
	ValidSignatures int64
	LastReceived    flexTime
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB) (_ []domain.EventTypeStat, err error) {
	started := time.Now()
	defer func() { r.metrics.ObserveOperation(obsmetrics.StoreOpStats, started, err) }()

	var rows []statRow
	err = db.WithContext(ctx).Raw(
		`SELECT event_type,
		        COUNT(*) AS count,
		        SUM(CASE WHEN signature_valid THEN 1 ELSE 0 END) AS valid_signatures,
		        MAX(received_at) AS last_received
		 FROM webhook_events
		 GROUP BY event_type
		 ORDER BY count DESC, event_type ASC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make([]domain.EventTypeStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.EventTypeStat{
			EventType:       row.EventType,
			Count:           row.Count,
			ValidSignatures: row.ValidSignatures,
			LastReceived:    time.Time(row.LastReceived).UTC(),
		})
	}
	return stats, nil
}

func (r *repo) Clear(ctx context.Context, db *gorm.DB) (_ int64, err error) {
	started := time.Now()
	defer func() { r.metrics.ObserveOperation(obsmetrics.StoreOpClear, started, err) }()

	res := db.WithContext(ctx).Exec(`DELETE FROM webhook_events`)
	if res.Error != nil {
		return 0, res.Error
	}
	r.metrics.AddCleared(res.RowsAffected)
	return res.RowsAffected, nil
}

// flexTime scans aggregate timestamps. Drivers that lose the column type on
// MAX() hand back text instead of time.Time.
type flexTime time.Time

var flexTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *flexTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = flexTime{}
		return nil
	case time.Time:
		*t = flexTime(v)
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *flexTime) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = flexTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognized time value %q", raw)
}

func (t flexTime) Value() (driver.Value, error) {
	return time.Time(t), nil
}
