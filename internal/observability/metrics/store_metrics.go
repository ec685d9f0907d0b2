package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	StoreOpSave     = "save"
	StoreOpQuery    = "query"
	StoreOpFindByID = "find_by_id"
	StoreOpStats    = "stats"
	StoreOpClear    = "clear"
)

const (
	StoreErrorReasonDeadlineExceeded     = "deadline_exceeded"
	StoreErrorReasonDBLockTimeout        = "db_lock_timeout"
	StoreErrorReasonSerializationFailure = "serialization_failure"
	StoreErrorReasonUniqueViolation      = "unique_violation"
	StoreErrorReasonDB                   = "db"
	StoreErrorReasonUnknown              = "unknown"
)

// StoreMetrics captures event store health signals.
type StoreMetrics struct {
	opDuration  *prometheus.HistogramVec
	opErrors    *prometheus.CounterVec
	saveRetries prometheus.Counter
	replaced    prometheus.Counter
	cleared     prometheus.Counter
}

var (
	storeMetricsOnce sync.Once
	storeMetrics     *StoreMetrics
)

// Store returns the singleton store metrics registry.
func Store() *StoreMetrics {
	return StoreWithConfig(Config{})
}

// StoreWithConfig returns the singleton store metrics registry using config labels.
func StoreWithConfig(cfg Config) *StoreMetrics {
	storeMetricsOnce.Do(func() {
		storeMetrics = newStoreMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return storeMetrics
}

// ResetStoreMetricsForTest resets the store metrics singleton for tests.
func ResetStoreMetricsForTest() {
	storeMetricsOnce = sync.Once{}
	storeMetrics = nil
}

func newStoreMetrics(registerer prometheus.Registerer, cfg Config) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "webhookharness"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "webhookharness_store_operation_duration_seconds",
		Help:        "Event store operation latency by operation.",
		Buckets:     []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		ConstLabels: constLabels,
	}, []string{"op"})

	opErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "webhookharness_store_errors_total",
		Help:        "Event store errors by operation and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"op", "reason"})

	saveRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "webhookharness_store_save_retries_total",
		Help:        "Saves retried after losing a race on the event id.",
		ConstLabels: constLabels,
	})

	replaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "webhookharness_store_replaced_total",
		Help:        "Saves that replaced an existing row with the same event id.",
		ConstLabels: constLabels,
	})

	cleared := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "webhookharness_store_cleared_rows_total",
		Help:        "Rows removed by clear operations.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(opDuration, opErrors, saveRetries, replaced, cleared)

	return &StoreMetrics{
		opDuration:  opDuration,
		opErrors:    opErrors,
		saveRetries: saveRetries,
		replaced:    replaced,
		cleared:     cleared,
	}
}

// ObserveOperation records latency and, when err is set, a classified error.
func (m *StoreMetrics) ObserveOperation(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if err != nil {
		m.opErrors.WithLabelValues(op, ClassifyStoreError(err)).Inc()
	}
}

func (m *StoreMetrics) IncSaveRetry() {
	if m == nil {
		return
	}
	m.saveRetries.Inc()
}

func (m *StoreMetrics) IncReplaced() {
	if m == nil {
		return
	}
	m.replaced.Inc()
}

func (m *StoreMetrics) AddCleared(rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.cleared.Add(float64(rows))
}

// ClassifyStoreError maps store errors to low-cardinality reasons.
func ClassifyStoreError(err error) string {
	if err == nil {
		return StoreErrorReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return StoreErrorReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return StoreErrorReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return StoreErrorReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return StoreErrorReasonUniqueViolation
	}
	if isDBError(err) {
		return StoreErrorReasonDB
	}
	return StoreErrorReasonUnknown
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) ||
		errors.Is(err, gorm.ErrNotImplemented) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
