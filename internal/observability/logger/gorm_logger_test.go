package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM webhook_events":                         "SELECT",
		"  insert into webhook_events (event_id) values (?)":   "INSERT",
		"DELETE FROM webhook_events WHERE event_id = ?":        "DELETE",
		"WITH x AS (SELECT 1) SELECT * FROM x":                 "SELECT",
		"":                                                     "UNKNOWN",
		"PRAGMA foreign_keys = ON":                             "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "webhook_events", tableFromSQL(`INSERT INTO "webhook_events" ("event_id") VALUES (?)`))
	assert.Equal(t, "webhook_events", tableFromSQL("SELECT count(*) FROM `webhook_events` WHERE event_type = ?"))
	assert.Equal(t, "", tableFromSQL("SELECT 1"))
}

func TestParamsFilterDropsBoundValues(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), DefaultGormLoggerConfig())
	sql, params := l.ParamsFilter(context.Background(), "SELECT * FROM webhook_events WHERE event_id = ?", "evt_secret")
	assert.Equal(t, "SELECT * FROM webhook_events WHERE event_id = ?", sql)
	assert.Nil(t, params)
}

func TestTraceLogsErrorsWithoutParams(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO webhook_events (event_id) VALUES (?)", 0
	}, errors.New("disk full"))

	entries := logs.FilterMessage("gorm.query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "INSERT", fields["operation"])
	assert.Equal(t, "webhook_events", fields["table"])
}

func TestTraceSilentLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig()).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("x"))
	assert.Equal(t, 0, logs.Len())
}
