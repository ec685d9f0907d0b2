package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/webhookharness/internal/migration"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.Run(db, "sqlite"))
	return db
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newEvent(eventID, eventType string, commodity *string, valid bool, at time.Time) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		EventID:        eventID,
		EventType:      eventType,
		Commodity:      commodity,
		Payload:        `{"id":"` + eventID + `"}`,
		Headers:        datatypes.JSON(`{"content-type":"application/json"}`),
		SignatureValid: valid,
		ReceivedAt:     at,
	}
}

func TestSaveAssignsID(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	ctx := context.Background()

	first := newEvent("evt_1", "price.updated", strPtr("BRENT_CRUDE_USD"), true, base)
	require.NoError(t, r.Save(ctx, db, first))
	assert.NotZero(t, first.ID)

	second := newEvent("evt_2", "price.updated", nil, false, base.Add(time.Second))
	require.NoError(t, r.Save(ctx, db, second))
	assert.Greater(t, second.ID, first.ID)

	got, err := r.FindByID(ctx, db, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "evt_1", got.EventID)
	assert.Equal(t, `{"id":"evt_1"}`, got.Payload)
	require.NotNil(t, got.Commodity)
	assert.Equal(t, "BRENT_CRUDE_USD", *got.Commodity)
	assert.True(t, got.SignatureValid)
	assert.JSONEq(t, `{"content-type":"application/json"}`, string(got.Headers))
	assert.True(t, got.ReceivedAt.Equal(base))
}

func TestSaveReplacesDuplicateEventID(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	ctx := context.Background()

	original := newEvent("evt_dup", "price.updated", nil, false, base)
	require.NoError(t, r.Save(ctx, db, original))
	originalID := original.ID

	replacement := newEvent("evt_dup", "price.significant_change", strPtr("WTI_USD"), true, base.Add(time.Minute))
	replacement.Payload = `{"id":"evt_dup","v":2}`
	require.NoError(t, r.Save(ctx, db, replacement))

	assert.NotEqual(t, originalID, replacement.ID)

	events, total, err := r.Query(ctx, db, domain.QueryFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, replacement.ID, events[0].ID)
	assert.Equal(t, "price.significant_change", events[0].EventType)
	assert.Equal(t, `{"id":"evt_dup","v":2}`, events[0].Payload)

	gone, err := r.FindByID(ctx, db, originalID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSaveConcurrentSameEventID(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Save(ctx, db, newEvent("evt_race", "price.updated", nil, false, base.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	_, total, err := r.Query(ctx, db, domain.QueryFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func seed(t *testing.T, db *gorm.DB, r domain.Repository) {
	t.Helper()
	ctx := context.Background()
	brent := strPtr("BRENT_CRUDE_USD")
	wti := strPtr("WTI_USD")
	fixtures := []*domain.WebhookEvent{
		newEvent("a", "price.updated", brent, true, base),
		newEvent("b", "price.updated", wti, false, base.Add(1*time.Second)),
		newEvent("c", "price.significant_change", brent, true, base.Add(2*time.Second)),
		newEvent("d", "price.updated", brent, true, base.Add(3*time.Second)),
		newEvent("e", "drilling.rig_count.updated", nil, false, base.Add(4*time.Second)),
	}
	for _, ev := range fixtures {
		require.NoError(t, r.Save(ctx, db, ev))
	}
}

func eventIDs(events []domain.WebhookEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.EventID)
	}
	return out
}

func TestQueryFiltersAndOrder(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	seed(t, db, r)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter domain.QueryFilter
		want   []string
		total  int64
	}{
		{name: "all", filter: domain.QueryFilter{Limit: 100}, want: []string{"e", "d", "c", "b", "a"}, total: 5},
		{name: "event_type", filter: domain.QueryFilter{EventType: "price.updated", Limit: 100}, want: []string{"d", "b", "a"}, total: 3},
		{name: "commodity", filter: domain.QueryFilter{Commodity: "BRENT_CRUDE_USD", Limit: 100}, want: []string{"d", "c", "a"}, total: 3},
		{name: "both", filter: domain.QueryFilter{EventType: "price.updated", Commodity: "BRENT_CRUDE_USD", Limit: 100}, want: []string{"d", "a"}, total: 2},
		{name: "page", filter: domain.QueryFilter{Limit: 2, Offset: 1}, want: []string{"d", "c"}, total: 5},
		{name: "past_end", filter: domain.QueryFilter{Limit: 10, Offset: 50}, want: []string{}, total: 5},
		{name: "no_match", filter: domain.QueryFilter{EventType: "nope", Limit: 10}, want: []string{}, total: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, total, err := r.Query(ctx, db, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.total, total)
			assert.Equal(t, tc.want, eventIDs(events))
		})
	}
}

func TestQueryTiesBrokenByID(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Save(ctx, db, newEvent(fmt.Sprintf("t%d", i), "x", nil, false, base)))
	}

	events, _, err := r.Query(ctx, db, domain.QueryFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t1", "t0"}, eventIDs(events))
}

func TestFindByIDMissing(t *testing.T) {
	db := setupDB(t)
	got, err := Provide(nil).FindByID(context.Background(), db, 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStats(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	seed(t, db, r)

	stats, err := r.Stats(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, "price.updated", stats[0].EventType)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.Equal(t, int64(2), stats[0].ValidSignatures)
	assert.True(t, stats[0].LastReceived.Equal(base.Add(3*time.Second)), stats[0].LastReceived.String())

	// equal counts fall back to event type order
	assert.Equal(t, "drilling.rig_count.updated", stats[1].EventType)
	assert.Equal(t, int64(0), stats[1].ValidSignatures)
	assert.Equal(t, "price.significant_change", stats[2].EventType)
	assert.Equal(t, int64(1), stats[2].ValidSignatures)
}

func TestStatsEmpty(t *testing.T) {
	db := setupDB(t)
	stats, err := Provide(nil).Stats(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestClear(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	seed(t, db, r)
	ctx := context.Background()

	removed, err := r.Clear(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(5), removed)

	removed, err = r.Clear(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	_, total, err := r.Query(ctx, db, domain.QueryFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestIDsNeverReused(t *testing.T) {
	db := setupDB(t)
	r := Provide(nil)
	ctx := context.Background()

	a := newEvent("evt_a", "price.updated", nil, true, base)
	b := newEvent("evt_b", "price.updated", nil, true, base.Add(time.Second))
	require.NoError(t, r.Save(ctx, db, a))
	require.NoError(t, r.Save(ctx, db, b))

	replaced := newEvent("evt_b", "price.updated", nil, false, base.Add(2*time.Second))
	require.NoError(t, r.Save(ctx, db, replaced))
	assert.Greater(t, replaced.ID, b.ID)

	_, err := r.Clear(ctx, db)
	require.NoError(t, err)

	c := newEvent("evt_c", "alert.triggered", nil, true, base.Add(3*time.Second))
	require.NoError(t, r.Save(ctx, db, c))
	assert.Greater(t, c.ID, replaced.ID)

	stale, err := r.FindByID(ctx, db, a.ID)
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestFlexTimeScan(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 0, 3, 500000000, time.UTC)
	inputs := []any{
		want,
		"2026-03-01 12:00:03.5+00:00",
		[]byte("2026-03-01T12:00:03.5Z"),
		"2026-03-01 12:00:03.5",
	}
	for _, in := range inputs {
		var ft flexTime
		require.NoError(t, ft.Scan(in), fmt.Sprint(in))
		assert.True(t, time.Time(ft).Equal(want), fmt.Sprint(in))
	}

	var ft flexTime
	require.NoError(t, ft.Scan(nil))
	assert.True(t, time.Time(ft).IsZero())
	assert.Error(t, ft.Scan("yesterday"))
	assert.Error(t, ft.Scan(42))
}
