package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"focusflow/internal/core/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*SessionStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), sessionsFileName)
	store, err := OpenSessionStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func sampleRecord(id int64, start time.Time) session.Record {
	adjustments := []session.Adjustment{
		{Amount: 300, Timestamp: start.Add(5 * time.Minute)},
		{Amount: -60, Timestamp: start.Add(7 * time.Minute)},
	}
	return session.Record{
		ID:                id,
		Title:             "20240310W10Sun",
		StartTime:         start,
		StatisticalDateID: "2024-03-10",
		EndTime:           start.Add(25 * time.Minute),
		RecordedDuration:  1500,
		ActualDuration:    1260,
		NetDuration:       1200,
		GoalMinutes:       25,
		PauseCount:        2,
		Adjustments:       adjustments,
		TotalAdjustment:   session.TotalOf(adjustments),
	}
}

func TestSessionStoreAppendList(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 10, 9, 0, 0, 123456789, time.UTC)

	empty, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Append order wins over id order.
	require.NoError(t, store.Append(ctx, sampleRecord(20, start)))
	require.NoError(t, store.Append(ctx, sampleRecord(10, start.Add(time.Hour))))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(20), records[0].ID)
	assert.Equal(t, int64(10), records[1].ID)

	want := sampleRecord(20, start)
	assert.True(t, want.StartTime.Equal(records[0].StartTime))
	assert.True(t, want.EndTime.Equal(records[0].EndTime))
	require.Len(t, records[0].Adjustments, 2)
	assert.Equal(t, 300, records[0].Adjustments[0].Amount)
	assert.True(t, want.Adjustments[1].Timestamp.Equal(records[0].Adjustments[1].Timestamp))
	assert.Equal(t, 240, records[0].TotalAdjustment)
	assert.Equal(t, 2, records[0].PauseCount)
	assert.Equal(t, 1200, records[0].NetDuration)
}

func TestSessionStoreRejectsDuplicateID(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, sampleRecord(1, start)))
	assert.Error(t, store.Append(ctx, sampleRecord(1, start)))
}

func TestSessionStoreRemoveAndReplace(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, store.Append(ctx, sampleRecord(id, start)))
	}
	require.NoError(t, store.Remove(ctx, 2))
	require.NoError(t, store.Remove(ctx, 99))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, int64(3), records[1].ID)

	replacement := sampleRecord(7, start)
	replacement.Adjustments = nil
	replacement.TotalAdjustment = 0
	require.NoError(t, store.Replace(ctx, []session.Record{replacement}))

	records, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(7), records[0].ID)
	assert.Empty(t, records[0].Adjustments)
}

func TestSessionStoreSurvivesReopen(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, sampleRecord(5, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))))
	require.NoError(t, store.Close())

	reopened, err := OpenSessionStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(5), records[0].ID)
}

func TestSessionStoreToleratesMalformedRows(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
	INSERT INTO sessions (id, title, start_time, statistical_date_id, end_time,
		recorded_duration, actual_duration, net_duration, goal_minutes, adjustments)
	VALUES (1, 't', 'yesterday', '2024-03-10', '', 60, 60, 60, 25, '{not json')
	`)
	require.NoError(t, err)

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].StartTime.IsZero())
	assert.True(t, records[0].EndTime.IsZero())
	assert.Nil(t, records[0].Adjustments)
}

func TestSessionStoreImplementsLog(t *testing.T) {
	var _ session.Log = (*SessionStore)(nil)
}
