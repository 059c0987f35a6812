package service

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsCalendarAndSync(t *testing.T) {
	m := NewMetricsService()
	m.ObserveCalendarLoad(20*time.Millisecond, false)
	m.ObserveCalendarLoad(30*time.Millisecond, true)
	m.RecordSourceFailure("countdowns")
	m.RecordNoteSync(SyncOperationPush, nil)
	m.RecordNoteSync(SyncOperationPush, errors.New("offline"))
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveHTTPRequest("GET", "/calendar", 200, 10*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.CalendarLoads)
	assert.Equal(t, uint64(1), snap.CalendarSourceFailures)
	assert.Equal(t, uint64(1), snap.NoteSyncFailures)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 1e-9)
	assert.Equal(t, uint64(1), snap.RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `calendar_source_failures_total{source="countdowns"} 1`)
	assert.Contains(t, string(body), `note_sync_operations_total{operation="push",result="failure"} 1`)
	assert.Contains(t, string(body), `calendar_load_duration_seconds_count{outcome="degraded"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveCalendarLoad(time.Millisecond, false)
	m.RecordSourceFailure("x")
	m.RecordNoteSync(SyncOperationMerge, nil)
	m.RecordCacheOperation(true, 0)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 503, rec.Code)
}
