package datastore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/datastore"
	"github.com/secretlens/secretlens/internal/models"
)

func newHistoryStore(t *testing.T) *datastore.ScanHistoryStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "scan-history-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	cfg := &config.StorageConfig{
		HistoryDBPath: filepath.Join(tempDir, "history.db"),
	}
	store, err := datastore.NewScanHistoryStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestScanHistoryStore_StartAndCompletionRoundTrip(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()
	startedAt := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.RecordStart(ctx, "session-1", "/home/dev/repo", startedAt))

	running, err := store.LastScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-1", running.ScanSessionID)
	assert.Equal(t, "/home/dev/repo", running.TargetPath)
	assert.Equal(t, models.ScanStatusRunning, running.Status)
	assert.WithinDuration(t, startedAt, running.StartedAt, time.Second)
	assert.True(t, running.CompletedAt.IsZero())

	summary := models.ScanSummaryData{
		ScanSessionID:  "session-1",
		Status:         models.ScanStatusCompleted,
		FindingsCount:  7,
		VerifiedCount:  5,
		DuplicateCount: 2,
		ScanDuration:   1500 * time.Millisecond,
		CompletedAt:    startedAt.Add(2 * time.Second),
	}
	require.NoError(t, store.RecordCompletion(ctx, summary))

	completed, err := store.LastScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusCompleted, completed.Status)
	assert.Equal(t, 7, completed.FindingsCount)
	assert.Equal(t, 5, completed.VerifiedCount)
	assert.Equal(t, 2, completed.DuplicateCount)
	assert.Equal(t, 1500*time.Millisecond, completed.ScanDuration)
	assert.Empty(t, completed.ErrorMessage)
	assert.WithinDuration(t, summary.CompletedAt, completed.CompletedAt, time.Second)
}

func TestScanHistoryStore_FailedScanKeepsErrorMessage(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordStart(ctx, "session-err", "/tmp/target", time.Now()))
	require.NoError(t, store.RecordCompletion(ctx, models.ScanSummaryData{
		ScanSessionID: "session-err",
		Status:        models.ScanStatusFailed,
		ErrorMessage:  "scanner exited with code 2: bad flag",
	}))

	last, err := store.LastScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusFailed, last.Status)
	assert.Equal(t, "scanner exited with code 2: bad flag", last.ErrorMessage)
}

func TestScanHistoryStore_CompletionForUnknownSession(t *testing.T) {
	store := newHistoryStore(t)

	err := store.RecordCompletion(context.Background(), models.ScanSummaryData{
		ScanSessionID: "no-such-session",
		Status:        models.ScanStatusCompleted,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestScanHistoryStore_LastScanOnEmptyHistory(t *testing.T) {
	store := newHistoryStore(t)

	_, err := store.LastScan(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestScanHistoryStore_RecentScansOrderingAndLimit(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	sessions := []struct {
		id        string
		startedAt time.Time
	}{
		{"session-old", base.Add(-2 * time.Hour)},
		{"session-mid", base.Add(-1 * time.Hour)},
		{"session-new", base},
	}
	for _, s := range sessions {
		require.NoError(t, store.RecordStart(ctx, s.id, "/repo", s.startedAt))
	}

	recent, err := store.RecentScans(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "session-new", recent[0].ScanSessionID)
	assert.Equal(t, "session-mid", recent[1].ScanSessionID)
	assert.Equal(t, "session-old", recent[2].ScanSessionID)

	limited, err := store.RecentScans(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "session-new", limited[0].ScanSessionID)
	assert.Equal(t, "session-mid", limited[1].ScanSessionID)
}

func TestScanHistoryStore_DuplicateSessionIDRejected(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordStart(ctx, "session-dup", "/repo", time.Now()))
	err := store.RecordStart(ctx, "session-dup", "/repo", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record scan start")
}

func TestScanHistoryStore_PersistsAcrossReopen(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "scan-history-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	cfg := &config.StorageConfig{HistoryDBPath: filepath.Join(tempDir, "history.db")}

	store, err := datastore.NewScanHistoryStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.RecordStart(context.Background(), "session-persist", "/repo", time.Now()))
	require.NoError(t, store.Close())

	reopened, err := datastore.NewScanHistoryStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	last, err := reopened.LastScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-persist", last.ScanSessionID)
}
