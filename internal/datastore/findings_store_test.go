package datastore_test

import (
	"context"
	"os"
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

func newFindingsStore(t *testing.T, basePath, codec string) *datastore.FindingsStore {
	t.Helper()
	cfg := &config.StorageConfig{
		ParquetBasePath:  basePath,
		CompressionCodec: codec,
	}
	store, err := datastore.NewFindingsStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func sampleFindings() []models.Finding {
	return []models.Finding{
		{
			ID:           "aaaa1111",
			DetectorName: "AWS",
			DecoderName:  "PLAIN",
			Verified:     true,
			FilePath:     "/repo/.env",
			Line:         3,
		},
		{
			ID:           "bbbb2222",
			DetectorName: "Github",
			DecoderName:  "BASE64",
			Verified:     false,
		},
	}
}

func TestFindingsStore_ArchiveAndLoadRoundTrip(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "findings-store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := newFindingsStore(t, tempDir, "zstd")

	result, err := store.Archive(context.Background(), "20250101-120000", sampleFindings())
	require.NoError(t, err)
	assert.Equal(t, 2, result.RecordsWritten)
	assert.FileExists(t, result.FilePath)
	assert.Greater(t, result.FileSize, int64(0))

	loaded, err := store.LoadSession("20250101-120000")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "aaaa1111", loaded[0].ID)
	assert.Equal(t, "AWS", loaded[0].DetectorName)
	assert.Equal(t, "/repo/.env", loaded[0].FilePath)
	assert.Equal(t, int64(3), loaded[0].Line)
	assert.True(t, loaded[0].Verified)

	assert.Equal(t, "bbbb2222", loaded[1].ID)
	assert.False(t, loaded[1].Verified)
	assert.Empty(t, loaded[1].FilePath)
}

func TestFindingsStore_UncompressedCodec(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "findings-store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := newFindingsStore(t, tempDir, "none")

	_, err = store.Archive(context.Background(), "session-a", sampleFindings())
	require.NoError(t, err)

	loaded, err := store.LoadSession("session-a")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestFindingsStore_EmptyScanStillArchives(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "findings-store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := newFindingsStore(t, tempDir, "zstd")

	result, err := store.Archive(context.Background(), "empty-session", nil)
	require.NoError(t, err)
	assert.Zero(t, result.RecordsWritten)

	loaded, err := store.LoadSession("empty-session")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFindingsStore_LoadUnknownSession(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "findings-store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := newFindingsStore(t, tempDir, "zstd")

	_, err = store.LoadSession("never-archived")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindingsStore_ListSessions(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "findings-store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := newFindingsStore(t, tempDir, "zstd")

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	for _, id := range []string{"20250102-090000", "20250101-090000", "20250103-090000"} {
		_, err := store.Archive(context.Background(), id, sampleFindings())
		require.NoError(t, err)
	}

	sessions, err = store.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"20250101-090000", "20250102-090000", "20250103-090000"}, sessions)
}

func TestFindingsStore_CancelledContext(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "findings-store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := newFindingsStore(t, tempDir, "zstd")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Archive(ctx, "cancelled-session", sampleFindings())
	require.Error(t, err)
	assert.True(t, common.IsContextError(err))
}

func TestFindingsStore_RejectsEmptySessionID(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "findings-store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store := newFindingsStore(t, tempDir, "zstd")
	_, err = store.Archive(context.Background(), "", sampleFindings())
	require.Error(t, err)

	var validationErr *common.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestScanRecord_RoundTripPreservesArchiveTime(t *testing.T) {
	archivedAt := time.Now().Truncate(time.Millisecond)
	record := models.NewScanRecord("s1", sampleFindings()[0], archivedAt)
	assert.Equal(t, "s1", record.ScanSessionID)
	assert.Equal(t, "aaaa1111", record.FindingID)

	finding := record.ToFinding()
	assert.Equal(t, "aaaa1111", finding.ID)
	assert.Equal(t, int64(3), finding.Line)
}
