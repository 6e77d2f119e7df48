// Package datastore persists scan output: finding archives as Parquet
// files and the scan ledger in SQLite.
package datastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/models"
)

// FindingsStore archives the findings of each scan session as one
// Parquet file under the configured base path. Archives hold derived
// ids and metadata only; raw secrets never reach disk.
type FindingsStore struct {
	config *config.StorageConfig
	logger zerolog.Logger
}

// ArchiveResult describes a completed archive write.
type ArchiveResult struct {
	FilePath       string
	RecordsWritten int
	FileSize       int64
	WriteTime      time.Duration
}

// NewFindingsStore creates a FindingsStore over the configured base
// path.
func NewFindingsStore(cfg *config.StorageConfig, logger zerolog.Logger) (*FindingsStore, error) {
	if cfg == nil {
		return nil, common.NewValidationError("config", cfg, "storage config cannot be nil")
	}
	return &FindingsStore{
		config: cfg,
		logger: logger.With().Str("component", "FindingsStore").Logger(),
	}, nil
}

// Archive writes all findings of a scan session to a single Parquet
// file named after the session.
func (fs *FindingsStore) Archive(ctx context.Context, scanSessionID string, findings []models.Finding) (*ArchiveResult, error) {
	startTime := time.Now()

	if scanSessionID == "" {
		return nil, common.NewValidationError("scan_session_id", scanSessionID, "scan session id cannot be empty")
	}
	if result := common.CheckCancellationWithLog(ctx, fs.logger, "findings archive"); result.Cancelled {
		return nil, result.Error
	}

	filePath, err := fs.prepareOutputFile(scanSessionID)
	if err != nil {
		return nil, err
	}

	archivedAt := time.Now()
	records := make([]models.ScanRecord, 0, len(findings))
	for _, finding := range findings {
		records = append(records, models.NewScanRecord(scanSessionID, finding, archivedAt))
	}

	recordsWritten, err := fs.writeRecords(filePath, records)
	if err != nil {
		return nil, err
	}

	fileSize := int64(0)
	if fileInfo, statErr := os.Stat(filePath); statErr == nil {
		fileSize = fileInfo.Size()
	}

	result := &ArchiveResult{
		FilePath:       filePath,
		RecordsWritten: recordsWritten,
		FileSize:       fileSize,
		WriteTime:      time.Since(startTime),
	}

	fs.logger.Info().
		Str("file_path", result.FilePath).
		Int("records_written", result.RecordsWritten).
		Dur("write_time", result.WriteTime).
		Msg("Archived scan findings to Parquet file")
	return result, nil
}

// LoadSession reads back the findings archived for one scan session.
func (fs *FindingsStore) LoadSession(scanSessionID string) ([]models.Finding, error) {
	filePath := fs.sessionFilePath(scanSessionID)
	if !common.FileExists(filePath) {
		return nil, common.WrapError(common.ErrNotFound, "no archive for scan session "+scanSessionID)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to open parquet archive "+filePath)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	var findings []models.Finding
	row := models.ScanRecord{}
	for {
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, common.WrapError(err, "failed to read row from "+filePath)
		}
		findings = append(findings, row.ToFinding())
	}

	fs.logger.Debug().
		Int("record_count", len(findings)).
		Str("file", filePath).
		Msg("Loaded archived findings")
	return findings, nil
}

// ListSessions returns the ids of all archived scan sessions in
// ascending order. A missing archive directory is an empty list, not
// an error.
func (fs *FindingsStore) ListSessions() ([]string, error) {
	scanDir := filepath.Join(fs.basePath(), "scans")
	entries, err := os.ReadDir(scanDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, common.WrapError(err, "failed to read archive directory "+scanDir)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "scan_") || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(strings.TrimPrefix(name, "scan_"), ".parquet"))
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (fs *FindingsStore) basePath() string {
	if fs.config.ParquetBasePath != "" {
		return fs.config.ParquetBasePath
	}
	return config.DefaultStorageParquetBasePath
}

func (fs *FindingsStore) sessionFilePath(scanSessionID string) string {
	return filepath.Join(fs.basePath(), "scans", fmt.Sprintf("scan_%s.parquet", scanSessionID))
}

func (fs *FindingsStore) prepareOutputFile(scanSessionID string) (string, error) {
	scanDir := filepath.Join(fs.basePath(), "scans")
	if err := os.MkdirAll(scanDir, 0755); err != nil {
		return "", common.WrapError(err, "failed to create archive directory: "+scanDir)
	}
	return fs.sessionFilePath(scanSessionID), nil
}

func (fs *FindingsStore) writeRecords(filePath string, records []models.ScanRecord) (int, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return 0, common.WrapError(err, "failed to create parquet file: "+filePath)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[models.ScanRecord](file, fs.compressionOption())
	recordsWritten, err := writer.Write(records)
	if err != nil {
		writer.Close()
		return 0, common.WrapError(err, "failed to write findings to parquet file")
	}
	if err := writer.Close(); err != nil {
		return 0, common.WrapError(err, "failed to finalize parquet file")
	}
	return recordsWritten, nil
}

func (fs *FindingsStore) compressionOption() parquet.WriterOption {
	switch fs.config.CompressionCodec {
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "snappy":
		return parquet.Compression(&parquet.Snappy)
	case "none", "uncompressed":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Zstd)
	}
}
