package models

import "time"

// ScanRecord is the archived form of a Finding for Parquet storage.
// The record is secret-free by construction: it is built from a
// Finding, which never carries the raw value.
type ScanRecord struct {
	ScanSessionID string    `parquet:"scan_session_id"`
	FindingID     string    `parquet:"finding_id"`
	DetectorName  string    `parquet:"detector_name"`
	DecoderName   string    `parquet:"decoder_name,optional"`
	Verified      bool      `parquet:"verified"`
	FilePath      string    `parquet:"file_path,optional"`
	Line          int64     `parquet:"line,optional"`
	ArchivedAt    time.Time `parquet:"archived_at,timestamp"`
}

// NewScanRecord converts a Finding into its archival form.
func NewScanRecord(scanSessionID string, finding Finding, archivedAt time.Time) ScanRecord {
	return ScanRecord{
		ScanSessionID: scanSessionID,
		FindingID:     finding.ID,
		DetectorName:  finding.DetectorName,
		DecoderName:   finding.DecoderName,
		Verified:      finding.Verified,
		FilePath:      finding.FilePath,
		Line:          finding.Line,
		ArchivedAt:    archivedAt,
	}
}

// ToFinding rebuilds the Finding view of an archived record. ExtraData is not
// archived, so the rebuilt Finding carries none.
func (r ScanRecord) ToFinding() Finding {
	return Finding{
		ID:           r.FindingID,
		DetectorName: r.DetectorName,
		DecoderName:  r.DecoderName,
		Verified:     r.Verified,
		FilePath:     r.FilePath,
		Line:         r.Line,
	}
}
