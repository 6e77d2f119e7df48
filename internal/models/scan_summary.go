package models

import "time"

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

const (
	ScanStatusIdle        ScanStatus = "IDLE"
	ScanStatusRunning     ScanStatus = "RUNNING"
	ScanStatusCompleted   ScanStatus = "COMPLETED"
	ScanStatusFailed      ScanStatus = "FAILED"
	ScanStatusInterrupted ScanStatus = "INTERRUPTED"
)

// ScanSummaryData aggregates the outcome of one scan for history and display.
type ScanSummaryData struct {
	ScanSessionID  string
	TargetPath     string
	Status         ScanStatus
	FindingsCount  int
	VerifiedCount  int
	DuplicateCount int
	ScanDuration   time.Duration
	ErrorMessage   string
	StartedAt      time.Time
	CompletedAt    time.Time
}

// GetDefaultScanSummaryData returns an empty summary with idle status.
func GetDefaultScanSummaryData() ScanSummaryData {
	return ScanSummaryData{
		Status: ScanStatusIdle,
	}
}
