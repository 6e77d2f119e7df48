package orchestrator

import (
	"github.com/secretlens/secretlens/internal/models"
	"github.com/secretlens/secretlens/internal/reveal"
)

// EventType identifies what a manager event describes.
type EventType string

const (
	EventScanStarted      EventType = "SCAN_STARTED"
	EventFindingAdded     EventType = "FINDING_ADDED"
	EventScanCompleted    EventType = "SCAN_COMPLETED"
	EventScanFailed       EventType = "SCAN_FAILED"
	EventFindingDismissed EventType = "FINDING_DISMISSED"
	EventRevealChanged    EventType = "REVEAL_CHANGED"
)

// Event is delivered synchronously to subscribers on every state change.
// Only the fields relevant to the event type are populated.
type Event struct {
	Type          EventType
	ScanSessionID string
	Finding       *models.Finding
	Summary       *models.ScanSummaryData
	Reveal        *reveal.Snapshot
}
