package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/datastore"
	"github.com/secretlens/secretlens/internal/dismissal"
	"github.com/secretlens/secretlens/internal/models"
	"github.com/secretlens/secretlens/internal/procwatch"
	"github.com/secretlens/secretlens/internal/reveal"
	"github.com/secretlens/secretlens/internal/scanner"
)

// FindingSource runs a scan against a target and emits findings in
// scanner output order. *scanner.Stream satisfies it.
type FindingSource interface {
	Run(ctx context.Context, targetPath string, onFinding func(models.Finding)) error
}

// ScanManager is the explicit state container the GUI shell drives: an
// append-only ordered findings list deduplicated by id, the current scan
// status, and a synchronous event feed. One scan runs at a time; findings
// accumulate across scans for the lifetime of the manager.
type ScanManager struct {
	source     FindingSource
	session    *reveal.Session
	dismissals *dismissal.Store
	history    *datastore.ScanHistoryStore
	archive    *datastore.FindingsStore
	watchdog   *procwatch.Watchdog
	logger     zerolog.Logger

	mu          sync.RWMutex
	findings    []models.Finding
	index       map[string]int
	status      models.ScanStatus
	lastError   string
	lastSummary *models.ScanSummaryData
	scanSeq     int
	subscribers map[int]func(Event)
	nextSubID   int
}

// NewScanManager creates a ScanManager. history, archive and watchdog are
// optional; passing nil disables the corresponding concern.
func NewScanManager(
	source FindingSource,
	session *reveal.Session,
	dismissals *dismissal.Store,
	history *datastore.ScanHistoryStore,
	archive *datastore.FindingsStore,
	watchdog *procwatch.Watchdog,
	logger zerolog.Logger,
) (*ScanManager, error) {
	if source == nil {
		return nil, common.NewValidationError("source", source, "finding source cannot be nil")
	}
	if session == nil {
		return nil, common.NewValidationError("session", session, "reveal session cannot be nil")
	}
	if dismissals == nil {
		return nil, common.NewValidationError("dismissals", dismissals, "dismissal store cannot be nil")
	}

	m := &ScanManager{
		source:      source,
		session:     session,
		dismissals:  dismissals,
		history:     history,
		archive:     archive,
		watchdog:    watchdog,
		logger:      logger.With().Str("component", "ScanManager").Logger(),
		index:       make(map[string]int),
		status:      models.ScanStatusIdle,
		subscribers: make(map[int]func(Event)),
	}
	session.SetOnChange(func(snap reveal.Snapshot) {
		m.emit(Event{Type: EventRevealChanged, Reveal: &snap})
	})
	return m, nil
}

// Scan runs one full scan of targetPath. A second call while a scan is in
// progress is rejected with ErrAlreadyRunning. Findings discovered by
// earlier scans stay in place; new ones are appended in output order, and
// records whose id is already known only bump the duplicate count. A
// failed scan keeps everything accumulated so far and records the failure
// message.
func (m *ScanManager) Scan(ctx context.Context, targetPath string) error {
	if targetPath == "" {
		return common.NewValidationError("targetPath", targetPath, "scan target cannot be empty")
	}

	scanSessionID, err := m.beginScan()
	if err != nil {
		return err
	}
	startedAt := time.Now()
	m.logger.Info().
		Str("scan_session_id", scanSessionID).
		Str("target_path", targetPath).
		Msg("Scan session starting")
	m.emit(Event{Type: EventScanStarted, ScanSessionID: scanSessionID})

	if m.history != nil {
		if err := m.history.RecordStart(ctx, scanSessionID, targetPath, startedAt); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to record scan start in history")
		}
	}
	if m.watchdog != nil {
		defer m.watchdog.Stop()
	}

	var emitted, added, verified int
	var newFindings []models.Finding
	runErr := m.source.Run(ctx, targetPath, func(finding models.Finding) {
		emitted++
		if finding.Verified {
			verified++
		}
		if !m.addFinding(finding) {
			return
		}
		added++
		newFindings = append(newFindings, finding)
		m.dismissals.MarkSeen(finding.ID)
		m.emit(Event{Type: EventFindingAdded, ScanSessionID: scanSessionID, Finding: &finding})
	})

	summary := models.ScanSummaryData{
		ScanSessionID:  scanSessionID,
		TargetPath:     targetPath,
		Status:         scanOutcome(runErr),
		FindingsCount:  emitted,
		VerifiedCount:  verified,
		DuplicateCount: emitted - added,
		ScanDuration:   time.Since(startedAt),
		StartedAt:      startedAt,
		CompletedAt:    time.Now(),
	}
	if runErr != nil {
		summary.ErrorMessage = runErr.Error()
	}
	m.finishScan(summary)

	if m.history != nil {
		if err := m.history.RecordCompletion(ctx, summary); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to record scan completion in history")
		}
	}
	if runErr == nil && m.archive != nil && len(newFindings) > 0 {
		if _, err := m.archive.Archive(ctx, scanSessionID, newFindings); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to archive scan findings")
		}
	}

	eventType := EventScanCompleted
	if runErr != nil {
		eventType = EventScanFailed
	}
	m.emit(Event{Type: eventType, ScanSessionID: scanSessionID, Summary: &summary})

	m.logger.Info().
		Str("scan_session_id", scanSessionID).
		Str("status", string(summary.Status)).
		Int("findings", emitted).
		Int("new", added).
		Int("duplicates", summary.DuplicateCount).
		Dur("duration", summary.ScanDuration).
		Msg("Scan session finished")
	return runErr
}

func (m *ScanManager) beginScan() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == models.ScanStatusRunning {
		return "", common.WrapError(common.ErrAlreadyRunning, "a scan is already in progress")
	}
	m.status = models.ScanStatusRunning
	m.lastError = ""
	m.scanSeq++
	// The sequence suffix keeps ids unique when scans start within the
	// same second.
	return fmt.Sprintf("%s-%03d", time.Now().Format("20060102-150405"), m.scanSeq), nil
}

func (m *ScanManager) finishScan(summary models.ScanSummaryData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = summary.Status
	m.lastError = summary.ErrorMessage
	m.lastSummary = &summary
}

func scanOutcome(runErr error) models.ScanStatus {
	switch {
	case runErr == nil:
		return models.ScanStatusCompleted
	case common.IsContextError(runErr):
		return models.ScanStatusInterrupted
	default:
		return models.ScanStatusFailed
	}
}

func (m *ScanManager) addFinding(finding models.Finding) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.index[finding.ID]; exists {
		return false
	}
	m.index[finding.ID] = len(m.findings)
	m.findings = append(m.findings, finding)
	return true
}

// Findings returns all accumulated findings in discovery order.
func (m *ScanManager) Findings() []models.Finding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Finding, len(m.findings))
	copy(out, m.findings)
	return out
}

// VisibleFindings returns the accumulated findings with dismissed ids
// filtered out.
func (m *ScanManager) VisibleFindings() []models.Finding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Finding, 0, len(m.findings))
	for _, finding := range m.findings {
		if !m.dismissals.IsDismissed(finding.ID) {
			out = append(out, finding)
		}
	}
	return out
}

// FindingByID looks up a finding by its identifier.
func (m *ScanManager) FindingByID(id string) (models.Finding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.index[id]
	if !ok {
		return models.Finding{}, false
	}
	return m.findings[pos], true
}

// Dismiss marks the finding id as dismissed and persists the set.
func (m *ScanManager) Dismiss(id string) error {
	if err := m.dismissals.Dismiss(id); err != nil {
		return err
	}
	event := Event{Type: EventFindingDismissed}
	if finding, ok := m.FindingByID(id); ok {
		event.Finding = &finding
	}
	m.emit(event)
	return nil
}

// Reveal re-acquires the secret behind the finding id and drives the
// reveal session. When the re-scan no longer reproduces the id the
// finding is stale: it is auto-dismissed and the not-found condition is
// returned for the caller to reconcile its view.
func (m *ScanManager) Reveal(ctx context.Context, id string) error {
	finding, ok := m.FindingByID(id)
	if !ok {
		return common.WrapError(common.ErrNotFound, "unknown finding id "+id)
	}
	if finding.FilePath == "" {
		return common.WrapError(common.ErrNotFound, "finding has no file path to re-scan")
	}

	err := m.session.Reveal(ctx, finding.FilePath, id)
	if err != nil && errors.Is(err, scanner.ErrNoMatchingSecret) {
		m.logger.Info().
			Str("finding_id", id).
			Str("file_path", finding.FilePath).
			Msg("Finding no longer reproduces, dismissing as stale")
		if dismissErr := m.Dismiss(id); dismissErr != nil {
			m.logger.Warn().Err(dismissErr).Msg("Failed to dismiss stale finding")
		}
	}
	return err
}

// HideSecret wipes any revealed secret and returns the session to hidden.
func (m *ScanManager) HideSecret() {
	m.session.Hide()
}

// RevealState reports the current reveal session snapshot.
func (m *ScanManager) RevealState() reveal.Snapshot {
	return m.session.Snapshot()
}

// Status reports the current scan status.
func (m *ScanManager) Status() models.ScanStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastError reports the failure message of the most recent scan, empty
// when it succeeded.
func (m *ScanManager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// LastSummary returns the summary of the most recent finished scan, nil
// before the first one completes.
func (m *ScanManager) LastSummary() *models.ScanSummaryData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastSummary == nil {
		return nil
	}
	summaryCopy := *m.lastSummary
	return &summaryCopy
}

// Subscribe registers a callback receiving every manager event. Events
// are delivered synchronously; the returned function cancels the
// subscription.
func (m *ScanManager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *ScanManager) emit(event Event) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(event)
	}
}

// Close tears down the reveal session, stops the watchdog and closes the
// attached history store.
func (m *ScanManager) Close() {
	m.session.Close()
	if m.watchdog != nil {
		m.watchdog.Stop()
	}
	if m.history != nil {
		if err := m.history.Close(); err != nil {
			m.logger.Error().Err(err).Msg("Error closing scan history store")
		}
	}
}
