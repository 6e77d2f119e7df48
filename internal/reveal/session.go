// Package reveal bounds the lifetime of an exposed secret.
//
// A Session re-acquires one secret on demand, holds it in wipeable
// memory for a fixed window while a countdown runs, and wipes it on
// expiry, manual hide, replacement, or teardown, whichever comes
// first. Secrets are never cached between reveals.
package reveal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/secmem"
)

// ErrSessionClosed is returned by Reveal after Close.
var ErrSessionClosed = errors.New("reveal session closed")

// SecretSource re-acquires one secret by scanning a single file and
// matching the derived finding id. scanner.Stream satisfies this.
type SecretSource interface {
	LookupSecret(ctx context.Context, filePath, targetID string) (*secmem.Buffer, error)
}

// Snapshot is a consistent point-in-time view of a session, safe to
// hand to rendering code. It never contains the secret.
type Snapshot struct {
	State            State
	FindingID        string
	RemainingSeconds int
	ErrorMessage     string
}

// Session drives the Hidden -> Loading -> Revealed -> Hidden cycle for
// at most one secret at a time. A new reveal request supersedes the
// previous one, wiping its secret first. All state, the buffer, and
// the countdown move under one lock so observers never see a live
// countdown with a wiped buffer or the reverse.
type Session struct {
	source        SecretSource
	windowSeconds int
	logger        zerolog.Logger

	mu             sync.Mutex
	state          State
	findingID      string
	buf            *secmem.Buffer
	remaining      int
	errMsg         string
	gen            uint64
	inflightCancel context.CancelFunc
	closed         bool
	onChange       func(Snapshot)
}

// NewSession creates a session in the Hidden state.
func NewSession(source SecretSource, cfg config.RevealConfig, logger zerolog.Logger) *Session {
	windowSeconds := cfg.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = config.DefaultRevealWindowSeconds
	}
	return &Session{
		source:        source,
		windowSeconds: windowSeconds,
		logger:        logger.With().Str("component", "RevealSession").Logger(),
		state:         StateHidden,
	}
}

// SetOnChange registers a callback fired after every state change with
// a consistent snapshot. The callback runs outside the session lock,
// so it may call back into the session.
func (s *Session) SetOnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Reveal re-acquires the secret for findingID from filePath and, on
// success, exposes it for the configured window. Any prior revealed or
// loading state is superseded and wiped first. If a newer request
// supersedes this one while its scan is in flight, the late result is
// wiped and discarded and Reveal returns nil.
func (s *Session) Reveal(ctx context.Context, filePath, findingID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.supersedeLocked()
	gen := s.gen
	s.state = StateLoading
	s.findingID = findingID

	lookupCtx, cancel := context.WithCancel(ctx)
	s.inflightCancel = cancel
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	notify(fn, snap)

	buf, err := s.source.LookupSecret(lookupCtx, filePath, findingID)
	cancel()

	s.mu.Lock()
	if s.gen != gen || s.closed {
		s.mu.Unlock()
		if buf != nil {
			buf.Wipe()
		}
		s.logger.Debug().Str("finding_id", findingID).Msg("Reveal superseded, discarding late result")
		return nil
	}
	s.inflightCancel = nil

	if err != nil {
		s.state = StateError
		s.errMsg = err.Error()
		snap, fn = s.snapshotLocked(), s.onChange
		s.mu.Unlock()
		notify(fn, snap)
		return err
	}

	s.buf = buf
	s.state = StateRevealed
	s.remaining = s.windowSeconds
	snap, fn = s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	notify(fn, snap)

	go s.countdown(gen)
	return nil
}

// Hide wipes any held secret and returns the session to Hidden. An
// in-flight reveal is cancelled; its late result will be discarded.
func (s *Session) Hide() {
	s.mu.Lock()
	if s.closed || s.state == StateHidden {
		s.mu.Unlock()
		return
	}
	s.supersedeLocked()
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	notify(fn, snap)
}

// Close wipes and permanently shuts the session down. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.supersedeLocked()
	s.closed = true
	s.mu.Unlock()
}

// Snapshot returns the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Secret returns the revealed secret as a string, valid only while the
// session is in Revealed. The string copy escapes the wipe guarantee,
// so callers must use it immediately and let it go.
func (s *Session) Secret() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRevealed || s.buf == nil {
		return "", false
	}
	return s.buf.String(), true
}

// supersedeLocked invalidates any outstanding reveal or countdown,
// wipes the held secret, and resets to Hidden. Callers hold s.mu.
func (s *Session) supersedeLocked() {
	s.gen++
	if s.inflightCancel != nil {
		s.inflightCancel()
		s.inflightCancel = nil
	}
	if s.buf != nil {
		s.buf.Wipe()
		s.buf = nil
	}
	s.state = StateHidden
	s.findingID = ""
	s.remaining = 0
	s.errMsg = ""
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:            s.state,
		FindingID:        s.findingID,
		RemainingSeconds: s.remaining,
		ErrorMessage:     s.errMsg,
	}
}

// countdown ticks the remaining seconds down once per second and hides
// the secret when the window elapses. It exits quietly as soon as its
// generation is superseded.
func (s *Session) countdown(gen uint64) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		if s.gen != gen || s.state != StateRevealed {
			s.mu.Unlock()
			return
		}
		s.remaining--
		if s.remaining <= 0 {
			s.logger.Debug().Msg("Reveal window elapsed, wiping secret")
			s.supersedeLocked()
			snap, fn := s.snapshotLocked(), s.onChange
			s.mu.Unlock()
			notify(fn, snap)
			return
		}
		snap, fn := s.snapshotLocked(), s.onChange
		s.mu.Unlock()
		notify(fn, snap)
	}
}

func notify(fn func(Snapshot), snap Snapshot) {
	if fn != nil {
		fn(snap)
	}
}
