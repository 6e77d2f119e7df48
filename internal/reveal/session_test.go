package reveal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/reveal"
	"github.com/secretlens/secretlens/internal/scanner"
	"github.com/secretlens/secretlens/internal/secmem"
)

// fakeSource serves secrets from a map, recording every buffer it
// hands out so tests can verify wiping.
type fakeSource struct {
	mu       sync.Mutex
	secrets  map[string]string
	delay    time.Duration
	err      error
	calls    int
	lastFile string
	returned []*secmem.Buffer
}

func (f *fakeSource) LookupSecret(ctx context.Context, filePath, targetID string) (*secmem.Buffer, error) {
	f.mu.Lock()
	f.calls++
	f.lastFile = filePath
	delay, err := f.delay, f.err
	secret, ok := f.secrets[targetID]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, scanner.ErrNoMatchingSecret
	}

	buf := secmem.NewBuffer([]byte(secret))
	f.mu.Lock()
	f.returned = append(f.returned, buf)
	f.mu.Unlock()
	return buf, nil
}

func (f *fakeSource) buffers() []*secmem.Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*secmem.Buffer(nil), f.returned...)
}

func newTestSession(source reveal.SecretSource, windowSeconds int) *reveal.Session {
	return reveal.NewSession(source, config.RevealConfig{WindowSeconds: windowSeconds}, zerolog.Nop())
}

// stateCollector records every snapshot the session publishes.
type stateCollector struct {
	mu    sync.Mutex
	snaps []reveal.Snapshot
}

func (c *stateCollector) record(snap reveal.Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, snap)
	c.mu.Unlock()
}

func (c *stateCollector) states() []reveal.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	states := make([]reveal.State, len(c.snaps))
	for i, snap := range c.snaps {
		states[i] = snap.State
	}
	return states
}

func TestSession_RevealLifecycle(t *testing.T) {
	source := &fakeSource{secrets: map[string]string{"id-1": "s3cr3t-value"}}
	session := newTestSession(source, 10)
	defer session.Close()

	collector := &stateCollector{}
	session.SetOnChange(collector.record)

	assert.Equal(t, reveal.StateHidden, session.Snapshot().State)

	require.NoError(t, session.Reveal(context.Background(), "/data/app.env", "id-1"))

	snap := session.Snapshot()
	assert.Equal(t, reveal.StateRevealed, snap.State)
	assert.Equal(t, "id-1", snap.FindingID)
	assert.Equal(t, 10, snap.RemainingSeconds)

	secret, ok := session.Secret()
	require.True(t, ok)
	assert.Equal(t, "s3cr3t-value", secret)

	states := collector.states()
	require.GreaterOrEqual(t, len(states), 2)
	assert.Equal(t, reveal.StateLoading, states[0])
	assert.Equal(t, reveal.StateRevealed, states[1])

	assert.Equal(t, "/data/app.env", source.lastFile)
}

func TestSession_WindowExpiryWipes(t *testing.T) {
	source := &fakeSource{secrets: map[string]string{"id-1": "short-lived"}}
	session := newTestSession(source, 1)
	defer session.Close()

	require.NoError(t, session.Reveal(context.Background(), "f", "id-1"))
	require.Equal(t, reveal.StateRevealed, session.Snapshot().State)

	require.Eventually(t, func() bool {
		return session.Snapshot().State == reveal.StateHidden
	}, 3*time.Second, 50*time.Millisecond)

	_, ok := session.Secret()
	assert.False(t, ok)

	buffers := source.buffers()
	require.Len(t, buffers, 1)
	assert.True(t, buffers[0].Wiped())
}

func TestSession_ManualHideWipes(t *testing.T) {
	source := &fakeSource{secrets: map[string]string{"id-1": "hide-me"}}
	session := newTestSession(source, 60)
	defer session.Close()

	require.NoError(t, session.Reveal(context.Background(), "f", "id-1"))
	session.Hide()

	assert.Equal(t, reveal.StateHidden, session.Snapshot().State)
	_, ok := session.Secret()
	assert.False(t, ok)
	assert.True(t, source.buffers()[0].Wiped())
}

func TestSession_NewRevealSupersedes(t *testing.T) {
	source := &fakeSource{secrets: map[string]string{
		"id-1": "first-secret",
		"id-2": "second-secret",
	}}
	session := newTestSession(source, 60)
	defer session.Close()

	require.NoError(t, session.Reveal(context.Background(), "f", "id-1"))
	require.NoError(t, session.Reveal(context.Background(), "f", "id-2"))

	secret, ok := session.Secret()
	require.True(t, ok)
	assert.Equal(t, "second-secret", secret)

	buffers := source.buffers()
	require.Len(t, buffers, 2)
	assert.True(t, buffers[0].Wiped(), "first secret must be wiped before the second loads")
	assert.False(t, buffers[1].Wiped())
}

func TestSession_HideCancelsInflightReveal(t *testing.T) {
	source := &fakeSource{
		secrets: map[string]string{"id-1": "slow-secret"},
		delay:   500 * time.Millisecond,
	}
	session := newTestSession(source, 60)
	defer session.Close()

	done := make(chan error, 1)
	go func() {
		done <- session.Reveal(context.Background(), "f", "id-1")
	}()

	require.Eventually(t, func() bool {
		return session.Snapshot().State == reveal.StateLoading
	}, time.Second, 10*time.Millisecond)

	session.Hide()

	// A superseded reveal reports nothing; its result is discarded.
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reveal did not return after hide")
	}
	assert.Equal(t, reveal.StateHidden, session.Snapshot().State)
}

func TestSession_LookupFailure(t *testing.T) {
	source := &fakeSource{
		secrets: map[string]string{},
		err:     &scanner.ExecutionError{ExitCode: 2, Stderr: "boom"},
	}
	session := newTestSession(source, 10)
	defer session.Close()

	err := session.Reveal(context.Background(), "f", "id-1")
	require.Error(t, err)

	snap := session.Snapshot()
	assert.Equal(t, reveal.StateError, snap.State)
	assert.Contains(t, snap.ErrorMessage, "exited with code 2")
	_, ok := session.Secret()
	assert.False(t, ok)

	// A later reveal leaves the error state behind.
	source.mu.Lock()
	source.err = nil
	source.secrets["id-1"] = "recovered"
	source.mu.Unlock()

	require.NoError(t, session.Reveal(context.Background(), "f", "id-1"))
	assert.Equal(t, reveal.StateRevealed, session.Snapshot().State)
}

func TestSession_StaleFindingReportsNotFound(t *testing.T) {
	source := &fakeSource{secrets: map[string]string{}}
	session := newTestSession(source, 10)
	defer session.Close()

	err := session.Reveal(context.Background(), "f", "gone-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, scanner.ErrNoMatchingSecret)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, reveal.StateError, session.Snapshot().State)
}

func TestSession_Close(t *testing.T) {
	source := &fakeSource{secrets: map[string]string{"id-1": "bye"}}
	session := newTestSession(source, 60)

	require.NoError(t, session.Reveal(context.Background(), "f", "id-1"))
	session.Close()
	session.Close()

	assert.True(t, source.buffers()[0].Wiped())
	assert.ErrorIs(t, session.Reveal(context.Background(), "f", "id-1"), reveal.ErrSessionClosed)
}

func TestSession_CountdownTicks(t *testing.T) {
	source := &fakeSource{secrets: map[string]string{"id-1": "tick"}}
	session := newTestSession(source, 2)
	defer session.Close()

	collector := &stateCollector{}
	session.SetOnChange(collector.record)

	require.NoError(t, session.Reveal(context.Background(), "f", "id-1"))

	require.Eventually(t, func() bool {
		return session.Snapshot().State == reveal.StateHidden
	}, 5*time.Second, 50*time.Millisecond)

	var sawCountdown bool
	collector.mu.Lock()
	for _, snap := range collector.snaps {
		if snap.State == reveal.StateRevealed && snap.RemainingSeconds > 0 {
			sawCountdown = true
		}
	}
	collector.mu.Unlock()
	assert.True(t, sawCountdown, "expected at least one countdown tick snapshot")
}
