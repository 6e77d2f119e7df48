package scanner

import (
	"context"

	"github.com/secretlens/secretlens/internal/secmem"
)

// LookupSecret re-scans a single file and returns the raw secret whose
// derived id equals targetID, in a wipeable buffer the caller now
// owns. Secrets are never cached between reveals; each lookup pays for
// a fresh single-file scan so the raw bytes live only as long as one
// reveal.
//
// Every candidate record is decoded, fingerprinted, and wiped unless
// it is the match. Returns ErrNoMatchingSecret when the file no longer
// yields a record with that id, which callers should treat as the
// finding having gone stale.
func (s *Stream) LookupSecret(ctx context.Context, filePath, targetID string) (*secmem.Buffer, error) {
	s.logger.Debug().Str("file", filePath).Msg("Re-acquiring secret for reveal")

	var found *secmem.Buffer
	emitLine := func(line []byte) {
		finding, secret, ok := s.parser.parseWithSecret(line)
		if !ok {
			return
		}
		if found == nil && finding.ID == targetID {
			// NewBuffer zeroes secret as it takes ownership.
			found = secmem.NewBuffer(secret)
			return
		}
		secmem.Zero(secret)
	}

	if err := s.execute(ctx, filePath, emitLine); err != nil {
		if found != nil {
			found.Wipe()
		}
		return nil, err
	}
	if found == nil {
		return nil, ErrNoMatchingSecret
	}
	return found, nil
}
