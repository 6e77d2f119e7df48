package scanner

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/identity"
	"github.com/secretlens/secretlens/internal/models"
	"github.com/secretlens/secretlens/internal/secmem"
)

// Parser turns scanner output lines into findings. The scanner
// interleaves diagnostic log lines with finding records on the same
// stream, so a line that is not a well-formed finding is skipped, never
// a failure.
type Parser struct {
	logger zerolog.Logger
}

func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{
		logger: logger.With().Str("component", "FindingParser").Logger(),
	}
}

// Parse decodes one output line. It returns false for diagnostic
// lines, undecodable input, and records missing required fields. The
// returned finding carries the derived id but never the secret itself;
// the secret bytes are zeroed before Parse returns.
func (p *Parser) Parse(record []byte) (*models.Finding, bool) {
	finding, secret, ok := p.parseWithSecret(record)
	if !ok {
		return nil, false
	}
	secmem.Zero(secret)
	return finding, true
}

// parseWithSecret is the decode core. On success the caller receives
// ownership of the secret bytes and must wipe them or hand them to a
// secmem.Buffer.
func (p *Parser) parseWithSecret(record []byte) (*models.Finding, []byte, bool) {
	var rec rawRecord
	if err := json.Unmarshal(record, &rec); err != nil {
		p.logger.Debug().Err(err).Msg("Skipping undecodable scanner output line")
		return nil, nil, false
	}

	// The Raw copy made during unmarshal holds the escaped secret.
	defer secmem.Zero(rec.Raw)

	if rec.Level != nil {
		// Diagnostic log line, not a finding.
		return nil, nil, false
	}

	if rec.DetectorName == "" || rec.DecoderName == "" || rec.Verified == nil {
		p.logger.Debug().
			Str("detector", rec.DetectorName).
			Msg("Skipping record missing detector fields")
		return nil, nil, false
	}

	if len(rec.Raw) == 0 {
		p.logger.Debug().
			Str("detector", rec.DetectorName).
			Msg("Skipping record without raw secret")
		return nil, nil, false
	}

	secret, err := unquoteJSONString(rec.Raw)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Skipping record with malformed raw secret")
		return nil, nil, false
	}
	if len(secret) == 0 {
		return nil, nil, false
	}

	filePath, line := rec.location()
	finding := &models.Finding{
		ID:           identity.DeriveID(filePath, line, secret),
		DetectorName: rec.DetectorName,
		DecoderName:  rec.DecoderName,
		Verified:     *rec.Verified,
		FilePath:     filePath,
		Line:         line,
		ExtraData:    rec.ExtraData,
	}
	return finding, secret, true
}
