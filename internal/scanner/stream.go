// Package scanner drives the external secret scanner binary and turns
// its line-delimited JSON output into findings.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/models"
	"github.com/secretlens/secretlens/internal/secmem"
)

// Stream runs the scanner as a subprocess and emits findings while the
// process is still writing. Output is consumed incrementally so a long
// scan surfaces its first findings immediately.
type Stream struct {
	cfg    config.ScannerConfig
	parser *Parser
	logger zerolog.Logger

	// OnProcessStart, when set, receives the child PID right after a
	// successful launch. The process watchdog hooks in here.
	OnProcessStart func(pid int)
}

// NewStream creates a Stream using the given scanner configuration.
func NewStream(cfg config.ScannerConfig, logger zerolog.Logger) *Stream {
	return &Stream{
		cfg:    cfg,
		parser: NewParser(logger),
		logger: logger.With().Str("component", "ScanStream").Logger(),
	}
}

// buildScanArgs assembles the fixed argument set: filesystem mode,
// JSON-lines output, verified results only, no self-update check.
func buildScanArgs(target string) []string {
	return []string{
		"filesystem",
		target,
		"--json",
		"--no-update",
		"--only-verified",
		"--results=verified",
	}
}

// Run scans targetPath and invokes onFinding synchronously for each
// finding, in scanner output order. Findings sharing an id are all
// delivered; de-duplication across re-scans is the caller's concern.
// An exit code of zero completes normally even with no findings.
func (s *Stream) Run(ctx context.Context, targetPath string, onFinding func(models.Finding)) error {
	count := 0
	emitLine := func(line []byte) {
		if finding, ok := s.parser.Parse(line); ok {
			count++
			onFinding(*finding)
		}
	}

	startedAt := time.Now()
	s.logger.Info().Str("target", targetPath).Msg("Starting secret scan")

	if err := s.execute(ctx, targetPath, emitLine); err != nil {
		return err
	}

	s.logger.Info().
		Int("findings", count).
		Dur("duration", time.Since(startedAt)).
		Msg("Scan completed")
	return nil
}

// execute resolves the binary, launches it against target, and feeds
// every trimmed non-empty stdout line to emitLine. Cancellation kills
// the child and returns the context's error; a non-zero exit surfaces
// an ExecutionError with captured stderr.
func (s *Stream) execute(ctx context.Context, target string, emitLine func(line []byte)) error {
	binaryPath, err := ResolveBinary(s.cfg)
	if err != nil {
		return err
	}

	expandedTarget, err := homedir.Expand(target)
	if err != nil {
		return common.WrapError(err, "failed to expand target path")
	}

	scanCtx := ctx
	if s.cfg.ScanTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.ScanTimeoutSeconds)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(scanCtx, binaryPath, buildScanArgs(expandedTarget)...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ExecutionError{ExitCode: -1, Err: err}
	}

	s.logger.Debug().Str("command", cmd.String()).Msg("Executing scanner")
	if err := cmd.Start(); err != nil {
		return &ExecutionError{ExitCode: -1, Err: err}
	}
	if s.OnProcessStart != nil && cmd.Process != nil {
		s.OnProcessStart(cmd.Process.Pid)
	}

	s.consumeOutput(scanCtx, stdout, emitLine)

	waitErr := cmd.Wait()
	if result := common.CheckCancellationWithLog(scanCtx, s.logger, "scanner execution"); result.Cancelled {
		return result.Error
	}
	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &ExecutionError{
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderrBuf.String()),
			Err:      waitErr,
		}
	}
	return nil
}

// consumeOutput reads stdout in chunks until the stream closes,
// handing complete lines to emitLine as they appear. Chunk and
// accumulator bytes are zeroed once consumed. On cancellation any
// buffered partial line is discarded instead of delivered.
func (s *Stream) consumeOutput(ctx context.Context, stdout io.Reader, emitLine func(line []byte)) {
	acc := &LineAccumulator{}
	emit := func(line []byte) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return
		}
		emitLine(line)
	}

	chunk := make([]byte, s.chunkSize())
	for {
		if result := common.CheckCancellation(ctx); result.Cancelled {
			acc.Discard()
			return
		}

		n, readErr := stdout.Read(chunk)
		if n > 0 {
			acc.Feed(chunk[:n], emit)
			secmem.Zero(chunk[:n])
		}
		if readErr != nil {
			if result := common.CheckCancellation(ctx); result.Cancelled {
				acc.Discard()
				return
			}
			if !errors.Is(readErr, io.EOF) {
				s.logger.Debug().Err(readErr).Msg("Scanner output stream closed early")
			}
			acc.Flush(emit)
			return
		}
	}
}

func (s *Stream) chunkSize() int {
	if s.cfg.ChunkSizeBytes > 0 {
		return s.cfg.ChunkSizeBytes
	}
	return config.DefaultScannerChunkSizeBytes
}
