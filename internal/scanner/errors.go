package scanner

import (
	"fmt"
	"strings"

	"github.com/secretlens/secretlens/internal/common"
)

// ErrNoMatchingSecret is returned by LookupSecret when the re-scan of
// a file produced no record whose derived id equals the requested one.
// The occurrence is stale: the file changed, the secret rotated, or
// the line moved. Callers typically reconcile by dismissing the
// finding rather than treating this as a failure.
var ErrNoMatchingSecret = common.WrapError(common.ErrNotFound, "no record matches the requested finding id")

// BinaryNotFoundError means no executable scanner binary could be
// resolved from the configured path, the default install locations, or
// PATH.
type BinaryNotFoundError struct {
	Searched []string
}

func (e *BinaryNotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return "scanner binary not found"
	}
	return fmt.Sprintf("scanner binary not found (searched: %s)", strings.Join(e.Searched, ", "))
}

// ExecutionError means the scanner process failed to launch or exited
// non-zero. Stderr carries whatever diagnostic text the process wrote.
type ExecutionError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("scanner execution failed: %v", e.Err)
	}
	msg := fmt.Sprintf("scanner exited with code %d", e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
