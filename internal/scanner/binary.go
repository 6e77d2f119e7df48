package scanner

import (
	"os"
	"os/exec"

	"github.com/mitchellh/go-homedir"

	"github.com/secretlens/secretlens/internal/config"
)

// ResolveBinary locates the scanner executable. Resolution order: the
// explicitly configured path, then the default install locations, then
// a PATH lookup. Paths may use a leading tilde.
func ResolveBinary(cfg config.ScannerConfig) (string, error) {
	var searched []string

	if cfg.BinaryPath != "" {
		candidate := expandPath(cfg.BinaryPath)
		if isExecutable(candidate) {
			return candidate, nil
		}
		searched = append(searched, candidate)
	}

	for _, location := range cfg.DefaultLocations {
		candidate := expandPath(location)
		if isExecutable(candidate) {
			return candidate, nil
		}
		searched = append(searched, candidate)
	}

	if path, err := exec.LookPath(config.DefaultScannerBinaryName); err == nil {
		return path, nil
	}
	searched = append(searched, config.DefaultScannerBinaryName+" (PATH)")

	return "", &BinaryNotFoundError{Searched: searched}
}

func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Mode()&0o111 != 0
}
