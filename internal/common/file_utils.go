package common

import (
	"os"
	"path/filepath"
)

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// EnsureDir creates the directory and any missing parents.
func EnsureDir(path string) error {
	if path == "" {
		return NewValidationError("path", path, "directory path is empty")
	}
	return os.MkdirAll(path, 0755)
}

// WriteFileAtomic writes data to path via a temporary sibling file and a
// rename, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return WrapError(err, "failed to create directory for "+path)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return WrapError(err, "failed to create temp file for "+path)
	}
	tmpName := tmpFile.Name()

	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpName)
	}

	if _, err := tmpFile.Write(data); err != nil {
		cleanup()
		return WrapError(err, "failed to write temp file for "+path)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		cleanup()
		return WrapError(err, "failed to chmod temp file for "+path)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpName)
		return WrapError(err, "failed to close temp file for "+path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return WrapError(err, "failed to rename temp file over "+path)
	}
	return nil
}
