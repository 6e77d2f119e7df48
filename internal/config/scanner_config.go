package config

// ScannerConfig holds configuration for invoking the external secret scanner.
type ScannerConfig struct {
	BinaryPath         string   `json:"binary_path,omitempty" yaml:"binary_path,omitempty"`
	DefaultLocations   []string `json:"default_locations,omitempty" yaml:"default_locations,omitempty"`
	ScanTimeoutSeconds int      `json:"scan_timeout_seconds,omitempty" yaml:"scan_timeout_seconds,omitempty" validate:"omitempty,min=1"`
	ChunkSizeBytes     int      `json:"chunk_size_bytes,omitempty" yaml:"chunk_size_bytes,omitempty" validate:"omitempty,min=512"`
}

// NewDefaultScannerConfig creates a new ScannerConfig with default values.
func NewDefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		BinaryPath: "",
		DefaultLocations: []string{
			"/opt/homebrew/bin/" + DefaultScannerBinaryName,
			"/usr/local/bin/" + DefaultScannerBinaryName,
			"/usr/bin/" + DefaultScannerBinaryName,
		},
		ScanTimeoutSeconds: DefaultScanTimeoutSeconds,
		ChunkSizeBytes:     DefaultScannerChunkSizeBytes,
	}
}
