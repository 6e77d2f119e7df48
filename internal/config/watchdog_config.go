package config

// WatchdogConfig holds configuration for scanner process resource monitoring.
type WatchdogConfig struct {
	Enabled              bool  `json:"enabled" yaml:"enabled"`
	CheckIntervalSeconds int   `json:"check_interval_seconds,omitempty" yaml:"check_interval_seconds,omitempty" validate:"omitempty,min=1"`
	MaxScannerMemoryMB   int64 `json:"max_scanner_memory_mb,omitempty" yaml:"max_scanner_memory_mb,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultWatchdogConfig creates a new WatchdogConfig with default values.
func NewDefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		Enabled:              true,
		CheckIntervalSeconds: DefaultWatchdogIntervalSeconds,
		MaxScannerMemoryMB:   DefaultWatchdogMaxMemoryMB,
	}
}
