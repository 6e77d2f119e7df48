package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/secretlens/secretlens/internal/common"
)

const (
	// Scanner Defaults
	DefaultScannerBinaryName     = "trufflehog"
	DefaultScanTimeoutSeconds    = 600
	DefaultScannerChunkSizeBytes = 32 * 1024

	// Reveal Defaults
	DefaultRevealWindowSeconds = 10

	// Dismissal Defaults
	DefaultDismissalFilePath = "dismissals.json"

	// Storage Defaults
	DefaultStorageParquetBasePath  = "database"
	DefaultStorageCompressionCodec = "zstd"
	DefaultStorageHistoryDBPath    = "database/history/scan_history.db"

	// Update Check Defaults
	DefaultUpdateCheckEndpoint       = "https://api.github.com/repos/secretlens/secretlens/releases/latest"
	DefaultUpdateCheckTimeoutSeconds = 10

	// Watchdog Defaults
	DefaultWatchdogIntervalSeconds = 5
	DefaultWatchdogMaxMemoryMB     = 1024

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3
)

type GlobalConfig struct {
	DismissalConfig   DismissalConfig   `json:"dismissal_config,omitempty" yaml:"dismissal_config,omitempty"`
	LogConfig         LogConfig         `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	RevealConfig      RevealConfig      `json:"reveal_config,omitempty" yaml:"reveal_config,omitempty"`
	ScannerConfig     ScannerConfig     `json:"scanner_config,omitempty" yaml:"scanner_config,omitempty"`
	StorageConfig     StorageConfig     `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	UpdateCheckConfig UpdateCheckConfig `json:"update_check_config,omitempty" yaml:"update_check_config,omitempty"`
	WatchdogConfig    WatchdogConfig    `json:"watchdog_config,omitempty" yaml:"watchdog_config,omitempty"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DismissalConfig:   NewDefaultDismissalConfig(),
		LogConfig:         NewDefaultLogConfig(),
		RevealConfig:      NewDefaultRevealConfig(),
		ScannerConfig:     NewDefaultScannerConfig(),
		StorageConfig:     NewDefaultStorageConfig(),
		UpdateCheckConfig: NewDefaultUpdateCheckConfig(),
		WatchdogConfig:    NewDefaultWatchdogConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// It determines the config file path using GetConfigPath and supports both
// JSON and YAML formats, chosen by file extension. A missing config file is
// not an error: defaults are returned.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		return cfg, nil
	}

	expanded, err := homedir.Expand(filePath)
	if err == nil {
		filePath = expanded
	}

	if !common.FileExists(filePath) {
		return nil, common.NewValidationError("config_file", filePath, "config file does not exist")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to read config file "+filePath)
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
