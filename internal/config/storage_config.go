package config

// StorageConfig defines configuration for data storage
type StorageConfig struct {
	ArchiveEnabled   bool   `json:"archive_enabled" yaml:"archive_enabled"`
	CompressionCodec string `json:"compression_codec,omitempty" yaml:"compression_codec,omitempty"`
	HistoryDBPath    string `json:"history_db_path,omitempty" yaml:"history_db_path,omitempty"`
	HistoryEnabled   bool   `json:"history_enabled" yaml:"history_enabled"`
	ParquetBasePath  string `json:"parquet_base_path,omitempty" yaml:"parquet_base_path,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		ArchiveEnabled:   true,
		CompressionCodec: DefaultStorageCompressionCodec,
		HistoryDBPath:    DefaultStorageHistoryDBPath,
		HistoryEnabled:   true,
		ParquetBasePath:  DefaultStorageParquetBasePath,
	}
}
