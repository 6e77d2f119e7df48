package config

// DismissalConfig holds configuration for persisted dismissed-finding state.
type DismissalConfig struct {
	FilePath string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// NewDefaultDismissalConfig creates a new DismissalConfig with default values.
func NewDefaultDismissalConfig() DismissalConfig {
	return DismissalConfig{
		FilePath: DefaultDismissalFilePath,
	}
}
