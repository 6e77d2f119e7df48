package config

// UpdateCheckConfig holds configuration for the release version check.
type UpdateCheckConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	ReleaseEndpoint string `json:"release_endpoint,omitempty" yaml:"release_endpoint,omitempty" validate:"omitempty,url"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultUpdateCheckConfig creates a new UpdateCheckConfig with default values.
func NewDefaultUpdateCheckConfig() UpdateCheckConfig {
	return UpdateCheckConfig{
		Enabled:         true,
		ReleaseEndpoint: DefaultUpdateCheckEndpoint,
		TimeoutSeconds:  DefaultUpdateCheckTimeoutSeconds,
	}
}
