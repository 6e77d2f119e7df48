package config

// RevealConfig holds configuration for the secret disclosure window.
type RevealConfig struct {
	WindowSeconds int `json:"window_seconds,omitempty" yaml:"window_seconds,omitempty" validate:"omitempty,min=1,max=300"`
}

// NewDefaultRevealConfig creates a new RevealConfig with default values.
func NewDefaultRevealConfig() RevealConfig {
	return RevealConfig{
		WindowSeconds: DefaultRevealWindowSeconds,
	}
}
