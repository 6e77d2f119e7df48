package models

import "fmt"

// Finding represents one secret occurrence reported by the external scanner.
// It never carries the raw secret value: ID is the only secret-derived field,
// and the derivation is one-way. Findings are immutable once constructed.
type Finding struct {
	ID           string
	DetectorName string
	DecoderName  string
	Verified     bool
	FilePath     string
	Line         int64
	ExtraData    map[string]string
}

// HasLocation reports whether the scanner attached filesystem metadata.
func (f Finding) HasLocation() bool {
	return f.FilePath != ""
}

// Location returns a display string in path:line form, or an empty string
// when the record carried no filesystem metadata.
func (f Finding) Location() string {
	if f.FilePath == "" {
		return ""
	}
	if f.Line <= 0 {
		return f.FilePath
	}
	return fmt.Sprintf("%s:%d", f.FilePath, f.Line)
}

// ShortID returns a truncated identifier for logs and tables.
func (f Finding) ShortID() string {
	if len(f.ID) <= 12 {
		return f.ID
	}
	return f.ID[:12]
}
