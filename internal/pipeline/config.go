package pipeline

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format is the requested output container.
type Format string

// Output formats.
const (
	FormatMP3  Format = "MP3"
	FormatWAV  Format = "WAV"
	FormatFLAC Format = "FLAC"
)

// Bitrate is the requested output bitrate.
type Bitrate string

// Output bitrates.
const (
	Bitrate128 Bitrate = "128k"
	Bitrate192 Bitrate = "192k"
	Bitrate320 Bitrate = "320k"
)

// Retention is how long the archived file should be kept.
type Retention string

// Retention periods.
const (
	Retention7Days   Retention = "7d"
	Retention1Month  Retention = "1m"
	Retention3Months Retention = "3m"
	Retention1Year   Retention = "1y"
	RetentionForever Retention = "forever"
)

// Defaults applied when a caller leaves a field empty.
const (
	DefaultNamingPattern = "%textNonObligatoire%_%jour%-%mois%_%heure%h%minutes%"
	DefaultStoragePath   = "/var/www/broadcasts/"
)

// ProcessingConfig holds the caller's choices for one recording. Storage
// and alert fields are passed through to downstream collaborators as-is.
type ProcessingConfig struct {
	Format          Format    `json:"format" yaml:"format"`
	Bitrate         Bitrate   `json:"bitrate" yaml:"bitrate"`
	NamingPattern   string    `json:"namingPattern" yaml:"naming_pattern"`
	AlertEmail      string    `json:"alertEmail,omitempty" yaml:"alert_email"`
	StoragePath     string    `json:"storagePath" yaml:"storage_path"`
	RetentionPeriod Retention `json:"retentionPeriod" yaml:"retention_period"`
	// MaxDurationMinutes of 0 means unlimited.
	MaxDurationMinutes int  `json:"maxDurationMinutes" yaml:"max_duration_minutes"`
	SmartExtend        bool `json:"smartExtend" yaml:"smart_extend"`
}

// DefaultProcessingConfig returns the broadcast defaults.
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		Format:          FormatMP3,
		Bitrate:         Bitrate192,
		NamingPattern:   DefaultNamingPattern,
		StoragePath:     DefaultStoragePath,
		RetentionPeriod: Retention1Month,
		SmartExtend:     true,
	}
}

// WithDefaults fills empty fields from d. SmartExtend has no empty value and
// is kept as given; callers that cannot tell "unset" from false resolve it
// before building the config.
func (c ProcessingConfig) WithDefaults(d ProcessingConfig) ProcessingConfig {
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Bitrate == "" {
		c.Bitrate = d.Bitrate
	}
	if c.NamingPattern == "" {
		c.NamingPattern = d.NamingPattern
	}
	if c.AlertEmail == "" {
		c.AlertEmail = d.AlertEmail
	}
	if c.StoragePath == "" {
		c.StoragePath = d.StoragePath
	}
	if c.RetentionPeriod == "" {
		c.RetentionPeriod = d.RetentionPeriod
	}
	if c.MaxDurationMinutes == 0 {
		c.MaxDurationMinutes = d.MaxDurationMinutes
	}
	return c
}

// ErrInvalidProfile is returned when a profile document cannot be used.
var ErrInvalidProfile = errors.New("pipeline: invalid processing profile")

// LoadProfile reads a YAML processing profile and overlays it on
// DefaultProcessingConfig. Keys absent from the document keep their default.
func LoadProfile(r io.Reader) (ProcessingConfig, error) {
	cfg := DefaultProcessingConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return ProcessingConfig{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	switch cfg.Format {
	case FormatMP3, FormatWAV, FormatFLAC:
	default:
		return ProcessingConfig{}, fmt.Errorf("%w: unknown format %q", ErrInvalidProfile, cfg.Format)
	}
	if cfg.MaxDurationMinutes < 0 {
		return ProcessingConfig{}, fmt.Errorf("%w: max_duration_minutes must not be negative", ErrInvalidProfile)
	}
	return cfg, nil
}
