// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1..65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidSilenceThreshold is returned when SILENCE_THRESHOLD is outside (0, 1].
	ErrInvalidSilenceThreshold = errors.New("config: SILENCE_THRESHOLD must be in (0, 1]")
	// ErrInvalidMinSilence is returned when MIN_SILENCE_SEC is not positive.
	ErrInvalidMinSilence = errors.New("config: MIN_SILENCE_SEC must be positive")
	// ErrInvalidTimeout is returned when SEMANTIC_TIMEOUT or JOB_TIMEOUT is not positive.
	ErrInvalidTimeout = errors.New("config: timeouts must be positive")
	// ErrInvalidUploadLimit is returned when MAX_UPLOAD_MB is not positive.
	ErrInvalidUploadLimit = errors.New("config: MAX_UPLOAD_MB must be positive")
	// ErrIncompleteS3 is returned when only one of S3_BUCKET and S3_REGION is set.
	ErrIncompleteS3 = errors.New("config: S3_BUCKET and S3_REGION must be set together")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`
	MaxUploadMB    int      `env:"MAX_UPLOAD_MB, default=200" json:"max_upload_mb"`

	// Gemini settings. Without an API key every analysis degrades to the
	// fallback semantic result.
	GeminiAPIKey          string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	GeminiModel           string `env:"GEMINI_MODEL, default=gemini-2.5-flash" json:"gemini_model"`
	GeminiBaseURL         string `env:"GEMINI_BASE_URL" json:"gemini_base_url,omitempty"`
	GeminiMaxOutputTokens int32  `env:"GEMINI_MAX_OUTPUT_TOKENS, default=8192" json:"gemini_max_output_tokens"`
	SummaryLanguage       string `env:"SUMMARY_LANGUAGE, default=French" json:"summary_language"`

	// Processing settings
	SemanticTimeout  time.Duration `env:"SEMANTIC_TIMEOUT, default=2m" json:"semantic_timeout"`
	JobTimeout       time.Duration `env:"JOB_TIMEOUT, default=10m" json:"job_timeout"`
	SilenceThreshold float64       `env:"SILENCE_THRESHOLD, default=0.01" json:"silence_threshold"`
	MinSilenceSec    float64       `env:"MIN_SILENCE_SEC, default=2.0" json:"min_silence_sec"`
	ProfilePath      string        `env:"PROFILE_PATH" json:"profile_path,omitempty"`

	// Storage settings
	TempDir    string `env:"TEMP_DIR, default=/tmp/audio-nuit" json:"temp_dir"`
	ArchiveDir string `env:"ARCHIVE_DIR" json:"archive_dir,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// SemanticEnabled returns true if a Gemini API key is configured.
func (c *Config) SemanticEnabled() bool {
	return c.GeminiAPIKey != ""
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return LoadFrom(context.Background(), nil)
}

// LoadFrom reads configuration from lookuper, or from the process
// environment when lookuper is nil.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	ec := &envconfig.Config{Target: cfg}
	if lookuper != nil {
		ec.Lookuper = lookuper
	}
	if err := envconfig.ProcessWith(ctx, ec); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.SilenceThreshold <= 0 || c.SilenceThreshold > 1 {
		return ErrInvalidSilenceThreshold
	}
	if c.MinSilenceSec <= 0 {
		return ErrInvalidMinSilence
	}
	if c.SemanticTimeout <= 0 || c.JobTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxUploadMB <= 0 {
		return ErrInvalidUploadLimit
	}
	if (c.S3Bucket == "") != (c.S3Region == "") {
		return ErrIncompleteS3
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, GeminiModel: %s, GeminiAPIKey: %s, SemanticTimeout: %s, JobTimeout: %s, SilenceThreshold: %g, MinSilenceSec: %g, TempDir: %s, S3Bucket: %s, S3Region: %s, AWSAccessKeyID: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.GeminiModel,
		mask(c.GeminiAPIKey),
		c.SemanticTimeout,
		c.JobTimeout,
		c.SilenceThreshold,
		c.MinSilenceSec,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		mask(c.AWSAccessKeyID),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
