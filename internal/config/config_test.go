package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 200, cfg.MaxUploadMB)
	assert.Equal(t, int64(200<<20), cfg.MaxUploadBytes())
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, int32(8192), cfg.GeminiMaxOutputTokens)
	assert.Equal(t, "French", cfg.SummaryLanguage)
	assert.Equal(t, 2*time.Minute, cfg.SemanticTimeout)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	assert.InDelta(t, 0.01, cfg.SilenceThreshold, 1e-12)
	assert.InDelta(t, 2.0, cfg.MinSilenceSec, 1e-12)
	assert.Equal(t, "/tmp/audio-nuit", cfg.TempDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SemanticEnabled())
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("ALLOWED_ORIGINS", "https://radio.example,https://ops.radio.example")
	t.Setenv("GEMINI_API_KEY", "gemini-secret")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("SEMANTIC_TIMEOUT", "45s")
	t.Setenv("SILENCE_THRESHOLD", "0.05")
	t.Setenv("MIN_SILENCE_SEC", "1.5")
	t.Setenv("TEMP_DIR", "/custom/temp")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "eu-west-3")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"https://radio.example", "https://ops.radio.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "gemini-secret", cfg.GeminiAPIKey)
	assert.True(t, cfg.SemanticEnabled())
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.Equal(t, 45*time.Second, cfg.SemanticTimeout)
	assert.InDelta(t, 0.05, cfg.SilenceThreshold, 1e-12)
	assert.InDelta(t, 1.5, cfg.MinSilenceSec, 1e-12)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, "http://minio:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := map[string]string{
		"PORT":             "not-a-number",
		"SEMANTIC_TIMEOUT": "soon",
		"MIN_SILENCE_SEC":  "two",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{key: value}))
			require.Error(t, err)
		})
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"port out of range", map[string]string{"PORT": "70000"}, ErrInvalidPort},
		{"zero threshold", map[string]string{"SILENCE_THRESHOLD": "0"}, ErrInvalidSilenceThreshold},
		{"threshold above one", map[string]string{"SILENCE_THRESHOLD": "1.5"}, ErrInvalidSilenceThreshold},
		{"negative min silence", map[string]string{"MIN_SILENCE_SEC": "-1"}, ErrInvalidMinSilence},
		{"zero semantic timeout", map[string]string{"SEMANTIC_TIMEOUT": "0s"}, ErrInvalidTimeout},
		{"zero job timeout", map[string]string{"JOB_TIMEOUT": "0s"}, ErrInvalidTimeout},
		{"zero upload limit", map[string]string{"MAX_UPLOAD_MB": "0"}, ErrInvalidUploadLimit},
		{"bucket without region", map[string]string{"S3_BUCKET": "b"}, ErrIncompleteS3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(tt.env))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:             8080,
		GeminiAPIKey:     "gemini-secret",
		GeminiModel:      "gemini-2.5-flash",
		AWSAccessKeyID:   "AKIAEXAMPLE",
		TempDir:          "/tmp/test",
		S3Bucket:         "bucket",
		SemanticTimeout:  time.Minute,
		SilenceThreshold: 0.01,
		LogFormat:        "json",
		LogLevel:         "info",
	}

	str := cfg.String()

	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "gemini-2.5-flash")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "1m0s")

	assert.NotContains(t, str, "gemini-secret")
	assert.NotContains(t, str, "AKIAEXAMPLE")
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"json", "text", "JSON"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{LogFormat: format, LogLevel: "warn"}

			logger := cfg.NewLogger()
			require.NotNil(t, logger)
			assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
			assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
