// Package server provides the HTTP API of the broadcast analysis service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/yassiners/audio-nuit-dinfo/internal/naming"
	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
	"github.com/yassiners/audio-nuit-dinfo/internal/storage"
)

// CreateAnalysisRequest holds the multipart form fields sent with the
// recording. Empty fields take the service defaults.
type CreateAnalysisRequest struct {
	// Format is the output container.
	Format string `validate:"omitempty,oneof=MP3 WAV FLAC"`
	// Bitrate is the output bitrate.
	Bitrate string `validate:"omitempty,oneof=128k 192k 320k"`
	// NamingPattern is the filename template.
	NamingPattern string `validate:"omitempty,max=255,excludesall=/\\"`
	// AlertEmail receives technical-silence notifications.
	AlertEmail string `validate:"omitempty,email"`
	// StoragePath is the archive directory.
	StoragePath string `validate:"omitempty,max=1024"`
	// RetentionPeriod is how long the archive should be kept.
	RetentionPeriod string `validate:"omitempty,oneof=7d 1m 3m 1y forever"`
	// MaxDurationMinutes of 0 means unlimited.
	MaxDurationMinutes int `validate:"min=0,max=1440"`
	// SmartExtend is passed through with the archive metadata. Nil when the
	// field was not sent.
	SmartExtend *bool
}

// ProcessingConfig converts the request to the domain type. SmartExtend
// falls back to defaults when the field was not sent.
func (r CreateAnalysisRequest) ProcessingConfig(defaults pipeline.ProcessingConfig) pipeline.ProcessingConfig {
	smartExtend := defaults.SmartExtend
	if r.SmartExtend != nil {
		smartExtend = *r.SmartExtend
	}
	return pipeline.ProcessingConfig{
		Format:             pipeline.Format(r.Format),
		Bitrate:            pipeline.Bitrate(r.Bitrate),
		NamingPattern:      r.NamingPattern,
		AlertEmail:         r.AlertEmail,
		StoragePath:        r.StoragePath,
		RetentionPeriod:    pipeline.Retention(r.RetentionPeriod),
		MaxDurationMinutes: r.MaxDurationMinutes,
		SmartExtend:        smartExtend,
	}
}

// CreateAnalysisResponse is the HTTP response after creating an analysis.
type CreateAnalysisResponse struct {
	// ID is the unique identifier for the created analysis.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// SilenceIntervalResponse is one measured silence, in seconds.
type SilenceIntervalResponse struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// AnalysisResponse is the HTTP response for an analysis job.
type AnalysisResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// Stage and StageLabel describe the last reported pipeline step.
	Stage      string `json:"stage,omitempty"`
	StageLabel string `json:"stageLabel,omitempty"`
	// Progress is the percentage of completion (0-100).
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`

	OriginalName string                    `json:"originalName"`
	FinalName    string                    `json:"finalName,omitempty"`
	Size         int64                     `json:"size"`
	MIMEType     string                    `json:"mimeType,omitempty"`
	Config       pipeline.ProcessingConfig `json:"config"`

	// Alert is one of clear, natural, technical or unknown once analyzed.
	Alert            string                    `json:"alert,omitempty"`
	AlertSent        bool                      `json:"alertSent"`
	Analysis         *pipeline.UnifiedAnalysis `json:"analysis,omitempty"`
	SilenceIntervals []SilenceIntervalResponse `json:"silenceIntervals,omitempty"`
	Archive          *storage.Archived         `json:"archive,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ListAnalysesResponse is the HTTP response for listing analyses.
type ListAnalysesResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
}

// NamePreviewResponse is the HTTP response for a filename preview.
type NamePreviewResponse struct {
	FileName string `json:"fileName"`
}

// TokensResponse lists the placeholders accepted in naming patterns.
type TokensResponse struct {
	Tokens []naming.Token `json:"tokens"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Semantic reports whether the model backend is configured.
	Semantic bool `json:"semantic"`
}
