// Package bootstrap provides dependency initialization for the analysis service.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yassiners/audio-nuit-dinfo/internal/audio"
	"github.com/yassiners/audio-nuit-dinfo/internal/config"
	"github.com/yassiners/audio-nuit-dinfo/internal/job"
	"github.com/yassiners/audio-nuit-dinfo/internal/observe"
	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
	"github.com/yassiners/audio-nuit-dinfo/internal/semantic"
	"github.com/yassiners/audio-nuit-dinfo/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	AnalysisService *job.AnalysisService
	Pipeline        *pipeline.Pipeline
	Metrics         *observe.Metrics
	// SemanticEnabled is false when no model backend is configured.
	SemanticEnabled bool
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	defaults, err := loadProfile(cfg.ProfilePath, logger)
	if err != nil {
		return nil, err
	}

	p, semanticEnabled, err := NewPipeline(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repo := job.NewMemoryRepository()
	svc := job.NewAnalysisService(
		repo,
		p,
		store,
		logger,
		job.WithDefaults(defaults),
		job.WithJobTimeout(cfg.JobTimeout),
		job.WithNotifier(job.NewLogNotifier(logger)),
	)

	return &Dependencies{
		AnalysisService: svc,
		Pipeline:        p,
		Metrics:         observe.DefaultMetrics(),
		SemanticEnabled: semanticEnabled,
	}, nil
}

// NewPipeline builds the analysis pipeline. Without a Gemini API key the
// pipeline runs with no semantic backend and every result degrades to the
// fallback placeholders.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, bool, error) {
	var sem semantic.Analyzer
	if cfg.SemanticEnabled() {
		opts := []semantic.ClientOption{
			semantic.WithAPIKey(cfg.GeminiAPIKey),
			semantic.WithModel(cfg.GeminiModel),
			semantic.WithSummaryLanguage(cfg.SummaryLanguage),
			semantic.WithMaxOutputTokens(cfg.GeminiMaxOutputTokens),
		}
		if cfg.GeminiBaseURL != "" {
			opts = append(opts, semantic.WithBaseURL(cfg.GeminiBaseURL))
		}
		client, err := semantic.NewGeminiClient(ctx, opts...)
		if err != nil {
			return nil, false, fmt.Errorf("create Gemini client: %w", err)
		}
		logger.Info("semantic analysis configured", slog.String("model", client.Model()))
		sem = client
	} else {
		logger.Warn("GEMINI_API_KEY not set, semantic analysis disabled")
	}

	p := pipeline.New(
		audio.NewBeepDecoder(),
		sem,
		pipeline.Config{
			Analyze: audio.AnalyzeOpts{
				SilenceThreshold: cfg.SilenceThreshold,
				MinSilenceSec:    cfg.MinSilenceSec,
			},
			SemanticTimeout: cfg.SemanticTimeout,
			Clock:           time.Now,
		},
		logger,
		pipeline.WithMetrics(observe.DefaultMetrics()),
	)
	return p, sem != nil, nil
}

// loadProfile reads the optional YAML processing defaults.
func loadProfile(path string, logger *slog.Logger) (pipeline.ProcessingConfig, error) {
	if path == "" {
		return pipeline.DefaultProcessingConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pipeline.ProcessingConfig{}, fmt.Errorf("processing profile %s: %w", path, err)
		}
		return pipeline.ProcessingConfig{}, fmt.Errorf("open processing profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	defaults, err := pipeline.LoadProfile(f)
	if err != nil {
		return pipeline.ProcessingConfig{}, err
	}
	logger.Info("processing profile loaded",
		slog.String("path", path),
		slog.String("format", string(defaults.Format)),
		slog.String("storage_path", defaults.StoragePath),
	)
	return defaults, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir, cfg.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
		slog.String("archive_dir", localStore.ArchiveDir()),
	)
	return localStore, nil
}
