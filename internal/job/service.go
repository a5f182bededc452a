package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/yassiners/audio-nuit-dinfo/internal/naming"
	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
	"github.com/yassiners/audio-nuit-dinfo/internal/storage"
)

// Static errors for analysis jobs.
var (
	// ErrFileNameRequired is returned when an upload has no file name.
	ErrFileNameRequired = errors.New("job: file name is required")
	// ErrEmptyUpload is returned when an upload carries no bytes.
	ErrEmptyUpload = errors.New("job: uploaded file is empty")
	// ErrNotQueued is returned when processing is requested for a job
	// that already left IN_QUEUE.
	ErrNotQueued = errors.New("job: job is not queued")
)

// Runner executes the analysis pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// CreateInput describes an uploaded recording.
type CreateInput struct {
	FileName string
	MIMEType string
	Body     io.Reader
	Config   pipeline.ProcessingConfig
}

// AnalysisService creates analysis jobs and runs them through the pipeline,
// archiving the recording under its generated name.
type AnalysisService struct {
	repo       Repository
	runner     Runner
	store      storage.Storage
	notifier   Notifier
	defaults   pipeline.ProcessingConfig
	jobTimeout time.Duration
	logger     *slog.Logger
}

// ServiceOption configures an AnalysisService.
type ServiceOption func(*AnalysisService)

// WithNotifier sets the alert notifier. Defaults to a LogNotifier.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *AnalysisService) {
		s.notifier = n
	}
}

// WithDefaults sets the processing defaults applied to empty request fields.
func WithDefaults(cfg pipeline.ProcessingConfig) ServiceOption {
	return func(s *AnalysisService) {
		s.defaults = cfg
	}
}

// WithJobTimeout bounds the processing of a single job.
func WithJobTimeout(d time.Duration) ServiceOption {
	return func(s *AnalysisService) {
		s.jobTimeout = d
	}
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(repo Repository, runner Runner, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AnalysisService{
		repo:       repo,
		runner:     runner,
		store:      store,
		defaults:   pipeline.DefaultProcessingConfig(),
		jobTimeout: 10 * time.Minute,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(logger)
	}
	return s
}

// Defaults returns the processing defaults.
func (s *AnalysisService) Defaults() pipeline.ProcessingConfig {
	return s.defaults
}

// CreateJob spools the upload to temporary storage and persists a new job
// in IN_QUEUE status.
func (s *AnalysisService) CreateJob(ctx context.Context, in CreateInput) (*Job, error) {
	if in.FileName == "" {
		return nil, ErrFileNameRequired
	}

	job := New()
	job.OriginalName = in.FileName
	job.MIMEType = in.MIMEType
	job.Config = in.Config.WithDefaults(s.defaults)

	body := &countingReader{r: in.Body}
	path, err := s.store.SaveTemp(ctx, naming.Sanitize(naming.StripExtension(in.FileName)), body)
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if body.n == 0 {
		_ = s.store.CleanupTemp(ctx, []string{path})
		return nil, ErrEmptyUpload
	}
	job.InputPath = path
	job.Size = body.n

	s.logger.Info("creating new analysis job",
		slog.String("job_id", job.ID),
		slog.String("file", in.FileName),
		slog.Int64("size", body.n),
		slog.String("format", string(job.Config.Format)),
		slog.String("naming_pattern", job.Config.NamingPattern),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		_ = s.store.CleanupTemp(ctx, []string{path})
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *AnalysisService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, most recent first.
func (s *AnalysisService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob removes a finished job and any spooled upload it still owns.
func (s *AnalysisService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return fmt.Errorf("%w: job is %s", ErrInvalidTransition, job.GetStatus())
	}
	if job.InputPath != "" {
		if err := s.store.CleanupTemp(ctx, []string{job.InputPath}); err != nil {
			s.logger.Warn("failed to remove spooled upload",
				slog.String("job_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.repo.Delete(ctx, id)
}

// Process runs a queued job to completion. The returned job reflects the
// final persisted state; the error is non-nil when the job did not complete.
func (s *AnalysisService) Process(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.Start(); err != nil {
		return job, fmt.Errorf("%w: %s", ErrNotQueued, job.GetStatus())
	}
	s.save(ctx, job)

	logger := s.logger.With(slog.String("job_id", job.ID))
	logger.Info("processing analysis job", slog.String("file", job.OriginalName))

	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	inputPath := job.InputPath
	defer func() {
		// the job context may already be done; cleanup must still run
		if err := s.store.CleanupTemp(context.WithoutCancel(ctx), []string{inputPath}); err != nil {
			logger.Warn("failed to remove spooled upload", slog.String("error", err.Error()))
		}
		job.ClearInput()
		s.save(context.WithoutCancel(ctx), job)
	}()

	data, err := s.readInput(ctx, inputPath)
	if err != nil {
		return s.fail(ctx, job, logger, err)
	}

	res, err := s.runner.Run(ctx, pipeline.Request{
		Name:     job.OriginalName,
		MIMEType: job.MIMEType,
		Data:     data,
		Config:   job.Config,
		Progress: func(stage pipeline.Stage) {
			job.SetStage(stage)
			s.save(ctx, job)
		},
	})
	if err != nil {
		return s.fail(ctx, job, logger, err)
	}
	job.SetResult(res)
	s.save(ctx, job)

	archived, err := s.store.Archive(ctx, storage.ArchiveRequest{
		Dir:         job.Config.StoragePath,
		Name:        res.FileName,
		Body:        bytes.NewReader(data),
		ContentType: res.MIMEType,
		Metadata: map[string]string{
			"retention":     string(job.Config.RetentionPeriod),
			"bitrate":       string(job.Config.Bitrate),
			"format":        string(job.Config.Format),
			"smart-extend":  strconv.FormatBool(job.Config.SmartExtend),
			"max-duration":  strconv.Itoa(job.Config.MaxDurationMinutes),
			"original-name": naming.Sanitize(job.OriginalName),
		},
	})
	if err != nil {
		return s.fail(ctx, job, logger, fmt.Errorf("archive: %w", err))
	}
	job.SetArchive(archived)

	if res.Analysis.ShouldNotify(job.Config.AlertEmail) {
		s.notify(ctx, job, res, logger)
	}

	if err := job.Complete(); err != nil {
		return job, err
	}
	s.save(ctx, job)

	logger.Info("analysis job completed",
		slog.String("final_name", res.FileName),
		slog.String("location", archived.Location),
		slog.String("alert", string(res.Analysis.Alert())),
	)
	return job, nil
}

func (s *AnalysisService) readInput(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.store.LoadTemp(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load upload: %w", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func (s *AnalysisService) notify(ctx context.Context, job *Job, res *pipeline.Result, logger *slog.Logger) {
	err := s.notifier.Notify(ctx, Alert{
		JobID:     job.ID,
		Address:   job.Config.AlertEmail,
		FileName:  res.FileName,
		Original:  job.OriginalName,
		Analysis:  res.Analysis,
		Intervals: int(res.Analysis.SilenceCount),
	})
	if err != nil {
		logger.Error("failed to send silence alert", slog.String("error", err.Error()))
		return
	}
	job.MarkAlertSent()
}

func (s *AnalysisService) fail(ctx context.Context, job *Job, logger *slog.Logger, cause error) (*Job, error) {
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		_ = job.Timeout()
	} else {
		_ = job.Fail(cause.Error())
	}
	s.save(context.WithoutCancel(ctx), job)
	logger.Error("analysis job failed",
		slog.String("status", string(job.GetStatus())),
		slog.String("error", cause.Error()),
	)
	return job, cause
}

func (s *AnalysisService) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
