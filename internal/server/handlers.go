package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yassiners/audio-nuit-dinfo/internal/job"
	"github.com/yassiners/audio-nuit-dinfo/internal/naming"
	"github.com/yassiners/audio-nuit-dinfo/internal/observe"
	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
)

// DefaultMaxUploadBytes bounds a multipart upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 200 << 20

// multipartMemory is the part of a form kept in memory before spilling to disk.
const multipartMemory = 32 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.AnalysisService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
	maxUploadBytes     int64
	semanticEnabled    bool
	clock              func() time.Time
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateAnalysis only creates the job and returns immediately
// without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithMaxUploadBytes sets the upload size limit.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithSemanticEnabled reports the model backend state on /health.
func WithSemanticEnabled(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.semanticEnabled = enabled
	}
}

// WithClock sets the time source used by the filename preview.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handlers) {
		h.clock = clock
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.AnalysisService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
		maxUploadBytes:     DefaultMaxUploadBytes,
		clock:              time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Semantic: h.semanticEnabled})
}

// CreateAnalysis handles POST /analyses requests. The recording is sent as
// the multipart "file" part; processing choices are plain form fields.
func (h *Handlers) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	logger := observe.Logger(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit", "PAYLOAD_TOO_LARGE")
			return
		}
		logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req, err := parseCreateRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Warn("request validation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required", "MISSING_FILE")
		return
	}
	defer func() { _ = file.Close() }()

	created, err := h.service.CreateJob(r.Context(), job.CreateInput{
		FileName: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Body:     file,
		Config:   req.ProcessingConfig(h.service.Defaults()),
	})
	if err != nil {
		if errors.Is(err, job.ErrFileNameRequired) || errors.Is(err, job.ErrEmptyUpload) {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_FILE")
			return
		}
		logger.Error("failed to create analysis", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create analysis", "JOB_CREATION_FAILED")
		return
	}

	// The request context ends with the response; processing must outlive it.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if _, processErr := h.service.Process(ctx, jobID); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), created.ID)
	}

	logger.Info("analysis created",
		slog.String("job_id", created.ID),
		slog.String("file", header.Filename),
		slog.Int64("size", created.Size),
	)

	writeJSON(w, http.StatusAccepted, CreateAnalysisResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// GetAnalysis handles GET /analyses/{id} requests.
func (h *Handlers) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "analysis ID is required", "MISSING_JOB_ID")
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, r, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, toAnalysisResponse(found))
}

// ListAnalyses handles GET /analyses requests.
func (h *Handlers) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		observe.Logger(r.Context(), h.logger).Error("failed to list analyses", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list analyses", "JOB_FETCH_FAILED")
		return
	}

	resp := ListAnalysesResponse{Analyses: make([]AnalysisResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Analyses = append(resp.Analyses, toAnalysisResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteAnalysis handles DELETE /analyses/{id} requests. Only finished
// analyses can be deleted.
func (h *Handlers) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, job.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, "analysis is still running", "JOB_NOT_FINISHED")
			return
		}
		h.writeJobError(w, r, jobID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NamingTokens handles GET /naming/tokens requests.
func (h *Handlers) NamingTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TokensResponse{Tokens: naming.Tokens()})
}

// PreviewName handles GET /naming/preview?name=&pattern=&format= requests.
func (h *Handlers) PreviewName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "VALIDATION_ERROR")
		return
	}
	pattern := q.Get("pattern")
	if err := h.validator.Var(pattern, "omitempty,max=255,excludesall=/\\"); err != nil {
		writeError(w, http.StatusBadRequest, "pattern must not contain path separators", "VALIDATION_ERROR")
		return
	}
	format := q.Get("format")
	if err := h.validator.Var(format, "omitempty,oneof=MP3 WAV FLAC"); err != nil {
		writeError(w, http.StatusBadRequest, "format must be one of MP3 WAV FLAC", "VALIDATION_ERROR")
		return
	}

	cfg := pipeline.ProcessingConfig{
		Format:        pipeline.Format(format),
		NamingPattern: pattern,
	}.WithDefaults(h.service.Defaults())

	writeJSON(w, http.StatusOK, NamePreviewResponse{
		FileName: naming.Generate(name, cfg.NamingPattern, string(cfg.Format), h.clock()),
	})
}

func (h *Handlers) writeJobError(w http.ResponseWriter, r *http.Request, jobID string, err error) {
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found", "JOB_NOT_FOUND")
		return
	}
	observe.Logger(r.Context(), h.logger).Error("failed to get analysis",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to get analysis", "JOB_FETCH_FAILED")
}

func parseCreateRequest(r *http.Request) (CreateAnalysisRequest, error) {
	req := CreateAnalysisRequest{
		Format:          r.FormValue("format"),
		Bitrate:         r.FormValue("bitrate"),
		NamingPattern:   r.FormValue("namingPattern"),
		AlertEmail:      r.FormValue("alertEmail"),
		StoragePath:     r.FormValue("storagePath"),
		RetentionPeriod: r.FormValue("retentionPeriod"),
	}
	if v := r.FormValue("maxDurationMinutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("maxDurationMinutes must be an integer")
		}
		req.MaxDurationMinutes = n
	}
	if v := r.FormValue("smartExtend"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, errors.New("smartExtend must be a boolean")
		}
		req.SmartExtend = &b
	}
	return req, nil
}

func toAnalysisResponse(j *job.Job) AnalysisResponse {
	resp := AnalysisResponse{
		ID:           j.ID,
		Status:       string(j.Status),
		Progress:     j.Progress,
		Error:        j.Error,
		OriginalName: j.OriginalName,
		FinalName:    j.FinalName,
		Size:         j.Size,
		MIMEType:     j.MIMEType,
		Config:       j.Config,
		AlertSent:    j.AlertSent,
		Analysis:     j.Analysis,
		Archive:      j.Archive,
		CreatedAt:    j.CreatedAt,
	}
	if j.Stage != "" {
		resp.Stage = string(j.Stage)
		resp.StageLabel = j.Stage.Label()
	}
	if j.Analysis != nil {
		resp.Alert = string(j.Analysis.Alert())
	}
	if j.Signal != nil {
		for _, iv := range j.Signal.SilenceIntervals {
			resp.SilenceIntervals = append(resp.SilenceIntervals, SilenceIntervalResponse{
				Start:    iv.StartSeconds(j.Signal.SampleRate),
				Duration: iv.DurationSeconds(j.Signal.SampleRate),
			})
		}
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
