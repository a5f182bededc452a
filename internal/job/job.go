// Package job provides the analysis Job aggregate, its repository port and the
// AnalysisService use case that runs uploaded recordings through the pipeline.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/yassiners/audio-nuit-dinfo/internal/audio"
	"github.com/yassiners/audio-nuit-dinfo/internal/job/id"
	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
	"github.com/yassiners/audio-nuit-dinfo/internal/storage"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to be processed.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the recording is being analyzed.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the analysis finished and the file was archived.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the recording could not be analyzed or archived.
	StatusFailed Status = "FAILED"
	// StatusTimedOut indicates processing exceeded the job deadline.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed, StatusTimedOut},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusTimedOut:  {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job tracks the analysis of one uploaded recording.
type Job struct {
	mu sync.RWMutex

	ID     string
	Status Status
	// Stage is the pipeline stage last reported.
	Stage    pipeline.Stage
	Progress int
	Error    string

	OriginalName string
	MIMEType     string
	Size         int64
	// InputPath is the spooled upload; cleared once processed.
	InputPath string
	Config    pipeline.ProcessingConfig

	FinalName string
	Archive   *storage.Archived
	Analysis  *pipeline.UnifiedAnalysis
	Signal    *audio.SignalMetrics
	// AlertSent is true once a technical-silence notification was delivered.
	AlertSent bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted:
		j.CompletedAt = j.UpdatedAt
		j.Stage = pipeline.StageDone
		j.Progress = 100
	case StatusFailed, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Timeout transitions the job to TIMED_OUT.
func (j *Job) Timeout() error {
	j.mu.Lock()
	j.Error = "processing deadline exceeded"
	j.mu.Unlock()
	return j.TransitionTo(StatusTimedOut)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetStage records a pipeline stage and the matching progress. Progress
// never moves backwards.
func (j *Job) SetStage(stage pipeline.Stage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = stage
	if p := stage.Progress(); p > j.Progress {
		j.Progress = p
	}
	j.UpdatedAt = time.Now()
}

// SetResult stores the pipeline outcome.
func (j *Job) SetResult(res *pipeline.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	analysis := res.Analysis
	analysis.Anomalies = append([]string(nil), res.Analysis.Anomalies...)
	signal := res.Signal
	signal.SilenceIntervals = append([]audio.SilenceInterval(nil), res.Signal.SilenceIntervals...)
	j.Analysis = &analysis
	j.Signal = &signal
	j.FinalName = res.FileName
	j.MIMEType = res.MIMEType
	j.UpdatedAt = time.Now()
}

// SetArchive records where the processed file was stored.
func (j *Job) SetArchive(a storage.Archived) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Archive = &a
	j.UpdatedAt = time.Now()
}

// MarkAlertSent records a delivered notification.
func (j *Job) MarkAlertSent() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.AlertSent = true
	j.UpdatedAt = time.Now()
}

// ClearInput forgets the spooled upload path.
func (j *Job) ClearInput() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.InputPath = ""
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	c := &Job{
		ID:           j.ID,
		Status:       j.Status,
		Stage:        j.Stage,
		Progress:     j.Progress,
		Error:        j.Error,
		OriginalName: j.OriginalName,
		MIMEType:     j.MIMEType,
		Size:         j.Size,
		InputPath:    j.InputPath,
		Config:       j.Config,
		FinalName:    j.FinalName,
		AlertSent:    j.AlertSent,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
	if j.Archive != nil {
		a := *j.Archive
		c.Archive = &a
	}
	if j.Analysis != nil {
		a := *j.Analysis
		a.Anomalies = append([]string(nil), j.Analysis.Anomalies...)
		c.Analysis = &a
	}
	if j.Signal != nil {
		s := *j.Signal
		s.SilenceIntervals = append([]audio.SilenceInterval(nil), j.Signal.SilenceIntervals...)
		c.Signal = &s
	}
	return c
}
