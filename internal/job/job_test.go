package job

import (
	"testing"
	"time"

	"github.com/yassiners/audio-nuit-dinfo/internal/audio"
	"github.com/yassiners/audio-nuit-dinfo/internal/job/id"
	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
	"github.com/yassiners/audio-nuit-dinfo/internal/storage"
)

func TestNew(t *testing.T) {
	job := New()

	if !id.Valid(job.ID) {
		t.Errorf("expected generated ID, got %q", job.ID)
	}
	if job.Status != StatusInQueue {
		t.Errorf("expected status %s, got %s", StatusInQueue, job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if job.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestNewWithID(t *testing.T) {
	id := "test-job-123"
	job := NewWithID(id)

	if job.ID != id {
		t.Errorf("expected ID %s, got %s", id, job.ID)
	}
	if job.Status != StatusInQueue {
		t.Errorf("expected status %s, got %s", StatusInQueue, job.Status)
	}
}

func TestJob_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"IN_QUEUE to RUNNING", StatusInQueue, StatusRunning, false},
		{"IN_QUEUE to FAILED", StatusInQueue, StatusFailed, false},
		{"IN_QUEUE to TIMED_OUT", StatusInQueue, StatusTimedOut, false},
		{"RUNNING to COMPLETED", StatusRunning, StatusCompleted, false},
		{"RUNNING to FAILED", StatusRunning, StatusFailed, false},
		{"RUNNING to TIMED_OUT", StatusRunning, StatusTimedOut, false},
		{"IN_QUEUE to COMPLETED", StatusInQueue, StatusCompleted, true},
		{"RUNNING to IN_QUEUE", StatusRunning, StatusInQueue, true},
		{"COMPLETED to RUNNING", StatusCompleted, StatusRunning, true},
		{"FAILED to RUNNING", StatusFailed, StatusRunning, true},
		{"TIMED_OUT to RUNNING", StatusTimedOut, StatusRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewWithID("test")
			job.Status = tt.from

			err := job.TransitionTo(tt.to)

			if tt.wantErr && err == nil {
				t.Errorf("expected error for transition %s -> %s", tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for transition %s -> %s: %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestJob_Start(t *testing.T) {
	job := New()
	beforeStart := time.Now()

	if err := job.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, job.Status)
	}
	if job.StartedAt.Before(beforeStart) {
		t.Error("expected StartedAt to be set after test start")
	}
}

func TestJob_Complete(t *testing.T) {
	job := New()
	_ = job.Start()
	job.SetStage(pipeline.StageNaming)

	if err := job.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, job.Status)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
	if job.Stage != pipeline.StageDone || job.Progress != 100 {
		t.Errorf("expected done/100, got %s/%d", job.Stage, job.Progress)
	}
}

func TestJob_Fail(t *testing.T) {
	job := New()
	_ = job.Start()

	errMsg := "decode failed"
	if err := job.Fail(errMsg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("expected status %s, got %s", StatusFailed, job.Status)
	}
	if job.Error != errMsg {
		t.Errorf("expected error %q, got %q", errMsg, job.Error)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set on failure")
	}
}

func TestJob_Timeout(t *testing.T) {
	job := New()
	_ = job.Start()

	if err := job.Timeout(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusTimedOut {
		t.Errorf("expected status %s, got %s", StatusTimedOut, job.Status)
	}
	if job.Error == "" {
		t.Error("expected an error message on timeout")
	}
}

func TestJob_CannotTransitionFromTerminalState(t *testing.T) {
	terminalStates := []Status{StatusCompleted, StatusFailed, StatusTimedOut}
	allStates := []Status{StatusInQueue, StatusRunning, StatusCompleted, StatusFailed, StatusTimedOut}

	for _, terminal := range terminalStates {
		for _, target := range allStates {
			t.Run(string(terminal)+"_to_"+string(target), func(t *testing.T) {
				job := NewWithID("test")
				job.Status = terminal

				err := job.TransitionTo(target)
				if err != ErrInvalidTransition {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
			})
		}
	}
}

func TestJob_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusInQueue, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusTimedOut, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			job := NewWithID("test")
			job.Status = tt.status

			if got := job.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestJob_SetStage(t *testing.T) {
	job := New()

	steps := []struct {
		stage    pipeline.Stage
		expected int
	}{
		{pipeline.StageDecode, 5},
		{pipeline.StageSignal, 15},
		{pipeline.StageSemantic, 25},
		{pipeline.StageSignal, 25}, // never backwards
		{pipeline.StageNaming, 90},
	}

	for _, tt := range steps {
		job.SetStage(tt.stage)
		if job.Stage != tt.stage {
			t.Errorf("expected stage %s, got %s", tt.stage, job.Stage)
		}
		if job.Progress != tt.expected {
			t.Errorf("SetStage(%s): expected progress %d, got %d", tt.stage, tt.expected, job.Progress)
		}
	}
}

func TestJob_SetResult(t *testing.T) {
	job := New()
	res := &pipeline.Result{
		Analysis: pipeline.UnifiedAnalysis{Summary: "ok", Anomalies: []string{"hum"}},
		FileName: "show_07-03.mp3",
		MIMEType: "audio/mpeg",
		Signal: audio.SignalMetrics{
			SilenceIntervals: []audio.SilenceInterval{{StartSample: 1, LengthSamples: 2}},
		},
	}

	job.SetResult(res)
	res.Analysis.Anomalies[0] = "changed"
	res.Signal.SilenceIntervals[0].StartSample = 99

	if job.FinalName != "show_07-03.mp3" {
		t.Errorf("expected FinalName show_07-03.mp3, got %s", job.FinalName)
	}
	if job.MIMEType != "audio/mpeg" {
		t.Errorf("expected MIMEType audio/mpeg, got %s", job.MIMEType)
	}
	if job.Analysis.Anomalies[0] != "hum" {
		t.Error("stored analysis should not alias the pipeline result")
	}
	if job.Signal.SilenceIntervals[0].StartSample != 1 {
		t.Error("stored signal should not alias the pipeline result")
	}
}

func TestJob_Clone(t *testing.T) {
	job := New()
	job.Status = StatusRunning
	job.Progress = 50
	job.SetArchive(storage.Archived{Location: "/archive/a.mp3", Key: "a.mp3", Size: 3})
	job.SetResult(&pipeline.Result{
		Analysis: pipeline.UnifiedAnalysis{Anomalies: []string{"clip"}},
	})

	clone := job.Clone()

	if clone.ID != job.ID {
		t.Errorf("expected ID %s, got %s", job.ID, clone.ID)
	}
	if clone.Status != job.Status {
		t.Errorf("expected Status %s, got %s", job.Status, clone.Status)
	}
	if clone.Progress != job.Progress {
		t.Errorf("expected Progress %d, got %d", job.Progress, clone.Progress)
	}

	clone.Status = StatusCompleted
	if job.Status == StatusCompleted {
		t.Error("modifying clone should not affect original")
	}

	clone.Archive.Key = "b.mp3"
	if job.Archive.Key != "a.mp3" {
		t.Error("modifying clone archive should not affect original")
	}

	clone.Analysis.Anomalies[0] = "other"
	if job.Analysis.Anomalies[0] != "clip" {
		t.Error("modifying clone anomalies should not affect original")
	}
}

func TestJob_MarkAlertSentAndClearInput(t *testing.T) {
	job := New()
	job.InputPath = "/tmp/upload"

	job.MarkAlertSent()
	job.ClearInput()

	if !job.AlertSent {
		t.Error("expected AlertSent")
	}
	if job.InputPath != "" {
		t.Errorf("expected InputPath cleared, got %s", job.InputPath)
	}
}

func TestJob_GetStatus_ThreadSafe(t *testing.T) {
	job := New()

	done := make(chan bool)
	go func() {
		for i := 0; i < 100; i++ {
			_ = job.GetStatus()
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = job.Start()
			job.SetStage(pipeline.StageSignal)
		}
		done <- true
	}()

	<-done
	<-done
}
