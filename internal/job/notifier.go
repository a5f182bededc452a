package job

import (
	"context"
	"log/slog"

	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
)

// Alert is a technical-silence notification for one recording.
type Alert struct {
	JobID     string
	Address   string
	FileName  string
	Original  string
	Analysis  pipeline.UnifiedAnalysis
	Intervals int
}

// Notifier delivers technical-silence alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier records alerts in the service log. It stands in for a mail
// relay, which this service does not operate.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	n.logger.WarnContext(ctx, "technical silence detected",
		slog.String("job_id", alert.JobID),
		slog.String("to", alert.Address),
		slog.String("file", alert.FileName),
		slog.String("original_name", alert.Original),
		slog.Int("silence_count", alert.Intervals),
		slog.Float64("duration_sec", alert.Analysis.Duration),
		slog.String("summary", alert.Analysis.Summary),
	)
	return nil
}
