// Package pipeline runs one recording through decoding, signal analysis and
// semantic characterization, and merges the results into a UnifiedAnalysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yassiners/audio-nuit-dinfo/internal/audio"
	"github.com/yassiners/audio-nuit-dinfo/internal/naming"
	"github.com/yassiners/audio-nuit-dinfo/internal/observe"
	"github.com/yassiners/audio-nuit-dinfo/internal/semantic"
)

// Stage identifies a step of a run, reported through ProgressFunc.
type Stage string

// Pipeline stages in the order they are reported. StageSignal and
// StageSemantic run concurrently; both are reported before either starts.
const (
	StageDecode   Stage = "decode"
	StageSignal   Stage = "signal"
	StageSemantic Stage = "semantic"
	StageNaming   Stage = "naming"
	StageDone     Stage = "done"
)

var stageLabels = map[Stage]string{
	StageDecode:   "Decoding Audio...",
	StageSignal:   "Analyzing Signal Topology...",
	StageSemantic: "Running Neural Analysis...",
	StageNaming:   "Transcoding, Editing & Renaming...",
	StageDone:     "Done",
}

// Label returns the operator-facing text of the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Progress returns the completion percentage reached when the stage starts.
func (s Stage) Progress() int {
	switch s {
	case StageDecode:
		return 5
	case StageSignal:
		return 15
	case StageSemantic:
		return 25
	case StageNaming:
		return 90
	case StageDone:
		return 100
	default:
		return 0
	}
}

// ProgressFunc receives stage transitions. It may be called from the
// goroutine running Run only.
type ProgressFunc func(stage Stage)

// Config holds the pipeline settings fixed at construction.
type Config struct {
	Analyze audio.AnalyzeOpts
	// SemanticTimeout bounds the model call. Zero means no bound beyond ctx.
	SemanticTimeout time.Duration
	// Clock supplies "now" for naming. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the default pipeline settings.
func DefaultConfig() Config {
	return Config{
		Analyze:         audio.DefaultAnalyzeOpts(),
		SemanticTimeout: 2 * time.Minute,
		Clock:           time.Now,
	}
}

// Request is one recording to analyze.
type Request struct {
	// Name is the original file name.
	Name string
	// MIMEType is the type declared by the caller, if any.
	MIMEType string
	Data     []byte
	Config   ProcessingConfig
	Progress ProgressFunc
}

// Result is the outcome of a successful run.
type Result struct {
	Analysis UnifiedAnalysis     `json:"analysis"`
	FileName string              `json:"fileName"`
	MIMEType string              `json:"mimeType"`
	Signal   audio.SignalMetrics `json:"signal"`
}

// Pipeline analyzes recordings. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	decoder  audio.Decoder
	analyzer *audio.Analyzer
	semantic semantic.Analyzer
	cfg      Config
	logger   *slog.Logger
	metrics  *observe.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the metrics sink. Defaults to observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a Pipeline. A nil sem makes every run degrade to the
// failed semantic result.
func New(decoder audio.Decoder, sem semantic.Analyzer, cfg Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	p := &Pipeline{
		decoder:  decoder,
		analyzer: audio.NewAnalyzer(cfg.Analyze),
		semantic: sem,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Run analyzes one recording.
//
// Signal analysis and the model call run concurrently and are joined before
// merging. A failed or timed out model call degrades to semantic.Failed().
// An unusable source aborts the run with an *audio.DecodeError; a cancelled
// or expired ctx aborts it with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.Run")
	defer span.End()
	logger := observe.Logger(ctx, p.logger).With(slog.String("file", req.Name))

	report := req.Progress
	if report == nil {
		report = func(Stage) {}
	}

	cfg := req.Config.WithDefaults(DefaultProcessingConfig())
	mimeType := audio.DetectMIME(req.Data, req.Name, req.MIMEType)
	span.SetAttributes(
		attribute.String("audio.name", req.Name),
		attribute.String("audio.mime", mimeType),
		attribute.Int("audio.bytes", len(req.Data)),
	)

	report(StageDecode)
	report(StageSignal)
	report(StageSemantic)

	var (
		signal audio.SignalMetrics
		sem    semantic.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		signal, err = p.analyzeSignal(gctx, req)
		return err
	})
	g.Go(func() error {
		sem = p.characterize(gctx, req.Data, mimeType, logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var decodeErr *audio.DecodeError
		if errors.As(err, &decodeErr) {
			p.metrics.RecordDecodeError(ctx)
		}
		logger.Error("analysis aborted", slog.String("error", err.Error()))
		return nil, err
	}

	analysis := Merge(signal, sem)

	report(StageNaming)
	fileName := naming.Generate(req.Name, cfg.NamingPattern, string(cfg.Format), p.cfg.Clock())

	alert := analysis.Alert()
	p.metrics.RecordAnalysis(ctx, time.Since(start), analysis.Duration, string(analysis.Completeness), string(alert))
	span.SetAttributes(
		attribute.String("analysis.alert", string(alert)),
		attribute.String("analysis.completeness", string(analysis.Completeness)),
		attribute.Int("analysis.silence_count", int(analysis.SilenceCount)),
	)

	logger.Info("analysis completed",
		slog.String("final_name", fileName),
		slog.Float64("duration_sec", analysis.Duration),
		slog.Int("silence_count", int(analysis.SilenceCount)),
		slog.String("silence_type", string(analysis.SilenceType)),
		slog.String("alert", string(alert)),
		slog.String("completeness", string(analysis.Completeness)),
		slog.Duration("elapsed", time.Since(start)),
	)

	report(StageDone)

	return &Result{
		Analysis: analysis,
		FileName: fileName,
		MIMEType: mimeType,
		Signal:   signal,
	}, nil
}

func (p *Pipeline) analyzeSignal(ctx context.Context, req Request) (audio.SignalMetrics, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.signal")
	defer span.End()

	buf, err := p.decoder.Decode(ctx, req.Data, req.Name)
	if err != nil {
		return audio.SignalMetrics{}, wrapDecode(req.Name, err)
	}
	p.metrics.RecordStage(ctx, string(StageDecode), time.Since(start))

	analyzeStart := time.Now()
	metrics, err := p.analyzer.Analyze(buf)
	if err != nil {
		return audio.SignalMetrics{}, wrapDecode(req.Name, err)
	}
	p.metrics.RecordStage(ctx, string(StageSignal), time.Since(analyzeStart))

	span.SetAttributes(
		attribute.Float64("audio.duration_sec", metrics.DurationSeconds),
		attribute.Int("audio.silence_intervals", len(metrics.SilenceIntervals)),
	)
	return metrics, nil
}

// characterize always returns a Result; upstream errors and timeouts become
// an absent response.
func (p *Pipeline) characterize(ctx context.Context, data []byte, mimeType string, logger *slog.Logger) semantic.Result {
	if p.semantic == nil {
		return semantic.Reconcile("")
	}

	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.semantic")
	defer span.End()

	if p.cfg.SemanticTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SemanticTimeout)
		defer cancel()
	}

	raw, err := p.semantic.Analyze(ctx, semantic.Request{Audio: data, MIMEType: mimeType})
	p.metrics.RecordStage(ctx, string(StageSemantic), time.Since(start))
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		} else if errors.Is(err, context.Canceled) {
			reason = "cancelled"
		}
		span.RecordError(err)
		p.metrics.RecordSemanticError(ctx, reason)
		logger.Warn("semantic analysis unavailable",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		raw = ""
	}

	res := semantic.Reconcile(raw)
	if res.Degraded() && err == nil {
		logger.Warn("semantic response incomplete",
			slog.String("completeness", string(res.Completeness)),
		)
	}
	span.SetAttributes(attribute.String("semantic.completeness", string(res.Completeness)))
	return res
}

// wrapDecode tags decoder failures with the source name. Cancellation and
// deadlines pass through unchanged.
func wrapDecode(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var decodeErr *audio.DecodeError
	if errors.As(err, &decodeErr) {
		if decodeErr.Source == "" {
			decodeErr.Source = name
		}
		return decodeErr
	}
	return &audio.DecodeError{Source: name, Err: fmt.Errorf("decode: %w", err)}
}
