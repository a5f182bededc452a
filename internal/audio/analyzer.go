package audio

import "math"

// AnalyzeOpts configures silence detection.
type AnalyzeOpts struct {
	// SilenceThreshold is the absolute amplitude below which a sample
	// is considered silent.
	// Default: 0.01.
	SilenceThreshold float64

	// MinSilenceSec is the duration a run of silent samples must strictly
	// exceed to be reported as an interval.
	// Default: 2.0 seconds.
	MinSilenceSec float64
}

// DefaultAnalyzeOpts returns the default options for silence detection.
func DefaultAnalyzeOpts() AnalyzeOpts {
	return AnalyzeOpts{
		SilenceThreshold: 0.01,
		MinSilenceSec:    2.0,
	}
}

// SilenceInterval is a contiguous run of sub-threshold samples.
type SilenceInterval struct {
	StartSample   uint64 `json:"startSample"`
	LengthSamples uint64 `json:"lengthSamples"`
}

// StartSeconds returns the interval start in seconds.
func (i SilenceInterval) StartSeconds(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(i.StartSample) / float64(sampleRate)
}

// DurationSeconds returns the interval length in seconds.
func (i SilenceInterval) DurationSeconds(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(i.LengthSamples) / float64(sampleRate)
}

// SignalMetrics is the result of a sample-domain pass over a buffer.
type SignalMetrics struct {
	DurationSeconds  float64           `json:"durationSeconds"`
	PeakAmplitude    float64           `json:"peakAmplitude"`
	SampleRate       int               `json:"sampleRate"`
	SilenceIntervals []SilenceInterval `json:"silenceIntervals"`
}

// SilenceDetected reports whether at least one qualifying interval was found.
func (m SignalMetrics) SilenceDetected() bool {
	return len(m.SilenceIntervals) > 0
}

// TotalSilenceSeconds sums the duration of all intervals.
func (m SignalMetrics) TotalSilenceSeconds() float64 {
	var total uint64
	for _, iv := range m.SilenceIntervals {
		total += iv.LengthSamples
	}
	return SilenceInterval{LengthSamples: total}.DurationSeconds(m.SampleRate)
}

// Analyzer scans sample buffers for peak amplitude and sustained silence.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	opts AnalyzeOpts
}

// NewAnalyzer creates an Analyzer. Non-positive options fall back to defaults.
func NewAnalyzer(opts AnalyzeOpts) *Analyzer {
	def := DefaultAnalyzeOpts()
	if opts.SilenceThreshold <= 0 {
		opts.SilenceThreshold = def.SilenceThreshold
	}
	if opts.MinSilenceSec <= 0 {
		opts.MinSilenceSec = def.MinSilenceSec
	}
	return &Analyzer{opts: opts}
}

// Opts returns the effective options.
func (a *Analyzer) Opts() AnalyzeOpts {
	return a.opts
}

// Analyze performs a single linear pass over buf.
//
// A run begins at the first sample with |s| < threshold following a loud
// sample (or the start of the buffer) and ends at the next sample with
// |s| >= threshold, or at the end of the buffer. A run is reported only when
// its length in samples is strictly greater than MinSilenceSec * SampleRate.
// Intervals are returned in ascending, non-overlapping order.
func (a *Analyzer) Analyze(buf SampleBuffer) (SignalMetrics, error) {
	if err := buf.validate(); err != nil {
		return SignalMetrics{}, &DecodeError{Err: err}
	}

	minSamples := a.opts.MinSilenceSec * float64(buf.SampleRate)
	threshold := a.opts.SilenceThreshold

	var (
		peak      float64
		runStart  = -1
		intervals []SilenceInterval
	)

	emit := func(start, end int) {
		length := end - start
		if float64(length) > minSamples {
			intervals = append(intervals, SilenceInterval{
				StartSample:   uint64(start),
				LengthSamples: uint64(length),
			})
		}
	}

	for i, s := range buf.Samples {
		amp := math.Abs(s)
		if amp > peak {
			peak = amp
		}
		if amp < threshold {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			emit(runStart, i)
			runStart = -1
		}
	}
	if runStart >= 0 {
		emit(runStart, len(buf.Samples))
	}

	return SignalMetrics{
		DurationSeconds:  buf.Duration(),
		PeakAmplitude:    math.Min(peak, 1),
		SampleRate:       buf.SampleRate,
		SilenceIntervals: intervals,
	}, nil
}
