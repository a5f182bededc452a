package pipeline

import (
	"github.com/yassiners/audio-nuit-dinfo/internal/audio"
	"github.com/yassiners/audio-nuit-dinfo/internal/semantic"
)

// UnifiedAnalysis combines the signal measurements with the semantic result.
// It is only built by Merge.
type UnifiedAnalysis struct {
	Duration        float64               `json:"duration"`
	PeakAmplitude   float64               `json:"peakAmplitude"`
	SilenceDetected bool                  `json:"silenceDetected"`
	SilenceType     semantic.SilenceClass `json:"silenceType"`
	SilenceCount    uint                  `json:"silenceCount"`
	Transcription   string                `json:"transcription"`
	Summary         string                `json:"summary"`
	Anomalies       []string              `json:"anomalies"`
	Completeness    semantic.Completeness `json:"completeness"`
}

// Merge applies the field ownership rule: silence presence and count come
// from the signal, silence type and text fields come from the model.
// The two sources are not cross-checked; see AlertState for the
// "silence present, type unknown" case.
func Merge(signal audio.SignalMetrics, sem semantic.Result) UnifiedAnalysis {
	anomalies := sem.Anomalies
	if anomalies == nil {
		anomalies = []string{}
	}
	class := sem.SilenceClass
	if class == "" {
		class = semantic.SilenceNone
	}
	return UnifiedAnalysis{
		Duration:        signal.DurationSeconds,
		PeakAmplitude:   signal.PeakAmplitude,
		SilenceDetected: signal.SilenceDetected(),
		SilenceType:     class,
		SilenceCount:    uint(len(signal.SilenceIntervals)),
		Transcription:   sem.Transcription,
		Summary:         sem.Summary,
		Anomalies:       anomalies,
		Completeness:    sem.Completeness,
	}
}

// AlertState is the operator-facing reading of a UnifiedAnalysis.
type AlertState string

// Alert states.
const (
	// AlertClear means no qualifying silence was measured.
	AlertClear AlertState = "clear"
	// AlertNatural means silence was measured and judged natural.
	AlertNatural AlertState = "natural"
	// AlertTechnical means silence was measured and judged technical.
	AlertTechnical AlertState = "technical"
	// AlertUnknown means silence was measured but no classification is
	// available. It must not be shown as clear.
	AlertUnknown AlertState = "unknown"
)

// Alert derives the alert state.
func (u UnifiedAnalysis) Alert() AlertState {
	if !u.SilenceDetected {
		return AlertClear
	}
	switch u.SilenceType {
	case semantic.SilenceTechnical:
		return AlertTechnical
	case semantic.SilenceNatural:
		return AlertNatural
	default:
		return AlertUnknown
	}
}

// ShouldNotify reports whether a technical-silence notification must be
// sent to address.
func (u UnifiedAnalysis) ShouldNotify(address string) bool {
	return address != "" && u.Alert() == AlertTechnical
}
