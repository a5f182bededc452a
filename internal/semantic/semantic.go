// Package semantic obtains and reconciles a model's characterization of a recording:
// summary, silence classification, anomalies and transcription.
package semantic

import (
	"context"
	"strings"
)

// SilenceClass is the model's judgement about silence in a recording.
type SilenceClass string

// Silence classes.
const (
	// SilenceNatural is silence consistent with the content (pauses, breaths).
	SilenceNatural SilenceClass = "natural"
	// SilenceTechnical is silence from signal loss or an unexplained gap.
	SilenceTechnical SilenceClass = "technical"
	// SilenceNone means no classification is available.
	SilenceNone SilenceClass = "none"
)

// ParseSilenceClass maps a raw label to a SilenceClass. Unknown labels map
// to SilenceNone.
func ParseSilenceClass(s string) SilenceClass {
	switch SilenceClass(strings.ToLower(strings.TrimSpace(s))) {
	case SilenceNatural:
		return SilenceNatural
	case SilenceTechnical:
		return SilenceTechnical
	default:
		return SilenceNone
	}
}

// Completeness tells how much of the model response was recovered.
type Completeness string

// Completeness levels.
const (
	// CompletenessFull means the response parsed as-is.
	CompletenessFull Completeness = "full"
	// CompletenessSalvaged means the transcription was cut and replaced by a placeholder.
	CompletenessSalvaged Completeness = "salvaged"
	// CompletenessFallback means only placeholders (and possibly the summary) are available.
	CompletenessFallback Completeness = "fallback"
)

// Result is the reconciled semantic characterization.
type Result struct {
	Summary       string       `json:"summary"`
	Transcription string       `json:"transcription"`
	Anomalies     []string     `json:"anomalies"`
	SilenceClass  SilenceClass `json:"silenceClassification"`
	Completeness  Completeness `json:"completeness"`
}

// Request carries the recording sent to the model.
type Request struct {
	Audio    []byte
	MIMEType string
}

// Analyzer calls an external model and returns its raw text response.
// Implementations must honour ctx cancellation.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
}
