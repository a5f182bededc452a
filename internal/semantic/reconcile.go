package semantic

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Placeholder texts used when the response is incomplete or missing.
const (
	TruncatedTranscription = "transcription truncated — source too large to render in full"
	UnavailableSummary     = "summary unavailable"
	MalformedTranscription = "transcription unavailable: response formatting error (truncated)"
	ParseErrorAnomaly      = "JSON parsing error"

	FailedSummary       = "unable to generate summary"
	FailedTranscription = "AI analysis error (check API key or file format)"
	FailedAnomaly       = "AI analysis failed"
)

const transcriptionKey = `"transcription"`

var summaryPattern = regexp.MustCompile(`"summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// wireResult mirrors the response schema. silenceType is the legacy key.
type wireResult struct {
	Summary               string   `json:"summary"`
	SilenceClassification string   `json:"silenceClassification"`
	SilenceType           string   `json:"silenceType"`
	Anomalies             []string `json:"anomalies"`
	Transcription         string   `json:"transcription"`
}

func (w wireResult) class() SilenceClass {
	if w.SilenceClassification != "" {
		return ParseSilenceClass(w.SilenceClassification)
	}
	return ParseSilenceClass(w.SilenceType)
}

// Reconcile turns raw model output into a Result. It never fails.
//
// A response that parses is full. A response cut inside the transcription
// is salvaged by dropping everything from the comma preceding the last
// "transcription" key. Anything else falls back to placeholders, keeping
// the summary when a summary literal can still be found. An empty raw
// response is treated as an upstream failure.
func Reconcile(raw string) Result {
	if raw == "" {
		return Failed()
	}

	if w, ok := parseObject(raw); ok {
		return Result{
			Summary:       w.Summary,
			Transcription: w.Transcription,
			Anomalies:     nonNil(w.Anomalies),
			SilenceClass:  w.class(),
			Completeness:  CompletenessFull,
		}
	}

	if w, ok := salvage(raw); ok {
		return Result{
			Summary:       w.Summary,
			Transcription: TruncatedTranscription,
			Anomalies:     nonNil(w.Anomalies),
			SilenceClass:  w.class(),
			Completeness:  CompletenessSalvaged,
		}
	}

	return Result{
		Summary:       extractSummary(raw),
		Transcription: MalformedTranscription,
		Anomalies:     []string{ParseErrorAnomaly},
		SilenceClass:  SilenceNone,
		Completeness:  CompletenessFallback,
	}
}

// Failed is the result used when the model could not be reached or
// returned nothing.
func Failed() Result {
	return Result{
		Summary:       FailedSummary,
		Transcription: FailedTranscription,
		Anomalies:     []string{FailedAnomaly},
		SilenceClass:  SilenceNone,
		Completeness:  CompletenessFallback,
	}
}

// Degraded reports whether r carries less than the full response.
func (r Result) Degraded() bool {
	return r.Completeness != CompletenessFull
}

func parseObject(s string) (wireResult, bool) {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return wireResult{}, false
	}
	var w wireResult
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return wireResult{}, false
	}
	return w, true
}

func salvage(raw string) (wireResult, bool) {
	key := strings.LastIndex(raw, transcriptionKey)
	if key < 0 {
		return wireResult{}, false
	}
	comma := strings.LastIndex(raw[:key], ",")
	if comma < 0 {
		return wireResult{}, false
	}
	return parseObject(raw[:comma] + "}")
}

func extractSummary(raw string) string {
	m := summaryPattern.FindStringSubmatch(raw)
	if m == nil || m[1] == "" {
		return UnavailableSummary
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &s); err != nil {
		return m[1]
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
