// Package audio provides sample-domain decoding and silence analysis for broadcast recordings.
package audio

import (
	"errors"
	"fmt"
)

// Static errors for unusable audio input.
var (
	// ErrNoChannels is returned when the decoded source has no channels.
	ErrNoChannels = errors.New("audio: source has no channels")
	// ErrNoSamples is returned when the decoded source has no samples.
	ErrNoSamples = errors.New("audio: source has no samples")
	// ErrInvalidSampleRate is returned when the sample rate is not positive.
	ErrInvalidSampleRate = errors.New("audio: sample rate must be positive")
	// ErrUnsupportedFormat is returned when the container cannot be identified.
	ErrUnsupportedFormat = errors.New("audio: unsupported container format")
)

// DecodeError reports that an audio source could not be turned into samples.
// It is the only error that aborts an analysis run.
type DecodeError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("decode audio: %v", e.Err)
	}
	return fmt.Sprintf("decode audio %q: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SampleBuffer holds the decoded first channel of a recording.
// Samples are normalized to [-1, 1].
type SampleBuffer struct {
	Samples    []float64
	SampleRate int
	// Channels is the channel count of the source; only channel 0 is kept.
	Channels int
}

// Len returns the number of samples.
func (b SampleBuffer) Len() int {
	return len(b.Samples)
}

// Duration returns the buffer length in seconds.
func (b SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// validate checks the buffer is usable for analysis.
func (b SampleBuffer) validate() error {
	if b.Channels <= 0 {
		return ErrNoChannels
	}
	if b.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if len(b.Samples) == 0 {
		return ErrNoSamples
	}
	return nil
}
