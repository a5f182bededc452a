package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

// DefaultMIMEType is reported when neither the caller nor content sniffing
// identifies the audio type.
const DefaultMIMEType = "audio/mp3"

// Container identifies a supported audio container.
type Container string

// Supported containers.
const (
	ContainerWAV  Container = "wav"
	ContainerMP3  Container = "mp3"
	ContainerFLAC Container = "flac"
)

var containerMIME = map[Container]string{
	ContainerWAV:  "audio/wav",
	ContainerMP3:  "audio/mpeg",
	ContainerFLAC: "audio/flac",
}

// Decoder turns an encoded recording into a SampleBuffer.
type Decoder interface {
	// Decode reads the first channel of data. name is the original file
	// name and is only used as a container hint.
	// Any failure is reported as a *DecodeError.
	Decode(ctx context.Context, data []byte, name string) (SampleBuffer, error)
}

// BeepDecoder decodes WAV, MP3 and FLAC using gopxl/beep.
type BeepDecoder struct {
	blockSize int
}

// NewBeepDecoder creates a decoder that streams samples in blocks.
func NewBeepDecoder() *BeepDecoder {
	return &BeepDecoder{blockSize: 4096}
}

// Decode implements Decoder.
func (d *BeepDecoder) Decode(ctx context.Context, data []byte, name string) (SampleBuffer, error) {
	container, err := DetectContainer(data, name)
	if err != nil {
		return SampleBuffer{}, &DecodeError{Source: name, Err: err}
	}

	streamer, format, err := openStream(container, data)
	if err != nil {
		return SampleBuffer{}, &DecodeError{Source: name, Err: fmt.Errorf("open %s stream: %w", container, err)}
	}
	defer func() { _ = streamer.Close() }()

	if format.NumChannels <= 0 {
		return SampleBuffer{}, &DecodeError{Source: name, Err: ErrNoChannels}
	}
	if format.SampleRate <= 0 {
		return SampleBuffer{}, &DecodeError{Source: name, Err: ErrInvalidSampleRate}
	}

	samples := make([]float64, 0, max(streamer.Len(), 0))
	block := make([][2]float64, d.blockSize)
	for {
		if err := ctx.Err(); err != nil {
			return SampleBuffer{}, err
		}
		n, ok := streamer.Stream(block)
		for i := 0; i < n; i++ {
			samples = append(samples, block[i][0])
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return SampleBuffer{}, &DecodeError{Source: name, Err: fmt.Errorf("read samples: %w", err)}
	}
	if len(samples) == 0 {
		return SampleBuffer{}, &DecodeError{Source: name, Err: ErrNoSamples}
	}

	return SampleBuffer{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}, nil
}

func openStream(container Container, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	switch container {
	case ContainerWAV:
		return wav.Decode(bytes.NewReader(data))
	case ContainerMP3:
		return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case ContainerFLAC:
		return flac.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

// DetectContainer identifies the container from content first, then from
// the file extension.
func DetectContainer(data []byte, name string) (Container, error) {
	m := mimetype.Detect(data)
	for c, mt := range containerMIME {
		if m.Is(mt) {
			return c, nil
		}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch Container(ext) {
	case ContainerWAV, ContainerMP3, ContainerFLAC:
		return Container(ext), nil
	case "wave":
		return ContainerWAV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// DetectMIME returns the MIME type sent alongside the audio to the semantic
// service. An explicit audio/* hint wins, then content sniffing, then the
// file extension. DefaultMIMEType is returned when nothing matches.
func DetectMIME(data []byte, name, hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if strings.HasPrefix(hint, "audio/") {
		return hint
	}
	if c, err := DetectContainer(data, name); err == nil {
		return containerMIME[c]
	}
	return DefaultMIMEType
}
