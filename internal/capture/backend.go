package capture

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// BackendType represents the type of audio capture backend
type BackendType string

const (
	BackendTypePipeWire BackendType = "pipewire"
	BackendTypeALSA     BackendType = "alsa"
	BackendTypeAuto     BackendType = "auto"
)

// Options describe the stream a backend should open. The sample rate and
// channel count requested here become the timeline format.
type Options struct {
	SampleRate int
	Channels   int
	Source     string // device/target, empty for the system default
}

// Backend opens a raw audio stream from the capture hardware. The reader
// delivers interleaved little-endian float32 samples until Close.
type Backend interface {
	Open(opts Options) (io.ReadCloser, error)
	Close() error
	ListSources() ([]string, error)
	Type() BackendType
}

// NewBackend creates a capture backend of the requested type. "auto"
// picks the first backend whose tooling is on PATH, PipeWire preferred.
func NewBackend(name string) (Backend, error) {
	switch parseBackendType(name) {
	case BackendTypePipeWire:
		return NewPipeWireBackend(), nil
	case BackendTypeALSA:
		return NewALSABackend(), nil
	default:
		return autoDetectBackend()
	}
}

// parseBackendType normalizes a configured backend name
func parseBackendType(name string) BackendType {
	switch strings.ToLower(name) {
	case "pipewire":
		return BackendTypePipeWire
	case "alsa":
		return BackendTypeALSA
	default:
		return BackendTypeAuto
	}
}

// autoDetectBackend picks a backend based on which capture tools exist
func autoDetectBackend() (Backend, error) {
	if _, err := exec.LookPath("pw-cat"); err == nil {
		return NewPipeWireBackend(), nil
	}
	if _, err := exec.LookPath("arecord"); err == nil {
		return NewALSABackend(), nil
	}
	return nil, fmt.Errorf("no capture backend available (tried: pw-cat, arecord)")
}
