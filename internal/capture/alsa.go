package capture

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// ALSABackend captures audio through arecord, reading raw float32
// samples from its stdout. Fallback for systems without PipeWire.
type ALSABackend struct {
	cmd *exec.Cmd
}

// NewALSABackend creates a new ALSA capture backend
func NewALSABackend() *ALSABackend {
	return &ALSABackend{}
}

// Open starts arecord in raw mode and returns its stdout stream.
func (b *ALSABackend) Open(opts Options) (io.ReadCloser, error) {
	if b.cmd != nil {
		return nil, fmt.Errorf("capture stream already open")
	}

	args := []string{
		"-t", "raw",
		"-f", "FLOAT_LE",
		"-r", fmt.Sprintf("%d", opts.SampleRate),
		"-c", fmt.Sprintf("%d", opts.Channels),
		"-q",
	}
	if opts.Source != "" {
		args = append(args, "-D", opts.Source)
	}
	args = append(args, "-")

	cmd := exec.Command("arecord", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start arecord: %w", err)
	}

	b.cmd = cmd
	slog.Info("ALSA capture started", "rate", opts.SampleRate, "channels", opts.Channels, "device", opts.Source)
	return stdout, nil
}

// Close stops the arecord process. SIGINT first so arecord can shut the
// device down cleanly, then kill.
func (b *ALSABackend) Close() error {
	if b.cmd == nil {
		return nil
	}

	if b.cmd.Process != nil {
		if err := b.cmd.Process.Signal(os.Interrupt); err != nil {
			b.cmd.Process.Kill()
		}
	}
	b.cmd.Wait()
	b.cmd = nil

	slog.Debug("ALSA capture stopped")
	return nil
}

// ListSources returns the capture devices arecord knows about.
func (b *ALSABackend) ListSources() ([]string, error) {
	cmd := exec.Command("arecord", "-L")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list ALSA devices: %w", err)
	}

	return parseSourceList(string(output)), nil
}

// Type returns the backend type
func (b *ALSABackend) Type() BackendType {
	return BackendTypeALSA
}
