package capture

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// PipeWireBackend captures audio through pw-cat, reading raw float32
// samples from its stdout.
type PipeWireBackend struct {
	cmd *exec.Cmd
}

// NewPipeWireBackend creates a new PipeWire capture backend
func NewPipeWireBackend() *PipeWireBackend {
	return &PipeWireBackend{}
}

// Open starts pw-cat in record mode and returns its stdout stream.
func (b *PipeWireBackend) Open(opts Options) (io.ReadCloser, error) {
	if b.cmd != nil {
		return nil, fmt.Errorf("capture stream already open")
	}

	args := []string{
		"--record",
		"--raw",
		"--format", "f32",
		"--rate", fmt.Sprintf("%d", opts.SampleRate),
		"--channels", fmt.Sprintf("%d", opts.Channels),
	}
	if opts.Source != "" {
		args = append(args, "--target", opts.Source)
	}
	args = append(args, "-")

	cmd := exec.Command("pw-cat", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start pw-cat: %w", err)
	}

	b.cmd = cmd
	slog.Info("PipeWire capture started", "rate", opts.SampleRate, "channels", opts.Channels, "target", opts.Source)
	return stdout, nil
}

// Close stops the pw-cat process.
func (b *PipeWireBackend) Close() error {
	if b.cmd == nil {
		return nil
	}

	if b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}
	b.cmd.Wait()
	b.cmd = nil

	slog.Debug("PipeWire capture stopped")
	return nil
}

// ListSources returns the capture targets pw-cat knows about.
func (b *PipeWireBackend) ListSources() ([]string, error) {
	cmd := exec.Command("pw-cat", "--record", "--list-targets")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list PipeWire targets: %w", err)
	}

	return parseSourceList(string(output)), nil
}

// Type returns the backend type
func (b *PipeWireBackend) Type() BackendType {
	return BackendTypePipeWire
}

// parseSourceList extracts non-empty, non-header lines from a capture
// tool's target listing
func parseSourceList(output string) []string {
	var sources []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		sources = append(sources, line)
	}
	return sources
}
