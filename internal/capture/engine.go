package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"sync"

	"github.com/audiolibrelab/retake/internal/config"
	"github.com/audiolibrelab/retake/internal/metrics"
	"github.com/audiolibrelab/retake/internal/session"
)

// Engine is the capture feed: it pulls fixed-size blocks from a backend
// stream and pushes them into the recorder. Delivery is strictly
// non-blocking on the session side; blocks the recorder cannot take are
// counted and dropped, never queued.
type Engine struct {
	backend Backend
	rec     *session.Recorder
	met     *metrics.Metrics

	rate      int
	channels  int
	blockSize int
	source    string

	mu      sync.Mutex
	stream  io.ReadCloser
	done    chan struct{}
	running bool
}

// NewEngine creates a capture engine for the configured backend.
func NewEngine(cfg *config.Config, rec *session.Recorder, met *metrics.Metrics) (*Engine, error) {
	backend, err := NewBackend(cfg.Audio.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture backend: %w", err)
	}

	return NewEngineWithBackend(backend, cfg, rec, met), nil
}

// NewEngineWithBackend creates an engine around an explicit backend.
func NewEngineWithBackend(backend Backend, cfg *config.Config, rec *session.Recorder, met *metrics.Metrics) *Engine {
	return &Engine{
		backend:   backend,
		rec:       rec,
		met:       met,
		rate:      cfg.Audio.SampleRate,
		channels:  cfg.Audio.Channels,
		blockSize: cfg.Audio.BlockSize,
		source:    cfg.Audio.Source,
	}
}

// Start opens the hardware stream and begins feeding the recorder in the
// background. The stream format negotiated here is the one the timeline
// was created with; it does not change for the life of the session.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("capture engine already running")
	}

	stream, err := e.backend.Open(Options{
		SampleRate: e.rate,
		Channels:   e.channels,
		Source:     e.source,
	})
	if err != nil {
		return fmt.Errorf("failed to open capture stream: %w", err)
	}

	e.stream = stream
	e.done = make(chan struct{})
	e.running = true

	go e.feedLoop(stream, e.done)

	slog.Info("Capture engine started", "backend", e.backend.Type(), "rate", e.rate, "channels", e.channels, "block_size", e.blockSize)
	return nil
}

// Stop closes the hardware stream and waits for the feed loop to exit.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	stream := e.stream
	done := e.done
	e.mu.Unlock()

	stream.Close()
	if err := e.backend.Close(); err != nil {
		return fmt.Errorf("failed to close capture backend: %w", err)
	}
	<-done

	slog.Info("Capture engine stopped")
	return nil
}

// feedLoop reads one block at a time and hands it to the recorder's
// try-lock feed path. The generation is captured when the block arrives,
// before the push, so a block straddling a stop transition is discarded
// deterministically instead of racing.
func (e *Engine) feedLoop(stream io.Reader, done chan struct{}) {
	defer close(done)

	buf := make([]byte, e.blockSize*e.channels*4)

	for {
		if _, err := io.ReadFull(stream, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) &&
				!errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, fs.ErrClosed) {
				slog.Error("Capture stream read failed", "error", err)
			}
			return
		}

		gen := e.rec.Generation()
		samples := decodeF32LE(buf)

		if e.rec.PushBlock(gen, samples, e.channels) {
			e.met.IncBlocksCaptured()
		} else {
			e.met.IncBlocksDropped()
		}
	}
}

// decodeF32LE decodes interleaved little-endian float32 samples.
func decodeF32LE(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
