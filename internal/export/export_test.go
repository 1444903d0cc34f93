package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/audiolibrelab/retake/internal/session"
)

func decodeWAV(t *testing.T, path string) (*wav.Decoder, []int, func()) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening exported file: %v", err)
	}
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		f.Close()
		t.Fatalf("decoding exported file: %v", err)
	}
	return dec, buf.Data, func() { f.Close() }
}

func TestWAV_RoundTrip(t *testing.T) {
	project := session.Project{
		Segments: []session.Segment{
			{Samples: []float32{0, 0.5, 1.0}},
			{Samples: []float32{-1.0, -0.5}},
		},
		SampleRate: 44100,
		Channels:   1,
	}

	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WAV(project, path); err != nil {
		t.Fatalf("WAV: %v", err)
	}

	dec, data, closeFn := decodeWAV(t, path)
	defer closeFn()

	if dec.SampleRate != 44100 {
		t.Errorf("sample rate: got %d, want 44100", dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Errorf("channels: got %d, want 1", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		t.Errorf("bit depth: got %d, want 16", dec.BitDepth)
	}

	// Segments concatenate in order; each float s maps to int16(s*32767).
	want := []int{0, 16383, 32767, -32767, -16383}
	if len(data) != len(want) {
		t.Fatalf("got %d samples, want %d", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, data[i], want[i])
		}
	}
}

func TestWAV_ClipsOverflow(t *testing.T) {
	project := session.Project{
		Segments:   []session.Segment{{Samples: []float32{2.0, -2.0}}},
		SampleRate: 8000,
		Channels:   1,
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WAV(project, path); err != nil {
		t.Fatalf("WAV: %v", err)
	}

	_, data, closeFn := decodeWAV(t, path)
	defer closeFn()

	if len(data) != 2 || data[0] != 32767 || data[1] != -32768 {
		t.Errorf("clipping: got %v, want [32767 -32768]", data)
	}
}

func TestWAV_EmptyTimeline(t *testing.T) {
	project := session.Project{SampleRate: 44100, Channels: 1}

	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := WAV(project, path); err != nil {
		t.Fatalf("WAV on empty timeline: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected output file to exist: %v", err)
	}
}

func TestWAV_CreatesDirectory(t *testing.T) {
	project := session.Project{
		Segments:   []session.Segment{{Samples: []float32{0.1}}},
		SampleRate: 44100,
		Channels:   1,
	}

	path := filepath.Join(t.TempDir(), "nested", "dir", "out.wav")
	if err := WAV(project, path); err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected output file to exist: %v", err)
	}
}

func TestWAV_InvalidSampleRate(t *testing.T) {
	project := session.Project{Channels: 1}

	if err := WAV(project, filepath.Join(t.TempDir(), "bad.wav")); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestPCM16(t *testing.T) {
	got := pcm16([]float32{0, 1, -1, 0.25})
	want := []int{0, 32767, -32767, 8191}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pcm16[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
}
