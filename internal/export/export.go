package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/audiolibrelab/retake/internal/session"
)

// WAV flattens the timeline into a single 16-bit PCM WAV file. Segments
// are concatenated in timeline order with no gaps; sample rate and
// channel count are taken verbatim from the project. Samples outside
// [-1, 1] are clipped.
func WAV(project session.Project, path string) error {
	if project.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", project.SampleRate)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, project.SampleRate, 16, project.Channels, 1)

	samples := project.Flatten()
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: project.Channels,
			SampleRate:  project.SampleRate,
		},
		Data:           pcm16(samples),
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write samples: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}

	return nil
}

// pcm16 converts float samples to 16-bit PCM, clipping on overflow.
func pcm16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = v
	}
	return out
}
