package playback

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strings"

	"github.com/audiolibrelab/retake/internal/session"
)

// Player renders mono float32 samples to the speakers by piping raw
// audio into an external playback tool. Playback blocks until the tool
// exits; callers hand it snapshots, never live session data.
type Player struct{}

// New creates a new Player
func New() *Player {
	return &Player{}
}

// PlaySegment renders a single segment at the given sample rate.
func (p *Player) PlaySegment(samples []float32, sampleRate int) error {
	return p.renderRaw(samples, sampleRate)
}

// PlayAll renders the whole timeline as one contiguous stream, segments
// concatenated in order with no gaps.
func (p *Player) PlayAll(project session.Project) error {
	return p.renderRaw(project.Flatten(), project.SampleRate)
}

// renderRaw pipes raw f32le mono samples into the first available
// playback tool and waits for it to finish.
func (p *Player) renderRaw(samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}

	player, err := findPlaybackTool()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}

	cmd := buildPlaybackCmd(player, sampleRate)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", player, err)
	}

	slog.Debug("Playback started", "player", player, "samples", len(samples), "rate", sampleRate)

	if _, err := stdin.Write(encodeF32LE(samples)); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("failed to write audio to %s: %w", player, err)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}
	return nil
}

// buildPlaybackCmd builds the command line for a playback tool reading
// raw f32le mono audio from stdin
func buildPlaybackCmd(player string, sampleRate int) *exec.Cmd {
	rate := fmt.Sprintf("%d", sampleRate)
	switch player {
	case "pw-cat":
		return exec.Command("pw-cat", "--playback", "--raw", "--format", "f32", "--rate", rate, "--channels", "1", "-")
	case "aplay":
		return exec.Command("aplay", "-t", "raw", "-f", "FLOAT_LE", "-r", rate, "-c", "1", "-q", "-")
	default: // ffplay
		return exec.Command("ffplay", "-f", "f32le", "-ar", rate, "-ch_layout", "mono", "-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "-")
	}
}

// findPlaybackTool returns the first playback tool available on PATH
func findPlaybackTool() (string, error) {
	players := []string{"pw-cat", "aplay", "ffplay"}

	for _, player := range players {
		if _, err := exec.LookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}

// encodeF32LE encodes samples as interleaved little-endian float32 bytes
func encodeF32LE(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}
