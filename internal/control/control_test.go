package control

import (
	"bytes"
	"strings"
	"testing"

	"github.com/audiolibrelab/retake/internal/metrics"
	"github.com/audiolibrelab/retake/internal/session"
)

// fakePlayer records playback calls instead of rendering audio.
type fakePlayer struct {
	segments [][]float32
	projects []session.Project
}

func (f *fakePlayer) PlaySegment(samples []float32, sampleRate int) error {
	dup := make([]float32, len(samples))
	copy(dup, samples)
	f.segments = append(f.segments, dup)
	return nil
}

func (f *fakePlayer) PlayAll(project session.Project) error {
	f.projects = append(f.projects, project)
	return nil
}

type testEnv struct {
	rec    *session.Recorder
	player *fakePlayer
	proc   *Processor
	out    *bytes.Buffer

	exported []session.Project
	paths    []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		rec:    session.NewRecorder(1000),
		player: &fakePlayer{},
		out:    &bytes.Buffer{},
	}
	export := func(project session.Project, path string) error {
		env.exported = append(env.exported, project)
		env.paths = append(env.paths, path)
		return nil
	}
	env.proc = New(env.rec, env.player, export, metrics.New(), env.out, "/tmp/out.wav")
	return env
}

// run executes a sequence of commands, failing the test on any user error.
func (e *testEnv) run(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if _, err := e.proc.Execute(line); err != nil {
			t.Fatalf("Execute(%q): %v", line, err)
		}
	}
}

// push simulates captured audio while recording.
func (e *testEnv) push(t *testing.T, samples ...float32) {
	t.Helper()
	if !e.rec.PushBlock(e.rec.Generation(), samples, 1) {
		t.Fatalf("push of %v dropped", samples)
	}
}

func TestExecute_RecordApproveCycle(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1, 2, 3)
	env.run(t, "s", "c")

	if env.rec.SegmentCount() != 1 {
		t.Errorf("expected 1 segment, got %d", env.rec.SegmentCount())
	}
	if env.rec.Mode() != session.ModeIdle {
		t.Errorf("expected idle after approve, got %s", env.rec.Mode())
	}
}

func TestExecute_RejectCycle(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1)
	env.run(t, "s", "x")

	if env.rec.SegmentCount() != 0 {
		t.Errorf("expected empty timeline, got %d segments", env.rec.SegmentCount())
	}
}

func TestExecute_OneBasedIndices(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1)
	env.run(t, "s", "c", "r")
	env.push(t, 2)
	env.run(t, "s", "c")

	// "delete 1" removes the operator's first segment, i.e. index 0.
	env.run(t, "delete 1")

	if env.rec.SegmentCount() != 1 {
		t.Fatalf("expected 1 segment, got %d", env.rec.SegmentCount())
	}
	seg, _ := env.rec.Segment(0)
	if len(seg.Samples) != 1 || seg.Samples[0] != 2 {
		t.Errorf("wrong segment deleted: remaining %v", seg.Samples)
	}
}

func TestExecute_UserErrorsAreNonFatal(t *testing.T) {
	env := newTestEnv(t)

	cases := []string{
		"s",          // stop while idle
		"c",          // approve without take
		"x",          // reject without take
		"delete 1",   // empty timeline
		"retry 5",    // out of range
		"insert 0",   // below 1-based minimum
		"delete abc", // not a number
		"retry",      // missing argument
		"p",          // empty timeline
		"pa",         // empty timeline
		"silence",    // missing duration
		"silence -1", // bad duration
		"bogus",      // unknown command
	}

	for _, line := range cases {
		quit, err := env.proc.Execute(line)
		if err == nil {
			t.Errorf("Execute(%q): expected user error", line)
		}
		if quit {
			t.Errorf("Execute(%q): user error must not quit", line)
		}
	}

	if env.rec.SegmentCount() != 0 || env.rec.Mode() != session.ModeIdle {
		t.Errorf("state changed by failed commands: %d segments, mode %s",
			env.rec.SegmentCount(), env.rec.Mode())
	}
}

func TestExecute_PlayDefaultsToLast(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1)
	env.run(t, "s", "c", "r")
	env.push(t, 2, 2)
	env.run(t, "s", "c")

	env.run(t, "p")

	if len(env.player.segments) != 1 {
		t.Fatalf("expected 1 playback, got %d", len(env.player.segments))
	}
	if got := env.player.segments[0]; len(got) != 2 || got[0] != 2 {
		t.Errorf("expected last segment, got %v", got)
	}

	env.run(t, "p 1")
	if got := env.player.segments[1]; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected first segment, got %v", got)
	}
}

func TestExecute_PlayAllUsesSnapshot(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1, 2)
	env.run(t, "s", "c", "pa")

	if len(env.player.projects) != 1 {
		t.Fatalf("expected 1 play-all call, got %d", len(env.player.projects))
	}

	// Mutating the played snapshot must not touch the timeline.
	env.player.projects[0].Segments[0].Samples[0] = 99
	seg, _ := env.rec.Segment(0)
	if seg.Samples[0] != 1 {
		t.Error("PlayAll received live timeline data, not a snapshot")
	}
}

func TestExecute_RetryInsert(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1)
	env.run(t, "s", "c", "r")
	env.push(t, 2)
	env.run(t, "s", "c")

	env.run(t, "retry 1")
	env.push(t, 9)
	env.run(t, "s", "c")

	seg, _ := env.rec.Segment(0)
	if len(seg.Samples) != 1 || seg.Samples[0] != 9 {
		t.Errorf("retry 1 should replace first segment, got %v", seg.Samples)
	}

	env.run(t, "insert 1")
	env.push(t, 7)
	env.run(t, "s", "c")

	if env.rec.SegmentCount() != 3 {
		t.Fatalf("expected 3 segments, got %d", env.rec.SegmentCount())
	}
	seg, _ = env.rec.Segment(1)
	if len(seg.Samples) != 1 || seg.Samples[0] != 7 {
		t.Errorf("insert 1 should land at position 2, got %v", seg.Samples)
	}
}

func TestExecute_Silence(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1)
	env.run(t, "s", "c")

	// Default position appends at end.
	env.run(t, "silence 0.5")
	if env.rec.SegmentCount() != 2 {
		t.Fatalf("expected 2 segments, got %d", env.rec.SegmentCount())
	}
	seg, _ := env.rec.Segment(1)
	if len(seg.Samples) != 500 {
		t.Errorf("expected 500 silence samples, got %d", len(seg.Samples))
	}

	// Explicit 1-based position inserts before it.
	env.run(t, "silence 0.1 1")
	seg, _ = env.rec.Segment(0)
	if len(seg.Samples) != 100 {
		t.Errorf("expected silence at front, got %d samples", len(seg.Samples))
	}
}

func TestExecute_ExportQuits(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "r")
	env.push(t, 1, 2)
	env.run(t, "s", "c")

	quit, err := env.proc.Execute("e")
	if err != nil {
		t.Fatalf("Execute(e): %v", err)
	}
	if !quit {
		t.Error("export should end the session")
	}

	if len(env.exported) != 1 {
		t.Fatalf("expected 1 export, got %d", len(env.exported))
	}
	if env.paths[0] != "/tmp/out.wav" {
		t.Errorf("export path: got %s", env.paths[0])
	}
	if len(env.exported[0].Segments) != 1 {
		t.Errorf("exported snapshot has %d segments", len(env.exported[0].Segments))
	}
}

func TestExecute_List(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, "q")
	if !strings.Contains(env.out.String(), "timeline is empty") {
		t.Errorf("empty list output: %q", env.out.String())
	}

	env.run(t, "r")
	env.push(t, 1, 2)
	env.run(t, "s", "c")
	env.out.Reset()

	env.run(t, "q")
	if !strings.Contains(env.out.String(), "1.") {
		t.Errorf("list output missing 1-based index: %q", env.out.String())
	}
}

func TestRun_QuitsOnExport(t *testing.T) {
	env := newTestEnv(t)

	in := strings.NewReader("r\ns\nc\ne\n")
	if err := env.proc.Run(in); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(env.exported) != 1 {
		t.Errorf("expected export on quit, got %d", len(env.exported))
	}
}

func TestRun_EOFTerminates(t *testing.T) {
	env := newTestEnv(t)

	if err := env.proc.Run(strings.NewReader("q\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
