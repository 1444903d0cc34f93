package control

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/audiolibrelab/retake/internal/metrics"
	"github.com/audiolibrelab/retake/internal/session"
)

// Player renders audio snapshots to the speakers. Calls may block until
// playback completes.
type Player interface {
	PlaySegment(samples []float32, sampleRate int) error
	PlayAll(project session.Project) error
}

// Exporter writes a timeline snapshot to a destination file.
type Exporter func(project session.Project, path string) error

// Processor translates operator commands into recorder operations. All
// blocking work (playback, export) runs on point-in-time snapshots taken
// after the recorder releases its lock, so a slow render never stalls
// command entry or the capture feed.
//
// Operator-facing segment indices are 1-based; the recorder is 0-based.
type Processor struct {
	rec        *session.Recorder
	player     Player
	export     Exporter
	met        *metrics.Metrics
	out        io.Writer
	outputPath string
}

// New creates a command processor.
func New(rec *session.Recorder, player Player, export Exporter, met *metrics.Metrics, out io.Writer, outputPath string) *Processor {
	return &Processor{
		rec:        rec,
		player:     player,
		export:     export,
		met:        met,
		out:        out,
		outputPath: outputPath,
	}
}

const prompt = "r=start  s=stop  c=approve  x=reject  p [n]=play  pa=play all  " +
	"retry n  insert n  delete n  silence secs [n]  q=list  e=export+quit"

// Run reads commands line by line until the export command or EOF.
// Command errors are reported and never terminate the loop.
func (p *Processor) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintln(p.out, prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}

		quit, err := p.Execute(scanner.Text())
		if err != nil {
			fmt.Fprintf(p.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs a single command line. The returned error is a user
// error: reported, no state change. quit reports that the session is
// over (export command).
func (p *Processor) Execute(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "r":
		p.rec.StartRecording()
		fmt.Fprintln(p.out, "recording...")
	case "s":
		if err := p.rec.StopRecording(); err != nil {
			return false, err
		}
		st := p.rec.Status()
		fmt.Fprintf(p.out, "reviewing take (%.2fs): c to approve, x to reject\n",
			float64(st.CurrentSamples)/float64(st.SampleRate))
	case "c":
		if err := p.rec.Approve(); err != nil {
			return false, err
		}
		p.met.IncSegmentsApproved()
		p.met.SetTimelineSeconds(p.rec.TotalDuration())
		fmt.Fprintf(p.out, "approved: %d segment(s), %.2fs total\n", p.rec.SegmentCount(), p.rec.TotalDuration())
	case "x":
		if err := p.rec.Reject(); err != nil {
			return false, err
		}
		p.met.IncSegmentsRejected()
		fmt.Fprintln(p.out, "rejected")
	case "p":
		return false, p.playSegment(fields[1:])
	case "pa":
		snapshot := p.rec.Snapshot()
		if len(snapshot.Segments) == 0 {
			return false, errors.New("timeline is empty")
		}
		if err := p.player.PlayAll(snapshot); err != nil {
			return false, fmt.Errorf("playback failed: %w", err)
		}
	case "retry":
		idx, err := p.parseIndex(fields[1:])
		if err != nil {
			return false, err
		}
		if err := p.rec.RetrySegment(idx); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "re-recording segment %d...\n", idx+1)
	case "insert":
		idx, err := p.parseIndex(fields[1:])
		if err != nil {
			return false, err
		}
		if err := p.rec.InsertSegment(idx); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "recording insert after segment %d...\n", idx+1)
	case "delete":
		idx, err := p.parseIndex(fields[1:])
		if err != nil {
			return false, err
		}
		if err := p.rec.DeleteSegment(idx); err != nil {
			return false, err
		}
		p.met.SetTimelineSeconds(p.rec.TotalDuration())
		fmt.Fprintf(p.out, "deleted segment %d, %d segment(s) left\n", idx+1, p.rec.SegmentCount())
	case "silence":
		return false, p.insertSilence(fields[1:])
	case "q":
		p.list()
	case "e":
		snapshot := p.rec.Snapshot()
		if err := p.export(snapshot, p.outputPath); err != nil {
			return false, fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(p.out, "exported %d segment(s) to %s\n", len(snapshot.Segments), p.outputPath)
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}

	return false, nil
}

// playSegment plays the segment named by an optional 1-based index,
// defaulting to the last one.
func (p *Processor) playSegment(args []string) error {
	count := p.rec.SegmentCount()
	if count == 0 {
		return errors.New("timeline is empty")
	}

	idx := count - 1
	if len(args) > 0 {
		var err error
		idx, err = p.parseIndex(args)
		if err != nil {
			return err
		}
	}

	seg, ok := p.rec.Segment(idx)
	if !ok {
		return session.ErrIndexOutOfRange
	}

	st := p.rec.Status()
	if err := p.player.PlaySegment(seg.Samples, st.SampleRate); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// insertSilence handles "silence <seconds> [position]"; position is
// 1-based, default is append at the end.
func (p *Processor) insertSilence(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: silence <seconds> [position]")
	}

	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil || seconds <= 0 {
		return fmt.Errorf("invalid duration %q", args[0])
	}

	idx := p.rec.SegmentCount()
	if len(args) > 1 {
		idx, err = p.parseIndex(args[1:])
		if err != nil {
			return err
		}
	}

	if err := p.rec.InsertSilence(seconds, idx); err != nil {
		return err
	}
	p.met.SetTimelineSeconds(p.rec.TotalDuration())
	fmt.Fprintf(p.out, "inserted %.2fs of silence\n", seconds)
	return nil
}

// list prints the timeline, 1-based.
func (p *Processor) list() {
	snapshot := p.rec.Snapshot()
	if len(snapshot.Segments) == 0 {
		fmt.Fprintln(p.out, "timeline is empty")
		return
	}

	for i, seg := range snapshot.Segments {
		fmt.Fprintf(p.out, "%3d. %s  %.2fs (%d samples)\n",
			i+1, shortID(seg.ID), seg.Duration(snapshot.SampleRate), len(seg.Samples))
	}
	fmt.Fprintf(p.out, "total: %.2fs\n", snapshot.Duration())
}

// parseIndex converts a 1-based operator index argument to 0-based.
func (p *Processor) parseIndex(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("missing segment number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid segment number %q", args[0])
	}
	return n - 1, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
