package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Mode represents the current state of the recorder
type Mode string

const (
	ModeIdle      Mode = "IDLE"
	ModeRecording Mode = "RECORDING"
	ModeReviewing Mode = "REVIEWING"
)

var (
	// ErrIndexOutOfRange is returned when a retry, insert, delete or
	// silence operation targets a timeline position that does not exist.
	ErrIndexOutOfRange = errors.New("segment index out of range")

	// ErrNotRecording is returned by StopRecording when no take is in
	// progress. Stopping while idle or reviewing must not fabricate a
	// segment.
	ErrNotRecording = errors.New("no recording in progress")

	// ErrNothingToReview is returned by Approve and Reject when there is
	// no in-progress take.
	ErrNothingToReview = errors.New("no take to review")
)

// Recorder is the session state machine. It owns the in-progress take,
// the timeline position that take targets, and the Idle/Recording/
// Reviewing mode.
//
// Two executors share a Recorder: the control side (operator commands)
// takes the lock blocking and may hold it across a check-and-mutate
// sequence, and the capture side (real-time audio callbacks) only ever
// try-locks via PushBlock so a delivery never stalls. Anything that can
// block for a human-perceptible time, playback and export in particular,
// must run on a Snapshot copy after the lock is released.
type Recorder struct {
	mu sync.Mutex

	mode    Mode
	current *Segment
	project Project

	// editingIndex is the timeline position a pending retry or insert
	// targets; -1 means append at end. isInsertion picks between
	// "insert before editingIndex" and "overwrite at editingIndex".
	editingIndex int
	isInsertion  bool

	// generation is bumped on every transition out of Recording. A block
	// captured under an older generation is stale and gets discarded in
	// PushBlock instead of landing in the wrong take. Atomic so the
	// capture side can read it without taking the lock.
	generation atomic.Uint64
}

// Status is a point-in-time summary of the recorder, safe to serialize.
type Status struct {
	Mode           Mode    `json:"mode"`
	HasTake        bool    `json:"has_take"`
	Segments       int     `json:"segments"`
	Duration       float64 `json:"duration_seconds"`
	CurrentSamples int     `json:"current_samples"`
	PendingIndex   int     `json:"pending_index"` // -1 when appending at end
	PendingInsert  bool    `json:"pending_insert"`
	SampleRate     int     `json:"sample_rate"`
}

// NewRecorder creates an idle recorder with an empty timeline at the
// given sample rate. The timeline is always mono.
func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{
		mode: ModeIdle,
		project: Project{
			Segments:   make([]Segment, 0),
			SampleRate: sampleRate,
			Channels:   1,
		},
		editingIndex: -1,
	}
}

// StartRecording begins a fresh take appended at the end of the timeline.
// Valid from any state; an unreviewed take is discarded.
func (r *Recorder) StartRecording() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.beginTake(-1, false)
	slog.Debug("Recording started", "target", "append")
}

// StopRecording stops capture and moves to reviewing. Returns
// ErrNotRecording if no take is in progress.
func (r *Recorder) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode != ModeRecording {
		return ErrNotRecording
	}

	r.mode = ModeReviewing
	r.generation.Add(1)
	slog.Debug("Recording stopped", "samples", len(r.current.Samples))
	return nil
}

// Approve commits the in-progress take to the timeline and returns to
// idle. Placement is decided once, here, from the editing index stored
// when the take began:
//
//   - no editing index: append at end
//   - insertion and index still <= len: insert, shifting later takes right
//   - replacement and index still < len: overwrite the take at that index
//   - index out of range (the timeline shrank under a pending edit):
//     fall back to append rather than drop the take or panic
func (r *Recorder) Approve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return ErrNothingToReview
	}

	seg := *r.current
	idx := r.editingIndex
	n := len(r.project.Segments)

	switch {
	case idx < 0:
		r.project.Segments = append(r.project.Segments, seg)
	case r.isInsertion && idx <= n:
		r.project.Segments = append(r.project.Segments, Segment{})
		copy(r.project.Segments[idx+1:], r.project.Segments[idx:])
		r.project.Segments[idx] = seg
	case !r.isInsertion && idx < n:
		r.project.Segments[idx] = seg
	default:
		// Stale edit: a concurrent delete shrank the timeline past the
		// stored index. Keep the audio, append it at the end.
		slog.Warn("Edit target no longer exists, appending take at end", "index", idx, "segments", n)
		r.project.Segments = append(r.project.Segments, seg)
	}

	slog.Info("Take approved", "segment", seg.ID, "samples", len(seg.Samples), "segments", len(r.project.Segments))
	r.reset()
	return nil
}

// Reject discards the in-progress take and returns to idle. Approved
// timeline entries are never touched.
func (r *Recorder) Reject() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return ErrNothingToReview
	}

	slog.Info("Take rejected", "segment", r.current.ID, "samples", len(r.current.Samples))
	r.reset()
	return nil
}

// RetrySegment starts a fresh take that will overwrite the timeline
// entry at index when approved. The existing entry stays in place until
// then, so rejecting the retry leaves the original untouched.
func (r *Recorder) RetrySegment(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.project.Segments) {
		return ErrIndexOutOfRange
	}

	r.beginTake(index, false)
	slog.Debug("Retry started", "index", index)
	return nil
}

// InsertSegment starts a fresh take that will be inserted after the
// timeline entry at afterIndex when approved.
func (r *Recorder) InsertSegment(afterIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if afterIndex < 0 || afterIndex >= len(r.project.Segments) {
		return ErrIndexOutOfRange
	}

	r.beginTake(afterIndex+1, true)
	slog.Debug("Insert started", "after", afterIndex)
	return nil
}

// DeleteSegment removes the timeline entry at index immediately,
// independent of mode. A pending retry or insert whose target index is
// shifted past the end by the delete will hit the append fallback in
// Approve.
func (r *Recorder) DeleteSegment(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.project.Segments) {
		return ErrIndexOutOfRange
	}

	removed := r.project.Segments[index]
	r.project.Segments = append(r.project.Segments[:index], r.project.Segments[index+1:]...)
	slog.Info("Segment deleted", "index", index, "segment", removed.ID, "segments", len(r.project.Segments))
	return nil
}

// InsertSilence places a segment of zero-valued samples at the given
// timeline index, shifting later entries right. index == SegmentCount
// appends at the end.
func (r *Recorder) InsertSilence(seconds float64, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.project.Segments)
	if index < 0 || index > n {
		return ErrIndexOutOfRange
	}

	seg := Silence(seconds, r.project.SampleRate)
	r.project.Segments = append(r.project.Segments, Segment{})
	copy(r.project.Segments[index+1:], r.project.Segments[index:])
	r.project.Segments[index] = seg
	slog.Info("Silence inserted", "index", index, "seconds", seconds, "samples", len(seg.Samples))
	return nil
}

// Mode returns the current mode.
func (r *Recorder) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SegmentCount returns the number of committed timeline segments.
func (r *Recorder) SegmentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.project.Segments)
}

// Segment returns an independent copy of the timeline entry at index, or
// false if the index is out of range.
func (r *Recorder) Segment(index int) (Segment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.project.Segments) {
		return Segment{}, false
	}
	return r.project.Segments[index].Clone(), true
}

// TotalDuration returns the timeline length in seconds.
func (r *Recorder) TotalDuration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.project.Duration()
}

// Snapshot returns a deep copy of the timeline, safe to hand to playback
// or export without holding the session lock.
func (r *Recorder) Snapshot() Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.project.Clone()
}

// Status returns a point-in-time summary of the recorder.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		Mode:          r.mode,
		Segments:      len(r.project.Segments),
		Duration:      r.project.Duration(),
		PendingIndex:  r.editingIndex,
		PendingInsert: r.isInsertion,
		SampleRate:    r.project.SampleRate,
	}
	if r.current != nil {
		st.HasTake = true
		st.CurrentSamples = len(r.current.Samples)
	}
	return st
}

// beginTake starts a fresh empty take targeting the given timeline
// position. Callers hold r.mu.
func (r *Recorder) beginTake(editingIndex int, isInsertion bool) {
	if r.mode == ModeRecording {
		r.generation.Add(1)
	}
	seg := NewSegment()
	r.current = &seg
	r.editingIndex = editingIndex
	r.isInsertion = isInsertion
	r.mode = ModeRecording
}

// reset clears the in-progress take and edit target. Callers hold r.mu.
func (r *Recorder) reset() {
	if r.mode == ModeRecording {
		r.generation.Add(1)
	}
	r.current = nil
	r.editingIndex = -1
	r.isInsertion = false
	r.mode = ModeIdle
}
