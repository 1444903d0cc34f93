package session

import (
	"github.com/google/uuid"
)

// Segment is one recorded take: an ordered sequence of mono float32
// samples. Segments are value-copied before they leave the session so
// playback and export never observe a take that is still being written.
type Segment struct {
	ID      string    `json:"id"`
	Samples []float32 `json:"-"`
}

// NewSegment creates an empty segment with a fresh ID.
func NewSegment() Segment {
	return Segment{
		ID:      uuid.New().String(),
		Samples: make([]float32, 0),
	}
}

// Silence creates a segment of zero-valued samples spanning the given
// duration at the given sample rate.
func Silence(seconds float64, sampleRate int) Segment {
	count := int(seconds * float64(sampleRate))
	if count < 0 {
		count = 0
	}
	return Segment{
		ID:      uuid.New().String(),
		Samples: make([]float32, count),
	}
}

// Clone returns an independent copy of the segment.
func (s Segment) Clone() Segment {
	samples := make([]float32, len(s.Samples))
	copy(samples, s.Samples)
	return Segment{ID: s.ID, Samples: samples}
}

// Duration returns the segment length in seconds at the given sample rate.
func (s Segment) Duration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(sampleRate)
}

// Project is the timeline: the ordered sequence of approved segments plus
// the format they were recorded at. Segment order is the canonical
// playback and export order. Audio is stored mono; multi-channel input is
// downmixed before it reaches the timeline.
type Project struct {
	Segments   []Segment `json:"segments"`
	SampleRate int       `json:"sample_rate"`
	Channels   int       `json:"channels"`
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	segments := make([]Segment, len(p.Segments))
	for i, seg := range p.Segments {
		segments[i] = seg.Clone()
	}
	return Project{
		Segments:   segments,
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
	}
}

// Flatten concatenates all segments in timeline order into a single
// contiguous sample sequence.
func (p Project) Flatten() []float32 {
	total := 0
	for _, seg := range p.Segments {
		total += len(seg.Samples)
	}
	out := make([]float32, 0, total)
	for _, seg := range p.Segments {
		out = append(out, seg.Samples...)
	}
	return out
}

// Duration returns the total timeline length in seconds.
func (p Project) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	total := 0
	for _, seg := range p.Segments {
		total += len(seg.Samples)
	}
	return float64(total) / float64(p.SampleRate)
}
