package session

// The capture side of the recorder. Hardware callbacks deliver sample
// blocks at a cadence the session does not control, so this path must
// never block: a block that cannot take the lock is dropped, not queued.

// Generation returns the current recording epoch. The capture side reads
// it when a block arrives and passes it back to PushBlock; a mismatch at
// append time means the recording the block belongs to already ended.
func (r *Recorder) Generation() uint64 {
	return r.generation.Load()
}

// PushBlock appends a captured sample block to the in-progress take.
// It try-locks the session: under contention with the control side the
// block is dropped and PushBlock reports false. A block is also dropped,
// silently, when no recording is in progress or when gen is stale;
// that is how stop takes effect without a signal reaching the feed.
//
// Multi-channel input is averaged down to mono before appending; the
// timeline only ever stores mono data.
func (r *Recorder) PushBlock(gen uint64, samples []float32, channels int) bool {
	if len(samples) == 0 || channels <= 0 {
		return false
	}

	if !r.mu.TryLock() {
		return false
	}
	defer r.mu.Unlock()

	if r.mode != ModeRecording || r.current == nil {
		return false
	}
	if gen != r.generation.Load() {
		return false
	}

	if channels == 1 {
		r.current.Samples = append(r.current.Samples, samples...)
		return true
	}
	r.current.Samples = append(r.current.Samples, downmixMono(samples, channels)...)
	return true
}

// downmixMono averages interleaved same-frame channel samples into a
// single mono sample per frame. A trailing partial frame is discarded.
func downmixMono(samples []float32, channels int) []float32 {
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
