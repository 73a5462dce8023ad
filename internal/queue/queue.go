// SPDX-License-Identifier: MIT
/*
Package queue implements the fixed-capacity sample queue that bridges the
capture, playback, and analysis paths.

Three contexts touch a Queue concurrently: the capture callback pushes, the
playback callback pops, and the analysis loop peeks at the freshest samples.
No mutex guards the hot path. Push only advances the write index, Pop only
advances the read index, and PeekFreshData reads backward from the write
index without touching the read index. Both indices are atomic so each
context always sees a consistent snapshot of the other's progress.

One slot is always kept unused so that write == read unambiguously means
empty: space is available only while free slots > n, never >= n.
*/
package queue

import (
	"errors"
	"fmt"
	"sync/atomic"

	applog "chordscope/internal/log"
)

// Sample range limits for the int16 stream format.
const (
	MaxSample = 32767
	MinSample = -32768
)

var (
	// ErrOverflow is returned when a push exceeds the available space.
	ErrOverflow = errors.New("queue overflow: insufficient space available")
	// ErrUnderflow is returned when a pop or peek exceeds the available data.
	ErrUnderflow = errors.New("queue underflow: insufficient data available")
)

// Queue is a fixed-capacity circular sample store. The backing slice is
// allocated once at construction and owned by the Queue for its lifetime.
type Queue struct {
	samples []int16
	cap     int64

	// Write and read positions in [0, cap), advanced modulo cap.
	// Atomic because they are read and written from independent
	// real-time callback contexts.
	writeIdx atomic.Int64
	readIdx  atomic.Int64
}

// New creates a Queue holding up to capacity-1 samples (one slot is
// reserved to disambiguate full from empty).
func New(capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue capacity must be greater than zero, got %d", capacity)
	}
	applog.Debugf("Queue: created with capacity %d samples", capacity)
	return &Queue{
		samples: make([]int16, capacity),
		cap:     int64(capacity),
	}, nil
}

// Cap returns the raw capacity of the backing store. The usable capacity
// is one sample less.
func (q *Queue) Cap() int { return int(q.cap) }

// DataAvailable reports whether at least n samples are queued.
func (q *Queue) DataAvailable(n int) bool {
	return q.queued() >= int64(n)
}

// SpaceAvailable reports whether n more samples can be pushed.
func (q *Queue) SpaceAvailable(n int) bool {
	return q.cap-q.queued()-1 >= int64(n)
}

// queued returns the number of samples currently in the queue.
func (q *Queue) queued() int64 {
	w := q.writeIdx.Load()
	r := q.readIdx.Load()
	return (w - r + q.cap) % q.cap
}

// Push appends the given samples, each scaled by volume (0 mutes, 1 passes
// through). It fails with ErrOverflow if the queue lacks space for all of
// them; on failure nothing is written.
//
// Hot path: called from the capture callback. No allocation, no locks.
func (q *Queue) Push(samples []int16, volume float64) error {
	n := int64(len(samples))
	if !q.SpaceAvailable(len(samples)) {
		return fmt.Errorf("%w: pushing %d", ErrOverflow, n)
	}

	w := q.writeIdx.Load()
	for i := int64(0); i < n; i++ {
		q.samples[(w+i)%q.cap] = scale(samples[i], volume)
	}
	// Publish the samples only after they are fully written.
	q.writeIdx.Store((w + n) % q.cap)
	return nil
}

// Pop removes len(dst) samples into dst, each scaled by volume, advancing
// the read index. It fails with ErrUnderflow if fewer samples are queued.
//
// Hot path: called from the playback callback. No allocation, no locks.
func (q *Queue) Pop(dst []int16, volume float64) error {
	n := int64(len(dst))
	if !q.DataAvailable(len(dst)) {
		return fmt.Errorf("%w: popping %d", ErrUnderflow, n)
	}

	r := q.readIdx.Load()
	for i := int64(0); i < n; i++ {
		dst[i] = scale(q.samples[(r+i)%q.cap], volume)
	}
	q.readIdx.Store((r + n) % q.cap)
	return nil
}

// Peek copies the samples Pop would return next without consuming them.
func (q *Queue) Peek(dst []int16, volume float64) error {
	n := int64(len(dst))
	if !q.DataAvailable(len(dst)) {
		return fmt.Errorf("%w: peeking %d", ErrUnderflow, n)
	}

	r := q.readIdx.Load()
	for i := int64(0); i < n; i++ {
		dst[i] = scale(q.samples[(r+i)%q.cap], volume)
	}
	return nil
}

// PeekFreshData copies the len(dst) most recently written samples into dst
// in chronological order (oldest first), working backward from the write
// index. The read index is untouched, so playback never skips; this is how
// the analysis path always sees the newest audio regardless of how far
// behind playback has fallen.
func (q *Queue) PeekFreshData(dst []int16, volume float64) error {
	n := int64(len(dst))
	if !q.DataAvailable(len(dst)) {
		return fmt.Errorf("%w: peeking fresh %d", ErrUnderflow, n)
	}

	w := q.writeIdx.Load()
	for i := int64(0); i < n; i++ {
		dst[n-i-1] = scale(q.samples[(q.cap+w-i-1)%q.cap], volume)
	}
	return nil
}

// scale applies a linear volume multiplier to a single sample.
func scale(s int16, volume float64) int16 {
	return int16(float64(s) * volume)
}
