package myaudio

import (
	"errors"
	"sync"
	"time"

	"github.com/magpi/listener/internal/conf"
)

// ErrInsufficientData is returned by ReadWindow while the buffer is still
// warming up and does not yet hold a full window of audio.
var ErrInsufficientData = errors.New("capture buffer does not hold enough data yet")

// Window is a fixed-duration slice of captured audio, immutable once
// extracted. PCM is the window's own copy of the buffer data.
type Window struct {
	PCM        []byte
	Start      time.Time
	SampleRate int
	Source     string
}

// Duration returns the audio length of the window.
func (w *Window) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	samples := len(w.PCM) / conf.BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(w.SampleRate)
}

// CaptureBuffer is a fixed-capacity circular buffer of signed 16-bit mono
// PCM. The writer never blocks and never fails: once capacity is exceeded
// the oldest samples are overwritten. It is safe for one concurrent writer
// (the capture callback) and one concurrent reader (window extraction);
// the reader takes a consistent snapshot under the lock so no torn reads
// occur across the wrap boundary.
type CaptureBuffer struct {
	mu         sync.Mutex
	data       []byte
	writeIndex int
	capacity   int
	written    int64 // total bytes ever written
	sampleRate int
	now        func() time.Time
}

// NewCaptureBuffer allocates a buffer holding the given number of seconds
// of audio at the given sample rate.
func NewCaptureBuffer(durationSeconds, sampleRate int) *CaptureBuffer {
	capacity := durationSeconds * sampleRate * conf.BytesPerSample
	return &CaptureBuffer{
		data:       make([]byte, capacity),
		capacity:   capacity,
		sampleRate: sampleRate,
		now:        time.Now,
	}
}

// Write appends PCM data, overwriting the oldest samples on wrap-around.
func (cb *CaptureBuffer) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Only the trailing capacity-worth of an oversized write can survive.
	if len(p) > cb.capacity {
		p = p[len(p)-cb.capacity:]
	}

	for len(p) > 0 {
		n := copy(cb.data[cb.writeIndex:], p)
		p = p[n:]
		cb.writeIndex = (cb.writeIndex + n) % cb.capacity
		cb.written += int64(n)
	}
}

// ReadWindow returns the most recent contiguous span of the requested
// duration as an immutable Window, or ErrInsufficientData during warm-up.
// The window start time is derived from the extraction instant minus the
// window duration, since the newest sample in the span was just captured.
func (cb *CaptureBuffer) ReadWindow(d time.Duration, source string) (Window, error) {
	needed := int(d.Seconds()) * cb.sampleRate * conf.BytesPerSample
	if needed <= 0 || needed > cb.capacity {
		return Window{}, errors.New("requested window exceeds buffer capacity")
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.written < int64(needed) {
		return Window{}, ErrInsufficientData
	}

	pcm := make([]byte, needed)
	start := cb.writeIndex - needed
	if start >= 0 {
		copy(pcm, cb.data[start:cb.writeIndex])
	} else {
		// span wraps: tail of the buffer first, then the head
		start += cb.capacity
		n := copy(pcm, cb.data[start:])
		copy(pcm[n:], cb.data[:cb.writeIndex])
	}

	return Window{
		PCM:        pcm,
		Start:      cb.now().Add(-d),
		SampleRate: cb.sampleRate,
		Source:     source,
	}, nil
}

// Written returns the total number of bytes ever written.
func (cb *CaptureBuffer) Written() int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.written
}

// Capacity returns the buffer capacity in bytes.
func (cb *CaptureBuffer) Capacity() int {
	return cb.capacity
}
