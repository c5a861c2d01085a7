package myaudio

import (
	"math/rand/v2"
	"sync"
	"time"
)

// AudioSource abstracts a capture device. Open starts delivering PCM frames
// to the callback until Close is called or the device fails; failures after
// a successful Open are reported on Errors.
type AudioSource interface {
	// Open initializes the device and starts capture. onFrames is invoked
	// from the device's capture context with raw S16LE mono PCM.
	Open(onFrames func(pcm []byte)) error
	// Errors reports asynchronous device failures (disconnect, stall).
	Errors() <-chan error
	// Close stops capture and releases the device.
	Close() error
	// Name identifies the source in logs and windows.
	Name() string
}

// SyntheticSource generates low-amplitude noise at realtime rate. It stands
// in for a capture device on hosts without audio hardware, mirroring the
// behaviour of a silent microphone so the rest of the pipeline can run.
type SyntheticSource struct {
	sampleRate int

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	errCh  chan error
	opened bool
}

// NewSyntheticSource creates a synthetic source at the given sample rate.
func NewSyntheticSource(sampleRate int) *SyntheticSource {
	return &SyntheticSource{
		sampleRate: sampleRate,
		errCh:      make(chan error, 1),
	}
}

// Open starts a goroutine emitting 100ms noise frames at realtime pace.
func (s *SyntheticSource) Open(onFrames func(pcm []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}
	s.opened = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	frameSamples := s.sampleRate / 10
	interval := 100 * time.Millisecond

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				onFrames(noiseFrame(frameSamples))
			}
		}
	}()

	return nil
}

// Errors implements AudioSource. The synthetic source never fails.
func (s *SyntheticSource) Errors() <-chan error {
	return s.errCh
}

// Close stops the generator.
func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}
	close(s.stop)
	<-s.done
	s.opened = false
	return nil
}

// Name implements AudioSource.
func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// noiseFrame produces S16LE samples of faint uniform noise.
func noiseFrame(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := 0; i < len(pcm); i += 2 {
		v := int16(rand.IntN(65) - 32) //nolint:gosec // not cryptographic
		pcm[i] = byte(v)
		pcm[i+1] = byte(v >> 8)
	}
	return pcm
}
