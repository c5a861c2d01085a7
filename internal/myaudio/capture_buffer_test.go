package myaudio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pattern fills a byte slice with a repeating counter so overwritten
// regions are distinguishable from fresh data.
func pattern(start, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte((start + i) % 251)
	}
	return p
}

func TestReadWindowDuringWarmup(t *testing.T) {
	cb := NewCaptureBuffer(4, 1000) // 8000 bytes capacity

	_, err := cb.ReadWindow(2*time.Second, "test")
	assert.ErrorIs(t, err, ErrInsufficientData)

	cb.Write(pattern(0, 1000))
	_, err = cb.ReadWindow(2*time.Second, "test")
	assert.ErrorIs(t, err, ErrInsufficientData)

	cb.Write(pattern(1000, 3000))
	w, err := cb.ReadWindow(2*time.Second, "test")
	require.NoError(t, err)
	assert.Len(t, w.PCM, 4000)
	assert.Equal(t, pattern(0, 4000), w.PCM)
}

func TestReadWindowReturnsMostRecentSpan(t *testing.T) {
	cb := NewCaptureBuffer(4, 1000)

	cb.Write(pattern(0, 8000))
	cb.Write(pattern(8000, 2000)) // wraps, overwrites oldest 2000 bytes

	w, err := cb.ReadWindow(3*time.Second, "test")
	require.NoError(t, err)
	// most recent 6000 bytes are pattern offsets 4000..10000
	assert.Equal(t, pattern(4000, 6000), w.PCM)
}

func TestOverwriteNeverCorruptsOldestData(t *testing.T) {
	cb := NewCaptureBuffer(2, 1000) // 4000 bytes capacity

	// write far more than capacity in uneven chunks
	offset := 0
	for _, n := range []int{700, 1300, 2500, 900, 3100, 4400} {
		cb.Write(pattern(offset, n))
		offset += n
	}

	w, err := cb.ReadWindow(2*time.Second, "test")
	require.NoError(t, err)
	// only the most recent capacity-worth of data is recoverable
	assert.Equal(t, pattern(offset-4000, 4000), w.PCM)
}

func TestWriteLargerThanCapacity(t *testing.T) {
	cb := NewCaptureBuffer(1, 1000)

	cb.Write(pattern(0, 10000))
	w, err := cb.ReadWindow(time.Second, "test")
	require.NoError(t, err)
	assert.Equal(t, pattern(8000, 2000), w.PCM)
}

func TestWindowRequestExceedingCapacity(t *testing.T) {
	cb := NewCaptureBuffer(2, 1000)
	cb.Write(pattern(0, 4000))

	_, err := cb.ReadWindow(5*time.Second, "test")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientData)
}

func TestWindowIsImmutableSnapshot(t *testing.T) {
	cb := NewCaptureBuffer(2, 1000)
	cb.Write(pattern(0, 4000))

	w, err := cb.ReadWindow(time.Second, "test")
	require.NoError(t, err)
	snapshot := append([]byte(nil), w.PCM...)

	// further writes must not mutate an extracted window
	cb.Write(pattern(9000, 4000))
	assert.Equal(t, snapshot, w.PCM)
}

func TestConcurrentWriterAndReader(t *testing.T) {
	cb := NewCaptureBuffer(2, 8000)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		offset := 0
		for {
			select {
			case <-stop:
				return
			default:
				cb.Write(pattern(offset, 640))
				offset += 640
			}
		}
	}()

	for range 200 {
		w, err := cb.ReadWindow(time.Second, "test")
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientData)
			continue
		}
		// a consistent snapshot follows the counter pattern without tears
		require.Len(t, w.PCM, 16000)
		base := int(w.PCM[0])
		for i, b := range w.PCM {
			if b != byte((base+i)%251) {
				t.Fatalf("torn read at offset %d", i)
			}
		}
	}

	close(stop)
	wg.Wait()
}

func TestWindowDuration(t *testing.T) {
	w := Window{PCM: make([]byte, 48000*2*3), SampleRate: 48000}
	assert.Equal(t, 3*time.Second, w.Duration())
}
