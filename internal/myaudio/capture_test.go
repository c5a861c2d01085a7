package myaudio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpi/listener/internal/errors"
)

// miniaudio delivers the Stop notification synchronously from device stop
// and uninit, on whose completion Close is blocked while holding the source
// lock. The notification path must therefore complete without ever taking
// that lock.
func TestMalgoSourceStopNotificationDoesNotBlockOnSourceLock(t *testing.T) {
	s := NewMalgoSource("dummy", 48000)
	s.opened.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.notifyStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop notification blocked while the source lock was held")
	}

	select {
	case err := <-s.Errors():
		require.Error(t, err)
		assert.Equal(t, errors.CategoryDevice, errors.CategoryOf(err))
	default:
		t.Fatal("expected a device error after an unexpected stop")
	}
}

func TestMalgoSourceStopAfterCloseIsSilent(t *testing.T) {
	s := NewMalgoSource("dummy", 48000)

	// Close clears opened before uninitializing the device, so the Stop
	// notification fired by the close itself must not report a failure
	s.opened.Store(true)
	s.opened.Store(false)
	s.notifyStop()

	select {
	case err := <-s.Errors():
		t.Fatalf("unexpected device error after close: %v", err)
	default:
	}
}
