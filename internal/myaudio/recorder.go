package myaudio

import (
	"context"
	"log/slog"
	"time"

	"github.com/magpi/listener/internal/analysis/queue"
	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/errors"
	"github.com/magpi/listener/internal/logging"
	"github.com/magpi/listener/internal/observability"
)

const (
	maxConsecutiveFailures = 5
	reopenBackoffBase      = time.Second
	reopenBackoffMax       = 30 * time.Second
)

// Recorder owns the capture device and the capture buffer. It writes device
// frames into the buffer and, on a fixed cadence, slices the most recent
// window and hands it to the analysis queue. The handoff never blocks: the
// queue drops its oldest window when saturated, so a slow analyzer can
// never stall live capture.
type Recorder struct {
	source  AudioSource
	buffer  *CaptureBuffer
	out     *queue.Bounded[Window]
	metrics *observability.Metrics
	log     *slog.Logger

	windowDuration  time.Duration
	extractInterval time.Duration

	maxFailures int
	backoffBase time.Duration
	backoffMax  time.Duration
}

// NewRecorder wires a recorder to its source, buffer and output queue.
func NewRecorder(settings *conf.Settings, source AudioSource, buffer *CaptureBuffer, out *queue.Bounded[Window], metrics *observability.Metrics) *Recorder {
	return &Recorder{
		source:          source,
		buffer:          buffer,
		out:             out,
		metrics:         metrics,
		log:             logging.ForService("recorder"),
		windowDuration:  settings.WindowDuration(),
		extractInterval: time.Duration(settings.Audio.ExtractInterval) * time.Second,
		maxFailures:     maxConsecutiveFailures,
		backoffBase:     reopenBackoffBase,
		backoffMax:      reopenBackoffMax,
	}
}

// Run captures until the context is cancelled. It returns nil on a clean
// shutdown and a fatal DeviceError when the device cannot be (re)opened
// after the configured number of consecutive failures; the supervisor
// decides what to do with the process at that point.
func (r *Recorder) Run(ctx context.Context) error {
	if err := r.openWithRetry(ctx); err != nil {
		return err
	}
	defer func() {
		if err := r.source.Close(); err != nil {
			r.log.Warn("failed to close capture source", "error", err)
		}
	}()

	r.log.Info("recording started",
		"source", r.source.Name(),
		"window", r.windowDuration.String(),
		"interval", r.extractInterval.String())

	ticker := time.NewTicker(r.extractInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("recording stopped")
			return nil

		case err := <-r.source.Errors():
			r.log.Warn("capture device failure, reopening", "error", err)
			if r.metrics != nil {
				r.metrics.DeviceRestarts.Inc()
			}
			if cerr := r.source.Close(); cerr != nil {
				r.log.Warn("failed to close failed capture source", "error", cerr)
			}
			if err := r.openWithRetry(ctx); err != nil {
				return err
			}

		case <-ticker.C:
			w, err := r.buffer.ReadWindow(r.windowDuration, r.source.Name())
			if err != nil {
				if errors.Is(err, ErrInsufficientData) {
					// buffer still warming up
					continue
				}
				r.log.Error("window extraction failed", "error", err)
				continue
			}
			if r.metrics != nil {
				r.metrics.WindowsExtracted.Inc()
			}
			r.out.Push(w)
		}
	}
}

// openWithRetry opens the capture source, retrying with exponential backoff.
// After maxFailures consecutive failures it gives up and returns a fatal
// DeviceError.
func (r *Recorder) openWithRetry(ctx context.Context) error {
	backoff := r.backoffBase
	var lastErr error

	for attempt := 1; attempt <= r.maxFailures; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		lastErr = r.source.Open(r.buffer.Write)
		if lastErr == nil {
			return nil
		}

		r.log.Warn("failed to open capture source",
			"attempt", attempt,
			"max_attempts", r.maxFailures,
			"backoff", backoff.String(),
			"error", lastErr)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, r.backoffMax)
	}

	return errors.Newf("capture device unavailable after %d attempts: %w", r.maxFailures, lastErr).
		Component("recorder").
		Category(errors.CategoryDevice).
		Context("source", r.source.Name()).
		Build()
}
