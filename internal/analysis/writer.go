package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/magpi/listener/internal/analysis/queue"
	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/datastore"
	"github.com/magpi/listener/internal/logging"
	"github.com/magpi/listener/internal/myaudio"
	"github.com/magpi/listener/internal/observability"
)

const (
	maxInsertRetries = 3
	insertRetryDelay = 500 * time.Millisecond
)

// DetectionWriter is the single goroutine that owns database writes. It
// drains the candidate queue, applies the duplicate filter, optionally
// exports an audio clip, and persists what remains.
type DetectionWriter struct {
	settings *conf.Settings
	store    datastore.Interface
	filter   *DuplicateFilter
	in       *queue.Bounded[Candidate]
	metrics  *observability.Metrics
	log      *slog.Logger

	retryDelay time.Duration
}

// NewDetectionWriter creates the writer.
func NewDetectionWriter(settings *conf.Settings, store datastore.Interface, filter *DuplicateFilter, in *queue.Bounded[Candidate], metrics *observability.Metrics) *DetectionWriter {
	return &DetectionWriter{
		settings:   settings,
		store:      store,
		filter:     filter,
		in:         in,
		metrics:    metrics,
		log:        logging.ForService("writer"),
		retryDelay: insertRetryDelay,
	}
}

// Run drains candidates until the context is canceled.
func (w *DetectionWriter) Run(ctx context.Context) {
	for {
		candidate, ok := w.in.Pop(ctx)
		if !ok {
			return
		}
		w.process(ctx, &candidate)
	}
}

func (w *DetectionWriter) process(ctx context.Context, candidate *Candidate) {
	if !w.filter.Accept(candidate.Species, candidate.Timestamp) {
		if w.metrics != nil {
			w.metrics.DuplicatesSuppressed.Inc()
		}
		w.log.Debug("duplicate suppressed",
			"species", candidate.Species,
			"time", candidate.Timestamp)
		return
	}

	detection := datastore.Detection{
		Species:    candidate.Species,
		Confidence: candidate.Confidence,
		Time:       candidate.Timestamp,
	}

	if w.settings.Realtime.Export.Enabled {
		detection.ClipName = w.exportClip(candidate)
	}

	if err := w.saveWithRetry(ctx, &detection); err != nil {
		if w.metrics != nil {
			w.metrics.InsertFailures.Inc()
		}
		w.log.Error("detection lost, insert failed after retries",
			"species", candidate.Species, "error", err)
		return
	}

	if w.metrics != nil {
		w.metrics.DetectionsSaved.Inc()
	}
	w.log.Info("detection saved",
		"species", detection.Species,
		"confidence", detection.Confidence,
		"clip", detection.ClipName)
}

// exportClip writes the window audio to a WAV file and returns its name.
// A failed export is logged and the detection is saved without a clip.
func (w *DetectionWriter) exportClip(candidate *Candidate) string {
	name := fmt.Sprintf("%s_%s_%s.wav",
		conf.SanitizeFileName(candidate.Species),
		candidate.Timestamp.Format("20060102T150405"),
		uuid.New().String()[:8])
	path := filepath.Join(w.settings.Realtime.Export.Path, name)

	if err := myaudio.SavePCMToWAV(path, candidate.PCM, candidate.SampleRate); err != nil {
		w.log.Error("clip export failed", "path", path, "error", err)
		return ""
	}
	return name
}

// saveWithRetry attempts the insert a few times with growing delay. SQLite
// can return transient busy errors under concurrent reads.
func (w *DetectionWriter) saveWithRetry(ctx context.Context, detection *datastore.Detection) error {
	var err error
	for attempt := 1; attempt <= maxInsertRetries; attempt++ {
		if err = w.store.Save(detection); err == nil {
			return nil
		}
		if attempt == maxInsertRetries {
			break
		}
		if w.metrics != nil {
			w.metrics.InsertRetries.Inc()
		}
		w.log.Warn("insert failed, retrying",
			"attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return err
		case <-time.After(w.retryDelay * time.Duration(attempt)):
		}
	}
	return err
}
