package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/magpi/listener/internal/analysis/queue"
	"github.com/magpi/listener/internal/api"
	"github.com/magpi/listener/internal/birdnet"
	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/datastore"
	"github.com/magpi/listener/internal/logging"
	"github.com/magpi/listener/internal/myaudio"
	"github.com/magpi/listener/internal/observability"
)

const shutdownGrace = 5 * time.Second

// syntheticDevice selects the built-in noise generator instead of a real
// capture device, for hosts without audio hardware.
const syntheticDevice = "synthetic"

// RealtimeAnalysis runs the full pipeline: capture, analysis, duplicate
// filtering, persistence and the HTTP API. It blocks until the context is
// canceled or the capture device fails permanently.
func RealtimeAnalysis(ctx context.Context, settings *conf.Settings) error {
	log := logging.ForService("realtime")
	metrics := observability.NewMetrics()

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close datastore", "error", err)
		}
	}()

	filter := NewDuplicateFilter(settings.Runtime())
	if lastSeen, err := store.LastSeenBySpecies(); err != nil {
		log.Warn("could not prime duplicate filter from datastore", "error", err)
	} else {
		filter.Prime(lastSeen)
		log.Info("duplicate filter primed", "species", len(lastSeen))
	}

	classifier, err := birdnet.New(settings)
	if err != nil {
		return err
	}
	defer classifier.Close()

	windows := queue.NewBounded[myaudio.Window](settings.Realtime.QueueSize, func(myaudio.Window) {
		metrics.WindowsDropped.Inc()
	})
	candidates := queue.NewBounded[Candidate](settings.Realtime.QueueSize, func(Candidate) {
		metrics.CandidatesDropped.Inc()
	})

	buffer := myaudio.NewCaptureBuffer(settings.Audio.BufferDuration, settings.Audio.SampleRate)

	var source myaudio.AudioSource
	if settings.Audio.Device == syntheticDevice {
		source = myaudio.NewSyntheticSource(settings.Audio.SampleRate)
	} else {
		source = myaudio.NewMalgoSource(settings.Audio.Device, settings.Audio.SampleRate)
	}

	recorder := myaudio.NewRecorder(settings, source, buffer, windows, metrics)
	writer := NewDetectionWriter(settings, store, filter, candidates, metrics)
	controller := api.New(settings, store, metrics)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fatal := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := recorder.Run(ctx); err != nil {
			fatal <- err
			cancel()
		}
	}()

	for i := 0; i < settings.Realtime.Workers; i++ {
		analyzer := NewAnalyzer(settings, classifier, windows, candidates, metrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			analyzer.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controller.Start(); err != nil {
			fatal <- err
			cancel()
		}
	}()

	log.Info("pipeline started",
		"device", source.Name(),
		"workers", settings.Realtime.Workers,
		"queue_size", settings.Realtime.QueueSize)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := controller.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", "error", err)
	}

	wg.Wait()

	select {
	case err := <-fatal:
		return err
	default:
		log.Info("pipeline stopped")
		return nil
	}
}
