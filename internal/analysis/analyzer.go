package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/magpi/listener/internal/analysis/queue"
	"github.com/magpi/listener/internal/birdnet"
	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/errors"
	"github.com/magpi/listener/internal/logging"
	"github.com/magpi/listener/internal/myaudio"
	"github.com/magpi/listener/internal/observability"
)

// Analyzer pulls audio windows off the queue, runs them through the
// classifier, and emits candidates for every result at or above the
// confidence threshold. Several analyzers run concurrently; the
// classifier serializes model access internally.
type Analyzer struct {
	settings   *conf.Settings
	classifier Classifier
	in         *queue.Bounded[myaudio.Window]
	out        *queue.Bounded[Candidate]
	metrics    *observability.Metrics
	log        *slog.Logger
	timeout    time.Duration
}

// NewAnalyzer creates an analyzer worker.
func NewAnalyzer(settings *conf.Settings, classifier Classifier, in *queue.Bounded[myaudio.Window], out *queue.Bounded[Candidate], metrics *observability.Metrics) *Analyzer {
	return &Analyzer{
		settings:   settings,
		classifier: classifier,
		in:         in,
		out:        out,
		metrics:    metrics,
		log:        logging.ForService("analyzer"),
		timeout:    time.Duration(settings.Realtime.ClassifyTimeout) * time.Second,
	}
}

// Run processes windows until the context is canceled. A failed or timed
// out classification drops the window and moves on; it never stalls the
// pipeline.
func (a *Analyzer) Run(ctx context.Context) {
	for {
		window, ok := a.in.Pop(ctx)
		if !ok {
			return
		}
		a.analyze(ctx, window)
	}
}

func (a *Analyzer) analyze(ctx context.Context, window myaudio.Window) {
	results, err := a.classify(ctx, window)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.CategoryOf(err) == errors.CategoryTimeout {
			if a.metrics != nil {
				a.metrics.ClassificationTimeout.Inc()
			}
			a.log.Warn("classification timed out, window dropped",
				"timeout", a.timeout, "source", window.Source)
		} else {
			if a.metrics != nil {
				a.metrics.ClassificationErrors.Inc()
			}
			a.log.Error("classification failed, window dropped", "error", err)
		}
		return
	}

	threshold := a.settings.Runtime().MinConfidence()
	timestamp := window.Start.Add(window.Duration())

	for _, result := range results {
		if float64(result.Confidence) < threshold {
			// results are ranked, nothing below this one qualifies
			break
		}
		candidate := Candidate{
			Species:    result.Species,
			Confidence: float64(result.Confidence),
			Timestamp:  timestamp,
			PCM:        window.PCM,
			SampleRate: window.SampleRate,
			Source:     window.Source,
		}
		a.out.Push(candidate)
		if a.metrics != nil {
			a.metrics.CandidatesEmitted.Inc()
		}
		a.log.Debug("candidate emitted",
			"species", candidate.Species,
			"confidence", candidate.Confidence)
	}
}

// classify runs Predict with a deadline. On timeout the in-flight call is
// abandoned; its eventual result is discarded.
func (a *Analyzer) classify(ctx context.Context, window myaudio.Window) ([]birdnet.Result, error) {
	type outcome struct {
		results []birdnet.Result
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		samples := myaudio.PCMToFloat32(window.PCM)
		results, err := a.classifier.Predict(samples)
		done <- outcome{results, err}
	}()

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, errors.Newf("classification exceeded %s", a.timeout).
			Component("analyzer").
			Category(errors.CategoryTimeout).
			Build()
	case o := <-done:
		return o.results, o.err
	}
}
