package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpi/listener/internal/analysis/queue"
	"github.com/magpi/listener/internal/birdnet"
	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/myaudio"
	"github.com/magpi/listener/internal/observability"
)

// fakeClassifier returns scripted results, optionally after a delay.
type fakeClassifier struct {
	results []birdnet.Result
	err     error
	delay   time.Duration
}

func (f *fakeClassifier) Predict([]float32) ([]birdnet.Result, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.results, f.err
}

func analyzerSettings(t *testing.T, timeout string) *conf.Settings {
	t.Helper()
	t.Setenv("LISTENER_CLASSIFY_TIMEOUT", timeout)
	settings, err := conf.Load()
	require.NoError(t, err)
	return settings
}

func testWindow() myaudio.Window {
	return myaudio.Window{
		PCM:        make([]byte, 2000),
		Start:      time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC),
		SampleRate: 1000,
		Source:     "test",
	}
}

func TestAnalyzerEmitsAboveThreshold(t *testing.T) {
	settings := analyzerSettings(t, "5")
	require.NoError(t, settings.Runtime().SetMinConfidence(0.5))

	classifier := &fakeClassifier{results: []birdnet.Result{
		{Species: "European Robin", Confidence: 0.9},
		{Species: "Eurasian Blackbird", Confidence: 0.6},
		{Species: "Common Chaffinch", Confidence: 0.4},
	}}

	out := queue.NewBounded[Candidate](8, nil)
	a := NewAnalyzer(settings, classifier, queue.NewBounded[myaudio.Window](8, nil), out, nil)

	a.analyze(context.Background(), testWindow())

	require.Equal(t, 2, out.Len())
	first, _ := out.TryPop()
	assert.Equal(t, "European Robin", first.Species)
	assert.InDelta(t, 0.9, first.Confidence, 1e-6)

	second, _ := out.TryPop()
	assert.Equal(t, "Eurasian Blackbird", second.Species)
}

func TestAnalyzerCandidateTimestampIsWindowEnd(t *testing.T) {
	settings := analyzerSettings(t, "5")
	classifier := &fakeClassifier{results: []birdnet.Result{
		{Species: "European Robin", Confidence: 0.9},
	}}

	out := queue.NewBounded[Candidate](8, nil)
	a := NewAnalyzer(settings, classifier, queue.NewBounded[myaudio.Window](8, nil), out, nil)

	w := testWindow()
	a.analyze(context.Background(), w)

	candidate, ok := out.TryPop()
	require.True(t, ok)
	assert.Equal(t, w.Start.Add(w.Duration()), candidate.Timestamp)
}

func TestAnalyzerDropsOnError(t *testing.T) {
	settings := analyzerSettings(t, "5")
	classifier := &fakeClassifier{err: assert.AnError}
	metrics := observability.NewMetrics()

	out := queue.NewBounded[Candidate](8, nil)
	a := NewAnalyzer(settings, classifier, queue.NewBounded[myaudio.Window](8, nil), out, metrics)

	a.analyze(context.Background(), testWindow())

	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ClassificationErrors))
}

func TestAnalyzerTimeoutDropsWindow(t *testing.T) {
	settings := analyzerSettings(t, "1")
	classifier := &fakeClassifier{
		results: []birdnet.Result{{Species: "European Robin", Confidence: 0.9}},
		delay:   100 * time.Millisecond,
	}
	metrics := observability.NewMetrics()

	out := queue.NewBounded[Candidate](8, nil)
	a := NewAnalyzer(settings, classifier, queue.NewBounded[myaudio.Window](8, nil), out, metrics)
	a.timeout = 5 * time.Millisecond

	a.analyze(context.Background(), testWindow())

	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ClassificationTimeout))
}

func TestAnalyzerSurvivesConsecutiveTimeouts(t *testing.T) {
	settings := analyzerSettings(t, "1")
	classifier := &fakeClassifier{delay: 20 * time.Millisecond}
	metrics := observability.NewMetrics()

	in := queue.NewBounded[myaudio.Window](128, nil)
	out := queue.NewBounded[Candidate](128, nil)
	for i := 0; i < 100; i++ {
		in.Push(testWindow())
	}

	a := NewAnalyzer(settings, classifier, in, out, metrics)
	a.timeout = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	// every window must be consumed and dropped, without deadlock
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ClassificationTimeout) == 100
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, in.Len())
	assert.Equal(t, 0, out.Len())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("analyzer did not stop")
	}
}

func TestAnalyzerStopsOnContextCancel(t *testing.T) {
	settings := analyzerSettings(t, "5")
	a := NewAnalyzer(settings, &fakeClassifier{}, queue.NewBounded[myaudio.Window](8, nil), queue.NewBounded[Candidate](8, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("analyzer did not stop")
	}
}
