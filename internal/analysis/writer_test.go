package analysis

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpi/listener/internal/analysis/queue"
	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/datastore"
	"github.com/magpi/listener/internal/observability"
)

// memStore is an in-memory datastore.Interface that can fail on demand.
type memStore struct {
	mu       sync.Mutex
	saved    []datastore.Detection
	failures int
}

func (m *memStore) Open() error { return nil }

func (m *memStore) Close() error { return nil }

func (m *memStore) Save(d *datastore.Detection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return assert.AnError
	}
	m.saved = append(m.saved, *d)
	return nil
}

func (m *memStore) savedDetections() []datastore.Detection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]datastore.Detection(nil), m.saved...)
}

func (m *memStore) GetDetections(int, int, string) ([]datastore.Detection, error) {
	return m.savedDetections(), nil
}
func (m *memStore) GetStats(int) (datastore.Stats, error) { return datastore.Stats{}, nil }

func (m *memStore) GetSpeciesCounts(int) ([]datastore.SpeciesCount, error) { return nil, nil }

func (m *memStore) GetHourlyHeatmap(int) ([]datastore.HourlyCount, error) { return nil, nil }

func (m *memStore) GetDailyTrends(int) ([]datastore.DailyTrend, error) { return nil, nil }

func (m *memStore) LastSeenBySpecies() (map[string]time.Time, error) { return nil, nil }

func writerSettings(t *testing.T) *conf.Settings {
	t.Helper()
	t.Setenv("LISTENER_DUPLICATE_WINDOW", "30")
	settings, err := conf.Load()
	require.NoError(t, err)
	return settings
}

func newTestWriter(t *testing.T, settings *conf.Settings, store datastore.Interface, metrics *observability.Metrics) (*DetectionWriter, *queue.Bounded[Candidate]) {
	t.Helper()
	in := queue.NewBounded[Candidate](16, nil)
	w := NewDetectionWriter(settings, store, NewDuplicateFilter(settings.Runtime()), in, metrics)
	w.retryDelay = time.Millisecond
	return w, in
}

func candidateAt(ts time.Time) Candidate {
	return Candidate{
		Species:    "European Robin",
		Confidence: 0.9,
		Timestamp:  ts,
		PCM:        make([]byte, 2000),
		SampleRate: 1000,
		Source:     "test",
	}
}

func TestWriterPersistsAndSuppressesDuplicates(t *testing.T) {
	settings := writerSettings(t)
	store := &memStore{}
	metrics := observability.NewMetrics()
	w, _ := newTestWriter(t, settings, store, metrics)

	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{0, 5 * time.Second, 40 * time.Second} {
		c := candidateAt(t0.Add(offset))
		w.process(context.Background(), &c)
	}

	saved := store.savedDetections()
	require.Len(t, saved, 2)
	assert.Equal(t, t0, saved[0].Time)
	assert.Equal(t, t0.Add(40*time.Second), saved[1].Time)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DuplicatesSuppressed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DetectionsSaved))
}

func TestWriterRetriesTransientFailures(t *testing.T) {
	settings := writerSettings(t)
	store := &memStore{failures: 2}
	metrics := observability.NewMetrics()
	w, _ := newTestWriter(t, settings, store, metrics)

	c := candidateAt(time.Now())
	w.process(context.Background(), &c)

	assert.Len(t, store.savedDetections(), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.InsertRetries))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.InsertFailures))
}

func TestWriterGivesUpAfterMaxRetries(t *testing.T) {
	settings := writerSettings(t)
	store := &memStore{failures: 10}
	metrics := observability.NewMetrics()
	w, _ := newTestWriter(t, settings, store, metrics)

	c := candidateAt(time.Now())
	w.process(context.Background(), &c)

	assert.Empty(t, store.savedDetections())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InsertFailures))
}

func TestWriterExportsClip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LISTENER_EXPORT_ENABLED", "true")
	t.Setenv("LISTENER_EXPORT_PATH", dir)
	settings := writerSettings(t)

	store := &memStore{}
	w, _ := newTestWriter(t, settings, store, nil)

	c := candidateAt(time.Now())
	w.process(context.Background(), &c)

	saved := store.savedDetections()
	require.Len(t, saved, 1)
	require.NotEmpty(t, saved[0].ClipName)

	_, err := os.Stat(filepath.Join(dir, saved[0].ClipName))
	assert.NoError(t, err)
	assert.Contains(t, saved[0].ClipName, "European_Robin")
}

func TestWriterRunDrainsQueue(t *testing.T) {
	settings := writerSettings(t)
	store := &memStore{}
	w, in := newTestWriter(t, settings, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	in.Push(candidateAt(t0))
	in.Push(candidateAt(t0.Add(time.Minute)))

	require.Eventually(t, func() bool {
		return len(store.savedDetections()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not stop")
	}
}
