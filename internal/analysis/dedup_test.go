package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpi/listener/internal/conf"
)

func newTestFilter(t *testing.T, windowSeconds string) (*DuplicateFilter, *conf.Runtime) {
	t.Helper()
	t.Setenv("LISTENER_DUPLICATE_WINDOW", windowSeconds)
	settings, err := conf.Load()
	require.NoError(t, err)
	return NewDuplicateFilter(settings.Runtime()), settings.Runtime()
}

func TestDuplicateFilterSuppressesWithinWindow(t *testing.T) {
	filter, _ := newTestFilter(t, "30")
	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	assert.True(t, filter.Accept("European Robin", t0))
	assert.False(t, filter.Accept("European Robin", t0.Add(5*time.Second)))
	assert.True(t, filter.Accept("European Robin", t0.Add(40*time.Second)))
}

func TestDuplicateFilterSpeciesIndependent(t *testing.T) {
	filter, _ := newTestFilter(t, "30")
	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	assert.True(t, filter.Accept("European Robin", t0))
	assert.True(t, filter.Accept("Eurasian Blackbird", t0.Add(time.Second)))
}

func TestDuplicateFilterOrderIndependent(t *testing.T) {
	filter, _ := newTestFilter(t, "30")
	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	// candidates arrive out of order: the later one first
	assert.True(t, filter.Accept("European Robin", t0.Add(40*time.Second)))
	assert.True(t, filter.Accept("European Robin", t0.Add(5*time.Second)))

	// the last sighting never moves backwards
	last, ok := filter.LastSeen("European Robin")
	require.True(t, ok)
	assert.Equal(t, t0.Add(40*time.Second), last)

	assert.False(t, filter.Accept("European Robin", t0.Add(50*time.Second)))
}

func TestDuplicateFilterZeroWindowAcceptsAll(t *testing.T) {
	filter, _ := newTestFilter(t, "0")
	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		assert.True(t, filter.Accept("European Robin", t0.Add(time.Duration(i)*time.Second)))
	}
}

func TestDuplicateFilterWindowAdjustableAtRuntime(t *testing.T) {
	filter, runtime := newTestFilter(t, "30")
	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	assert.True(t, filter.Accept("European Robin", t0))
	assert.False(t, filter.Accept("European Robin", t0.Add(10*time.Second)))

	require.NoError(t, runtime.SetDuplicateWindow(5*time.Second))
	assert.True(t, filter.Accept("European Robin", t0.Add(10*time.Second)))
}

func TestDuplicateFilterPrime(t *testing.T) {
	filter, _ := newTestFilter(t, "30")
	t0 := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	filter.Prime(map[string]time.Time{"European Robin": t0})

	assert.False(t, filter.Accept("European Robin", t0.Add(10*time.Second)))
	assert.True(t, filter.Accept("European Robin", t0.Add(45*time.Second)))
}
