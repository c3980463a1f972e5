package advtblock_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/AdguardTeam/advtblock"
	"github.com/AdguardTeam/advtblock/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMetrics is a [metrics.Interface] implementation for tests.
type testMetrics struct {
	created   atomic.Int64
	destroyed atomic.Int64
	malformed atomic.Int64
	blocked   atomic.Int64
	allowed   atomic.Int64
}

// type check
var _ metrics.Interface = (*testMetrics)(nil)

// OnCreated implements the [metrics.Interface] interface for *testMetrics.
func (m *testMetrics) OnCreated(malformed int) {
	m.created.Add(1)
	m.malformed.Add(int64(malformed))
}

// OnDestroyed implements the [metrics.Interface] interface for *testMetrics.
func (m *testMetrics) OnDestroyed() {
	m.destroyed.Add(1)
}

// OnCheck implements the [metrics.Interface] interface for *testMetrics.
func (m *testMetrics) OnCheck(blocked bool) {
	if blocked {
		m.blocked.Add(1)
	} else {
		m.allowed.Add(1)
	}
}

// newTestRegistry is a helper that creates a registry which is closed on test
// cleanup.
func newTestRegistry(tb testing.TB, m metrics.Interface) (r *advtblock.Registry) {
	tb.Helper()

	r = advtblock.NewRegistry(&advtblock.RegistryConfig{
		Logger:  testLogger,
		Metrics: m,
	})
	tb.Cleanup(r.Close)

	return r
}

func TestRegistry_lifecycle(t *testing.T) {
	m := &testMetrics{}
	r := newTestRegistry(t, m)

	h, err := r.CreateInstance([]string{"-advertisement-icon.", "||bad^$unknown-modifier"})
	require.NoError(t, err)

	blocked, err := r.CheckURL(h, "http://example.com/-advertisement-icon.", "http://example.com/helloworld", "image")
	require.NoError(t, err)

	assert.True(t, blocked)

	blocked, err = r.CheckURL(h, "http://example.com/-some-icon.", "http://example.com/helloworld", "image")
	require.NoError(t, err)

	assert.False(t, blocked)

	r.DestroyInstance(h)

	_, err = r.CheckURL(h, "http://example.com/-advertisement-icon.", "", "image")
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	_, err = r.CosmeticResources(h, "https://example.com/")
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	_, err = r.Engine(h)
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	// Destroying twice is a no-op.
	r.DestroyInstance(h)

	assert.Equal(t, int64(1), m.created.Load())
	assert.Equal(t, int64(1), m.destroyed.Load())
	assert.Equal(t, int64(1), m.malformed.Load())
	assert.Equal(t, int64(1), m.blocked.Load())
	assert.Equal(t, int64(1), m.allowed.Load())
}

func TestRegistry_DestroyInstance_engineDestroyed(t *testing.T) {
	m := &testMetrics{}
	r := newTestRegistry(t, m)

	h, err := r.CreateInstance([]string{"||ads.example^"})
	require.NoError(t, err)

	e, err := r.Engine(h)
	require.NoError(t, err)
	require.True(t, e.Destroy())

	_, err = r.CheckURL(h, "https://ads.example/", "", "")
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	r.DestroyInstance(h)
	assert.Equal(t, int64(1), m.destroyed.Load())

	_, err = r.Engine(h)
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	r.DestroyInstance(h)
	assert.Equal(t, int64(1), m.destroyed.Load())
}

func TestRegistry_CreateInstance_noRules(t *testing.T) {
	m := &testMetrics{}
	r := newTestRegistry(t, m)

	_, err := r.CreateInstance(nil)
	assert.ErrorIs(t, err, advtblock.ErrNoRules)
	assert.Zero(t, m.created.Load())

	h, err := r.CreateInstance([]string{})
	require.NoError(t, err)

	res, err := r.CosmeticResources(h, "https://example.org/")
	require.NoError(t, err)

	assert.Empty(t, res.HideSelectors)
}

func TestRegistry_distinctInstances(t *testing.T) {
	r := newTestRegistry(t, metrics.Empty{})

	h1, err := r.CreateInstance([]string{"||one.example^", "example.org##.one"})
	require.NoError(t, err)

	h2, err := r.CreateInstance([]string{"||two.example^", "example.org##.two"})
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)

	testCases := []struct {
		name          string
		url           string
		handle        advtblock.Handle
		wantBlocked   bool
		wantSelectors []string
	}{{
		name:          "first_own",
		url:           "https://one.example/",
		handle:        h1,
		wantBlocked:   true,
		wantSelectors: []string{".one"},
	}, {
		name:          "first_other",
		url:           "https://two.example/",
		handle:        h1,
		wantBlocked:   false,
		wantSelectors: []string{".one"},
	}, {
		name:          "second_own",
		url:           "https://two.example/",
		handle:        h2,
		wantBlocked:   true,
		wantSelectors: []string{".two"},
	}, {
		name:          "second_other",
		url:           "https://one.example/",
		handle:        h2,
		wantBlocked:   false,
		wantSelectors: []string{".two"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blocked, cErr := r.CheckURL(tc.handle, tc.url, "https://example.org/", "script")
			require.NoError(t, cErr)

			assert.Equal(t, tc.wantBlocked, blocked)

			res, cErr := r.CosmeticResources(tc.handle, "https://example.org/")
			require.NoError(t, cErr)

			assert.Equal(t, tc.wantSelectors, res.HideSelectors)
		})
	}

	r.DestroyInstance(h1)

	_, err = r.CheckURL(h1, "https://one.example/", "", "")
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	blocked, err := r.CheckURL(h2, "https://two.example/", "", "")
	require.NoError(t, err)

	assert.True(t, blocked)
}

func TestRegistry_unknownHandle(t *testing.T) {
	r := newTestRegistry(t, metrics.Empty{})

	_, err := r.CheckURL(advtblock.Handle{}, "https://example.org/", "", "")
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	h, err := advtblock.ParseHandle(uuid.NewString())
	require.NoError(t, err)

	_, err = r.CosmeticResources(h, "https://example.org/")
	assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)

	r.DestroyInstance(h)
}

func TestParseHandle(t *testing.T) {
	r := newTestRegistry(t, metrics.Empty{})

	h, err := r.CreateInstance([]string{"||ads.example^"})
	require.NoError(t, err)

	id, err := uuid.Parse(h.String())
	require.NoError(t, err)

	assert.Equal(t, uuid.Version(7), id.Version())

	parsed, err := advtblock.ParseHandle(h.String())
	require.NoError(t, err)

	assert.Equal(t, h, parsed)

	blocked, err := r.CheckURL(parsed, "https://ads.example/", "", "")
	require.NoError(t, err)

	assert.True(t, blocked)

	_, err = advtblock.ParseHandle("not-a-handle")
	assert.Error(t, err)
}

func TestRegistry_Close(t *testing.T) {
	m := &testMetrics{}
	r := advtblock.NewRegistry(&advtblock.RegistryConfig{
		Logger:  testLogger,
		Metrics: m,
	})

	const n = 5

	handles := make([]advtblock.Handle, 0, n)
	for range n {
		h, err := r.CreateInstance([]string{"||ads.example^"})
		require.NoError(t, err)

		handles = append(handles, h)
	}

	r.Close()

	for _, h := range handles {
		_, err := r.CheckURL(h, "https://ads.example/", "", "")
		assert.ErrorIs(t, err, advtblock.ErrInstanceDestroyed)
	}

	assert.Equal(t, int64(n), m.created.Load())
	assert.Equal(t, int64(n), m.destroyed.Load())
}

func TestRegistry_concurrent(t *testing.T) {
	m := &testMetrics{}
	r := newTestRegistry(t, m)

	const workers = 8

	wg := &sync.WaitGroup{}
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()

			for range 20 {
				h, err := r.CreateInstance([]string{"||ads.example^", "example.org##.ad"})
				if !assert.NoError(t, err) {
					return
				}

				blocked, err := r.CheckURL(h, "https://ads.example/", "https://example.org/", "script")
				assert.NoError(t, err)
				assert.True(t, blocked)

				res, err := r.CosmeticResources(h, "https://example.org/")
				assert.NoError(t, err)
				assert.Equal(t, []string{".ad"}, res.HideSelectors)

				r.DestroyInstance(h)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(workers*20), m.created.Load())
	assert.Equal(t, int64(workers*20), m.destroyed.Load())
	assert.Equal(t, int64(workers*20), m.blocked.Load())
}
