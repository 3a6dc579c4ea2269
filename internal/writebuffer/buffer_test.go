package writebuffer

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
	ltime "github.com/fittrack/fitness-tracker-api/pkg/time"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *Config {
	return &Config{
		BatchSize:      500,
		FlushInterval:  time.Hour,
		QueueCapacity:  10000,
		RetryAttempts:  5,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

func point(i int) points.MetricPoint {
	return points.MetricPoint{
		Measurement: points.MeasurementBodyWeight,
		Tags:        map[string]string{points.TagUserID: fmt.Sprintf("u%d", i%7)},
		Fields:      map[string]float64{"weight": float64(60 + i%40)},
		Timestamp:   testNow.Add(time.Duration(i) * time.Second),
	}
}

func enqueueN(t *testing.T, b *Buffer, n int) {
	for i := 0; i < n; i++ {
		require.NoError(t, b.Enqueue(point(i)))
	}
}

func transient() error {
	return &tsdb.Error{Op: "write", Kind: tsdb.KindUnavailable, Err: syscall.ECONNREFUSED}
}

func TestFlushOnBatchSize(t *testing.T) {
	g := gomega.NewWithT(t)
	backend := &tsdb.BackendMock{}
	b := New(testConfig(), backend, ltime.NewWallWatch())
	b.Start()
	defer b.Drain(time.Second)

	enqueueN(t, b, 500)

	g.Eventually(backend.BatchSizes).Should(gomega.Equal([]int{500}))
	g.Eventually(b.Len).Should(gomega.BeZero())
}

func TestFlushOnInterval(t *testing.T) {
	g := gomega.NewWithT(t)
	backend := &tsdb.BackendMock{}
	cfg := testConfig()
	cfg.FlushInterval = 50 * time.Millisecond
	b := New(cfg, backend, ltime.NewWallWatch())
	b.Start()
	defer b.Drain(time.Second)

	enqueueN(t, b, 3)
	assert.Empty(t, backend.BatchSizes())

	g.Eventually(backend.BatchSizes, time.Second, 10*time.Millisecond).Should(gomega.Equal([]int{3}))
}

func TestFlushSplitsBatches(t *testing.T) {
	g := gomega.NewWithT(t)
	backend := &tsdb.BackendMock{}
	cfg := testConfig()
	cfg.FlushInterval = 200 * time.Millisecond
	b := New(cfg, backend, ltime.NewWallWatch())
	b.Start()
	defer b.Drain(time.Second)

	enqueueN(t, b, 501)

	g.Eventually(backend.BatchSizes, 2*time.Second, 10*time.Millisecond).Should(gomega.Equal([]int{500, 1}))
	g.Eventually(func() uint64 { return b.Stats().Flushed }).Should(gomega.Equal(uint64(501)))
	g.Eventually(func() uint64 { return b.Stats().Flushes }).Should(gomega.Equal(uint64(2)))
}

func TestRetriesTransientFailures(t *testing.T) {
	g := gomega.NewWithT(t)
	backend := &tsdb.BackendMock{WriteErrors: []error{transient(), transient()}}
	cfg := testConfig()
	cfg.BatchSize = 10
	b := New(cfg, backend, ltime.NewWallWatch())
	b.Start()
	defer b.Drain(time.Second)

	enqueueN(t, b, 10)

	g.Eventually(backend.BatchSizes).Should(gomega.Equal([]int{10}))
	g.Eventually(func() uint64 { return b.Stats().Retries }).Should(gomega.Equal(uint64(2)))
	assert.Equal(t, 3, backend.Calls())
	assert.Equal(t, uint64(0), b.Stats().Dropped)
}

func TestDropsBatchAfterRetries(t *testing.T) {
	g := gomega.NewWithT(t)
	backend := &tsdb.BackendMock{WriteErrors: []error{transient(), transient(), transient(), transient(), transient()}}
	cfg := testConfig()
	cfg.BatchSize = 10
	results := make(chan FlushResult, 10)
	cfg.OnFlush = func(r FlushResult) { results <- r }
	b := New(cfg, backend, ltime.NewWallWatch())
	b.Start()
	defer b.Drain(time.Second)

	enqueueN(t, b, 10)

	var result FlushResult
	g.Eventually(results).Should(gomega.Receive(&result))
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 10, result.Failed)
	assert.Equal(t, tsdb.KindUnavailable, result.Kind)
	assert.Equal(t, 5, backend.Calls())
	assert.Equal(t, uint64(10), b.Stats().Dropped)
	assert.Empty(t, backend.Written())

	// the buffer keeps working after a dropped batch
	enqueueN(t, b, 10)
	g.Eventually(backend.BatchSizes).Should(gomega.Equal([]int{10}))
}

func TestRejectedWriteIsNotRetried(t *testing.T) {
	g := gomega.NewWithT(t)
	rejected := &tsdb.Error{Op: "write", Kind: tsdb.KindRejected, Err: errors.New("field type conflict")}
	backend := &tsdb.BackendMock{WriteErrors: []error{rejected}}
	cfg := testConfig()
	cfg.BatchSize = 2
	b := New(cfg, backend, ltime.NewWallWatch())
	b.Start()
	defer b.Drain(time.Second)

	enqueueN(t, b, 2)

	g.Eventually(func() uint64 { return b.Stats().Dropped }).Should(gomega.Equal(uint64(2)))
	assert.Equal(t, 1, backend.Calls())
}

func TestDrainWritesEverything(t *testing.T) {
	backend := &tsdb.BackendMock{WriteDelay: 100 * time.Millisecond}
	b := New(testConfig(), backend, ltime.NewWallWatch())
	b.Start()

	enqueueN(t, b, 10)
	result := b.Drain(time.Second)

	assert.Equal(t, 10, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.NoError(t, result.Err)
	assert.Len(t, backend.Written(), 10)
	assert.Zero(t, b.Len())
}

func TestDrainWithoutStart(t *testing.T) {
	backend := &tsdb.BackendMock{}
	cfg := testConfig()
	cfg.BatchSize = 4
	b := New(cfg, backend, ltime.NewWallWatch())

	enqueueN(t, b, 10)
	result := b.Drain(time.Second)

	assert.Equal(t, 10, result.Succeeded)
	assert.Equal(t, []int{4, 4, 2}, backend.BatchSizes())
}

func TestDrainTimesOut(t *testing.T) {
	backend := &tsdb.BackendMock{WriteDelay: 5 * time.Second}
	cfg := testConfig()
	cfg.BatchSize = 1
	b := New(cfg, backend, ltime.NewWallWatch())
	b.Start()

	enqueueN(t, b, 3)
	started := time.Now()
	result := b.Drain(200 * time.Millisecond)

	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, tsdb.KindTimeout, result.Kind)
	assert.Zero(t, b.Len())
}

func TestQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.QueueCapacity = 3
	b := New(cfg, &tsdb.BackendMock{}, ltime.NewWallWatch())

	enqueueN(t, b, 3)
	err := b.Enqueue(point(3))

	var full *QueueFullError
	require.True(t, errors.As(err, &full))
	assert.Equal(t, 3, full.Capacity)
	assert.Equal(t, uint64(1), b.Stats().Rejected)
	assert.Equal(t, 3, b.Len())
}

func TestInFlightPointsCountTowardsCapacity(t *testing.T) {
	g := gomega.NewWithT(t)
	backend := &tsdb.BackendMock{WriteDelay: time.Second}
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.QueueCapacity = 2
	b := New(cfg, backend, ltime.NewWallWatch())
	b.Start()
	defer b.Drain(2 * time.Second)

	enqueueN(t, b, 2)
	g.Eventually(func() int { return b.Stats().InFlight }).Should(gomega.Equal(2))

	var full *QueueFullError
	assert.True(t, errors.As(b.Enqueue(point(2)), &full))
}

func TestEnqueueAfterDrain(t *testing.T) {
	b := New(testConfig(), &tsdb.BackendMock{}, ltime.NewWallWatch())
	b.Start()
	b.Drain(time.Second)

	assert.ErrorIs(t, b.Enqueue(point(0)), ErrClosed)
	assert.Equal(t, FlushResult{}, b.Drain(time.Second))
}

func TestEnqueueCopiesPoint(t *testing.T) {
	backend := &tsdb.BackendMock{}
	b := New(testConfig(), backend, ltime.NewWallWatch())

	p := point(1)
	require.NoError(t, b.Enqueue(p))
	p.Fields["weight"] = -1
	p.Tags[points.TagUserID] = "someone-else"
	b.Drain(time.Second)

	assert.Equal(t, point(1), backend.Written()[0])
}

func TestNoPointIsSkipped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		backend := &tsdb.BackendMock{
			WriteErrors: rapid.SliceOfN(rapid.SampledFrom([]error{nil, transient()}), 0, 3).Draw(rt, "errors"),
		}
		cfg := testConfig()
		cfg.BatchSize = rapid.IntRange(1, 20).Draw(rt, "batchSize")
		cfg.FlushInterval = time.Millisecond
		b := New(cfg, backend, ltime.NewWallWatch())
		b.Start()

		batch := rapid.SliceOfN(points.MetricPointGenerator(testNow), 0, 60).Draw(rt, "points")
		expected := make([]points.MetricPoint, 0, len(batch))
		for _, p := range batch {
			require.NoError(rt, b.Enqueue(p))
			expected = append(expected, p.Copy())
		}
		result := b.Drain(5 * time.Second)

		stats := b.Stats()
		assert.Equal(rt, uint64(len(batch)), stats.Flushed+stats.Dropped)
		assert.Zero(rt, result.Failed)
		assert.Equal(rt, expected, backend.Written())
	})
}

func TestFlushResultAdd(t *testing.T) {
	var total FlushResult
	total.Add(FlushResult{Succeeded: 3})
	total.Add(FlushResult{Failed: 2, Kind: tsdb.KindTimeout, Err: context.DeadlineExceeded})
	total.Add(FlushResult{Succeeded: 1})

	assert.Equal(t, 4, total.Succeeded)
	assert.Equal(t, 2, total.Failed)
	assert.Equal(t, tsdb.KindTimeout, total.Kind)
	assert.ErrorIs(t, total.Err, context.DeadlineExceeded)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.FlushInterval)
	assert.Equal(t, 10000, cfg.QueueCapacity)
	assert.Equal(t, uint(5), cfg.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 5*time.Second, cfg.RetryMaxDelay)
}
