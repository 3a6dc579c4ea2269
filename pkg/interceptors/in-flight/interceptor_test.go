package interceptors_inflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

func TestCore(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := Config{
			Size:     rapid.Uint64Range(0, 10).Draw(t, "size"),
			Blocking: rapid.Bool().Draw(t, "blocking"),
		}

		interceptor := NewInterceptor(cfg)
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		// a blocking check only returns once it holds a slot or its context is done, so
		// requests beyond the limit come from clients that already went away
		nRequests := rapid.IntRange(0, 20).Draw(t, "n_requests")
		results := make([]checkResult, nRequests)
		for i := 0; i < nRequests; i++ {
			ctx := context.Background()
			if cfg.Blocking && cfg.Size != 0 && uint64(i) >= cfg.Size {
				ctx = cancelled
			}
			results[i] = interceptor.check(ctx)
		}

		defer func() {
			for i := 0; i < nRequests; i++ {
				results[i].done()
			}
		}()

		minAllowed := uint64(nRequests)
		if minAllowed > cfg.Size && cfg.Size != 0 {
			minAllowed = cfg.Size
		}

		countAllowed := uint64(0)
		countErrors := uint64(0)
		for i := 0; i < nRequests; i++ {
			if results[i].allowed {
				countAllowed++
			}
			if results[i].err != nil {
				countErrors++
			}
		}

		assert.Equal(t, minAllowed, countAllowed)
		if cfg.Blocking {
			assert.Equal(t, uint64(nRequests)-minAllowed, countErrors)
		} else {
			assert.Equal(t, uint64(0), countErrors)
		}
	})
}

func TestBlockingFailsForGoneClients(t *testing.T) {
	interceptor := NewInterceptor(Config{Size: 2, Blocking: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := interceptor.check(ctx)

	assert.False(t, result.allowed)
	assert.ErrorIs(t, result.err, context.Canceled)
	held := interceptor.check(context.Background())
	assert.True(t, held.allowed)
	held.done()
}

func TestBlockingWaitsForASlot(t *testing.T) {
	interceptor := NewInterceptor(Config{Size: 1, Blocking: true})
	held := interceptor.check(context.Background())
	require.True(t, held.allowed)

	results := make(chan checkResult, 1)
	go func() {
		results <- interceptor.check(context.Background())
	}()
	select {
	case <-results:
		t.Fatal("request went through while the only slot was held")
	case <-time.After(50 * time.Millisecond):
	}

	held.done()
	select {
	case result := <-results:
		assert.True(t, result.allowed)
		result.done()
	case <-time.After(time.Second):
		t.Fatal("queued request was not let through")
	}
}

func TestClientLeavingTheQueueGets499(t *testing.T) {
	interceptor := NewInterceptor(Config{Size: 1, Blocking: true})
	held := interceptor.check(context.Background())
	defer held.done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	recorder := httptest.NewRecorder()
	called := false
	interceptor.ToHTTP()(&sbhttpbase.Request{
		Writer:  recorder,
		Request: httptest.NewRequest(http.MethodGet, "/api/metrics/query", nil).WithContext(ctx),
	}, func(request *sbhttpbase.Request) {
		called = true
	})

	assert.False(t, called)
	assert.Equal(t, 499, recorder.Code)
}

func TestNonBlockingAnswersTooManyRequests(t *testing.T) {
	interceptor := NewInterceptor(Config{Size: 1, Blocking: false})
	held := interceptor.check(context.Background())
	defer held.done()

	recorder := httptest.NewRecorder()
	called := false
	interceptor.ToHTTP()(&sbhttpbase.Request{
		Writer:  recorder,
		Request: httptest.NewRequest(http.MethodPost, "/api/metrics", nil),
	}, func(request *sbhttpbase.Request) {
		called = true
	})

	assert.False(t, called)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "1", recorder.Header().Get("Retry-After"))
}
