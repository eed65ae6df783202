package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(t *testing.T, retries int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		MaxRetries:    retries,
		Timeout:       5 * time.Second,
		HostReqPerSec: 1000,
		HostBurst:     100,
	})
	require.NoError(t, err)
	return c
}

func TestGetOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte("page body"))
	}))
	defer srv.Close()

	body, status, err := fastClient(t, 3).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "page body", body)
}

func TestGetNonRetryable4xxFailsImmediately(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, status, err := fastClient(t, 3).Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, int32(1), hits.Load(), "a 404 must not be retried")
}

func TestGetServerErrorExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := fastClient(t, 1).Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetRecoversAfterServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, _, err := fastClient(t, 3).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGet429HonorsRetryAfterWithoutDoubleWaiting(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	start := time.Now()
	body, _, err := fastClient(t, 3).Get(context.Background(), srv.URL)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(2), hits.Load())
	assert.GreaterOrEqual(t, elapsed, time.Second, "Retry-After must be honored")
	// the backoff for the next attempt starts at 2s, so stacking it on top
	// of the Retry-After wait would push past 3s
	assert.Less(t, elapsed, 2*time.Second, "Retry-After replaces the backoff, never adds to it")
}

func TestGet429OnFinalAttemptFailsWithoutWaiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	start := time.Now()
	_, _, err := fastClient(t, 1).Get(context.Background(), srv.URL)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Less(t, elapsed, time.Second, "no wait when there is no attempt left")
}

func TestRetryAfter(t *testing.T) {
	res := &http.Response{Header: http.Header{}}
	assert.Zero(t, retryAfter(res), "no header means no hint")

	res.Header.Set("Retry-After", "30")
	assert.Equal(t, 30*time.Second, retryAfter(res))

	res.Header.Set("Retry-After", time.Now().Add(45*time.Second).UTC().Format(http.TimeFormat))
	got := retryAfter(res)
	assert.Greater(t, got, 30*time.Second)
	assert.LessOrEqual(t, got, 45*time.Second)

	res.Header.Set("Retry-After", "garbage")
	assert.Zero(t, retryAfter(res))

	// dates already in the past are not a wait
	res.Header.Set("Retry-After", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	assert.Zero(t, retryAfter(res))
}

func TestGetHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := fastClient(t, 3).Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
