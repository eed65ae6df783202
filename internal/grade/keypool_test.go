package grade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the pool deterministically: sleep advances the clock
// instead of blocking.
type fakeClock struct {
	at     time.Time
	slept  []time.Duration
	sleepE error
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.at }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	if c.sleepE != nil {
		return c.sleepE
	}
	c.at = c.at.Add(d)
	return nil
}

func newTestPool(keys []string, cooldown, maxWait time.Duration) (*keyPool, *fakeClock) {
	clock := newFakeClock()
	p := newKeyPool(keys, cooldown, maxWait)
	p.now = clock.now
	p.sleep = clock.sleep
	return p, clock
}

func TestAcquireRoundRobin(t *testing.T) {
	p, _ := newTestPool([]string{"k1", "k2", "k3"}, time.Minute, time.Second)
	ctx := context.Background()

	for _, want := range []string{"k1", "k2", "k3", "k1"} {
		_, key, err := p.acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, key)
	}
}

func TestAcquireSkipsCoolingCredentials(t *testing.T) {
	p, clock := newTestPool([]string{"k1", "k2"}, 20*time.Minute, time.Second)
	ctx := context.Background()

	idx, key, err := p.acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, "k1", key)
	p.markCooling(idx)

	// k1 is out for 20 minutes; both next picks land on k2
	for i := 0; i < 2; i++ {
		_, key, err = p.acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, "k2", key)
	}

	// past the cooldown k1 is usable again
	clock.at = clock.at.Add(21 * time.Minute)
	_, key, err = p.acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k1", key)
}

func TestAcquireWaitsForEarliestWake(t *testing.T) {
	p, clock := newTestPool([]string{"k1", "k2"}, 20*time.Minute, time.Hour)
	ctx := context.Background()

	i1, _, err := p.acquire(ctx)
	require.NoError(t, err)
	p.markCooling(i1)

	// stagger the second cooldown so the wake-ups differ
	clock.at = clock.at.Add(5 * time.Minute)
	i2, _, err := p.acquire(ctx)
	require.NoError(t, err)
	p.markCooling(i2)

	// k1 wakes in 15 minutes, k2 in 20; the pool must sleep only 15
	_, key, err := p.acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k1", key)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 15*time.Minute, clock.slept[0])
}

func TestAcquireBoundedByMaxWait(t *testing.T) {
	p, clock := newTestPool([]string{"k1"}, 20*time.Minute, 2*time.Minute)
	ctx := context.Background()

	idx, _, err := p.acquire(ctx)
	require.NoError(t, err)
	p.markCooling(idx)

	_, _, err = p.acquire(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 2*time.Minute, clock.slept[0], "wait is capped, not the full cooldown")
}

func TestAcquirePropagatesCancellation(t *testing.T) {
	p, clock := newTestPool([]string{"k1"}, 20*time.Minute, time.Minute)
	ctx := context.Background()

	idx, _, err := p.acquire(ctx)
	require.NoError(t, err)
	p.markCooling(idx)

	clock.sleepE = context.Canceled
	_, _, err = p.acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireEmptyPool(t *testing.T) {
	p, _ := newTestPool(nil, time.Minute, time.Second)
	_, _, err := p.acquire(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}
