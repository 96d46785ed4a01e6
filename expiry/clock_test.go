package expiry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"concertbooking/entity"
	"concertbooking/expiry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(now time.Time) expiry.Clock {
	return expiry.NewWithNow(func() time.Time { return now })
}

func TestClock_Format(t *testing.T) {
	now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	clock := fixedClock(now)

	testCases := []struct {
		name      string
		remaining time.Duration
		expected  string
		minutes   int
	}{
		{"nine and a half minutes", 9*time.Minute + 30*time.Second, "9m", 9},
		{"sixty one minutes", 61 * time.Minute, "1h 1m", 61},
		{"exactly one hour", time.Hour, "1h 0m", 60},
		{"two hours five minutes", 2*time.Hour + 5*time.Minute + 59*time.Second, "2h 5m", 125},
		{"under a minute", 30 * time.Second, "Expired", 0},
		{"past", -5 * time.Minute, "Expired", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			deadline := now.Add(tc.remaining)
			assert.Equal(t, tc.expected, clock.Format(deadline))
			assert.Equal(t, tc.minutes, clock.RemainingMinutes(deadline))
		})
	}
}

func TestClock_Passed(t *testing.T) {
	now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	clock := fixedClock(now)

	assert.True(t, clock.Passed(now))
	assert.True(t, clock.Passed(now.Add(-time.Second)))
	assert.False(t, clock.Passed(now.Add(time.Second)))
}

func TestDeadline(t *testing.T) {
	serverNow := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	expiresAt := serverNow.Add(10 * time.Minute)

	t.Run("no expiry", func(t *testing.T) {
		_, ok := expiry.Deadline(entity.Reservation{Status: entity.StatusConfirmed})
		assert.False(t, ok)
	})

	t.Run("without server time the expiry is used as is", func(t *testing.T) {
		deadline, ok := expiry.Deadline(entity.Reservation{ExpiresAt: &expiresAt})
		require.True(t, ok)
		assert.Equal(t, expiresAt, deadline)
	})

	t.Run("anchored on local receipt time", func(t *testing.T) {
		// the client clock runs 3 minutes behind the server
		receivedAt := serverNow.Add(-3 * time.Minute)
		deadline, ok := expiry.Deadline(entity.Reservation{
			ExpiresAt:  &expiresAt,
			ServerTime: serverNow,
			ReceivedAt: receivedAt,
		})
		require.True(t, ok)
		assert.Equal(t, receivedAt.Add(10*time.Minute), deadline)
		assert.Equal(t, "10m", fixedClock(receivedAt).Format(deadline))
	})
}

type movingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *movingClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now
	m.now = m.now.Add(time.Minute)
	return now
}

func TestClock_CountdownStopsOncePassed(t *testing.T) {
	start := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	mc := &movingClock{now: start}
	clock := expiry.NewWithNow(mc.Now)

	var ticks []expiry.Tick
	err := clock.Countdown(context.Background(), start.Add(2*time.Minute), time.Millisecond, func(tick expiry.Tick) {
		ticks = append(ticks, tick)
	})
	require.NoError(t, err)

	require.NotEmpty(t, ticks)
	last := ticks[len(ticks)-1]
	assert.True(t, last.Passed)
	assert.Equal(t, "Expired", last.Remaining)
	for _, tick := range ticks[:len(ticks)-1] {
		assert.False(t, tick.Passed)
	}
}

func TestClock_CountdownCancelled(t *testing.T) {
	now := time.Now()
	clock := fixedClock(now)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu    sync.Mutex
		ticks int
	)
	done := make(chan error, 1)
	go func() {
		done <- clock.Countdown(ctx, now.Add(time.Hour), time.Millisecond, func(tick expiry.Tick) {
			mu.Lock()
			ticks++
			mu.Unlock()
			assert.Equal(t, "1h 0m", tick.Remaining)
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("countdown did not stop after cancellation")
	}
}
