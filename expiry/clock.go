// Package expiry turns a reservation's server-issued deadline into display
// text. Nothing here is authoritative: only the reservation status returned
// by the booking service decides whether a reservation has expired.
package expiry

import (
	"context"
	"fmt"
	"time"

	"concertbooking/entity"
)

const Expired = "Expired"

type Clock struct {
	now func() time.Time
}

func New() Clock {
	return Clock{now: time.Now}
}

func NewWithNow(now func() time.Time) Clock {
	return Clock{now: now}
}

func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// RemainingMinutes is the number of whole minutes left before deadline,
// floored at zero.
func (c Clock) RemainingMinutes(deadline time.Time) int {
	remaining := deadline.Sub(c.Now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Minute)
}

// Format renders the remaining time as "1h 5m", "9m" or "Expired". Less
// than one whole minute left renders as "Expired".
func (c Clock) Format(deadline time.Time) string {
	minutes := c.RemainingMinutes(deadline)
	if minutes <= 0 {
		return Expired
	}

	hours := minutes / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

func (c Clock) Passed(deadline time.Time) bool {
	return !c.Now().Before(deadline)
}

// Deadline converts a reservation's expiry into a local instant. When the
// reservation carries the server's clock reading, the deadline is anchored on
// the local receipt time instead of the server's wall clock, so a skewed
// client clock does not shorten or stretch the countdown.
func Deadline(r entity.Reservation) (time.Time, bool) {
	if r.ExpiresAt == nil {
		return time.Time{}, false
	}
	if r.ServerTime.IsZero() || r.ReceivedAt.IsZero() {
		return *r.ExpiresAt, true
	}
	return r.ReceivedAt.Add(r.ExpiresAt.Sub(r.ServerTime)), true
}

type Tick struct {
	Remaining string
	Minutes   int
	Passed    bool
}

// Countdown calls render immediately and then on every interval until ctx is
// cancelled or the deadline has passed. The passed state is rendered once
// before Countdown returns nil.
func (c Clock) Countdown(ctx context.Context, deadline time.Time, interval time.Duration, render func(Tick)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tick := Tick{
			Remaining: c.Format(deadline),
			Minutes:   c.RemainingMinutes(deadline),
			Passed:    c.Passed(deadline),
		}
		render(tick)
		if tick.Passed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
