package cli_test

import (
	"encoding/json"
	"testing"
	"time"

	"concertbooking/booking"
	"concertbooking/cli"
	"concertbooking/entity"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func requireExit(t *testing.T, r result, code int, message string) {
	t.Helper()

	require.Error(t, r.err)
	assert.Equal(t, code, cli.GetExitCode(r.err))
	assert.Equal(t, message, cli.Message(r.err))
}

func TestConcerts(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "concerts")

	newGoldie(t).Assert(t, "concerts", []byte(out))
}

func TestConcert(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "concert", "c-1")

	newGoldie(t).Assert(t, "concert", []byte(out))
}

func TestConcert_not_found(t *testing.T) {
	h := newHarness()

	r := h.run(t, "concert", "c-9")

	requireExit(t, r, cli.ExitFailure, "Concert c-9 not found.")
}

func TestBook_leaves_reservation_pending(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "book", "c-1", "--tier", "t-ga=2", "--tier", "t-vip=1")

	newGoldie(t).Assert(t, "book_pending", []byte(out))
	assert.Equal(t, []string{"booking-token-1"}, h.api.tokens)
	assert.Equal(t, "user-abc", h.api.reservations["r-1"].UserID)
}

func TestBook_pay_success(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "book", "c-1", "--tier", "t-ga=2", "--tier", "t-vip=1", "--pay", "success")

	newGoldie(t).Assert(t, "book_paid", []byte(out))
	assert.Equal(t, entity.StatusConfirmed, h.api.reservations["r-1"].Status)
}

func TestBook_pay_failure(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "book", "c-1", "--tier", "t-ga=1", "--pay", "failure")

	assert.Contains(t, out, "Booking BK-TEST0001 (CANCELLED)")
	assert.Contains(t, out, "Payment failed. The tickets have been released.")
	assert.Equal(t, entity.StatusCancelled, h.api.reservations["r-1"].Status)
}

func TestBook_repeated_tier_keeps_last_quantity(t *testing.T) {
	h := newHarness()

	h.mustRun(t, "book", "c-1", "--tier", "t-ga=2", "--tier", "t-ga=4")

	res := h.api.reservations["r-1"]
	require.Len(t, res.Items, 1)
	assert.Equal(t, 4, res.Items[0].Quantity)
}

func TestBook_rejects_selection_before_sending(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		code    int
		message string
	}{
		{
			name:    "more than available",
			args:    []string{"--tier", "t-vip=6"},
			code:    cli.ExitFailure,
			message: "Only 5 tickets left for VIP.",
		},
		{
			name:    "sold out tier",
			args:    []string{"--tier", "t-front=1"},
			code:    cli.ExitFailure,
			message: "Only 0 tickets left for Front Row.",
		},
		{
			name:    "above per-tier limit",
			args:    []string{"--tier", "t-ga=11"},
			code:    cli.ExitCommandError,
			message: "At most 10 General Admission tickets can be booked at once.",
		},
		{
			name:    "unknown tier",
			args:    []string{"--tier", "t-nope=1"},
			code:    cli.ExitCommandError,
			message: "Tier t-nope is not sold for Midnight Echo.",
		},
		{
			name:    "missing quantity",
			args:    []string{"--tier", "t-ga"},
			code:    cli.ExitCommandError,
			message: `invalid --tier "t-ga": expected <tier-id>=<quantity>`,
		},
		{
			name:    "zero quantity",
			args:    []string{"--tier", "t-ga=0"},
			code:    cli.ExitCommandError,
			message: `invalid quantity in --tier "t-ga=0": must be a positive number`,
		},
		{
			name:    "unknown payment outcome",
			args:    []string{"--tier", "t-ga=1", "--pay", "maybe"},
			code:    cli.ExitCommandError,
			message: `invalid --pay "maybe": must be success or failure`,
		},
		{
			name:    "pay and watch",
			args:    []string{"--tier", "t-ga=1", "--pay", "success", "--watch"},
			code:    cli.ExitCommandError,
			message: "--pay and --watch cannot be combined",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()

			r := h.run(t, append([]string{"book", "c-1"}, tc.args...)...)

			requireExit(t, r, tc.code, tc.message)
			assert.Empty(t, h.api.tokens)
			assert.Equal(t, 0, h.tokens.Issued())
		})
	}
}

func TestBook_conflict(t *testing.T) {
	h := newHarness()
	h.api.createErr = booking.NewError(booking.KindConflict, "Not enough tickets available", nil)

	r := h.run(t, "book", "c-1", "--tier", "t-ga=1")

	requireExit(t, r, cli.ExitFailure, "This action conflicts with another operation. Please try again.")
	assert.Len(t, h.api.tokens, 1)
}

func TestBook_retries_transport_failures_with_one_token(t *testing.T) {
	h := newHarness()
	h.api.createErr = booking.NewError(booking.KindTransport, "", nil)

	r := h.run(t, "book", "c-1", "--tier", "t-ga=1", "--retries", "2")

	requireExit(t, r, cli.ExitFailure, "Network error. Please check your internet connection.")
	assert.Equal(t, []string{"booking-token-1", "booking-token-1", "booking-token-1"}, h.api.tokens)
	assert.Equal(t, 1, h.tokens.Issued())
}

func TestBook_json(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "--format", "json", "book", "c-1", "--tier", "t-vip=2")

	var resp struct {
		Status string             `json:"status"`
		Data   entity.Reservation `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "BK-TEST0001", resp.Data.Reference)
	assert.Equal(t, entity.StatusPending, resp.Data.Status)
	assert.Equal(t, "300", resp.Data.TotalAmount.String())
}

func TestBook_watch_until_paid_elsewhere(t *testing.T) {
	h := newHarness()
	h.env.PollInterval = 50 * time.Millisecond
	h.api.statusSequence = []entity.ReservationStatus{entity.StatusConfirmed}

	r := h.run(t, "book", "c-1", "--tier", "t-ga=1", "--watch")
	require.NoError(t, r.err, r.stderr)

	assert.Contains(t, r.stderr, "BK-TEST0001: pay within 10m")
	assert.Contains(t, r.stdout, "Booking BK-TEST0001 (CONFIRMED)")
	assert.Contains(t, r.stdout, "Payment received. Enjoy the show!")
}

func TestStatus_watch_until_expired(t *testing.T) {
	h := newHarness()
	h.mustRun(t, "book", "c-1", "--tier", "t-ga=1")
	h.api.statusSequence = []entity.ReservationStatus{entity.StatusPending, entity.StatusExpired}

	out := h.mustRun(t, "status", "r-1", "--watch")

	assert.Contains(t, out, "Booking BK-TEST0001 (EXPIRED)")
	assert.Contains(t, out, "The reservation expired before payment. The tickets have been released.")
	assert.NotContains(t, out, "Expires in")
}

func TestStatus_not_found(t *testing.T) {
	h := newHarness()

	r := h.run(t, "status", "r-404")

	requireExit(t, r, cli.ExitFailure, "Resource not found.")
}

func TestConfirm_twice_conflicts(t *testing.T) {
	h := newHarness()
	h.mustRun(t, "book", "c-1", "--tier", "t-ga=1")

	out := h.mustRun(t, "confirm", "r-1")
	assert.Contains(t, out, "Booking BK-TEST0001 (CONFIRMED)")

	r := h.run(t, "confirm", "r-1", "--fail")
	requireExit(t, r, cli.ExitFailure, "This action conflicts with another operation. Please try again.")
	assert.Equal(t, entity.StatusConfirmed, h.api.reservations["r-1"].Status)
}

func TestCancel(t *testing.T) {
	h := newHarness()
	h.mustRun(t, "book", "c-1", "--tier", "t-ga=1")

	out := h.mustRun(t, "cancel", "r-1")

	assert.Contains(t, out, "Booking BK-TEST0001 (CANCELLED)")
	assert.Equal(t, entity.StatusCancelled, h.api.reservations["r-1"].Status)
}

func TestBookings(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "bookings")
	assert.Equal(t, "No bookings yet.\n", out)

	h.mustRun(t, "book", "c-1", "--tier", "t-ga=2", "--tier", "t-vip=1")
	h.mustRun(t, "book", "c-1", "--tier", "t-vip=2")

	out = h.mustRun(t, "bookings")
	newGoldie(t).Assert(t, "bookings", []byte(out))
}

func TestWhoami(t *testing.T) {
	h := newHarness()

	out := h.mustRun(t, "--format", "json", "whoami")
	newGoldie(t).Assert(t, "whoami_json", []byte(out))

	r := h.run(t, "whoami", "--set", "ab")
	requireExit(t, r, cli.ExitCommandError, "User ID must be at least 3 characters")

	out = h.mustRun(t, "whoami", "--set", "user-xyz")
	assert.Equal(t, "user-xyz\n", out)
	assert.Equal(t, "user-xyz", h.identity.userID)
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness()

	r := h.run(t, "--format", "xml", "concerts")

	require.Error(t, r.err)
	assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(r.err))
	assert.Contains(t, r.err.Error(), `invalid format "xml"`)
}
