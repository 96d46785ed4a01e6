package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"concertbooking/booking"
	"concertbooking/cli"
	"concertbooking/entity"
	"concertbooking/expiry"
	"concertbooking/idempotency"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func midnightEcho() entity.Concert {
	return entity.Concert{
		ID:        "c-1",
		Name:      "Midnight Echo",
		Venue:     "Blue Hall",
		EventDate: time.Date(2026, 11, 20, 20, 0, 0, 0, time.UTC),
		TicketTiers: []entity.TicketTier{
			{ID: "t-vip", TierType: entity.TierVIP, Price: price("150"), TotalQuantity: 20, AvailableQuantity: 5},
			{ID: "t-front", TierType: entity.TierFrontRow, Price: price("1250.5"), TotalQuantity: 10, AvailableQuantity: 0},
			{ID: "t-ga", TierType: entity.TierGA, Price: price("49.99"), TotalQuantity: 200, AvailableQuantity: 120},
		},
	}
}

func soldOutShow() entity.Concert {
	return entity.Concert{
		ID:        "c-2",
		Name:      "Sold Out Show",
		Venue:     "Small Room",
		EventDate: time.Date(2026, 12, 1, 19, 30, 0, 0, time.UTC),
		TicketTiers: []entity.TicketTier{
			{ID: "t-small", TierType: entity.TierGA, Price: price("25"), TotalQuantity: 50, AvailableQuantity: 0},
		},
	}
}

// fakeAPI is a booking service that resolves everything in memory with
// predictable IDs and timestamps.
type fakeAPI struct {
	lock sync.Mutex

	concerts     []entity.Concert
	reservations map[string]entity.Reservation
	order        []string

	// statusSequence, when set, is served by GetReservation one status per
	// call, the last one repeating.
	statusSequence []entity.ReservationStatus
	getCalls       int

	createErr error
	tokens    []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		concerts:     []entity.Concert{midnightEcho(), soldOutShow()},
		reservations: map[string]entity.Reservation{},
	}
}

func (f *fakeAPI) ListConcerts(ctx context.Context) ([]entity.Concert, error) {
	return f.concerts, nil
}

func (f *fakeAPI) GetConcert(ctx context.Context, concertID string) (entity.Concert, error) {
	for _, c := range f.concerts {
		if c.ID == concertID {
			return c, nil
		}
	}
	return entity.Concert{}, booking.NewError(booking.KindNotFound, "Resource not found", nil)
}

func (f *fakeAPI) CreateReservation(ctx context.Context, token string, req entity.ReservationRequest) (entity.Reservation, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.tokens = append(f.tokens, token)
	if f.createErr != nil {
		return entity.Reservation{}, f.createErr
	}

	concert, err := f.GetConcert(ctx, req.ConcertID)
	if err != nil {
		return entity.Reservation{}, err
	}

	n := len(f.order) + 1
	res, err := entity.NewReservation(
		fmt.Sprintf("r-%d", n),
		fmt.Sprintf("BK-TEST%04d", n),
		req,
		concert,
		now,
		10*time.Minute,
	)
	if err != nil {
		return entity.Reservation{}, booking.NewError(booking.KindInvalidRequest, err.Error(), err)
	}

	f.reservations[res.ID] = res
	f.order = append(f.order, res.ID)
	return res, nil
}

func (f *fakeAPI) ConfirmReservation(ctx context.Context, reservationID string, paymentSuccess bool) (entity.Reservation, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	res, ok := f.reservations[reservationID]
	if !ok {
		return entity.Reservation{}, booking.NewError(booking.KindNotFound, "Resource not found", nil)
	}
	if err := res.Resolve(paymentSuccess, now); err != nil {
		return entity.Reservation{}, booking.NewError(booking.KindConflict, "Reservation is not pending", err)
	}
	f.reservations[reservationID] = res
	return res, nil
}

func (f *fakeAPI) GetReservation(ctx context.Context, reservationID string) (entity.Reservation, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	res, ok := f.reservations[reservationID]
	if !ok {
		return entity.Reservation{}, booking.NewError(booking.KindNotFound, "Resource not found", nil)
	}

	if len(f.statusSequence) > 0 {
		i := f.getCalls
		if i >= len(f.statusSequence) {
			i = len(f.statusSequence) - 1
		}
		res.Status = f.statusSequence[i]
	}
	f.getCalls++

	return res, nil
}

func (f *fakeAPI) GetReservationsForUser(ctx context.Context, userID string) ([]entity.Reservation, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	reservations := []entity.Reservation{}
	for i := len(f.order) - 1; i >= 0; i-- {
		res := f.reservations[f.order[i]]
		if res.UserID == userID {
			reservations = append(reservations, res)
		}
	}
	return reservations, nil
}

type fakeIdentity struct {
	userID string
}

func (i *fakeIdentity) UserID(ctx context.Context) (string, error) {
	return i.userID, nil
}

func (i *fakeIdentity) SetUserID(ctx context.Context, userID string) error {
	if len(userID) < 3 {
		return entity.ValidationError{Message: "User ID must be at least 3 characters"}
	}
	i.userID = userID
	return nil
}

type harness struct {
	api      *fakeAPI
	identity *fakeIdentity
	tokens   *idempotency.FixedGenerator
	env      *cli.Env
}

func newHarness() *harness {
	h := &harness{
		api:      newFakeAPI(),
		identity: &fakeIdentity{userID: "user-abc"},
		tokens:   idempotency.NewFixedGenerator("booking-token-1", "booking-token-2"),
	}
	h.env = &cli.Env{
		API:               h.api,
		Identity:          h.identity,
		Clock:             expiry.NewWithNow(func() time.Time { return now }),
		Tokens:            h.tokens,
		PollInterval:      10 * time.Millisecond,
		CountdownInterval: 10 * time.Millisecond,
		CreateRetries:     2,
	}
	return h
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (h *harness) run(t *testing.T, args ...string) result {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := cli.NewRootCommand(cli.WithEnv(h.env))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	r := h.run(t, args...)
	require.NoError(t, r.err, "stderr: %s", r.stderr)
	return r.stdout
}
