// Package booking drives a reservation from the moment a selection is
// submitted until the booking service reports a terminal status.
package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"concertbooking/cart"
	"concertbooking/entity"
	"concertbooking/expiry"
	"concertbooking/idempotency"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/cenkalti/backoff/v3"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval  = 10 * time.Second
	defaultRetryInterval = 200 * time.Millisecond
)

var ErrNothingTracked = errors.New("no reservation is being tracked")

type PaymentOutcome bool

const (
	PaymentFailed    PaymentOutcome = false
	PaymentSucceeded PaymentOutcome = true
)

// Attempt is one logical create. Every send of an attempt carries the same
// token.
type Attempt struct {
	Token   string
	Request entity.ReservationRequest
}

type Option func(*Controller)

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = d
	}
}

// WithRetryInterval sets the first delay between resends of a create attempt.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.retryInterval = d
	}
}

// WithOnChange registers fn to be called with every accepted status update of
// the tracked reservation.
func WithOnChange(fn func(entity.Reservation)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

type Controller struct {
	client        Client
	tokens        idempotency.Generator
	pollInterval  time.Duration
	retryInterval time.Duration
	onChange      func(entity.Reservation)

	mu      sync.Mutex
	current *entity.Reservation
}

func NewController(client Client, tokens idempotency.Generator, opts ...Option) *Controller {
	if client == nil {
		panic("missing client")
	}
	if tokens == nil {
		tokens = idempotency.UUIDv7Generator{}
	}

	c := &Controller{
		client:        client,
		tokens:        tokens,
		pollInterval:  DefaultPollInterval,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewAttempt validates the selection and mints the token for it. Nothing is
// sent to the booking service.
func (c *Controller) NewAttempt(userID, concertID string, items []entity.CartItem) (Attempt, error) {
	req := entity.ReservationRequest{
		UserID:    userID,
		ConcertID: concertID,
		Items:     append([]entity.CartItem(nil), items...),
	}

	if err := req.Validate(); err != nil {
		var vErr entity.ValidationError
		if errors.As(err, &vErr) {
			return Attempt{}, NewError(KindInvalidRequest, vErr.Message, err)
		}
		return Attempt{}, NewError(KindInvalidRequest, "", err)
	}

	return Attempt{
		Token:   c.tokens.NewToken(),
		Request: req,
	}, nil
}

// Submit sends the attempt once. A created reservation becomes the tracked
// one.
func (c *Controller) Submit(ctx context.Context, a Attempt) (entity.Reservation, error) {
	res, err := c.client.CreateReservation(ctx, a.Token, a.Request)
	if err != nil {
		return entity.Reservation{}, asError(err)
	}

	c.Track(res)
	return res, nil
}

// SubmitWithRetry sends the attempt and resends it, with the same token, after
// transport failures, up to retries more times. Any other failure is returned
// at once.
func (c *Controller) SubmitWithRetry(ctx context.Context, a Attempt, retries int) (entity.Reservation, error) {
	if retries <= 0 {
		return c.Submit(ctx, a)
	}

	logger := log.FromContext(ctx).WithField("idempotency_key", a.Token)

	var res entity.Reservation
	operation := func() error {
		created, err := c.Submit(ctx, a)
		if err == nil {
			res = created
			return nil
		}
		if Retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
	notify := func(err error, next time.Duration) {
		logger.WithError(err).Warnf("Creating reservation failed, resending in %s", next)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return entity.Reservation{}, err
	}

	return res, nil
}

func (c *Controller) Create(ctx context.Context, userID, concertID string, items []entity.CartItem) (entity.Reservation, error) {
	a, err := c.NewAttempt(userID, concertID, items)
	if err != nil {
		return entity.Reservation{}, err
	}

	return c.Submit(ctx, a)
}

// Checkout reserves the contents of sel and clears it once the booking service
// has accepted the reservation. A failed checkout leaves sel untouched.
func (c *Controller) Checkout(ctx context.Context, userID string, sel *cart.Cart, retries int) (entity.Reservation, error) {
	a, err := c.NewAttempt(userID, sel.ConcertID(), sel.Items())
	if err != nil {
		return entity.Reservation{}, err
	}

	res, err := c.SubmitWithRetry(ctx, a, retries)
	if err != nil {
		return entity.Reservation{}, err
	}

	sel.Clear()
	return res, nil
}

// Confirm reports the payment outcome. A failed payment is a normal result:
// the reservation comes back CANCELLED and no error is returned.
func (c *Controller) Confirm(ctx context.Context, reservationID string, outcome PaymentOutcome) (entity.Reservation, error) {
	if reservationID == "" {
		return entity.Reservation{}, NewError(KindInvalidRequest, "Reservation ID is required", nil)
	}

	res, err := c.client.ConfirmReservation(ctx, reservationID, bool(outcome))
	if err != nil {
		return entity.Reservation{}, asError(err)
	}

	c.observe(res)
	return res, nil
}

// Abort gives up on a pending reservation, releasing its tickets.
func (c *Controller) Abort(ctx context.Context, reservationID string) (entity.Reservation, error) {
	return c.Confirm(ctx, reservationID, PaymentFailed)
}

func (c *Controller) Fetch(ctx context.Context, reservationID string) (entity.Reservation, error) {
	res, err := c.client.GetReservation(ctx, reservationID)
	if err != nil {
		return entity.Reservation{}, asError(err)
	}

	c.observe(res)
	return res, nil
}

func (c *Controller) FetchForUser(ctx context.Context, userID string) ([]entity.Reservation, error) {
	reservations, err := c.client.GetReservationsForUser(ctx, userID)
	if err != nil {
		return nil, asError(err)
	}

	return reservations, nil
}

// Track makes res the reservation whose status the controller follows.
func (c *Controller) Track(res entity.Reservation) {
	c.mu.Lock()
	c.current = &res
	c.mu.Unlock()

	c.notify(res)
}

// Untrack stops following the current reservation. Responses that arrive for
// it afterwards are discarded.
func (c *Controller) Untrack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

func (c *Controller) Current() (entity.Reservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return entity.Reservation{}, false
	}
	return *c.current, true
}

// CanConfirm reports whether the confirm action should be offered.
func (c *Controller) CanConfirm() bool {
	res, ok := c.Current()
	return ok && res.Status == entity.StatusPending
}

// observe applies a resolved response to the tracked reservation. Updates for
// another reservation are dropped, and a PENDING response never replaces a
// terminal status already seen.
func (c *Controller) observe(res entity.Reservation) bool {
	c.mu.Lock()
	if c.current == nil || c.current.ID != res.ID {
		c.mu.Unlock()
		return false
	}
	if c.current.Status.Terminal() && !res.Status.Terminal() {
		c.mu.Unlock()
		return false
	}
	c.current = &res
	c.mu.Unlock()

	c.notify(res)
	return true
}

func (c *Controller) notify(res entity.Reservation) {
	if c.onChange != nil {
		c.onChange(res)
	}
}

// Poll re-fetches the tracked reservation every poll interval while it is
// PENDING. It returns nil once a terminal status is observed or nothing is
// tracked any more, and stops with the error on NotFound. Other failures are
// logged and the next tick tries again.
func (c *Controller) Poll(ctx context.Context) error {
	logger := log.FromContext(ctx)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		res, ok := c.Current()
		if !ok || res.Status.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if _, err := c.Fetch(ctx, res.ID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if KindOf(err) == KindNotFound {
				return err
			}
			logger.WithError(err).WithField("reservation_id", res.ID).Warn("Refreshing reservation status failed")
		}
	}
}

// Watch polls the tracked reservation and renders its countdown until the
// booking service reports a terminal status. The countdown stops as soon as
// the reservation leaves PENDING.
func (c *Controller) Watch(
	ctx context.Context,
	clock expiry.Clock,
	tick time.Duration,
	render func(entity.Reservation, expiry.Tick),
) (entity.Reservation, error) {
	res, ok := c.Current()
	if !ok {
		return entity.Reservation{}, ErrNothingTracked
	}
	if res.Status.Terminal() {
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	countdownCtx, stopCountdown := context.WithCancel(gctx)
	defer stopCountdown()

	g.Go(func() error {
		defer stopCountdown()
		return c.Poll(gctx)
	})

	if deadline, ok := expiry.Deadline(res); ok {
		g.Go(func() error {
			err := clock.Countdown(countdownCtx, deadline, tick, func(t expiry.Tick) {
				cur, ok := c.Current()
				if !ok || cur.Status.Terminal() {
					return
				}
				render(cur, t)
			})
			if errors.Is(err, context.Canceled) && ctx.Err() == nil {
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	cur, _ := c.Current()
	return cur, err
}
