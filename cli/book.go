package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"concertbooking/booking"
	"concertbooking/cart"
	"concertbooking/entity"
	"concertbooking/expiry"

	"github.com/spf13/cobra"
)

type BookOptions struct {
	*RootOptions
	Tiers   []string
	Pay     string
	Watch   bool
	Retries int
}

const (
	paySuccess = "success"
	payFailure = "failure"
)

func NewBookCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BookOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "book <concert-id>",
		Short: "Reserve tickets for a concert",
		Long: `Reserve tickets for a concert.

Each --tier flag selects a quantity of one ticket tier, at most 10 per tier.
The reservation is held while payment is pending. Pass --pay to settle it
straight away, or --watch to follow it until it is paid elsewhere or expires.

Examples:
  concerts book <concert-id> --tier <tier-id>=2
  concerts book <concert-id> --tier <tier-id>=1 --tier <tier-id>=3 --pay success
  concerts book <concert-id> --tier <tier-id>=2 --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBook(cmd.Context(), opts, cmd, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Tiers, "tier", "t", nil, "tier and quantity as <tier-id>=<quantity> (repeatable)")
	_ = cmd.MarkFlagRequired("tier")
	cmd.Flags().StringVar(&opts.Pay, "pay", "", "settle the reservation at once (success|failure)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "follow the reservation until it is resolved")
	cmd.Flags().IntVar(&opts.Retries, "retries", -1, "resend attempts after network failures (default $BOOKING_CREATE_RETRIES)")

	return cmd
}

func runBook(ctx context.Context, opts *BookOptions, cmd *cobra.Command, concertID string) error {
	if opts.Pay != "" && opts.Pay != paySuccess && opts.Pay != payFailure {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --pay %q: must be %s or %s", opts.Pay, paySuccess, payFailure))
	}
	if opts.Pay != "" && opts.Watch {
		return NewExitError(ExitCommandError, "--pay and --watch cannot be combined")
	}

	selection, err := parseTiers(opts.Tiers)
	if err != nil {
		return err
	}

	env, err := opts.environment()
	if err != nil {
		return err
	}

	concert, err := getConcert(ctx, env, concertID)
	if err != nil {
		return err
	}

	sel := cart.New()
	sel.Select(concert.ID)
	for _, item := range selection {
		if err := cart.SetChecked(sel, concert, item.TicketTierID, item.Quantity); err != nil {
			return selectionError(concert, item.TicketTierID, err)
		}
	}

	userID, err := env.Identity.UserID(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading identity", err)
	}

	retries := opts.Retries
	if retries < 0 {
		retries = env.CreateRetries
	}

	c := env.controller()
	res, err := c.Checkout(ctx, userID, sel, retries)
	if err != nil {
		return bookingFailure(err)
	}

	p := printer(opts.RootOptions, cmd)
	if !p.json() {
		writeReservation(p.Writer, res, env.Clock)
	}

	var final entity.Reservation
	switch {
	case opts.Pay != "":
		outcome := booking.PaymentSucceeded
		if opts.Pay == payFailure {
			outcome = booking.PaymentFailed
		}
		final, err = c.Confirm(ctx, res.ID, outcome)
	case opts.Watch:
		final, err = watch(ctx, env, c, cmd.ErrOrStderr())
	default:
		return p.Result(res, func(w io.Writer) {
			fmt.Fprintf(w, "\nPay with: concerts confirm %s\n", res.ID)
		})
	}
	if err != nil {
		return bookingFailure(err)
	}

	return p.Result(final, func(w io.Writer) {
		writeOutcome(w, final, env.Clock)
	})
}

// parseTiers reads --tier values. A tier given twice keeps its last quantity.
func parseTiers(values []string) ([]entity.CartItem, error) {
	var items []entity.CartItem
	seen := map[string]int{}

	for _, v := range values {
		tierID, qty, ok := strings.Cut(v, "=")
		tierID = strings.TrimSpace(tierID)
		if !ok || tierID == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --tier %q: expected <tier-id>=<quantity>", v))
		}

		quantity, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || quantity < 1 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid quantity in --tier %q: must be a positive number", v))
		}

		if i, ok := seen[tierID]; ok {
			items[i].Quantity = quantity
			continue
		}
		seen[tierID] = len(items)
		items = append(items, entity.CartItem{TicketTierID: tierID, Quantity: quantity})
	}

	return items, nil
}

func selectionError(concert entity.Concert, tierID string, err error) error {
	tier, _ := concert.Tier(tierID)
	name := FormatTierName(tier.TierType)

	switch {
	case errors.Is(err, cart.ErrWrongConcert):
		return NewExitError(ExitCommandError, fmt.Sprintf("Tier %s is not sold for %s.", tierID, concert.Name))
	case errors.Is(err, cart.ErrTierLimit):
		return NewExitError(ExitCommandError, fmt.Sprintf("At most %d %s tickets can be booked at once.", cart.MaxPerTier, name))
	case errors.Is(err, cart.ErrNotEnoughAvailable):
		return NewExitError(ExitFailure, fmt.Sprintf("Only %s left for %s.", FormatTicketCount(tier.AvailableQuantity), name))
	}
	return WrapExitError(ExitCommandError, "selecting tickets", err)
}

func watch(ctx context.Context, env *Env, c *booking.Controller, w io.Writer) (entity.Reservation, error) {
	return c.Watch(ctx, env.Clock, env.CountdownInterval, func(res entity.Reservation, t expiry.Tick) {
		fmt.Fprintln(w, countdownLine(res, t))
	})
}

func writeOutcome(w io.Writer, r entity.Reservation, clock expiry.Clock) {
	fmt.Fprintln(w)
	writeReservation(w, r, clock)
	if note := statusNote(r); note != "" {
		fmt.Fprintln(w, note)
	}
}
