package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"concertbooking/booking"
	"concertbooking/entity"

	"github.com/spf13/cobra"
)

func NewConfirmCommand(rootOpts *RootOptions) *cobra.Command {
	var failed bool

	cmd := &cobra.Command{
		Use:   "confirm <reservation-id>",
		Short: "Report the payment for a pending reservation",
		Long: `Report the payment for a pending reservation.

A successful payment confirms the reservation. With --fail the payment is
reported as failed and the reservation is cancelled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := booking.PaymentSucceeded
			if failed {
				outcome = booking.PaymentFailed
			}
			return runConfirm(cmd.Context(), rootOpts, cmd, args[0], outcome)
		},
	}

	cmd.Flags().BoolVar(&failed, "fail", false, "report a failed payment")

	return cmd
}

func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Give up a pending reservation and release its tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfirm(cmd.Context(), rootOpts, cmd, args[0], booking.PaymentFailed)
		},
	}
}

func runConfirm(ctx context.Context, opts *RootOptions, cmd *cobra.Command, reservationID string, outcome booking.PaymentOutcome) error {
	env, err := opts.environment()
	if err != nil {
		return err
	}

	c := env.controller()
	res, err := c.Confirm(ctx, reservationID, outcome)
	if err != nil {
		return bookingFailure(err)
	}

	return printer(opts, cmd).Result(res, func(w io.Writer) {
		writeReservation(w, res, env.Clock)
		if note := statusNote(res); note != "" {
			fmt.Fprintln(w, note)
		}
	})
}

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status <reservation-id>",
		Short: "Show a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), rootOpts, cmd, args[0], follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "follow a pending reservation until it is resolved")

	return cmd
}

func runStatus(ctx context.Context, opts *RootOptions, cmd *cobra.Command, reservationID string, follow bool) error {
	env, err := opts.environment()
	if err != nil {
		return err
	}

	c := env.controller()
	res, err := c.Fetch(ctx, reservationID)
	if err != nil {
		return bookingFailure(err)
	}

	if follow && res.Status == entity.StatusPending {
		c.Track(res)
		if res, err = watch(ctx, env, c, cmd.ErrOrStderr()); err != nil {
			return bookingFailure(err)
		}
	}

	return printer(opts, cmd).Result(res, func(w io.Writer) {
		writeReservation(w, res, env.Clock)
		if note := statusNote(res); note != "" {
			fmt.Fprintln(w, note)
		}
	})
}

func NewBookingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "List your reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookings(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runBookings(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	env, err := opts.environment()
	if err != nil {
		return err
	}

	userID, err := env.Identity.UserID(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading identity", err)
	}

	reservations, err := env.controller().FetchForUser(ctx, userID)
	if err != nil {
		return bookingFailure(err)
	}

	return printer(opts, cmd).Result(reservations, func(w io.Writer) {
		if len(reservations) == 0 {
			fmt.Fprintln(w, "No bookings yet.")
			return
		}
		for i, r := range reservations {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeReservation(w, r, env.Clock)
		}
	})
}

func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show or change the user ID bookings are made under",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), rootOpts, cmd, set)
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "use this user ID from now on")

	return cmd
}

type identityResult struct {
	UserID string `json:"userId"`
}

func runWhoami(ctx context.Context, opts *RootOptions, cmd *cobra.Command, set string) error {
	env, err := opts.environment()
	if err != nil {
		return err
	}

	if set != "" {
		if err := env.Identity.SetUserID(ctx, set); err != nil {
			var vErr entity.ValidationError
			if errors.As(err, &vErr) {
				return NewExitError(ExitCommandError, vErr.Message)
			}
			return WrapExitError(ExitCommandError, "storing identity", err)
		}
	}

	userID, err := env.Identity.UserID(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading identity", err)
	}

	return printer(opts, cmd).Result(identityResult{UserID: userID}, func(w io.Writer) {
		fmt.Fprintln(w, userID)
	})
}
