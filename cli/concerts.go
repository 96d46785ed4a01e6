package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"concertbooking/booking"
	"concertbooking/entity"

	"github.com/spf13/cobra"
)

func NewConcertsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "concerts",
		Short: "List upcoming concerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConcerts(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runConcerts(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	env, err := opts.environment()
	if err != nil {
		return err
	}

	concerts, err := env.API.ListConcerts(ctx)
	if err != nil {
		return bookingFailure(err)
	}

	return printer(opts, cmd).Result(concerts, func(w io.Writer) {
		if len(concerts) == 0 {
			fmt.Fprintln(w, "No concerts scheduled.")
			return
		}
		for i, c := range concerts {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeConcertLine(w, c)
		}
	})
}

func NewConcertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "concert <concert-id>",
		Short: "Show a concert and its ticket tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConcert(cmd.Context(), rootOpts, cmd, args[0])
		},
	}
}

func runConcert(ctx context.Context, opts *RootOptions, cmd *cobra.Command, concertID string) error {
	env, err := opts.environment()
	if err != nil {
		return err
	}

	concert, err := getConcert(ctx, env, concertID)
	if err != nil {
		return err
	}

	return printer(opts, cmd).Result(concert, func(w io.Writer) {
		writeConcertLine(w, concert)
		fmt.Fprintln(w)
		writeTiers(w, concert.TicketTiers)
	})
}

func getConcert(ctx context.Context, env *Env, concertID string) (entity.Concert, error) {
	concert, err := env.API.GetConcert(ctx, concertID)
	if err != nil {
		if booking.KindOf(err) == booking.KindNotFound {
			return entity.Concert{}, WrapExitError(ExitFailure, fmt.Sprintf("Concert %s not found.", concertID), err)
		}
		return entity.Concert{}, bookingFailure(err)
	}
	return concert, nil
}

func writeTiers(w io.Writer, tiers []entity.TicketTier) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER ID\tTIER\tPRICE\tAVAILABLE")
	for _, t := range tiers {
		available := fmt.Sprintf("%d of %d", t.AvailableQuantity, t.TotalQuantity)
		if t.AvailableQuantity == 0 {
			available = "sold out"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, FormatTierName(t.TierType), FormatCurrency(t.Price), available)
	}
	_ = tw.Flush()
}

func printer(opts *RootOptions, cmd *cobra.Command) Printer {
	return Printer{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
