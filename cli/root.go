// Package cli is the command line front end of the booking client: browse
// concerts, reserve tickets, pay, and follow a reservation until it resolves.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string
	APIURL    string
	StatePath string

	env     *Env
	openEnv func(opts *RootOptions) (*Env, error)
}

var ValidFormats = []string{"text", "json"}

type Option func(*RootOptions)

// WithEnv makes every command use env instead of one built from config.
func WithEnv(env *Env) Option {
	return func(o *RootOptions) {
		o.env = env
	}
}

func NewRootCommand(opts ...Option) *cobra.Command {
	rootOpts := &RootOptions{openEnv: OpenEnv}
	for _, opt := range opts {
		opt(rootOpts)
	}

	cmd := &cobra.Command{
		Use:   "concerts",
		Short: "Book concert tickets",
		Long: `Browse concerts, reserve tickets and pay for them.

A reservation holds tickets for a limited time. Pay before it expires or the
tickets are released.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(rootOpts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", rootOpts.Format, ValidFormats))
			}

			logrus.SetOutput(cmd.ErrOrStderr())
			if rootOpts.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.closeEnv()
		},
	}

	cmd.PersistentFlags().BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&rootOpts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&rootOpts.APIURL, "api", "", "booking API base URL (default $BOOKING_API_URL)")
	cmd.PersistentFlags().StringVar(&rootOpts.StatePath, "state", "", "local state file (default $BOOKING_STATE_PATH)")

	cmd.AddCommand(NewConcertsCommand(rootOpts))
	cmd.AddCommand(NewConcertCommand(rootOpts))
	cmd.AddCommand(NewBookCommand(rootOpts))
	cmd.AddCommand(NewConfirmCommand(rootOpts))
	cmd.AddCommand(NewCancelCommand(rootOpts))
	cmd.AddCommand(NewStatusCommand(rootOpts))
	cmd.AddCommand(NewBookingsCommand(rootOpts))
	cmd.AddCommand(NewWhoamiCommand(rootOpts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// environment opens the environment on first use, so commands that fail
// flag validation never touch the network or the state file.
func (o *RootOptions) environment() (*Env, error) {
	if o.env != nil {
		return o.env, nil
	}

	env, err := o.openEnv(o)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "setting up", err)
	}
	o.env = env
	return env, nil
}

func (o *RootOptions) closeEnv() error {
	if o.env == nil || o.env.Close == nil {
		return nil
	}
	return o.env.Close()
}
