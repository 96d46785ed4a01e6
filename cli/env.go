package cli

import (
	"context"
	"fmt"
	"time"

	"concertbooking/booking"
	"concertbooking/clients"
	"concertbooking/config"
	"concertbooking/db"
	"concertbooking/expiry"
	"concertbooking/idempotency"
)

const defaultCountdownInterval = time.Second

type API interface {
	booking.Client
	booking.Catalog
}

type Identity interface {
	UserID(ctx context.Context) (string, error)
	SetUserID(ctx context.Context, userID string) error
}

// Env is everything a command needs to talk to the booking service.
type Env struct {
	API               API
	Identity          Identity
	Clock             expiry.Clock
	Tokens            idempotency.Generator
	PollInterval      time.Duration
	CountdownInterval time.Duration
	CreateRetries     int
	Close             func() error
}

func (e *Env) controller(opts ...booking.Option) *booking.Controller {
	opts = append([]booking.Option{booking.WithPollInterval(e.PollInterval)}, opts...)
	return booking.NewController(e.API, e.Tokens, opts...)
}

// OpenEnv builds the environment from config, with flags taking precedence.
func OpenEnv(opts *RootOptions) (*Env, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.StatePath != "" {
		cfg.StatePath = opts.StatePath
	}

	api, err := clients.NewBookingClient(cfg.APIURL, clients.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("creating booking client: %w", err)
	}

	stateDB, err := db.Open(context.Background(), cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("opening local state: %w", err)
	}

	return &Env{
		API:               api,
		Identity:          db.NewIdentityRepo(stateDB),
		Clock:             expiry.New(),
		Tokens:            idempotency.UUIDv7Generator{},
		PollInterval:      cfg.PollInterval,
		CountdownInterval: defaultCountdownInterval,
		CreateRetries:     cfg.CreateRetries,
		Close:             stateDB.Close,
	}, nil
}
