package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"concertbooking/entity"
	"concertbooking/http"
	"concertbooking/memory"
	"concertbooking/message"
	"concertbooking/message/command"
	"concertbooking/message/event"
	"concertbooking/postgres"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultReservationTTL = 10 * time.Minute
	DefaultSweepInterval  = 5 * time.Second
)

type Deps struct {
	Logger watermill.LoggerAdapter

	// DB selects the postgres store with an outbox. Nil keeps everything in
	// memory.
	DB *sqlx.DB
	// RedisClient selects redis streams as the broker. Nil uses an
	// in-process channel.
	RedisClient *redis.Client

	HTTPAddr       string
	Listener       net.Listener
	ReservationTTL time.Duration
	SweepInterval  time.Duration
	SeedDemoData   bool
}

type store interface {
	http.ConcertRepo
	http.ReservationRepo
	message.OverdueLister
	command.Expirer
	AddConcert(ctx context.Context, concert entity.Concert) error
}

type postgresStore struct {
	postgres.ConcertRepo
	postgres.ReservationRepo
}

type Service struct {
	httpAddr   string
	msgRouter  *message.Router
	forwarder  *message.Forwarder
	httpRouter *echo.Echo
	sweeper    *message.Sweeper
}

func New(ctx context.Context, deps Deps) (*Service, error) {
	logger := deps.Logger
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if deps.ReservationTTL <= 0 {
		deps.ReservationTTL = DefaultReservationTTL
	}
	if deps.SweepInterval <= 0 {
		deps.SweepInterval = DefaultSweepInterval
	}

	pubSub := message.NewGoChannelPubSub(logger)
	if deps.RedisClient != nil {
		var err error
		pubSub, err = message.NewRedisPubSub(deps.RedisClient, logger)
		if err != nil {
			return nil, err
		}
	}

	eventBus, err := message.NewEventBus(pubSub.Publisher, logger)
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}

	commandBus, err := command.NewBus(pubSub.Publisher, logger)
	if err != nil {
		return nil, fmt.Errorf("creating command bus: %w", err)
	}

	var (
		s   store
		fwd *message.Forwarder
	)
	if deps.DB != nil {
		if err := postgres.InitialiseDB(ctx, deps.DB); err != nil {
			return nil, fmt.Errorf("initialising db: %w", err)
		}

		fwd, err = message.NewForwarder(deps.DB, pubSub.Publisher, logger)
		if err != nil {
			return nil, fmt.Errorf("creating forwarder: %w", err)
		}

		s = postgresStore{
			ConcertRepo:     postgres.NewConcertRepo(deps.DB),
			ReservationRepo: postgres.NewReservationRepo(deps.DB, logger, deps.ReservationTTL),
		}
	} else {
		s = memory.NewStore(eventBus, deps.ReservationTTL)
	}

	if deps.SeedDemoData {
		for _, c := range DemoConcerts(time.Now()) {
			if err := s.AddConcert(ctx, c); err != nil {
				return nil, fmt.Errorf("seeding concert %s: %w", c.Name, err)
			}
		}
	}

	readModel := event.NewReservationReadModel()

	msgRouter, err := message.NewRouter(message.RouterDeps{
		Logger:    logger,
		PubSub:    pubSub,
		Expirer:   s,
		ReadModel: readModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating message router: %w", err)
	}

	httpRouter := http.NewRouter(s, s, readModel)
	if deps.Listener != nil {
		httpRouter.Listener = deps.Listener
	}

	return &Service{
		httpAddr:   deps.HTTPAddr,
		msgRouter:  msgRouter,
		forwarder:  fwd,
		httpRouter: httpRouter,
		sweeper:    message.NewSweeper(s, commandBus, deps.SweepInterval),
	}, nil
}

func (s Service) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.msgRouter.Run(runCtx); err != nil {
			return fmt.Errorf("running messaging router: %w", err)
		}

		return nil
	})

	if s.forwarder != nil {
		g.Go(func() error {
			if err := s.forwarder.Run(runCtx); err != nil {
				return fmt.Errorf("running forwarder: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		// Wait for message router
		<-s.msgRouter.Running()

		return s.sweeper.Run(runCtx)
	})

	g.Go(func() error {
		<-s.msgRouter.Running()

		logrus.WithField("addr", s.httpAddr).Info("Starting HTTP server...")
		err := s.httpRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
