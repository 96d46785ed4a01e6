package message

import (
	"context"
	"fmt"
	"time"

	"concertbooking/entity"
	"concertbooking/message/command"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

const sweepBatchSize = 100

type OverdueLister interface {
	ListOverdue(ctx context.Context, limit int) ([]entity.Reservation, error)
}

type CommandSender interface {
	Send(ctx context.Context, cmd any) error
}

// Sweeper periodically asks for every PENDING reservation past its deadline
// to be expired. Sending the same command twice is harmless.
type Sweeper struct {
	lister   OverdueLister
	sender   CommandSender
	interval time.Duration
}

func NewSweeper(lister OverdueLister, sender CommandSender, interval time.Duration) *Sweeper {
	if lister == nil {
		panic("lister is nil")
	}
	if sender == nil {
		panic("sender is nil")
	}

	return &Sweeper{
		lister:   lister,
		sender:   sender,
		interval: interval,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.FromContext(ctx).WithError(err).Error("Expiry sweep failed")
			}
		}
	}
}

// Sweep sends one ExpireReservation per overdue reservation and returns how
// many were sent.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	overdue, err := s.lister.ListOverdue(ctx, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing overdue reservations: %w", err)
	}

	sent := 0
	for _, res := range overdue {
		var deadline time.Time
		if res.ExpiresAt != nil {
			deadline = *res.ExpiresAt
		}

		if err := s.sender.Send(ctx, command.NewExpireReservation(res.ID, deadline)); err != nil {
			return sent, fmt.Errorf("sending expire command for %s: %w", res.ID, err)
		}
		sent++
	}

	if sent > 0 {
		log.FromContext(ctx).WithField("count", sent).Info("Requested expiry of overdue reservations")
	}

	return sent, nil
}
