package message

import (
	"fmt"

	"concertbooking/message/command"
	"concertbooking/message/event"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

type RouterDeps struct {
	Logger    watermill.LoggerAdapter
	PubSub    PubSub
	Expirer   command.Expirer
	ReadModel *event.ReservationReadModel
}

type Router struct {
	*message.Router
}

func NewRouter(deps RouterDeps) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	addMiddlewares(router, deps.Logger)

	ep, err := cqrs.NewEventProcessorWithConfig(router, event.NewProcessorConfig(deps.Logger, deps.PubSub.NewSubscriber))
	if err != nil {
		return nil, fmt.Errorf("creating event processor: %w", err)
	}

	if err := ep.AddHandlers(deps.ReadModel.Handlers()...); err != nil {
		return nil, fmt.Errorf("adding event handlers: %w", err)
	}

	cp, err := cqrs.NewCommandProcessorWithConfig(router, command.NewProcessorConfig(deps.Logger, deps.PubSub.NewSubscriber))
	if err != nil {
		return nil, fmt.Errorf("creating command processor: %w", err)
	}

	handler := command.NewHandler(deps.Expirer)
	err = cp.AddHandlers(
		cqrs.NewCommandHandler("expire-reservation", handler.ExpireReservation),
	)
	if err != nil {
		return nil, fmt.Errorf("adding command handlers: %w", err)
	}

	return &Router{router}, nil
}
