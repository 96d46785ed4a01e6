package message

import (
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// PubSub is the broker the service publishes to and consumes from. Every
// handler gets its own consumer group, so each one sees every message.
type PubSub struct {
	Publisher     message.Publisher
	NewSubscriber func(consumerGroup string) (message.Subscriber, error)
}

func NewRedisPubSub(rdb *redis.Client, logger watermill.LoggerAdapter) (PubSub, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return PubSub{}, fmt.Errorf("creating redis publisher: %w", err)
	}

	return PubSub{
		Publisher: log.CorrelationPublisherDecorator{Publisher: publisher},
		NewSubscriber: func(consumerGroup string) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: consumerGroup,
			}, logger)
		},
	}, nil
}

// NewGoChannelPubSub keeps messages in process. Subscribers share one channel
// pub/sub, which already delivers each message to every subscriber of a topic.
func NewGoChannelPubSub(logger watermill.LoggerAdapter) PubSub {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	return PubSub{
		Publisher: log.CorrelationPublisherDecorator{Publisher: pubSub},
		NewSubscriber: func(string) (message.Subscriber, error) {
			return pubSub, nil
		},
	}
}
