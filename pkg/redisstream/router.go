package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Bus couples a publisher/subscriber pair with a watermill router that runs
// the handlers consuming it.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	router *message.Router
	client *redis.Client
	logger watermill.LoggerAdapter
}

// BuildBus returns a Redis Streams backed bus when s.Enabled is set and an
// in-process channel bus otherwise.
func BuildBus(s Settings) (*Bus, error) {
	logger := NewZerologAdapter(log.Logger)
	b := &Bus{logger: logger}

	if !s.Enabled {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		b.Publisher = ch
		b.Subscriber = ch
	} else {
		b.client = redis.NewClient(&redis.Options{Addr: s.Addr})
		marshaler := rstream.DefaultMarshallerUnmarshaller{}

		pub, err := rstream.NewPublisher(rstream.PublisherConfig{
			Client:     b.client,
			Marshaller: marshaler,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "create redis publisher")
		}
		sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
			Client:        b.client,
			Unmarshaller:  marshaler,
			ConsumerGroup: s.Group,
			Consumer:      s.Consumer,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "create redis subscriber")
		}
		b.Publisher = pub
		b.Subscriber = sub
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "create router")
	}
	b.router = router
	return b, nil
}

// AddHandler consumes topic with f. Handlers must be added before Run.
func (b *Bus) AddHandler(name, topic string, f message.NoPublishHandlerFunc) {
	b.router.AddNoPublisherHandler(name, topic, b.Subscriber, f)
}

// Run blocks until ctx is cancelled or the router is closed.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close router")
	}
	if err := b.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close publisher")
	}
	if b.client != nil {
		if err := b.Subscriber.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close subscriber")
		}
		return b.client.Close()
	}
	return nil
}

// EnsureGroupAtTail creates the consumer group for a stream at the tail ($)
// if it doesn't exist, so a fresh consumer does not replay old changes.
func EnsureGroupAtTail(ctx context.Context, addr, stream, group string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrapf(err, "create consumer group %s on %s", group, stream)
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}
