package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Bus publishes envelopes to downstream consumers.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
}

// ChannelPublisher is satisfied by the redis publisher.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisEventBus publishes each envelope to every resolved channel.
type RedisEventBus struct {
	publisher ChannelPublisher
	resolver  ChannelResolver
}

func NewRedisEventBus(publisher ChannelPublisher, resolver ChannelResolver) *RedisEventBus {
	return &RedisEventBus{publisher: publisher, resolver: resolver}
}

func (b *RedisEventBus) Publish(ctx context.Context, env Envelope) error {
	channels := b.resolver.ResolveChannels(env)
	if len(channels) == 0 {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	for _, channel := range channels {
		if err := b.publisher.Publish(ctx, channel, data); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}

// NopBus drops every event. Used when redis is disabled.
type NopBus struct{}

func (NopBus) Publish(context.Context, Envelope) error { return nil }
