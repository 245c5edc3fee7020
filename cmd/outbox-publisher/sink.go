package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stayregistry-backend/pkg/config"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/mq"
)

// delivery is one committed event on its way to a sink. Body is the stored
// envelope JSON, unchanged.
type delivery struct {
	Sequence      uint64
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	RoutingKey    string
	OccurredAt    time.Time
	Body          []byte
}

type sink interface {
	Name() string
	Ping(ctx context.Context) error
	Publish(ctx context.Context, d delivery) error
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
	Ping(ctx context.Context) error
}

// redisSink publishes each event to the pub/sub channel <prefix>:<event_type>.
type redisSink struct {
	client redisPublisher
	prefix string
}

func newRedisSink(client redisPublisher, prefix string) (*redisSink, error) {
	if client == nil {
		return nil, errors.New("redis client is required for the redis sink")
	}
	if prefix == "" {
		return nil, errors.New("channel prefix is required")
	}
	return &redisSink{client: client, prefix: prefix}, nil
}

func (s *redisSink) Name() string { return config.EventSinkRedis }

func (s *redisSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *redisSink) Channel(eventType enums.OutboxEventType) string {
	return s.prefix + ":" + string(eventType)
}

func (s *redisSink) Publish(ctx context.Context, d delivery) error {
	if _, err := s.client.Publish(ctx, s.Channel(d.EventType), d.Body); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

type amqpPublisher interface {
	Publish(ctx context.Context, msg mq.Message) error
	Ping(ctx context.Context) error
}

// amqpSink publishes to a topic exchange keyed by the event's routing key.
type amqpSink struct {
	pub amqpPublisher
}

func newAMQPSink(pub amqpPublisher) (*amqpSink, error) {
	if pub == nil {
		return nil, errors.New("amqp publisher is required for the amqp sink")
	}
	return &amqpSink{pub: pub}, nil
}

func (s *amqpSink) Name() string { return config.EventSinkAMQP }

func (s *amqpSink) Ping(ctx context.Context) error { return s.pub.Ping(ctx) }

func (s *amqpSink) Publish(ctx context.Context, d delivery) error {
	return s.pub.Publish(ctx, mq.Message{
		RoutingKey: d.RoutingKey,
		MessageID:  d.EventID.String(),
		Timestamp:  d.OccurredAt,
		Headers: map[string]string{
			"event_type":     string(d.EventType),
			"aggregate_type": string(d.AggregateType),
			"aggregate_id":   d.AggregateID,
			"sequence":       strconv.FormatUint(d.Sequence, 10),
		},
		Body: d.Body,
	})
}

// logSink writes events to the structured log; used in local development.
type logSink struct {
	logg *logger.Logger
}

func (s *logSink) Name() string { return config.EventSinkLog }

func (s *logSink) Ping(context.Context) error { return nil }

func (s *logSink) Publish(ctx context.Context, d delivery) error {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"sequence":    d.Sequence,
		"event_id":    d.EventID.String(),
		"event_type":  d.EventType,
		"routing_key": d.RoutingKey,
		"payload":     string(d.Body),
	}), "outbox event delivered")
	return nil
}
