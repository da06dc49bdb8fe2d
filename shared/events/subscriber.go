package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, event Event) error

type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	logger        *zap.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	Logger        *zap.Logger
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		logger: config.Logger.With(
			zap.String("stream", config.Stream),
			zap.String("group", config.Group),
			zap.String("consumer", config.Consumer),
		),
	}
}

// Start consumes the stream until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.logger.Info("subscriber started")
	if err := s.retryPending(ctx); err != nil {
		s.logger.Warn("failed to retry pending messages", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("subscriber stopping")
			return ctx.Err()
		default:
			if _, err := s.ReadOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("error reading messages", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

// ReadOnce reads and handles one batch of new messages, returning how many
// were acknowledged.
func (s *Subscriber) ReadOnce(ctx context.Context) (int, error) {
	acked, _, err := s.read(ctx, ">", s.blockDuration)
	return acked, err
}

// retryPending replays messages this consumer received but never acked,
// e.g. because the process died or the handler failed.
func (s *Subscriber) retryPending(ctx context.Context) error {
	cursor := "0"
	for {
		_, last, err := s.read(ctx, cursor, -1)
		if err != nil || last == "" {
			return err
		}
		cursor = last
	}
}

// read handles one batch after id and returns the number acked and the id of
// the last message seen.
func (s *Subscriber) read(ctx context.Context, id string, block time.Duration) (int, string, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    s.batchSize,
		Block:    block,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to read from stream: %w", err)
	}

	acked, last := 0, ""
	for _, stream := range streams {
		for _, message := range stream.Messages {
			last = message.ID
			if err := s.processMessage(ctx, message); err != nil {
				// left pending for redelivery
				s.logger.Warn("failed to process message", zap.String("id", message.ID), zap.Error(err))
				continue
			}

			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				s.logger.Warn("failed to ack message", zap.String("id", message.ID), zap.Error(err))
				continue
			}
			acked++
		}
	}

	return acked, last, nil
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return s.handler(ctx, event)
}
