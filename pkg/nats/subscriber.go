package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docubot-be/internal/pkg/logger"
	"docubot-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	logger   logger.ILogger
	consumes []jetstream.ConsumeContext
}

func NewSubscriber(ctx context.Context, url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ensureStream(streamCtx, js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}

	return &Subscriber{nc: nc, js: js, logger: log}, nil
}

// Subscribe registers a durable consumer for eventType (wildcards allowed).
// A new durable starts from the last event of each subject.
func (s *Subscriber) Subscribe(ctx context.Context, eventType, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subjectPrefix + eventType,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverLastPerSubjectPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			s.logger.Warn("NatsSubscriber", "Dropping malformed event", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			_ = msg.Term()
			return
		}

		occurredAt := time.Now()
		if raw, ok := payload[timestampField].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				occurredAt = t
			}
		}

		event := events.CorpusEvent{
			Type:       strings.TrimPrefix(msg.Subject(), subjectPrefix),
			Data:       payload,
			OccurredAt: occurredAt,
		}

		if err := handler(context.Background(), event); err != nil {
			s.logger.Error("NatsSubscriber", "Event handler failed", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err,
			})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.consumes = append(s.consumes, cc)

	s.logger.Info("NatsSubscriber", "Subscribed", map[string]interface{}{
		"subject": subjectPrefix + eventType,
		"durable": durableName,
	})
	return nil
}

// Close stops all consumers and closes the connection.
func (s *Subscriber) Close() {
	for _, cc := range s.consumes {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
