package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/skyrebook/rebook_core/internal/config"
	"github.com/skyrebook/rebook_core/internal/logger"
	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/skyrebook/rebook_core/internal/rebooking"
)

// Event types
const (
	EventRebooked  = "passenger.rebooked"
	EventNoOptions = "passenger.no_options"
	EventFailed    = "passenger.failed"
)

// RebookingEvent is published once per affected passenger of a run
type RebookingEvent struct {
	Type             string                `json:"type"`
	RunID            string                `json:"run_id"`
	RecordLocator    string                `json:"record_locator"`
	OriginalFlightID string                `json:"original_flight_id"`
	Routes           []models.RouteOptions `json:"routes,omitempty"`
	Error            string                `json:"error,omitempty"`
	OccurredAt       time.Time             `json:"occurred_at"`
}

// MessageWriter is the part of *kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes rebooking results to Kafka
type Producer struct {
	writer     MessageWriter
	topic      string
	maxRetries int
	backoff    time.Duration
}

// NewProducer creates a producer writing to cfg.Topic on cfg.Brokers
func NewProducer(cfg config.KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return NewProducerWithWriter(writer, cfg.Topic, cfg.MaxRetries)
}

// NewProducerWithWriter wraps an existing writer. The writer must already target topic.
func NewProducerWithWriter(writer MessageWriter, topic string, maxRetries int) *Producer {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Producer{
		writer:     writer,
		topic:      topic,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// Events turns an outcome into one event per passenger, ordered by key
func Events(outcome *rebooking.Outcome) []RebookingEvent {
	now := time.Now().UTC()
	if !outcome.FinishedAt.IsZero() {
		now = outcome.FinishedAt
	}

	events := make([]RebookingEvent, 0, len(outcome.Results)+len(outcome.Failures))
	for key, routes := range outcome.Results {
		eventType := EventRebooked
		if len(routes) == 0 {
			eventType = EventNoOptions
		}
		events = append(events, RebookingEvent{
			Type:             eventType,
			RunID:            outcome.RunID,
			RecordLocator:    key.RecordLocator,
			OriginalFlightID: key.OriginalFlightID,
			Routes:           routes,
			OccurredAt:       now,
		})
	}
	for key, err := range outcome.Failures {
		events = append(events, RebookingEvent{
			Type:             EventFailed,
			RunID:            outcome.RunID,
			RecordLocator:    key.RecordLocator,
			OriginalFlightID: key.OriginalFlightID,
			Error:            err.Error(),
			OccurredAt:       now,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].RecordLocator != events[j].RecordLocator {
			return events[i].RecordLocator < events[j].RecordLocator
		}
		return events[i].OriginalFlightID < events[j].OriginalFlightID
	})
	return events
}

// PublishOutcome publishes every event of the outcome in one batch, keyed by
// record locator so a booking's events stay on one partition
func (p *Producer) PublishOutcome(ctx context.Context, outcome *rebooking.Outcome) (int, error) {
	events := Events(outcome)
	if len(events) == 0 {
		return 0, nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(e.RecordLocator),
			Value: data,
			Time:  e.OccurredAt,
		})
	}

	if err := p.writeWithRetry(ctx, messages); err != nil {
		return 0, err
	}

	logger.Info("Published rebooking events", "topic", p.topic, "run_id", outcome.RunID, "count", len(messages))
	return len(messages), nil
}

func (p *Producer) writeWithRetry(ctx context.Context, messages []kafka.Message) error {
	var lastErr error

	for i := 0; i < p.maxRetries; i++ {
		err := p.writer.WriteMessages(ctx, messages...)
		if err == nil {
			return nil
		}

		lastErr = err
		logger.Warn("kafka write failed", "attempt", i+1, "error", err)

		if i < p.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * p.backoff):
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", p.maxRetries, lastErr)
}

// Close flushes and closes the writer
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
