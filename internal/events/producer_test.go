package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/skyrebook/rebook_core/internal/rebooking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	failures int
	calls    int
	messages []kafka.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("broker not available")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testOutcome() *rebooking.Outcome {
	return &rebooking.Outcome{
		RunID:      "run-1",
		FinishedAt: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
		Results: map[models.ResultKey][]models.RouteOptions{
			{RecordLocator: "BBB222", OriginalFlightID: "KL641"}: {{
				Route:       []string{"AMS", "JFK"},
				Itineraries: []models.Itinerary{{FlightIDs: []string{"KL0643"}}},
			}},
			{RecordLocator: "AAA111", OriginalFlightID: "KL641"}: {},
		},
		Failures: map[models.ResultKey]error{
			{RecordLocator: "CCC333", OriginalFlightID: "KL641"}: errors.New("unknown airport: SYD"),
		},
	}
}

func TestEvents(t *testing.T) {
	events := Events(testOutcome())
	require.Len(t, events, 3)

	assert.Equal(t, EventNoOptions, events[0].Type)
	assert.Equal(t, "AAA111", events[0].RecordLocator)
	assert.Equal(t, EventRebooked, events[1].Type)
	assert.Len(t, events[1].Routes, 1)
	assert.Equal(t, EventFailed, events[2].Type)
	assert.Equal(t, "unknown airport: SYD", events[2].Error)

	for _, e := range events {
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), e.OccurredAt)
	}
}

func TestPublishOutcome(t *testing.T) {
	writer := &fakeWriter{}
	p := NewProducerWithWriter(writer, "rebooking.results", 3)

	n, err := p.PublishOutcome(context.Background(), testOutcome())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, writer.messages, 3)

	assert.Equal(t, "BBB222", string(writer.messages[1].Key))

	var event RebookingEvent
	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &event))
	assert.Equal(t, EventRebooked, event.Type)
	assert.Equal(t, "KL641", event.OriginalFlightID)
	assert.Equal(t, []string{"KL0643"}, event.Routes[0].Itineraries[0].FlightIDs)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestPublishOutcome_Retries(t *testing.T) {
	writer := &fakeWriter{failures: 2}
	p := NewProducerWithWriter(writer, "rebooking.results", 3)
	p.backoff = time.Millisecond

	n, err := p.PublishOutcome(context.Background(), testOutcome())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, writer.calls)
}

func TestPublishOutcome_GivesUp(t *testing.T) {
	writer := &fakeWriter{failures: 10}
	p := NewProducerWithWriter(writer, "rebooking.results", 2)
	p.backoff = time.Millisecond

	_, err := p.PublishOutcome(context.Background(), testOutcome())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.Equal(t, 2, writer.calls)
}

func TestPublishOutcome_Empty(t *testing.T) {
	writer := &fakeWriter{}
	p := NewProducerWithWriter(writer, "rebooking.results", 1)

	n, err := p.PublishOutcome(context.Background(), &rebooking.Outcome{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, writer.calls)
}
