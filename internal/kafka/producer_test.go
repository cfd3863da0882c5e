package kafka

import (
	"context"
	"errors"
	"testing"

	"atrium-jazz/internal/ingest"
	"atrium-jazz/internal/logger"
	"atrium-jazz/internal/models"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishEventUpserted(t *testing.T) {
	events := &fakeWriter{}
	p := &Producer{Events: events, Completed: &fakeWriter{}, Logger: logger.Discard()}

	e := &models.Event{
		ID:         "evt-1",
		Slug:       "late-set-smalls-2025-06-01",
		Name:       "Late Set",
		DateString: "2025-06-01",
		SetTimes:   []string{"22:00", "23:30"},
		VenueID:    "venue-1",
	}
	require.NoError(t, p.PublishEventUpserted(context.Background(), e))
	require.Len(t, events.messages, 1)

	msg := events.messages[0]
	assert.Equal(t, "evt-1", string(msg.Key))

	var got EventUpserted
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "late-set-smalls-2025-06-01", got.Slug)
	assert.Equal(t, []string{"22:00", "23:30"}, got.SetTimes)
	assert.False(t, got.At.IsZero())
}

func TestPublishIngestCompleted(t *testing.T) {
	completed := &fakeWriter{}
	p := &Producer{Events: &fakeWriter{}, Completed: completed}

	stats := &ingest.Stats{Kind: ingest.KindArtists, Artists: 3, LinkedEvents: 7}
	require.NoError(t, p.PublishIngestCompleted(context.Background(), stats))
	require.Len(t, completed.messages, 1)
	assert.Equal(t, "artists", string(completed.messages[0].Key))

	var got IngestCompleted
	require.NoError(t, json.Unmarshal(completed.messages[0].Value, &got))
	assert.Equal(t, 7, got.Stats.LinkedEvents)
}

func TestPublishReturnsWriterError(t *testing.T) {
	p := &Producer{Events: &fakeWriter{err: errors.New("broker down")}, Completed: &fakeWriter{}}
	err := p.PublishEventUpserted(context.Background(), &models.Event{ID: "x"})
	assert.EqualError(t, err, "broker down")
}

func TestCloseClosesBothWriters(t *testing.T) {
	events, completed := &fakeWriter{}, &fakeWriter{}
	p := &Producer{Events: events, Completed: completed}
	require.NoError(t, p.Close())
	assert.True(t, events.closed)
	assert.True(t, completed.closed)
}

func TestProducerSatisfiesPublisher(t *testing.T) {
	var _ ingest.Publisher = (*Producer)(nil)
}
