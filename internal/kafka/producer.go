package kafka

import (
	"context"
	"fmt"
	"time"

	"atrium-jazz/internal/ingest"
	"atrium-jazz/internal/logger"
	"atrium-jazz/internal/models"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventUpserted is published once per stored event.
type EventUpserted struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	DateString string    `json:"dateString"`
	SetTimes   []string  `json:"setTimes"`
	VenueID    string    `json:"venueId"`
	URL        string    `json:"url"`
	At         time.Time `json:"at"`
}

// IngestCompleted is published at the end of each ingestion pass.
type IngestCompleted struct {
	Stats *ingest.Stats `json:"stats"`
	At    time.Time     `json:"at"`
}

// Producer publishes ingestion notifications. It satisfies ingest.Publisher.
type Producer struct {
	Events    MessageWriter
	Completed MessageWriter
	Logger    *logger.Logger
}

func NewProducer(brokers []string, eventsTopic, completedTopic string, log *logger.Logger) *Producer {
	return &Producer{
		Events:    newWriter(brokers, eventsTopic),
		Completed: newWriter(brokers, completedTopic),
		Logger:    log,
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// PublishEventUpserted streams the stored event, keyed by event ID.
func (p *Producer) PublishEventUpserted(ctx context.Context, e *models.Event) error {
	msg := EventUpserted{
		ID:         e.ID,
		Slug:       e.Slug,
		Name:       e.Name,
		DateString: e.DateString,
		SetTimes:   e.SetTimes,
		VenueID:    e.VenueID,
		URL:        e.URL,
		At:         time.Now().UTC(),
	}
	return p.publish(ctx, p.Events, "event_upserted", e.ID, msg)
}

// PublishIngestCompleted streams the run summary, keyed by pass kind.
func (p *Producer) PublishIngestCompleted(ctx context.Context, stats *ingest.Stats) error {
	msg := IngestCompleted{Stats: stats, At: time.Now().UTC()}
	return p.publish(ctx, p.Completed, "ingest_completed", stats.Kind, msg)
}

func (p *Producer) publish(ctx context.Context, w MessageWriter, name, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	if p.Logger != nil {
		p.Logger.LogKafka("publish", name, key)
	}

	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// Close flushes and closes both writers.
func (p *Producer) Close() error {
	errEvents := p.Events.Close()
	errCompleted := p.Completed.Close()
	if errEvents != nil {
		return errEvents
	}
	return errCompleted
}
