package repository

import (
	"context"

	domrepo "AirPulse/internal/domain/repository"
	pkgkafka "AirPulse/pkg/kafka"
)

// ReadingsPublisher fans observations out to the Kafka readings topic.
// Messages are keyed by station so one station's readings stay ordered.
type ReadingsPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewReadingsPublisher(producer *pkgkafka.Producer, topic string) *ReadingsPublisher {
	return &ReadingsPublisher{producer: producer, topic: topic}
}

type readingMessage struct {
	StationID string   `json:"station_id"`
	Parameter string   `json:"parameter"`
	Datetime  string   `json:"datetime"`
	Value     *float64 `json:"value"`
}

func toMessage(o *domrepo.Observation) readingMessage {
	return readingMessage{
		StationID: o.StationID,
		Parameter: o.Parameter,
		Datetime:  o.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		Value:     o.Value,
	}
}

func (p *ReadingsPublisher) Publish(ctx context.Context, o *domrepo.Observation) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.StationID), toMessage(o))
}

func (p *ReadingsPublisher) PublishBatch(ctx context.Context, obs []*domrepo.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(obs))
	for _, o := range obs {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(o.StationID), Value: toMessage(o)})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *ReadingsPublisher) Close() error {
	return p.producer.Close()
}
