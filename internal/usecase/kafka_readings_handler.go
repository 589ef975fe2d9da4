package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domrepo "AirPulse/internal/domain/repository"
	"AirPulse/pkg/util"
)

// KafkaReadingsHandler consumes sensor readings off Kafka and writes them to
// storage.
type KafkaReadingsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaReadingsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaReadingsHandler {
	return &KafkaReadingsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaReadingsHandler) Topic() string { return h.topic }

// incoming message schema: {station_id, parameter, datetime, value}
func (h *KafkaReadingsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		StationID string   `json:"station_id"`
		Parameter string   `json:"parameter"`
		Datetime  string   `json:"datetime"`
		Value     *float64 `json:"value"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	ts, ok := util.ParseTime(m.Datetime)
	if !ok {
		h.metrics.RecordError("consumer_datetime")
		return fmt.Errorf("unparsable datetime %q", m.Datetime)
	}

	start := time.Now()
	err := h.storage.Store(ctx, &domrepo.Observation{
		StationID: m.StationID,
		Parameter: m.Parameter,
		Timestamp: util.AlignHour(ts),
		Value:     m.Value,
	})
	if err != nil {
		h.metrics.RecordError("storage_store")
		return err
	}
	h.metrics.RecordIngest("kafka", m.Parameter)
	h.metrics.RecordLatency("ingest_store", time.Since(start).Seconds())
	return nil
}
