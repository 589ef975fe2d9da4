package repository

import (
	"context"
	"time"

	"AirPulse/internal/domain/models"
)

// Observation is one stored sensor record: a station, a pollutant, an
// hour-aligned timestamp and a possibly-absent value.
type Observation struct {
	StationID string
	Parameter string
	Timestamp time.Time
	Value     *float64
}

// Storage persists raw observations and serves them back as pollutant
// series for analysis.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, o *Observation) error
	StoreBatch(ctx context.Context, obs []*Observation) error
	Query(ctx context.Context, stationID, parameter string, from, to time.Time, limit int) ([]models.SeriesPoint, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ObservationSource pulls recent readings from an upstream provider.
type ObservationSource interface {
	Fetch(ctx context.Context, stationID, parameter string, from, to time.Time) ([]models.Reading, error)
}

// Publisher fans observations out to the ingest bus.
type Publisher interface {
	Publish(ctx context.Context, o *Observation) error
	PublishBatch(ctx context.Context, obs []*Observation) error
	Close() error
}

type Metrics interface {
	RecordIngest(source, parameter string)
	RecordError(kind string)
	RecordGapsFilled(parameter string, n int)
	RecordAnomalies(parameter string, n int)
	RecordLatency(op string, seconds float64)
}
