package usecase

import (
	"context"
	"time"

	"AirPulse/internal/domain/models"
	domrepo "AirPulse/internal/domain/repository"
	"AirPulse/pkg/logger"
	"AirPulse/pkg/util"
)

// IngestUseCase pulls historical readings from the upstream provider and
// persists them as hourly observations.
type IngestUseCase struct {
	source    domrepo.ObservationSource
	storage   domrepo.Storage
	publisher domrepo.Publisher
	log       *logger.Logger
	metrics   domrepo.Metrics
}

func NewIngestUseCase(source domrepo.ObservationSource, storage domrepo.Storage, log *logger.Logger, metrics domrepo.Metrics) *IngestUseCase {
	return &IngestUseCase{source: source, storage: storage, log: log, metrics: metrics}
}

// SetPublisher enables fan-out of synced observations to the ingest bus.
func (uc *IngestUseCase) SetPublisher(p domrepo.Publisher) { uc.publisher = p }

// SyncResult reports one upstream sync run.
type SyncResult struct {
	StationID string `json:"station_id"`
	Parameter string `json:"parameter"`
	Fetched   int    `json:"fetched"`
	Stored    int    `json:"stored"`
	Skipped   int    `json:"skipped"`
}

// Sync fetches readings for a station over [from, to] and stores them in a
// single batch. Readings with unparsable timestamps are skipped, not fatal.
func (uc *IngestUseCase) Sync(ctx context.Context, stationID, parameter string, from, to time.Time) (*SyncResult, error) {
	start := time.Now()
	readings, err := uc.source.Fetch(ctx, stationID, parameter, from, to)
	if err != nil {
		uc.metrics.RecordError("upstream_fetch")
		return nil, err
	}

	obs := make([]*domrepo.Observation, 0, len(readings))
	skipped := 0
	for _, r := range readings {
		ts, ok := util.ParseTime(r.Datetime)
		if !ok {
			skipped++
			continue
		}
		station := r.StationID
		if station == "" {
			station = stationID
		}
		obs = append(obs, &domrepo.Observation{
			StationID: station,
			Parameter: parameter,
			Timestamp: util.AlignHour(ts),
			Value:     r.Value,
		})
	}

	if err := uc.storage.StoreBatch(ctx, obs); err != nil {
		uc.metrics.RecordError("storage_batch")
		return nil, err
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishBatch(ctx, obs); err != nil {
			uc.metrics.RecordError("publish_batch")
			uc.log.Warn("publish synced observations failed", logger.Error(err))
		}
	}
	for range obs {
		uc.metrics.RecordIngest("upstream", parameter)
	}
	uc.metrics.RecordLatency("sync", time.Since(start).Seconds())

	uc.log.Info("upstream sync complete",
		logger.String("station", stationID),
		logger.String("parameter", parameter),
		logger.Int("fetched", len(readings)),
		logger.Int("stored", len(obs)),
		logger.Int("skipped", skipped),
	)
	return &SyncResult{
		StationID: stationID,
		Parameter: parameter,
		Fetched:   len(readings),
		Stored:    len(obs),
		Skipped:   skipped,
	}, nil
}

// Series reads a stored pollutant series back from storage.
func (uc *IngestUseCase) Series(ctx context.Context, stationID, parameter string, from, to time.Time, limit int) ([]models.SeriesPoint, error) {
	return uc.storage.Query(ctx, stationID, parameter, from, to, limit)
}
