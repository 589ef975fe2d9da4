package usecase

import (
	"context"
	"time"

	"AirPulse/internal/domain/models"
	domrepo "AirPulse/internal/domain/repository"
	"AirPulse/internal/services/anomaly"
	"AirPulse/pkg/logger"
)

// DetectorConfig carries the server-side detector defaults; requests may
// override the per-request knobs.
type DetectorConfig struct {
	ZThreshold    float64
	IQRMultiplier float64
	Contamination float64
	MLMinSamples  int
	Seed          int64
}

// AnomalyUseCase runs the detector ensemble over a pollutant series.
type AnomalyUseCase struct {
	cfg     DetectorConfig
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewAnomalyUseCase(cfg DetectorConfig, log *logger.Logger, metrics domrepo.Metrics) *AnomalyUseCase {
	return &AnomalyUseCase{cfg: cfg, log: log, metrics: metrics}
}

type DetectParams struct {
	Parameter     string
	ZThreshold    float64
	IQRMultiplier float64
	Contamination float64
	Points        []models.SeriesPoint
}

// Detect scores the series; zero-valued knobs fall back to the configured
// defaults.
func (uc *AnomalyUseCase) Detect(ctx context.Context, p DetectParams) (*models.AnomalyReport, error) {
	cfg := anomaly.Config{
		ZThreshold:    p.ZThreshold,
		IQRMultiplier: p.IQRMultiplier,
		Contamination: p.Contamination,
		MLMinSamples:  uc.cfg.MLMinSamples,
		Seed:          uc.cfg.Seed,
	}
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = uc.cfg.ZThreshold
	}
	if cfg.IQRMultiplier <= 0 {
		cfg.IQRMultiplier = uc.cfg.IQRMultiplier
	}
	if cfg.Contamination <= 0 {
		cfg.Contamination = uc.cfg.Contamination
	}

	start := time.Now()
	report, err := anomaly.NewDetector(cfg, uc.log).Detect(ctx, p.Parameter, p.Points)
	if err != nil {
		uc.metrics.RecordError("detect")
		return nil, err
	}
	uc.metrics.RecordAnomalies(p.Parameter, report.Summary.CombinedAnomalies)
	uc.metrics.RecordLatency("detect", time.Since(start).Seconds())
	return report, nil
}
