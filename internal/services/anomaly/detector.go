package anomaly

import (
	"context"
	"errors"

	"AirPulse/internal/domain/models"
	"AirPulse/pkg/logger"
)

// Detector weights. The four signals fuse into a weighted vote; when the ml
// detector is skipped its term is simply absent, capping the score at 0.8.
const (
	weightZ      = 0.3
	weightIQR    = 0.3
	weightHazard = 0.2
	weightML     = 0.2

	anomalyCutoff = 0.5
)

// Config tunes the detector ensemble for one request.
type Config struct {
	ZThreshold    float64
	IQRMultiplier float64
	Contamination float64
	MLMinSamples  int
	Seed          int64
}

func (c *Config) applyDefaults() {
	if c.ZThreshold <= 0 {
		c.ZThreshold = 3.0
	}
	if c.IQRMultiplier <= 0 {
		c.IQRMultiplier = 1.5
	}
}

// Detector runs the statistical, domain and ml detectors over a pollutant
// series and fuses their votes.
type Detector struct {
	cfg Config
	log *logger.Logger
}

// NewDetector builds a detector with the given ensemble configuration.
func NewDetector(cfg Config, log *logger.Logger) *Detector {
	cfg.applyDefaults()
	return &Detector{cfg: cfg, log: log}
}

// Detect scores every present point in the series. Points marked missing
// carry no value to judge and are excluded before detection. At least one
// present point is required.
func (d *Detector) Detect(ctx context.Context, parameter string, points []models.SeriesPoint) (*models.AnomalyReport, error) {
	present := make([]models.SeriesPoint, 0, len(points))
	for _, p := range points {
		if !p.Missing {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil, models.ErrNoValidData
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := make([]float64, len(present))
	for i, p := range present {
		values[i] = p.Value
	}

	zRes := ZScores(values, d.cfg.ZThreshold)
	iqrRes := IQRFlags(values, d.cfg.IQRMultiplier)
	thresholds := ThresholdsFor(parameter)

	mlRes, mlErr := DetectML(present, MLOptions{
		Contamination: d.cfg.Contamination,
		MinSamples:    d.cfg.MLMinSamples,
		Seed:          d.cfg.Seed,
	})
	mlActive := mlErr == nil
	if mlErr != nil {
		if !errors.Is(mlErr, models.ErrInsufficientData) {
			return nil, mlErr
		}
		d.log.Warn("ml detector skipped",
			logger.String("parameter", parameter),
			logger.Int("points", len(present)),
			logger.Error(mlErr))
	}

	report := &models.AnomalyReport{
		Points: make([]models.AnomalyVerdict, len(present)),
		Summary: models.AnomalySummary{
			TotalPoints:      len(present),
			DegenerateStdDev: zRes.Degenerate,
			IQRBounds:        [2]float64{iqrRes.Lower, iqrRes.Upper},
		},
	}
	if !mlActive {
		report.Summary.MLSkippedReason = mlErr.Error()
	}

	mlCount := 0
	for i, p := range present {
		level := thresholds.Classify(p.Value)
		hazardous := IsHazardous(level)

		v := models.AnomalyVerdict{
			Datetime:     p.Timestamp,
			Value:        p.Value,
			ZScore:       zRes.Scores[i],
			IsZAnomaly:   zRes.Flags[i],
			IsIQRAnomaly: iqrRes.Flags[i],
			HealthLevel:  level,
			IsHazardous:  hazardous,
		}

		score := 0.0
		if v.IsZAnomaly {
			score += weightZ
		}
		if v.IsIQRAnomaly {
			score += weightIQR
		}
		if hazardous {
			score += weightHazard
		}
		if mlActive {
			mlScore := mlRes.Scores[i]
			mlFlag := mlRes.Flags[i]
			v.MLScore = &mlScore
			v.IsMLAnomaly = &mlFlag
			if mlFlag {
				score += weightML
				mlCount++
			}
		}
		v.CombinedScore = score
		v.IsAnomaly = score > anomalyCutoff
		report.Points[i] = v

		if v.IsZAnomaly {
			report.Summary.ZScoreAnomalies++
		}
		if v.IsIQRAnomaly {
			report.Summary.IQRAnomalies++
		}
		if hazardous {
			report.Summary.HazardousPoints++
		}
		if v.IsAnomaly {
			report.Summary.CombinedAnomalies++
		}
	}
	if mlActive {
		report.Summary.MLAnomalies = &mlCount
	}
	report.Summary.HazardousPercentage = 100 * float64(report.Summary.HazardousPoints) / float64(len(present))

	d.log.Info("anomaly detection complete",
		logger.String("parameter", parameter),
		logger.Int("points", len(present)),
		logger.Int("anomalies", report.Summary.CombinedAnomalies),
		logger.Bool("ml_active", mlActive))
	return report, nil
}
