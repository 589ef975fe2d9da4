package anomaly

import (
	"fmt"

	"AirPulse/internal/domain/models"
)

// MLOptions tunes the isolation-forest detector.
type MLOptions struct {
	Trees         int
	Subsample     int
	Contamination float64
	MinSamples    int
	Seed          int64
}

func (o *MLOptions) applyDefaults() {
	if o.Contamination <= 0 || o.Contamination >= 1 {
		o.Contamination = 0.1
	}
	if o.MinSamples <= 0 {
		o.MinSamples = 50
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
}

// MLResult carries the per-point isolation scores and flags. Lower scores
// mean more anomalous; flags mark the contamination fraction with the lowest
// scores.
type MLResult struct {
	Scores []float64
	Flags  []bool
}

// DetectML scores the series with a seeded isolation forest over a compact
// calendar and recent-history feature set. Series shorter than MinSamples
// return ErrInsufficientData; the caller degrades to the statistical
// detectors instead of failing the request.
func DetectML(points []models.SeriesPoint, opts MLOptions) (MLResult, error) {
	opts.applyDefaults()
	if len(points) < opts.MinSamples {
		return MLResult{}, fmt.Errorf("%w: %d points, need %d for the ml detector",
			models.ErrInsufficientData, len(points), opts.MinSamples)
	}

	rows := detectorFeatures(points)
	forest := newIsolationForest(opts.Trees, opts.Subsample, opts.Seed)
	forest.fit(rows)
	scores := forest.scoreSamples(rows)

	cutoff := Quantile(scores, opts.Contamination)
	flags := make([]bool, len(scores))
	for i, s := range scores {
		flags[i] = s < cutoff
	}
	return MLResult{Scores: scores, Flags: flags}, nil
}

// detectorFeatures builds one row per point: value, hour, day of week,
// weekend bit, the 1h and 24h lags and the trailing 24h mean. Lags before
// the head of the series backfill with the first value.
func detectorFeatures(points []models.SeriesPoint) [][]float64 {
	rows := make([][]float64, len(points))
	var rollingSum float64
	for i, p := range points {
		hour := p.Timestamp.Hour()
		dow := (int(p.Timestamp.Weekday()) + 6) % 7
		weekend := 0.0
		if dow >= 5 {
			weekend = 1
		}

		lag1 := points[0].Value
		if i >= 1 {
			lag1 = points[i-1].Value
		}
		lag24 := points[0].Value
		if i >= 24 {
			lag24 = points[i-24].Value
		}

		rollingSum += p.Value
		windowStart := i - 23
		if windowStart < 0 {
			windowStart = 0
		} else if windowStart > 0 {
			rollingSum -= points[windowStart-1].Value
		}
		rollMean24 := rollingSum / float64(i-windowStart+1)

		rows[i] = []float64{p.Value, float64(hour), float64(dow), weekend, lag1, lag24, rollMean24}
	}
	return rows
}
