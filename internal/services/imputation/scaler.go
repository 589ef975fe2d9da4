package imputation

import (
	"fmt"

	"AirPulse/internal/domain/models"
)

// MinMaxScaler maps every feature column into [0, 1]. The fitted bounds are
// part of model state and are persisted with the bundle: a loaded model must
// transform and inverse-transform with the bounds it was trained with.
type MinMaxScaler struct {
	DataMin   []float64 `json:"data_min"`
	DataMax   []float64 `json:"data_max"`
	DataRange []float64 `json:"data_range"`
	NFeatures int       `json:"n_features_in"`
	NSamples  int       `json:"n_samples_seen"`
	fitted    bool
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit learns per-column min/max over all rows.
func (s *MinMaxScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return models.ErrNoValidData
	}
	nf := len(rows[0])
	s.DataMin = make([]float64, nf)
	s.DataMax = make([]float64, nf)
	s.DataRange = make([]float64, nf)
	copy(s.DataMin, rows[0])
	copy(s.DataMax, rows[0])

	for _, row := range rows[1:] {
		if len(row) != nf {
			return fmt.Errorf("scaler fit: ragged row width %d, want %d", len(row), nf)
		}
		for j, v := range row {
			if v < s.DataMin[j] {
				s.DataMin[j] = v
			}
			if v > s.DataMax[j] {
				s.DataMax[j] = v
			}
		}
	}
	for j := range s.DataRange {
		s.DataRange[j] = s.DataMax[j] - s.DataMin[j]
	}
	s.NFeatures = nf
	s.NSamples = len(rows)
	s.fitted = true
	return nil
}

// Transform scales rows into [0, 1] with the fitted bounds. Constant columns
// map to 0.
func (s *MinMaxScaler) Transform(rows [][]float64) ([][]float64, error) {
	if !s.Fitted() {
		return nil, models.ErrModelNotReady
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != s.NFeatures {
			return nil, fmt.Errorf("scaler transform: row width %d, want %d", len(row), s.NFeatures)
		}
		scaled := make([]float64, s.NFeatures)
		for j, v := range row {
			scaled[j] = (v - s.DataMin[j]) / divisor(s.DataRange[j])
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits the bounds and scales in one pass.
func (s *MinMaxScaler) FitTransform(rows [][]float64) ([][]float64, error) {
	if err := s.Fit(rows); err != nil {
		return nil, err
	}
	return s.Transform(rows)
}

// InverseValue maps one scaled value on a single column back to original
// units. Column 0 carries the pollutant value, so predictions come back
// through here.
func (s *MinMaxScaler) InverseValue(col int, v float64) (float64, error) {
	if !s.Fitted() {
		return 0, models.ErrModelNotReady
	}
	if col < 0 || col >= s.NFeatures {
		return 0, fmt.Errorf("scaler inverse: column %d out of range", col)
	}
	return v*divisor(s.DataRange[col]) + s.DataMin[col], nil
}

// Fitted reports whether bounds were learned or restored.
func (s *MinMaxScaler) Fitted() bool {
	return s.fitted || (s.NFeatures > 0 && len(s.DataMin) == s.NFeatures)
}

func divisor(r float64) float64 {
	if r == 0 {
		return 1
	}
	return r
}
