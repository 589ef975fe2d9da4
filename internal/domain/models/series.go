package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// SeriesPoint is one hour-aligned observation in a pollutant series.
// Points are immutable once ingested; a missing raw value is an explicit
// marker, never a dropped row.
type SeriesPoint struct {
	Timestamp time.Time
	Value     float64
	Missing   bool
}

// FeatureVector holds the engineered features for one timestamp. The field
// order of Columns is fixed: the trained model's input width depends on it.
type FeatureVector struct {
	Timestamp time.Time

	// TempFilled is the forward/backward-filled copy of the raw value. It
	// exists only to keep the feature pipeline dense; HasGap carries the
	// true missingness and is never overwritten by the fill.
	TempFilled float64

	Hour      int
	DayOfWeek int

	HourSin   float64
	HourCos   float64
	DaySin    float64
	DayCos    float64
	IsWeekend float64

	Lag1  float64
	Lag2  float64
	Lag3  float64
	Lag6  float64
	Lag12 float64
	Lag24 float64

	RollMean6  float64
	RollStd6   float64
	RollMean24 float64
	RollMax24  float64
	RollMin24  float64

	HasGap bool
}

// FeatureCount is the fixed width of a feature row consumed by the
// imputation model.
const FeatureCount = 17

// Columns returns the feature row in model input order. Column 0 must stay
// the temp-filled value: predictions are inverse-scaled through it.
func (f *FeatureVector) Columns() [FeatureCount]float64 {
	return [FeatureCount]float64{
		f.TempFilled,
		f.HourSin, f.HourCos, f.DaySin, f.DayCos, f.IsWeekend,
		f.Lag1, f.Lag2, f.Lag3, f.Lag6, f.Lag12, f.Lag24,
		f.RollMean6, f.RollStd6, f.RollMean24, f.RollMax24, f.RollMin24,
	}
}

// Reading is the wire shape of one upstream record: an hour-aligned
// timestamp plus a named numeric value that may be absent.
type Reading struct {
	StationID string   `json:"station_id,omitempty"`
	Datetime  string   `json:"datetime"`
	Value     *float64 `json:"value"`
}

// UnmarshalJSON coerces the value field. Upstream sources emit numbers as
// strings or leave the field empty, so a JSON number, a numeric string and
// null are all accepted; anything non-numeric becomes a missing value.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw struct {
		StationID string          `json:"station_id"`
		Datetime  string          `json:"datetime"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.StationID = raw.StationID
	r.Datetime = raw.Datetime
	r.Value = coerceNumeric(raw.Value)
	return nil
}

func coerceNumeric(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil
		}
		s = strings.TrimSpace(inner)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
