package anomaly

import (
	"strings"

	"AirPulse/internal/domain/models"
)

// Thresholds are the WHO-derived guideline bounds for one pollutant, in the
// unit the pollutant is reported in. Safe is informational only: any value
// below Moderate classifies as safe.
type Thresholds struct {
	Safe               float64 `json:"safe"`
	Moderate           float64 `json:"moderate"`
	UnhealthySensitive float64 `json:"unhealthy_sensitive"`
	Unhealthy          float64 `json:"unhealthy"`
	VeryUnhealthy      float64 `json:"very_unhealthy"`
	Hazardous          float64 `json:"hazardous"`
}

var whoThresholds = map[string]Thresholds{
	"pm25": {Safe: 15, Moderate: 35, UnhealthySensitive: 55, Unhealthy: 150, VeryUnhealthy: 250, Hazardous: 500},
	"pm10": {Safe: 50, Moderate: 150, UnhealthySensitive: 250, Unhealthy: 350, VeryUnhealthy: 420, Hazardous: 600},
	"o3":   {Safe: 100, Moderate: 160, UnhealthySensitive: 200, Unhealthy: 300, VeryUnhealthy: 400, Hazardous: 600},
}

// ThresholdsFor resolves the guideline table for a pollutant name. Unknown
// pollutants fall back to the PM2.5 table, the most conservative of the
// three.
func ThresholdsFor(parameter string) Thresholds {
	key := strings.ToLower(strings.TrimSpace(parameter))
	key = strings.ReplaceAll(key, ".", "")
	if t, ok := whoThresholds[key]; ok {
		return t
	}
	return whoThresholds["pm25"]
}

// Classify maps a value to its health level by walking the bounds from the
// top down with >=. Everything below the moderate bound is safe.
func (t Thresholds) Classify(value float64) models.HealthLevel {
	switch {
	case value >= t.Hazardous:
		return models.LevelHazardous
	case value >= t.VeryUnhealthy:
		return models.LevelVeryUnhealthy
	case value >= t.Unhealthy:
		return models.LevelUnhealthy
	case value >= t.UnhealthySensitive:
		return models.LevelUnhealthySensitive
	case value >= t.Moderate:
		return models.LevelModerate
	default:
		return models.LevelSafe
	}
}

// ClassifyValue classifies a possibly-absent value. Missing values are
// unknown and never hazardous.
func (t Thresholds) ClassifyValue(value *float64) models.HealthLevel {
	if value == nil {
		return models.LevelUnknown
	}
	return t.Classify(*value)
}

// IsHazardous reports whether a level counts toward the hazardous detector
// signal. The bar is unhealthy and above, not only the hazardous level.
func IsHazardous(level models.HealthLevel) bool {
	switch level {
	case models.LevelUnhealthy, models.LevelVeryUnhealthy, models.LevelHazardous:
		return true
	default:
		return false
	}
}
