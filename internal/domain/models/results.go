package models

import "time"

// HealthLevel is the ordered domain classification of a pollutant value.
type HealthLevel string

const (
	LevelUnknown            HealthLevel = "unknown"
	LevelSafe               HealthLevel = "safe"
	LevelModerate           HealthLevel = "moderate"
	LevelUnhealthySensitive HealthLevel = "unhealthy_sensitive"
	LevelUnhealthy          HealthLevel = "unhealthy"
	LevelVeryUnhealthy      HealthLevel = "very_unhealthy"
	LevelHazardous          HealthLevel = "hazardous"
)

// Rank orders health levels so monotonicity can be asserted; unknown ranks
// below safe.
func (h HealthLevel) Rank() int {
	switch h {
	case LevelSafe:
		return 1
	case LevelModerate:
		return 2
	case LevelUnhealthySensitive:
		return 3
	case LevelUnhealthy:
		return 4
	case LevelVeryUnhealthy:
		return 5
	case LevelHazardous:
		return 6
	default:
		return 0
	}
}

// AnomalyVerdict is the fused per-point anomaly result. Computed fresh per
// request, never persisted by the core.
type AnomalyVerdict struct {
	Datetime      time.Time   `json:"datetime"`
	Value         float64     `json:"value"`
	ZScore        float64     `json:"z_score"`
	IsZAnomaly    bool        `json:"is_z_anomaly"`
	IsIQRAnomaly  bool        `json:"is_iqr_anomaly"`
	HealthLevel   HealthLevel `json:"health_level"`
	IsHazardous   bool        `json:"is_hazardous"`
	MLScore       *float64    `json:"ml_score,omitempty"`
	IsMLAnomaly   *bool       `json:"is_ml_anomaly,omitempty"`
	CombinedScore float64     `json:"combined_score"`
	IsAnomaly     bool        `json:"is_anomaly"`
}

// AnomalySummary aggregates detector counts over one request.
type AnomalySummary struct {
	TotalPoints         int      `json:"total_points"`
	ZScoreAnomalies     int      `json:"z_score_anomalies"`
	IQRAnomalies        int      `json:"iqr_anomalies"`
	MLAnomalies         *int     `json:"ml_anomalies,omitempty"`
	HazardousPoints     int      `json:"hazardous_points"`
	HazardousPercentage float64  `json:"hazardous_percentage"`
	MLSkippedReason     string   `json:"ml_skipped_reason,omitempty"`
	CombinedAnomalies   int      `json:"combined_anomalies"`
	DegenerateStdDev    bool     `json:"degenerate_std,omitempty"`
	IQRBounds           [2]float64 `json:"iqr_bounds"`
}

// AnomalyReport is the full output of the anomaly operation.
type AnomalyReport struct {
	Points  []AnomalyVerdict `json:"points"`
	Summary AnomalySummary   `json:"summary"`
}

// FilledPoint is one record of the dense gap-fill output. FilledValue is
// never null; for non-gap points it equals the raw value exactly.
type FilledPoint struct {
	Datetime       time.Time `json:"datetime"`
	Value          *float64  `json:"value"`
	FilledValue    float64   `json:"filled_value"`
	PredictedValue *float64  `json:"predicted_value"`
	WasGap         bool      `json:"was_gap"`
	GapFilled      bool      `json:"gap_filled"`

	// Confidence is a fixed placeholder, not a derived uncertainty
	// estimate.
	Confidence float64 `json:"confidence"`
}

// GapFillSummary describes one gap-fill run.
type GapFillSummary struct {
	TotalPoints  int     `json:"total_points"`
	GapsFound    int     `json:"gaps_found"`
	GapsFilled   int     `json:"gaps_filled"`
	GapPercent   float64 `json:"gap_percentage"`
	ModelTrained bool    `json:"model_trained"`
	EpochsRun    int     `json:"epochs_run,omitempty"`
	ValLoss      float64 `json:"val_loss,omitempty"`
	ValMAE       float64 `json:"val_mae,omitempty"`
}

// GapFillResult is the full output of the gap-fill operation.
type GapFillResult struct {
	Points  []FilledPoint  `json:"points"`
	Summary GapFillSummary `json:"summary"`
}
