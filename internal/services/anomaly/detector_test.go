package anomaly

import (
	"context"
	"errors"
	"testing"
	"time"

	"AirPulse/internal/domain/models"
	"AirPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func hourlySeries(n int, value func(i int) float64) []models.SeriesPoint {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.SeriesPoint, n)
	for i := range points {
		points[i] = models.SeriesPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     value(i),
		}
	}
	return points
}

func TestDetectSpikeAllDetectorsAgree(t *testing.T) {
	// stable pm25 between 10 and 20 with one extreme spike at hour 150
	points := hourlySeries(200, func(i int) float64 {
		if i == 150 {
			return 400
		}
		return 10 + float64(i%11)
	})

	d := NewDetector(Config{ZThreshold: 3, IQRMultiplier: 1.5, Contamination: 0.1, MLMinSamples: 50, Seed: 42}, testLogger(t))
	report, err := d.Detect(context.Background(), "pm25", points)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if report.Summary.TotalPoints != 200 {
		t.Fatalf("total points = %d", report.Summary.TotalPoints)
	}

	spike := report.Points[150]
	if !spike.IsZAnomaly || !spike.IsIQRAnomaly || !spike.IsHazardous {
		t.Fatalf("spike verdict incomplete: %+v", spike)
	}
	if spike.HealthLevel != models.LevelVeryUnhealthy {
		t.Fatalf("spike level = %v, want very_unhealthy", spike.HealthLevel)
	}
	if spike.MLScore == nil || spike.IsMLAnomaly == nil {
		t.Fatal("ml detector should be active on 200 points")
	}
	if spike.CombinedScore < 0.8 {
		t.Fatalf("spike combined score = %v, want at least 0.8", spike.CombinedScore)
	}
	if !spike.IsAnomaly {
		t.Fatal("spike not marked anomalous")
	}

	for i, p := range report.Points {
		if i != 150 && p.IsAnomaly {
			t.Fatalf("stable point %d marked anomalous, score %v", i, p.CombinedScore)
		}
	}
	if report.Summary.CombinedAnomalies != 1 {
		t.Fatalf("combined anomalies = %d, want 1", report.Summary.CombinedAnomalies)
	}
	if report.Summary.MLAnomalies == nil {
		t.Fatal("summary missing ml count")
	}
}

func TestDetectConstantSeriesDegrades(t *testing.T) {
	points := hourlySeries(60, func(int) float64 { return 25 })
	d := NewDetector(Config{ZThreshold: 3, IQRMultiplier: 1.5, Contamination: 0.1, MLMinSamples: 50, Seed: 42}, testLogger(t))
	report, err := d.Detect(context.Background(), "pm25", points)
	if err != nil {
		t.Fatalf("constant series must not fail: %v", err)
	}
	if !report.Summary.DegenerateStdDev {
		t.Fatal("summary should record the degenerate spread")
	}
	if report.Summary.ZScoreAnomalies != 0 {
		t.Fatalf("degenerate series produced %d z flags", report.Summary.ZScoreAnomalies)
	}
}

func TestDetectShortSeriesSkipsML(t *testing.T) {
	points := hourlySeries(30, func(i int) float64 { return 10 + float64(i%5) })
	d := NewDetector(Config{ZThreshold: 3, IQRMultiplier: 1.5, Contamination: 0.1, MLMinSamples: 50, Seed: 42}, testLogger(t))
	report, err := d.Detect(context.Background(), "pm25", points)
	if err != nil {
		t.Fatalf("short series must degrade, not fail: %v", err)
	}
	if report.Summary.MLSkippedReason == "" {
		t.Fatal("summary should explain the skipped ml detector")
	}
	if report.Summary.MLAnomalies != nil {
		t.Fatal("ml count should be absent when skipped")
	}
	for _, p := range report.Points {
		if p.MLScore != nil || p.IsMLAnomaly != nil {
			t.Fatal("per-point ml fields should be absent when skipped")
		}
		if p.CombinedScore > 0.8 {
			t.Fatalf("score %v exceeds the 0.8 ceiling without the ml term", p.CombinedScore)
		}
	}
}

func TestDetectNoPresentPoints(t *testing.T) {
	points := []models.SeriesPoint{
		{Timestamp: time.Now(), Missing: true},
		{Timestamp: time.Now().Add(time.Hour), Missing: true},
	}
	d := NewDetector(Config{}, testLogger(t))
	if _, err := d.Detect(context.Background(), "pm25", points); !errors.Is(err, models.ErrNoValidData) {
		t.Fatalf("err = %v, want ErrNoValidData", err)
	}
}

func TestDetectDeterministic(t *testing.T) {
	points := hourlySeries(120, func(i int) float64 {
		if i == 60 {
			return 300
		}
		return 15 + float64(i%7)
	})
	d := NewDetector(Config{Contamination: 0.1, MLMinSamples: 50, Seed: 7}, testLogger(t))
	first, err := d.Detect(context.Background(), "pm25", points)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	second, err := d.Detect(context.Background(), "pm25", points)
	if err != nil {
		t.Fatalf("detect again: %v", err)
	}
	for i := range first.Points {
		a, b := first.Points[i], second.Points[i]
		if a.CombinedScore != b.CombinedScore || a.IsAnomaly != b.IsAnomaly {
			t.Fatalf("point %d differs across seeded runs", i)
		}
		if (a.MLScore == nil) != (b.MLScore == nil) {
			t.Fatalf("point %d ml presence differs across runs", i)
		}
		if a.MLScore != nil && *a.MLScore != *b.MLScore {
			t.Fatalf("point %d ml score differs across seeded runs", i)
		}
	}
}
