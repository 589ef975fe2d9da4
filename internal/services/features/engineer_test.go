package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"AirPulse/internal/domain/models"
)

func hourly(start time.Time, vals []float64, missing map[int]bool) []models.SeriesPoint {
	pts := make([]models.SeriesPoint, len(vals))
	for i := range vals {
		pts[i] = models.SeriesPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     vals[i],
			Missing:   missing[i],
		}
	}
	return pts
}

func TestReindexFillsMissingHours(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pts := []models.SeriesPoint{
		{Timestamp: start, Value: 10},
		{Timestamp: start.Add(3 * time.Hour), Value: 13},
	}
	out, err := Reindex(pts)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 points, got %d", len(out))
	}
	if !out[1].Missing || !out[2].Missing {
		t.Fatalf("expected hours 1 and 2 to be missing markers")
	}
	if out[3].Missing || out[3].Value != 13 {
		t.Fatalf("expected hour 3 present with value 13")
	}
}

func TestReindexRejectsDuplicates(t *testing.T) {
	ts := time.Date(2024, 3, 1, 5, 20, 0, 0, time.UTC)
	pts := []models.SeriesPoint{
		{Timestamp: ts, Value: 1},
		{Timestamp: ts.Add(10 * time.Minute), Value: 2}, // same hour
	}
	if _, err := Reindex(pts); !errors.Is(err, models.ErrDuplicateTimestamp) {
		t.Fatalf("expected ErrDuplicateTimestamp, got %v", err)
	}
}

func TestReindexEmpty(t *testing.T) {
	if _, err := Reindex(nil); !errors.Is(err, models.ErrNoValidData) {
		t.Fatalf("expected ErrNoValidData, got %v", err)
	}
}

func TestBuildRowCountAndGapBit(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pts := hourly(start, []float64{10, 0, 12, 13, 0, 15}, map[int]bool{1: true, 4: true})
	fvs, err := Build(pts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(fvs) != len(pts) {
		t.Fatalf("expected %d vectors, got %d", len(pts), len(fvs))
	}
	for i, fv := range fvs {
		if fv.HasGap != pts[i].Missing {
			t.Fatalf("gap bit mismatch at %d", i)
		}
	}
	// forward fill carries 10 into the gap at index 1
	if fvs[1].TempFilled != 10 {
		t.Fatalf("expected ffill value 10, got %v", fvs[1].TempFilled)
	}
	// gap at index 4 takes the previous present value 13
	if fvs[4].TempFilled != 13 {
		t.Fatalf("expected ffill value 13, got %v", fvs[4].TempFilled)
	}
}

func TestBuildLeadingGapBackfills(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pts := hourly(start, []float64{0, 0, 7, 8}, map[int]bool{0: true, 1: true})
	fvs, err := Build(pts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if fvs[0].TempFilled != 7 || fvs[1].TempFilled != 7 {
		t.Fatalf("expected backfill of 7 at head, got %v %v", fvs[0].TempFilled, fvs[1].TempFilled)
	}
}

func TestBuildAllMissing(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pts := hourly(start, []float64{0, 0}, map[int]bool{0: true, 1: true})
	if _, err := Build(pts); !errors.Is(err, models.ErrNoValidData) {
		t.Fatalf("expected ErrNoValidData, got %v", err)
	}
}

func TestCyclicalEncodings(t *testing.T) {
	// Midnight on a Monday.
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	fvs, err := Build(hourly(start, []float64{1, 2, 3}, nil))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if fvs[0].HourSin != 0 || fvs[0].HourCos != 1 {
		t.Fatalf("hour 0 encoding wrong: sin=%v cos=%v", fvs[0].HourSin, fvs[0].HourCos)
	}
	if fvs[0].DayOfWeek != 0 || fvs[0].IsWeekend != 0 {
		t.Fatalf("monday should be dow 0, weekday")
	}
	// Hour 6 is a quarter turn.
	start6 := time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC) // Saturday
	fvs6, _ := Build(hourly(start6, []float64{1, 2}, nil))
	if math.Abs(fvs6[0].HourSin-1) > 1e-12 {
		t.Fatalf("hour 6 sin should be 1, got %v", fvs6[0].HourSin)
	}
	if fvs6[0].IsWeekend != 1 {
		t.Fatalf("saturday should be weekend")
	}
}

func TestLagFeatures(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = float64(i)
	}
	fvs, err := Build(hourly(start, vals, nil))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	last := fvs[29]
	if last.Lag1 != 28 || last.Lag24 != 5 {
		t.Fatalf("lag values wrong: lag1=%v lag24=%v", last.Lag1, last.Lag24)
	}
	// Before the offset exists, lags backfill from the series head.
	if fvs[2].Lag24 != 0 {
		t.Fatalf("head lag24 should backfill to first value, got %v", fvs[2].Lag24)
	}
}

func TestRollingStats(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fvs, err := Build(hourly(start, []float64{2, 4, 6, 8}, nil))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Single sample: std substitutes 0, mean/max/min equal the value.
	if fvs[0].RollStd6 != 0 {
		t.Fatalf("first roll std must be 0, got %v", fvs[0].RollStd6)
	}
	if fvs[0].RollMean6 != 2 || fvs[0].RollMax24 != 2 || fvs[0].RollMin24 != 2 {
		t.Fatalf("first rolling stats should equal the value")
	}
	if fvs[3].RollMean6 != 5 {
		t.Fatalf("mean of 2,4,6,8 should be 5, got %v", fvs[3].RollMean6)
	}
	// Sample std of {2,4}: sqrt(2).
	if math.Abs(fvs[1].RollStd6-math.Sqrt2) > 1e-12 {
		t.Fatalf("std of 2,4 should be sqrt 2, got %v", fvs[1].RollStd6)
	}
	if fvs[3].RollMax24 != 8 || fvs[3].RollMin24 != 2 {
		t.Fatalf("rolling max/min wrong: %v %v", fvs[3].RollMax24, fvs[3].RollMin24)
	}
}
