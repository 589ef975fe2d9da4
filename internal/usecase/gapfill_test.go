package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"AirPulse/internal/domain/models"
	"AirPulse/internal/registry"
	"AirPulse/pkg/logger"
)

type stubMetrics struct {
	errors  []string
	ingests int
	filled  int
}

func (s *stubMetrics) RecordIngest(source, parameter string)      { s.ingests++ }
func (s *stubMetrics) RecordError(kind string)                    { s.errors = append(s.errors, kind) }
func (s *stubMetrics) RecordGapsFilled(parameter string, n int)   { s.filled += n }
func (s *stubMetrics) RecordAnomalies(parameter string, n int)    {}
func (s *stubMetrics) RecordLatency(op string, seconds float64)   {}

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testModelConfig() ModelConfig {
	return ModelConfig{
		HiddenUnits:  8,
		LearningRate: 0.01,
		MaxEpochs:    10,
		BatchSize:    16,
		Patience:     15,
		LRPatience:   7,
		ValFraction:  0.1,
		Seed:         42,
	}
}

func gapSeries(n int, missing ...int) []models.SeriesPoint {
	isMissing := make(map[int]bool, len(missing))
	for _, i := range missing {
		isMissing[i] = true
	}
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.SeriesPoint, n)
	for i := range points {
		points[i] = models.SeriesPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     20 + 5*math.Sin(float64(i)*2*math.Pi/24),
			Missing:   isMissing[i],
		}
	}
	return points
}

func TestFillGapsTrainsAndFills(t *testing.T) {
	uc := NewGapFillUseCase(registry.New(t.TempDir()), testModelConfig(), testLog(t), &stubMetrics{})
	points := gapSeries(120, 40, 41, 90)

	res, err := uc.FillGaps(context.Background(), GapFillParams{
		Parameter:      "pm25",
		SequenceLength: 6,
		Points:         points,
	})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if res.Summary.TotalPoints != 120 || res.Summary.GapsFound != 3 {
		t.Fatalf("summary = %+v", res.Summary)
	}
	if res.Summary.GapsFilled != 3 {
		t.Fatalf("filled %d of 3 gaps", res.Summary.GapsFilled)
	}
	if !res.Summary.ModelTrained || res.Summary.EpochsRun == 0 {
		t.Fatalf("first run should train: %+v", res.Summary)
	}

	for i, fp := range res.Points {
		if !fp.WasGap {
			// untouched points pass through bit for bit
			if fp.Value == nil || fp.FilledValue != *fp.Value {
				t.Fatalf("point %d: non-gap filled value %v differs from raw %v", i, fp.FilledValue, fp.Value)
			}
			if fp.PredictedValue != nil || fp.GapFilled {
				t.Fatalf("point %d: non-gap carries prediction fields", i)
			}
			continue
		}
		if fp.Value != nil {
			t.Fatalf("point %d: gap carries a raw value", i)
		}
		if !fp.GapFilled || fp.PredictedValue == nil {
			t.Fatalf("point %d: gap not filled", i)
		}
		if fp.FilledValue != *fp.PredictedValue {
			t.Fatalf("point %d: filled %v != predicted %v", i, fp.FilledValue, *fp.PredictedValue)
		}
		if fp.Confidence != 0.95 {
			t.Fatalf("point %d: confidence = %v", i, fp.Confidence)
		}
	}
}

func TestFillGapsReusesRegisteredModel(t *testing.T) {
	reg := registry.New(t.TempDir())
	uc := NewGapFillUseCase(reg, testModelConfig(), testLog(t), &stubMetrics{})
	params := GapFillParams{Parameter: "pm25", SequenceLength: 6, Points: gapSeries(100, 50)}

	first, err := uc.FillGaps(context.Background(), params)
	if err != nil {
		t.Fatalf("first fill: %v", err)
	}
	if !first.Summary.ModelTrained {
		t.Fatal("first run should train")
	}

	second, err := uc.FillGaps(context.Background(), params)
	if err != nil {
		t.Fatalf("second fill: %v", err)
	}
	if second.Summary.ModelTrained {
		t.Fatal("second run should reuse the registered model")
	}
	// the same model over the same series fills identically
	for i := range first.Points {
		if first.Points[i].FilledValue != second.Points[i].FilledValue {
			t.Fatalf("point %d drifted between runs", i)
		}
	}

	forced, err := uc.FillGaps(context.Background(), GapFillParams{
		Parameter: "pm25", SequenceLength: 6, ForceRetrain: true, Points: params.Points,
	})
	if err != nil {
		t.Fatalf("forced fill: %v", err)
	}
	if !forced.Summary.ModelTrained {
		t.Fatal("force_retrain should train a fresh model")
	}
}

func TestFillGapsInsufficientData(t *testing.T) {
	uc := NewGapFillUseCase(registry.New(t.TempDir()), testModelConfig(), testLog(t), &stubMetrics{})
	_, err := uc.FillGaps(context.Background(), GapFillParams{
		Parameter:      "pm25",
		SequenceLength: 24,
		Points:         gapSeries(24),
	})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestFillGapsLeadingGapFallsBack(t *testing.T) {
	uc := NewGapFillUseCase(registry.New(t.TempDir()), testModelConfig(), testLog(t), &stubMetrics{})
	// a gap inside the first window has no history to predict from
	res, err := uc.FillGaps(context.Background(), GapFillParams{
		Parameter:      "pm25",
		SequenceLength: 6,
		Points:         gapSeries(60, 2),
	})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	fp := res.Points[2]
	if !fp.WasGap || fp.GapFilled || fp.PredictedValue != nil {
		t.Fatalf("leading gap should fall back, got %+v", fp)
	}
	if res.Summary.GapsFound != 1 || res.Summary.GapsFilled != 0 {
		t.Fatalf("summary = %+v", res.Summary)
	}
}

func TestTrainRegistersModel(t *testing.T) {
	reg := registry.New(t.TempDir())
	uc := NewGapFillUseCase(reg, testModelConfig(), testLog(t), &stubMetrics{})

	res, err := uc.Train(context.Background(), TrainParams{
		Parameter:      "pm10",
		SequenceLength: 6,
		MaxEpochs:      5,
		Points:         gapSeries(80),
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if res.Info.Parameter != "pm10" || res.Info.BundleName != "imputer_pm10" {
		t.Fatalf("info = %+v", res.Info)
	}
	if res.EpochsRun == 0 || res.Info.TrainedAt == "" {
		t.Fatalf("diagnostics incomplete: %+v", res)
	}

	infos := uc.ListModels()
	if len(infos) != 1 || infos[0].Parameter != "pm10" {
		t.Fatalf("registry listing = %+v", infos)
	}
}

func TestReadingsToSeries(t *testing.T) {
	v := 12.5
	records := []models.Reading{
		{Datetime: "2024-05-01 00:30", Value: &v},
		{Datetime: "2024-05-01T01:00:00Z", Value: nil},
	}
	points, err := ReadingsToSeries(records)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if points[0].Timestamp.Minute() != 0 {
		t.Fatalf("timestamp not hour-aligned: %v", points[0].Timestamp)
	}
	if points[0].Value != 12.5 || points[0].Missing {
		t.Fatalf("point 0 = %+v", points[0])
	}
	if !points[1].Missing {
		t.Fatal("null value should mark the point missing")
	}

	if _, err := ReadingsToSeries([]models.Reading{{Datetime: "yesterday"}}); err == nil {
		t.Fatal("expected error for unparsable datetime")
	}
}
