package imputation

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"AirPulse/internal/domain/models"
)

func TestScalerFitTransform(t *testing.T) {
	rows := [][]float64{
		{10, 0, 5},
		{20, 0, 15},
		{30, 0, 25},
	}
	s := NewMinMaxScaler()
	scaled, err := s.FitTransform(rows)
	if err != nil {
		t.Fatalf("fit transform: %v", err)
	}
	if scaled[0][0] != 0 || scaled[2][0] != 1 || scaled[1][0] != 0.5 {
		t.Fatalf("column 0 scaled to %v, %v, %v", scaled[0][0], scaled[1][0], scaled[2][0])
	}
	// constant column maps to 0 instead of dividing by zero
	for i := range scaled {
		if scaled[i][1] != 0 {
			t.Fatalf("constant column row %d scaled to %v, want 0", i, scaled[i][1])
		}
	}
	if s.NFeatures != 3 || s.NSamples != 3 {
		t.Fatalf("bookkeeping: n_features=%d n_samples=%d", s.NFeatures, s.NSamples)
	}
}

func TestScalerInverseValue(t *testing.T) {
	s := NewMinMaxScaler()
	if _, err := s.FitTransform([][]float64{{10, 1}, {50, 2}}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	v, err := s.InverseValue(0, 0.25)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if math.Abs(v-20) > 1e-12 {
		t.Fatalf("inverse(0.25) = %v, want 20", v)
	}
	if _, err := s.InverseValue(5, 0.5); err == nil {
		t.Fatal("expected out-of-range column error")
	}
}

func TestScalerUnfitted(t *testing.T) {
	s := NewMinMaxScaler()
	if _, err := s.Transform([][]float64{{1}}); !errors.Is(err, models.ErrModelNotReady) {
		t.Fatalf("transform unfitted: err = %v, want ErrModelNotReady", err)
	}
	if err := s.Fit(nil); !errors.Is(err, models.ErrNoValidData) {
		t.Fatalf("fit empty: err = %v, want ErrNoValidData", err)
	}
}

func TestScalerJSONRoundTrip(t *testing.T) {
	s := NewMinMaxScaler()
	if err := s.Fit([][]float64{{1.5, -3}, {4.25, 7}}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored := NewMinMaxScaler()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.Fitted() {
		t.Fatal("restored scaler should report fitted")
	}
	a, _ := s.InverseValue(0, 0.7)
	b, err := restored.InverseValue(0, 0.7)
	if err != nil {
		t.Fatalf("restored inverse: %v", err)
	}
	if a != b {
		t.Fatalf("inverse drifted across persistence: %v vs %v", a, b)
	}
}
