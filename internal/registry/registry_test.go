package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"AirPulse/internal/domain/models"
	"AirPulse/internal/services/imputation"
)

func trainSmallModel(t *testing.T) *imputation.Model {
	t.Helper()
	rows := make([][]float64, 40)
	for i := range rows {
		rows[i] = []float64{float64(i % 7), float64(i), float64(40 - i)}
	}
	scaler := imputation.NewMinMaxScaler()
	scaled, err := scaler.FitTransform(rows)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	windows, err := imputation.BuildWindows(scaled, make([]bool, len(rows)), 4)
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	train, val := imputation.SplitTrainVal(windows, 0.1)

	m := imputation.NewModel(imputation.Options{SequenceLength: 4, FeatureCount: 3, HiddenUnits: 4, Seed: 1})
	m.Scaler = scaler
	if _, err := m.Fit(context.Background(), train, val, 5, 8); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return m
}

func TestRegistryGetMissing(t *testing.T) {
	r := New(t.TempDir())
	if _, err := r.Get("pm25"); !errors.Is(err, models.ErrModelNotReady) {
		t.Fatalf("err = %v, want ErrModelNotReady", err)
	}
}

func TestRegistryPutAndSwap(t *testing.T) {
	r := New(t.TempDir())
	first := trainSmallModel(t)
	if err := r.Put("PM2.5", first); err != nil {
		t.Fatalf("put: %v", err)
	}

	// lookup normalizes the pollutant name
	got, err := r.Get("pm25")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != first {
		t.Fatal("registry returned a different model")
	}

	second := trainSmallModel(t)
	if err := r.Put("pm25", second); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if got, _ := r.Get("pm25"); got != second {
		t.Fatal("swap did not replace the registered model")
	}
}

func TestRegistryRejectsUntrained(t *testing.T) {
	r := New(t.TempDir())
	m := imputation.NewModel(imputation.Options{SequenceLength: 4, FeatureCount: 3})
	if err := r.Put("pm25", m); !errors.Is(err, models.ErrModelNotReady) {
		t.Fatalf("err = %v, want ErrModelNotReady", err)
	}
}

func TestRegistrySaveAndLoadOrGet(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	m := trainSmallModel(t)
	if err := r.Save("pm25", m); err != nil {
		t.Fatalf("save: %v", err)
	}

	// a fresh registry over the same directory restores from the bundle
	fresh := New(dir)
	loaded, err := fresh.LoadOrGet("pm25", m.Options())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Ready() {
		t.Fatal("restored model not ready")
	}
	// restored once, then served from memory
	again, err := fresh.LoadOrGet("pm25", m.Options())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if again != loaded {
		t.Fatal("second lookup re-read the bundle instead of the registry")
	}
}

func TestRegistryList(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Put("pm10", trainSmallModel(t)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := r.Put("pm25", trainSmallModel(t)); err != nil {
		t.Fatalf("put: %v", err)
	}
	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("list returned %d entries", len(infos))
	}
	if infos[0].Parameter != "pm10" || infos[1].Parameter != "pm25" {
		t.Fatalf("list not sorted: %v, %v", infos[0].Parameter, infos[1].Parameter)
	}
	if infos[0].BundleName != "imputer_pm10" {
		t.Fatalf("bundle name = %q", infos[0].BundleName)
	}
	if infos[1].SequenceLength != 4 {
		t.Fatalf("metadata missing from listing: %+v", infos[1])
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := New(t.TempDir())
	m := trainSmallModel(t)
	if err := r.Put("pm25", m); err != nil {
		t.Fatalf("put: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := r.Get("pm25"); err != nil {
					t.Errorf("get: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.List()
			}
		}()
	}
	wg.Wait()
}
