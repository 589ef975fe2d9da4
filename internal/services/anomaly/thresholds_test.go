package anomaly

import (
	"testing"

	"AirPulse/internal/domain/models"
)

func TestClassifyPM25(t *testing.T) {
	th := ThresholdsFor("pm25")
	cases := []struct {
		value float64
		want  models.HealthLevel
	}{
		{0, models.LevelSafe},
		{14.9, models.LevelSafe},
		{15, models.LevelSafe}, // safe bound is informational, not a cutoff
		{34.9, models.LevelSafe},
		{35, models.LevelModerate},
		{55, models.LevelUnhealthySensitive},
		{150, models.LevelUnhealthy},
		{250, models.LevelVeryUnhealthy},
		{499.9, models.LevelVeryUnhealthy},
		{500, models.LevelHazardous},
		{1200, models.LevelHazardous},
	}
	for _, c := range cases {
		if got := th.Classify(c.value); got != c.want {
			t.Fatalf("classify(%v) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	for _, param := range []string{"pm25", "pm10", "o3"} {
		th := ThresholdsFor(param)
		prev := -1
		for v := 0.0; v <= 700; v += 0.5 {
			rank := th.Classify(v).Rank()
			if rank < prev {
				t.Fatalf("%s: classification rank dropped at value %v", param, v)
			}
			prev = rank
		}
	}
}

func TestThresholdsFallback(t *testing.T) {
	if ThresholdsFor("no2") != whoThresholds["pm25"] {
		t.Fatal("unknown pollutant should fall back to the pm25 table")
	}
	if ThresholdsFor("PM2.5") != whoThresholds["pm25"] {
		t.Fatal("pollutant lookup should normalize case and punctuation")
	}
	if ThresholdsFor("o3").Moderate != 160 {
		t.Fatalf("o3 moderate bound = %v, want 160", ThresholdsFor("o3").Moderate)
	}
}

func TestClassifyValueMissing(t *testing.T) {
	th := ThresholdsFor("pm25")
	if got := th.ClassifyValue(nil); got != models.LevelUnknown {
		t.Fatalf("missing value classified as %v, want unknown", got)
	}
	if IsHazardous(models.LevelUnknown) {
		t.Fatal("unknown must never count as hazardous")
	}
	v := 600.0
	if got := th.ClassifyValue(&v); got != models.LevelHazardous {
		t.Fatalf("ClassifyValue(600) = %v, want hazardous", got)
	}
}

func TestIsHazardous(t *testing.T) {
	if IsHazardous(models.LevelUnhealthySensitive) {
		t.Fatal("unhealthy_sensitive must not count as hazardous")
	}
	for _, l := range []models.HealthLevel{models.LevelUnhealthy, models.LevelVeryUnhealthy, models.LevelHazardous} {
		if !IsHazardous(l) {
			t.Fatalf("%v should count as hazardous", l)
		}
	}
}
