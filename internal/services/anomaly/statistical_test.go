package anomaly

import (
	"math"
	"testing"
)

func TestZScoresFlagsSpike(t *testing.T) {
	values := []float64{10, 12, 11, 13, 10, 12, 11, 400}
	res := ZScores(values, 2.0)
	if res.Degenerate {
		t.Fatal("series with spread reported degenerate")
	}
	if !res.Flags[7] {
		t.Fatalf("spike z = %v, not flagged", res.Scores[7])
	}
	for i := 0; i < 7; i++ {
		if res.Flags[i] {
			t.Fatalf("stable point %d flagged, z = %v", i, res.Scores[i])
		}
	}
}

func TestZScoresDegenerate(t *testing.T) {
	res := ZScores([]float64{7, 7, 7, 7, 7}, 3.0)
	if !res.Degenerate {
		t.Fatal("constant series should report degenerate")
	}
	for i, f := range res.Flags {
		if f || res.Scores[i] != 0 {
			t.Fatalf("degenerate series flagged point %d", i)
		}
	}

	if !ZScores([]float64{5}, 3.0).Degenerate {
		t.Fatal("single point should report degenerate")
	}
}

func TestZScoresSampleStd(t *testing.T) {
	// mean 3, sample std sqrt(2) for {2, 4, 2, 4}... use exact values
	res := ZScores([]float64{2, 4}, 10)
	want := 1 / math.Sqrt2
	if math.Abs(math.Abs(res.Scores[0])-want) > 1e-12 {
		t.Fatalf("z = %v, want magnitude %v with n-1 divisor", res.Scores[0], want)
	}
}

func TestQuantileInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	if q := Quantile(values, 0.25); math.Abs(q-1.75) > 1e-12 {
		t.Fatalf("q1 = %v, want 1.75", q)
	}
	if q := Quantile(values, 0.75); math.Abs(q-3.25) > 1e-12 {
		t.Fatalf("q3 = %v, want 3.25", q)
	}
	if q := Quantile(values, 0.5); q != 2.5 {
		t.Fatalf("median = %v, want 2.5", q)
	}
	if q := Quantile([]float64{9}, 0.75); q != 9 {
		t.Fatalf("single-point quantile = %v, want 9", q)
	}
}

// Lowering the z threshold or the IQR multiplier must only ever widen the
// flagged set: every point caught at a stricter setting stays caught, and
// the total count never shrinks.
func TestDetectorSensitivityMonotonic(t *testing.T) {
	values := []float64{10, 12, 11, 13, 10, 40, 12, 11, 90, 13, 10, 12, 250, 11, 13}

	zThresholds := []float64{4, 3, 2, 1, 0.5}
	var prevFlags []bool
	for _, th := range zThresholds {
		res := ZScores(values, th)
		if res.Degenerate {
			t.Fatalf("series reported degenerate at threshold %v", th)
		}
		if prevFlags != nil {
			for i, was := range prevFlags {
				if was && !res.Flags[i] {
					t.Fatalf("point %d unflagged when z threshold dropped to %v", i, th)
				}
			}
			if countFlags(res.Flags) < countFlags(prevFlags) {
				t.Fatalf("flag count shrank at z threshold %v", th)
			}
		}
		prevFlags = res.Flags
	}

	multipliers := []float64{3, 1.5, 1, 0.5}
	prevFlags = nil
	for _, m := range multipliers {
		res := IQRFlags(values, m)
		if prevFlags != nil {
			for i, was := range prevFlags {
				if was && !res.Flags[i] {
					t.Fatalf("point %d unflagged when IQR multiplier dropped to %v", i, m)
				}
			}
			if countFlags(res.Flags) < countFlags(prevFlags) {
				t.Fatalf("flag count shrank at IQR multiplier %v", m)
			}
		}
		prevFlags = res.Flags
	}
}

func countFlags(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func TestIQRFlags(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14, 100}
	res := IQRFlags(values, 1.5)
	if !res.Flags[5] {
		t.Fatalf("outlier inside fence [%v, %v]", res.Lower, res.Upper)
	}
	for i := 0; i < 5; i++ {
		if res.Flags[i] {
			t.Fatalf("inlier %v flagged by fence [%v, %v]", values[i], res.Lower, res.Upper)
		}
	}
	if res.Lower >= res.Upper {
		t.Fatalf("fence inverted: [%v, %v]", res.Lower, res.Upper)
	}
}
