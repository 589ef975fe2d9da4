package anomaly

import (
	"math"
	"sort"
)

// ZScoreResult holds the per-point z-scores and flags. Degenerate is set
// when the series cannot support the detector (fewer than two points or
// zero spread); scores are then all 0 and nothing is flagged.
type ZScoreResult struct {
	Scores     []float64
	Flags      []bool
	Degenerate bool
}

// ZScores flags points whose absolute z-score exceeds threshold. The
// standard deviation is the sample deviation (n-1 divisor).
func ZScores(values []float64, threshold float64) ZScoreResult {
	res := ZScoreResult{
		Scores: make([]float64, len(values)),
		Flags:  make([]bool, len(values)),
	}
	mean, std := meanStd(values)
	if std == 0 {
		res.Degenerate = true
		return res
	}
	for i, v := range values {
		z := (v - mean) / std
		res.Scores[i] = z
		res.Flags[i] = math.Abs(z) > threshold
	}
	return res
}

// IQRResult holds the interquartile fence and per-point flags.
type IQRResult struct {
	Lower float64
	Upper float64
	Flags []bool
}

// IQRFlags fences values at [q1 - k*iqr, q3 + k*iqr] and flags everything
// strictly outside.
func IQRFlags(values []float64, multiplier float64) IQRResult {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1
	res := IQRResult{
		Lower: q1 - multiplier*iqr,
		Upper: q3 + multiplier*iqr,
		Flags: make([]bool, len(values)),
	}
	for i, v := range values {
		res.Flags[i] = v < res.Lower || v > res.Upper
	}
	return res
}

// Quantile computes the q-th quantile with linear interpolation between
// closest ranks.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) < 2 {
		if len(values) == 1 {
			return values[0], 0
		}
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}
