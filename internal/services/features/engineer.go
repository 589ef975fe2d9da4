package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"AirPulse/internal/domain/models"
)

var lagOffsets = [...]int{1, 2, 3, 6, 12, 24}

// Reindex aligns a raw series onto a complete, gap-free hourly grid between
// its first and last timestamps. Missing hours become explicit missing
// markers, not dropped rows. Duplicate hours are rejected.
func Reindex(points []models.SeriesPoint) ([]models.SeriesPoint, error) {
	if len(points) == 0 {
		return nil, models.ErrNoValidData
	}

	byHour := make(map[int64]models.SeriesPoint, len(points))
	for _, p := range points {
		h := p.Timestamp.Truncate(time.Hour)
		key := h.Unix()
		if _, ok := byHour[key]; ok {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateTimestamp, h.Format(time.RFC3339))
		}
		p.Timestamp = h
		byHour[key] = p
	}

	keys := make([]int64, 0, len(byHour))
	for k := range byHour {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	first := time.Unix(keys[0], 0).UTC()
	last := time.Unix(keys[len(keys)-1], 0).UTC()
	n := int(last.Sub(first)/time.Hour) + 1

	out := make([]models.SeriesPoint, 0, n)
	for ts := first; !ts.After(last); ts = ts.Add(time.Hour) {
		if p, ok := byHour[ts.Unix()]; ok {
			out = append(out, p)
		} else {
			out = append(out, models.SeriesPoint{Timestamp: ts, Missing: true})
		}
	}
	return out, nil
}

// Build turns a reindexed series into one FeatureVector per timestamp.
// Every feature is computed on a temporarily filled copy (forward-fill then
// backward-fill) so the pipeline stays dense; the original missingness is
// carried on HasGap and never overwritten. For N inputs there are exactly N
// outputs, with no NaN anywhere downstream.
func Build(points []models.SeriesPoint) ([]models.FeatureVector, error) {
	n := len(points)
	if n == 0 {
		return nil, models.ErrNoValidData
	}

	temp, ok := tempFill(points)
	if !ok {
		return nil, models.ErrNoValidData
	}

	out := make([]models.FeatureVector, n)
	for i := 0; i < n; i++ {
		ts := points[i].Timestamp
		hour := ts.Hour()
		// Monday=0..Sunday=6; weekend is Saturday and Sunday.
		dow := (int(ts.Weekday()) + 6) % 7

		fv := models.FeatureVector{
			Timestamp:  ts,
			TempFilled: temp[i],
			Hour:       hour,
			DayOfWeek:  dow,
			HourSin:    math.Sin(2 * math.Pi * float64(hour) / 24),
			HourCos:    math.Cos(2 * math.Pi * float64(hour) / 24),
			DaySin:     math.Sin(2 * math.Pi * float64(dow) / 7),
			DayCos:     math.Cos(2 * math.Pi * float64(dow) / 7),
			HasGap:     points[i].Missing,
		}
		if dow >= 5 {
			fv.IsWeekend = 1
		}

		lags := [len(lagOffsets)]float64{}
		for j, lag := range lagOffsets {
			if i >= lag {
				lags[j] = temp[i-lag]
			} else {
				// Head of series: backfill from the earliest filled value.
				lags[j] = temp[0]
			}
		}
		fv.Lag1, fv.Lag2, fv.Lag3, fv.Lag6, fv.Lag12, fv.Lag24 =
			lags[0], lags[1], lags[2], lags[3], lags[4], lags[5]

		fv.RollMean6 = rollMean(temp, i, 6)
		fv.RollStd6 = rollStd(temp, i, 6)
		fv.RollMean24 = rollMean(temp, i, 24)
		fv.RollMax24 = rollMax(temp, i, 24)
		fv.RollMin24 = rollMin(temp, i, 24)

		out[i] = fv
	}
	return out, nil
}

// tempFill forward-fills then backward-fills missing values. Returns false
// when the series has no present value at all.
func tempFill(points []models.SeriesPoint) ([]float64, bool) {
	n := len(points)
	temp := make([]float64, n)
	filled := make([]bool, n)

	// forward fill
	haveAny := false
	var lastVal float64
	for i := 0; i < n; i++ {
		if !points[i].Missing {
			lastVal = points[i].Value
			haveAny = true
		}
		if haveAny {
			temp[i] = lastVal
			filled[i] = true
		}
	}
	if !haveAny {
		return nil, false
	}

	// backward fill the leading run
	var nextVal float64
	haveNext := false
	for i := n - 1; i >= 0; i-- {
		if filled[i] {
			nextVal = temp[i]
			haveNext = true
			continue
		}
		if haveNext {
			temp[i] = nextVal
		}
	}
	return temp, true
}

// Rolling statistics over a trailing window including the current index,
// minimum period 1.

func rollMean(v []float64, i, window int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for j := start; j <= i; j++ {
		sum += v[j]
	}
	return sum / float64(i-start+1)
}

// rollStd is the sample standard deviation over the trailing window. With
// fewer than 2 samples it substitutes 0 so nothing downstream sees NaN.
func rollStd(v []float64, i, window int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	count := i - start + 1
	if count < 2 {
		return 0
	}
	mean := rollMean(v, i, window)
	ss := 0.0
	for j := start; j <= i; j++ {
		d := v[j] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(count-1))
}

func rollMax(v []float64, i, window int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	m := v[start]
	for j := start + 1; j <= i; j++ {
		if v[j] > m {
			m = v[j]
		}
	}
	return m
}

func rollMin(v []float64, i, window int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	m := v[start]
	for j := start + 1; j <= i; j++ {
		if v[j] < m {
			m = v[j]
		}
	}
	return m
}
