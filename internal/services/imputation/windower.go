package imputation

import (
	"fmt"

	"AirPulse/internal/domain/models"
)

// DefaultSequenceLength is the trailing window size in hours.
const DefaultSequenceLength = 24

// DefaultValFraction of trainable windows is held out for validation.
const DefaultValFraction = 0.1

// Window is one (input sequence, target) pair. Input holds sequenceLength
// consecutive scaled feature rows; Target is the scaled column-0 value of
// the row immediately after the window. Gap is the target row's gap bit;
// inputs may contain temp-filled values even when the target is real.
type Window struct {
	Input       [][]float64
	Target      float64
	TargetIndex int
	Gap         bool
}

// BuildWindows slides a fixed-length window over the scaled feature table.
// For N rows and length L it emits N-L windows, one per index i in [L, N).
// The table must already be hour-complete: gaps in timestamps are reindexed
// before feature engineering, so windows never silently cross one.
func BuildWindows(scaled [][]float64, gaps []bool, sequenceLength int) ([]Window, error) {
	if sequenceLength < 1 {
		return nil, fmt.Errorf("sequence length must be positive, got %d", sequenceLength)
	}
	if len(scaled) != len(gaps) {
		return nil, fmt.Errorf("feature rows (%d) and gap bits (%d) disagree", len(scaled), len(gaps))
	}
	if len(scaled) < sequenceLength+1 {
		return nil, fmt.Errorf("%w: need at least %d timestamps, got %d",
			models.ErrInsufficientData, sequenceLength+1, len(scaled))
	}

	out := make([]Window, 0, len(scaled)-sequenceLength)
	for i := sequenceLength; i < len(scaled); i++ {
		out = append(out, Window{
			Input:       scaled[i-sequenceLength : i],
			Target:      scaled[i][0],
			TargetIndex: i,
			Gap:         gaps[i],
		})
	}
	return out, nil
}

// SplitTrainVal selects the trainable windows (gap-free targets only) and
// reserves the tail valFraction of them as a validation split. The split is
// never shuffled: temporal ordering is respected.
func SplitTrainVal(windows []Window, valFraction float64) (train, val []Window) {
	if valFraction <= 0 || valFraction >= 1 {
		valFraction = DefaultValFraction
	}
	eligible := make([]Window, 0, len(windows))
	for _, w := range windows {
		if !w.Gap {
			eligible = append(eligible, w)
		}
	}
	split := int(float64(len(eligible)) * (1 - valFraction))
	return eligible[:split], eligible[split:]
}
