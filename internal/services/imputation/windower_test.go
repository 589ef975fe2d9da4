package imputation

import (
	"errors"
	"testing"

	"AirPulse/internal/domain/models"
)

func makeRows(n, width int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, width)
		for j := range rows[i] {
			rows[i][j] = float64(i) + float64(j)/10
		}
	}
	return rows
}

func TestBuildWindowsCount(t *testing.T) {
	// 30 hourly rows with a window of 24 leave exactly 6 targets.
	rows := makeRows(30, 3)
	gaps := make([]bool, 30)
	windows, err := BuildWindows(rows, gaps, 24)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(windows) != 6 {
		t.Fatalf("got %d windows, want 6", len(windows))
	}
	first := windows[0]
	if first.TargetIndex != 24 || len(first.Input) != 24 {
		t.Fatalf("first window: target index %d, input length %d", first.TargetIndex, len(first.Input))
	}
	if first.Target != rows[24][0] {
		t.Fatalf("first target = %v, want %v", first.Target, rows[24][0])
	}
	last := windows[5]
	if last.TargetIndex != 29 {
		t.Fatalf("last window target index = %d, want 29", last.TargetIndex)
	}
}

func TestBuildWindowsInsufficient(t *testing.T) {
	rows := makeRows(24, 2)
	_, err := BuildWindows(rows, make([]bool, 24), 24)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestBuildWindowsGapTag(t *testing.T) {
	rows := makeRows(10, 2)
	gaps := make([]bool, 10)
	gaps[3] = true // inside the first window's input, not a target
	gaps[7] = true // a target row
	windows, err := BuildWindows(rows, gaps, 5)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, w := range windows {
		want := w.TargetIndex == 7
		if w.Gap != want {
			t.Fatalf("window at target %d: gap = %v, want %v", w.TargetIndex, w.Gap, want)
		}
	}
}

func TestSplitTrainVal(t *testing.T) {
	rows := makeRows(30, 2)
	gaps := make([]bool, 30)
	gaps[12] = true
	windows, err := BuildWindows(rows, gaps, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// 28 windows, one with a gap target, 27 eligible
	train, val := SplitTrainVal(windows, 0.1)
	if len(train)+len(val) != 27 {
		t.Fatalf("eligible = %d, want 27", len(train)+len(val))
	}
	if len(val) != 3 {
		t.Fatalf("val = %d, want 3", len(val))
	}
	for _, w := range append(append([]Window(nil), train...), val...) {
		if w.Gap {
			t.Fatalf("gap target %d leaked into the trainable split", w.TargetIndex)
		}
	}
	// the split preserves temporal order: every validation target is later
	// than every training target
	if train[len(train)-1].TargetIndex >= val[0].TargetIndex {
		t.Fatalf("validation head %d not after training tail %d",
			val[0].TargetIndex, train[len(train)-1].TargetIndex)
	}
}
