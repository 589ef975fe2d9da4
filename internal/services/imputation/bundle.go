package imputation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"AirPulse/internal/domain/models"
)

// Bundle artifact suffixes. A saved model is three co-located JSON files
// sharing one base name, written atomically via rename so a crash mid-save
// never leaves a readable partial bundle.
const (
	weightsSuffix  = "_weights.json"
	scalerSuffix   = "_scaler.json"
	metadataSuffix = "_metadata.json"
)

type weightsFile struct {
	W1 [][]float64 `json:"w1"`
	B1 []float64   `json:"b1"`
	W2 []float64   `json:"w2"`
	B2 float64     `json:"b2"`
}

// Save persists the model as a three-artifact bundle under dir. The weights,
// scaler bounds and metadata travel together; loading any one without the
// others is not supported.
func (m *Model) Save(dir, name string) error {
	if !m.fitted {
		return models.ErrModelNotReady
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	wf := weightsFile{W1: m.w1, B1: m.b1, W2: m.w2, B2: m.b2}
	if err := writeJSON(filepath.Join(dir, name+weightsSuffix), wf); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, name+scalerSuffix), m.Scaler); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, name+metadataSuffix), m.meta)
}

// Load restores a bundle saved under dir. The persisted geometry must match
// opts, otherwise ErrModelMismatch: a model trained for one feature layout
// or window length must not silently predict for another.
func Load(dir, name string, opts Options) (*Model, error) {
	opts.applyDefaults()

	var meta Metadata
	if err := readJSON(filepath.Join(dir, name+metadataSuffix), &meta); err != nil {
		return nil, err
	}
	if meta.FeatureCount != opts.FeatureCount || meta.SequenceLength != opts.SequenceLength {
		return nil, fmt.Errorf("%w: bundle %dx%d, want %dx%d",
			models.ErrModelMismatch,
			meta.SequenceLength, meta.FeatureCount,
			opts.SequenceLength, opts.FeatureCount)
	}

	var wf weightsFile
	if err := readJSON(filepath.Join(dir, name+weightsSuffix), &wf); err != nil {
		return nil, err
	}
	scaler := NewMinMaxScaler()
	if err := readJSON(filepath.Join(dir, name+scalerSuffix), scaler); err != nil {
		return nil, err
	}
	if !scaler.Fitted() {
		return nil, fmt.Errorf("%w: scaler artifact has no bounds", models.ErrModelMismatch)
	}

	if meta.HiddenUnits > 0 {
		opts.HiddenUnits = meta.HiddenUnits
	}
	m := NewModel(opts)
	in := m.inputDim()
	if len(wf.W1) != opts.HiddenUnits || len(wf.W2) != opts.HiddenUnits || len(wf.B1) != opts.HiddenUnits {
		return nil, fmt.Errorf("%w: weights artifact has %d hidden units, want %d",
			models.ErrModelMismatch, len(wf.W1), opts.HiddenUnits)
	}
	for i, row := range wf.W1 {
		if len(row) != in {
			return nil, fmt.Errorf("%w: weights row %d width %d, want %d",
				models.ErrModelMismatch, i, len(row), in)
		}
	}

	m.w1 = wf.W1
	m.b1 = wf.B1
	m.w2 = wf.W2
	m.b2 = wf.B2
	m.Scaler = scaler
	m.meta = meta
	m.fitted = true
	return m, nil
}

// BundleExists reports whether all three artifacts for name are present
// under dir.
func BundleExists(dir, name string) bool {
	for _, suffix := range []string{weightsSuffix, scalerSuffix, metadataSuffix} {
		if _, err := os.Stat(filepath.Join(dir, name+suffix)); err != nil {
			return false
		}
	}
	return true
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: missing artifact %s", models.ErrModelNotReady, filepath.Base(path))
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
