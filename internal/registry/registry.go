package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"AirPulse/internal/domain/models"
	"AirPulse/internal/services/imputation"
)

// Registry holds the trained imputation model per pollutant. Lookups are
// concurrent; a retrain builds a fresh model off to the side and swaps the
// reference in one write, so readers never observe a half-trained model.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*imputation.Model
	dir    string
}

// New creates an empty registry persisting bundles under dir.
func New(dir string) *Registry {
	return &Registry{
		models: make(map[string]*imputation.Model),
		dir:    dir,
	}
}

// Dir returns the bundle directory.
func (r *Registry) Dir() string { return r.dir }

// BundleName derives the on-disk bundle base name for a pollutant.
func BundleName(parameter string) string {
	key := normalize(parameter)
	if key == "" {
		key = "pm25"
	}
	return "imputer_" + key
}

func normalize(parameter string) string {
	key := strings.ToLower(strings.TrimSpace(parameter))
	return strings.ReplaceAll(key, ".", "")
}

// Get returns the registered model for a pollutant, or ErrModelNotReady.
func (r *Registry) Get(parameter string) (*imputation.Model, error) {
	r.mu.RLock()
	m, ok := r.models[normalize(parameter)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no model registered for %q", models.ErrModelNotReady, parameter)
	}
	return m, nil
}

// Put registers a trained model for a pollutant, replacing any previous one.
// In-flight predictions against the old model finish undisturbed.
func (r *Registry) Put(parameter string, m *imputation.Model) error {
	if m == nil || !m.Ready() {
		return models.ErrModelNotReady
	}
	r.mu.Lock()
	r.models[normalize(parameter)] = m
	r.mu.Unlock()
	return nil
}

// LoadOrGet returns the in-memory model for a pollutant, falling back to the
// persisted bundle. A bundle restored from disk is registered before being
// returned.
func (r *Registry) LoadOrGet(parameter string, opts imputation.Options) (*imputation.Model, error) {
	if m, err := r.Get(parameter); err == nil {
		return m, nil
	}
	name := BundleName(parameter)
	if !imputation.BundleExists(r.dir, name) {
		return nil, fmt.Errorf("%w: no bundle %q under %s", models.ErrModelNotReady, name, r.dir)
	}
	m, err := imputation.Load(r.dir, name, opts)
	if err != nil {
		return nil, err
	}
	if err := r.Put(parameter, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Save persists a pollutant's bundle and registers the model.
func (r *Registry) Save(parameter string, m *imputation.Model) error {
	if err := m.Save(r.dir, BundleName(parameter)); err != nil {
		return err
	}
	return r.Put(parameter, m)
}

// List describes every registered model, sorted by pollutant.
func (r *Registry) List() []models.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ModelInfo, 0, len(r.models))
	for param, m := range r.models {
		meta := m.Metadata()
		out = append(out, models.ModelInfo{
			Parameter:       param,
			BundleName:      BundleName(param),
			FeatureCount:    meta.FeatureCount,
			SequenceLength:  meta.SequenceLength,
			TrainingSamples: meta.TrainingSamples,
			TrainedAt:       meta.TrainedAt,
			ValLoss:         meta.FinalValLoss,
			ValMAE:          meta.FinalValMAE,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Parameter < out[j].Parameter })
	return out
}
