package imputation

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"AirPulse/internal/domain/models"
)

// Training knobs. Loss is Huber for outlier tolerance; the learning rate
// halves on validation plateau down to minLearningRate, and training stops
// early once validation loss has not improved for Patience epochs.
const (
	huberDelta      = 1.0
	lrReduceFactor  = 0.5
	minLearningRate = 1e-5
	minImprovement  = 1e-9
)

// Options configures a sequence-regression model.
type Options struct {
	SequenceLength int
	FeatureCount   int
	HiddenUnits    int
	LearningRate   float64
	Patience       int
	LRPatience     int
	Seed           int64
}

func (o *Options) applyDefaults() {
	if o.SequenceLength == 0 {
		o.SequenceLength = DefaultSequenceLength
	}
	if o.FeatureCount == 0 {
		o.FeatureCount = models.FeatureCount
	}
	if o.HiddenUnits == 0 {
		o.HiddenUnits = 32
	}
	if o.LearningRate == 0 {
		o.LearningRate = 0.001
	}
	if o.Patience == 0 {
		o.Patience = 15
	}
	if o.LRPatience == 0 {
		o.LRPatience = 7
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
}

// Metadata describes a completed training run. Persisted as the bundle's
// JSON metadata artifact.
type Metadata struct {
	Parameter       string  `json:"parameter,omitempty"`
	FeatureCount    int     `json:"n_features"`
	SequenceLength  int     `json:"sequence_length"`
	HiddenUnits     int     `json:"hidden_units"`
	TrainingSamples int     `json:"training_samples"`
	EpochsRun       int     `json:"training_epochs"`
	FinalTrainLoss  float64 `json:"final_train_loss"`
	FinalValLoss    float64 `json:"final_val_loss"`
	FinalTrainMAE   float64 `json:"final_train_mae"`
	FinalValMAE     float64 `json:"final_val_mae"`
	TrainedAt       string  `json:"trained_date,omitempty"`
}

// Diagnostics is what Fit reports back to the caller.
type Diagnostics struct {
	EpochsRun int
	TrainLoss float64
	ValLoss   float64
	TrainMAE  float64
	ValMAE    float64
}

// Model is a sequence-to-value regression network: a window of scaled
// feature rows is flattened and mapped through one hidden layer to the next
// scaled value. It is mutable during Fit and treated as immutable afterwards;
// retraining builds a fresh Model and swaps the registry reference.
type Model struct {
	opts   Options
	Scaler *MinMaxScaler

	// weights: hidden x (sequenceLength*featureCount), hidden biases,
	// hidden->output weights, output bias
	w1 [][]float64
	b1 []float64
	w2 []float64
	b2 float64

	meta   Metadata
	fitted bool
}

// NewModel creates an untrained model with the given options.
func NewModel(opts Options) *Model {
	opts.applyDefaults()
	return &Model{opts: opts, Scaler: NewMinMaxScaler()}
}

// Options returns the model configuration.
func (m *Model) Options() Options { return m.opts }

// Metadata returns the training metadata of a fitted or loaded model.
func (m *Model) Metadata() Metadata { return m.meta }

// Ready reports whether the model can predict.
func (m *Model) Ready() bool { return m.fitted }

func (m *Model) inputDim() int {
	return m.opts.SequenceLength * m.opts.FeatureCount
}

func (m *Model) initWeights(rng *rand.Rand) {
	in := m.inputDim()
	h := m.opts.HiddenUnits
	// He-style init scaled to the fan-in.
	scale := math.Sqrt(2.0 / float64(in))
	m.w1 = make([][]float64, h)
	m.b1 = make([]float64, h)
	for i := range m.w1 {
		m.w1[i] = make([]float64, in)
		for j := range m.w1[i] {
			m.w1[i][j] = rng.NormFloat64() * scale
		}
	}
	m.w2 = make([]float64, h)
	scale2 := math.Sqrt(2.0 / float64(h))
	for i := range m.w2 {
		m.w2[i] = rng.NormFloat64() * scale2
	}
	m.b2 = 0
}

// forward computes the hidden activations and the scalar output for one
// flattened window.
func (m *Model) forward(x []float64, hidden []float64) float64 {
	for i, row := range m.w1 {
		sum := m.b1[i]
		for j, w := range row {
			sum += w * x[j]
		}
		if sum < 0 {
			sum = 0 // ReLU
		}
		hidden[i] = sum
	}
	out := m.b2
	for i, h := range hidden {
		out += m.w2[i] * h
	}
	return out
}

func flatten(w Window, dst []float64) []float64 {
	dst = dst[:0]
	for _, row := range w.Input {
		dst = append(dst, row...)
	}
	return dst
}

// huber returns the loss and its derivative with respect to the residual.
func huber(residual float64) (loss, grad float64) {
	a := math.Abs(residual)
	if a <= huberDelta {
		return 0.5 * residual * residual, residual
	}
	return huberDelta * (a - 0.5*huberDelta), huberDelta * sign(residual)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Fit trains the network on the training windows, monitoring the validation
// windows for early stopping and learning-rate reduction. The best weights
// seen on validation are restored before returning. Cancelling the context
// abandons the run; nothing already persisted is touched.
func (m *Model) Fit(ctx context.Context, train, val []Window, maxEpochs, batchSize int) (Diagnostics, error) {
	if len(train) == 0 {
		return Diagnostics{}, fmt.Errorf("%w: no trainable windows", models.ErrInsufficientData)
	}
	if maxEpochs <= 0 {
		maxEpochs = 100
	}
	if batchSize <= 0 {
		batchSize = 16
	}

	rng := rand.New(rand.NewSource(m.opts.Seed))
	m.initWeights(rng)

	in := m.inputDim()
	xTrain := make([][]float64, len(train))
	for i, w := range train {
		xTrain[i] = flatten(w, make([]float64, 0, in))
		if len(xTrain[i]) != in {
			return Diagnostics{}, fmt.Errorf("%w: window width %d, want %d",
				models.ErrModelMismatch, len(xTrain[i]), in)
		}
	}
	xVal := make([][]float64, len(val))
	for i, w := range val {
		xVal[i] = flatten(w, make([]float64, 0, in))
	}

	lr := m.opts.LearningRate
	bestValLoss := math.Inf(1)
	sinceImproved := 0
	sinceReduced := 0
	var best snapshot

	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	hidden := make([]float64, m.opts.HiddenUnits)
	gw1 := make([][]float64, m.opts.HiddenUnits)
	for i := range gw1 {
		gw1[i] = make([]float64, in)
	}
	gb1 := make([]float64, m.opts.HiddenUnits)
	gw2 := make([]float64, m.opts.HiddenUnits)

	var diag Diagnostics
	for epoch := 0; epoch < maxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Diagnostics{}, fmt.Errorf("training cancelled: %w", err)
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += batchSize {
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}
			n := float64(end - start)

			for i := range gw1 {
				for j := range gw1[i] {
					gw1[i][j] = 0
				}
				gb1[i] = 0
				gw2[i] = 0
			}
			gb2 := 0.0

			for _, idx := range order[start:end] {
				x := xTrain[idx]
				pred := m.forward(x, hidden)
				_, dLdP := huber(pred - train[idx].Target)

				gb2 += dLdP
				for i, h := range hidden {
					gw2[i] += dLdP * h
					if h > 0 { // ReLU gate
						dh := dLdP * m.w2[i]
						gb1[i] += dh
						row := gw1[i]
						for j, xv := range x {
							row[j] += dh * xv
						}
					}
				}
			}

			step := lr / n
			for i := range m.w1 {
				row := m.w1[i]
				grow := gw1[i]
				for j := range row {
					row[j] -= step * grow[j]
				}
				m.b1[i] -= step * gb1[i]
				m.w2[i] -= step * gw2[i]
			}
			m.b2 -= step * gb2
		}

		trainLoss, trainMAE := m.evaluate(xTrain, train, hidden)
		valLoss, valMAE := trainLoss, trainMAE
		if len(val) > 0 {
			valLoss, valMAE = m.evaluate(xVal, val, hidden)
		}
		diag = Diagnostics{
			EpochsRun: epoch + 1,
			TrainLoss: trainLoss,
			ValLoss:   valLoss,
			TrainMAE:  trainMAE,
			ValMAE:    valMAE,
		}

		if valLoss < bestValLoss-minImprovement {
			bestValLoss = valLoss
			sinceImproved = 0
			sinceReduced = 0
			best = m.snapshot()
		} else {
			sinceImproved++
			sinceReduced++
		}

		if sinceReduced >= m.opts.LRPatience && lr > minLearningRate {
			lr *= lrReduceFactor
			if lr < minLearningRate {
				lr = minLearningRate
			}
			sinceReduced = 0
		}
		if sinceImproved >= m.opts.Patience {
			break
		}
	}

	if best.w1 != nil {
		m.restore(best)
	}

	m.meta = Metadata{
		FeatureCount:    m.opts.FeatureCount,
		SequenceLength:  m.opts.SequenceLength,
		HiddenUnits:     m.opts.HiddenUnits,
		TrainingSamples: len(train),
		EpochsRun:       diag.EpochsRun,
		FinalTrainLoss:  diag.TrainLoss,
		FinalValLoss:    diag.ValLoss,
		FinalTrainMAE:   diag.TrainMAE,
		FinalValMAE:     diag.ValMAE,
	}
	m.fitted = true
	return diag, nil
}

func (m *Model) evaluate(xs [][]float64, ws []Window, hidden []float64) (loss, mae float64) {
	if len(ws) == 0 {
		return 0, 0
	}
	for i, x := range xs {
		pred := m.forward(x, hidden)
		residual := pred - ws[i].Target
		l, _ := huber(residual)
		loss += l
		mae += math.Abs(residual)
	}
	n := float64(len(ws))
	return loss / n, mae / n
}

// SetProvenance stamps the pollutant and training time into the metadata
// that travels with the bundle.
func (m *Model) SetProvenance(parameter, trainedAt string) {
	m.meta.Parameter = parameter
	m.meta.TrainedAt = trainedAt
}

// Predict returns one value per window in original units, inverse-scaled
// through the pollutant column.
func (m *Model) Predict(windows []Window) ([]float64, error) {
	if !m.fitted {
		return nil, models.ErrModelNotReady
	}
	if m.Scaler == nil || !m.Scaler.Fitted() {
		return nil, fmt.Errorf("%w: scaler bounds missing", models.ErrModelNotReady)
	}

	in := m.inputDim()
	hidden := make([]float64, m.opts.HiddenUnits)
	buf := make([]float64, 0, in)
	out := make([]float64, len(windows))
	for i, w := range windows {
		x := flatten(w, buf)
		if len(x) != in {
			return nil, fmt.Errorf("%w: window width %d, want %d", models.ErrModelMismatch, len(x), in)
		}
		scaled := m.forward(x, hidden)
		v, err := m.Scaler.InverseValue(0, scaled)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type snapshot struct {
	w1 [][]float64
	b1 []float64
	w2 []float64
	b2 float64
}

func (m *Model) snapshot() snapshot {
	s := snapshot{
		w1: make([][]float64, len(m.w1)),
		b1: append([]float64(nil), m.b1...),
		w2: append([]float64(nil), m.w2...),
		b2: m.b2,
	}
	for i, row := range m.w1 {
		s.w1[i] = append([]float64(nil), row...)
	}
	return s
}

func (m *Model) restore(s snapshot) {
	m.w1 = s.w1
	m.b1 = s.b1
	m.w2 = s.w2
	m.b2 = s.b2
}
