package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AirPulse/internal/domain/models"
	domrepo "AirPulse/internal/domain/repository"
	"AirPulse/internal/registry"
	"AirPulse/internal/services/features"
	"AirPulse/internal/services/imputation"
	"AirPulse/pkg/logger"
)

// Confidence placeholder attached to every filled point. Not a derived
// uncertainty estimate.
const fillConfidence = 0.95

// ModelConfig carries the training defaults for the imputation network.
type ModelConfig struct {
	HiddenUnits  int
	LearningRate float64
	MaxEpochs    int
	BatchSize    int
	Patience     int
	LRPatience   int
	ValFraction  float64
	Seed         int64
}

// GapFillUseCase fills gaps in pollutant series with a trained
// sequence-regression model and manages the per-pollutant model registry.
type GapFillUseCase struct {
	reg     *registry.Registry
	cfg     ModelConfig
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewGapFillUseCase(reg *registry.Registry, cfg ModelConfig, log *logger.Logger, metrics domrepo.Metrics) *GapFillUseCase {
	return &GapFillUseCase{reg: reg, cfg: cfg, log: log, metrics: metrics}
}

type GapFillParams struct {
	Parameter      string
	ModelName      string // optional registry key override
	SequenceLength int
	ForceRetrain   bool
	Points         []models.SeriesPoint
}

// FillGaps reindexes the series to a dense hourly grid, engineers features,
// then fills every gap that has a full window of history before it. The
// model comes from the registry (memory, then disk) unless retraining is
// forced or nothing usable is registered.
func (uc *GapFillUseCase) FillGaps(ctx context.Context, p GapFillParams) (*models.GapFillResult, error) {
	series, err := features.Reindex(p.Points)
	if err != nil {
		return nil, err
	}
	vectors, err := features.Build(series)
	if err != nil {
		return nil, err
	}

	seqLen := p.SequenceLength
	if seqLen <= 0 {
		seqLen = imputation.DefaultSequenceLength
	}
	if len(vectors) < seqLen+1 {
		return nil, fmt.Errorf("%w: %d timestamps, need %d for sequence length %d",
			models.ErrInsufficientData, len(vectors), seqLen+1, seqLen)
	}

	rows, gaps := featureRows(vectors)
	key := p.ModelName
	if key == "" {
		key = p.Parameter
	}
	opts := uc.modelOptions(seqLen)

	var (
		m       *imputation.Model
		diag    imputation.Diagnostics
		trained bool
	)
	if !p.ForceRetrain {
		m, err = uc.reg.LoadOrGet(key, opts)
		if err != nil && !errors.Is(err, models.ErrModelNotReady) && !errors.Is(err, models.ErrModelMismatch) {
			return nil, err
		}
		if err != nil {
			uc.log.Info("no usable model, training",
				logger.String("model", key),
				logger.Error(err))
		}
	}
	if m == nil {
		m, diag, err = uc.train(ctx, key, rows, gaps, opts, uc.cfg.MaxEpochs, uc.cfg.BatchSize)
		if err != nil {
			return nil, err
		}
		trained = true
	}

	// a loaded model transforms with the bounds it was trained with
	scaled, err := m.Scaler.Transform(rows)
	if err != nil {
		return nil, err
	}
	windows, err := imputation.BuildWindows(scaled, gaps, seqLen)
	if err != nil {
		return nil, err
	}
	preds, err := m.Predict(windows)
	if err != nil {
		return nil, err
	}
	predAt := make(map[int]float64, len(preds))
	for i, w := range windows {
		predAt[w.TargetIndex] = preds[i]
	}

	result := &models.GapFillResult{Points: make([]models.FilledPoint, len(series))}
	gapsFound, gapsFilled := 0, 0
	for i := range series {
		fp := models.FilledPoint{
			Datetime:   series[i].Timestamp,
			WasGap:     vectors[i].HasGap,
			Confidence: fillConfidence,
		}
		if !series[i].Missing {
			v := series[i].Value
			fp.Value = &v
		}
		switch {
		case !vectors[i].HasGap:
			fp.FilledValue = series[i].Value
		default:
			gapsFound++
			if pred, ok := predAt[i]; ok {
				fp.FilledValue = pred
				fp.PredictedValue = &pred
				fp.GapFilled = true
				gapsFilled++
			} else {
				// gap inside the first window of history, no prediction
				fp.FilledValue = vectors[i].TempFilled
			}
		}
		result.Points[i] = fp
	}

	result.Summary = models.GapFillSummary{
		TotalPoints:  len(series),
		GapsFound:    gapsFound,
		GapsFilled:   gapsFilled,
		GapPercent:   100 * float64(gapsFound) / float64(len(series)),
		ModelTrained: trained,
	}
	if trained {
		result.Summary.EpochsRun = diag.EpochsRun
		result.Summary.ValLoss = diag.ValLoss
		result.Summary.ValMAE = diag.ValMAE
	}

	uc.metrics.RecordGapsFilled(p.Parameter, gapsFilled)
	uc.log.Info("gap fill complete",
		logger.String("parameter", p.Parameter),
		logger.Int("points", len(series)),
		logger.Int("gaps_found", gapsFound),
		logger.Int("gaps_filled", gapsFilled),
		logger.Bool("trained", trained))
	return result, nil
}

type TrainParams struct {
	Parameter      string
	SequenceLength int
	MaxEpochs      int
	BatchSize      int
	Points         []models.SeriesPoint
}

// TrainResult reports one explicit training run.
type TrainResult struct {
	Info      models.ModelInfo `json:"model"`
	EpochsRun int              `json:"epochs_run"`
	TrainLoss float64          `json:"train_loss"`
	ValLoss   float64          `json:"val_loss"`
	TrainMAE  float64          `json:"train_mae"`
	ValMAE    float64          `json:"val_mae"`
}

// Train fits a fresh model for a pollutant and swaps it into the registry.
func (uc *GapFillUseCase) Train(ctx context.Context, p TrainParams) (*TrainResult, error) {
	series, err := features.Reindex(p.Points)
	if err != nil {
		return nil, err
	}
	vectors, err := features.Build(series)
	if err != nil {
		return nil, err
	}

	seqLen := p.SequenceLength
	if seqLen <= 0 {
		seqLen = imputation.DefaultSequenceLength
	}
	if len(vectors) < seqLen+1 {
		return nil, fmt.Errorf("%w: %d timestamps, need %d for sequence length %d",
			models.ErrInsufficientData, len(vectors), seqLen+1, seqLen)
	}

	rows, gaps := featureRows(vectors)
	epochs, batch := p.MaxEpochs, p.BatchSize
	if epochs <= 0 {
		epochs = uc.cfg.MaxEpochs
	}
	if batch <= 0 {
		batch = uc.cfg.BatchSize
	}

	m, diag, err := uc.train(ctx, p.Parameter, rows, gaps, uc.modelOptions(seqLen), epochs, batch)
	if err != nil {
		return nil, err
	}

	meta := m.Metadata()
	return &TrainResult{
		Info: models.ModelInfo{
			Parameter:       p.Parameter,
			BundleName:      registry.BundleName(p.Parameter),
			FeatureCount:    meta.FeatureCount,
			SequenceLength:  meta.SequenceLength,
			TrainingSamples: meta.TrainingSamples,
			TrainedAt:       meta.TrainedAt,
			ValLoss:         meta.FinalValLoss,
			ValMAE:          meta.FinalValMAE,
		},
		EpochsRun: diag.EpochsRun,
		TrainLoss: diag.TrainLoss,
		ValLoss:   diag.ValLoss,
		TrainMAE:  diag.TrainMAE,
		ValMAE:    diag.ValMAE,
	}, nil
}

// ListModels describes every registered model.
func (uc *GapFillUseCase) ListModels() []models.ModelInfo {
	return uc.reg.List()
}

func (uc *GapFillUseCase) modelOptions(seqLen int) imputation.Options {
	return imputation.Options{
		SequenceLength: seqLen,
		FeatureCount:   models.FeatureCount,
		HiddenUnits:    uc.cfg.HiddenUnits,
		LearningRate:   uc.cfg.LearningRate,
		Patience:       uc.cfg.Patience,
		LRPatience:     uc.cfg.LRPatience,
		Seed:           uc.cfg.Seed,
	}
}

func (uc *GapFillUseCase) train(ctx context.Context, key string, rows [][]float64, gaps []bool, opts imputation.Options, epochs, batch int) (*imputation.Model, imputation.Diagnostics, error) {
	start := time.Now()

	scaler := imputation.NewMinMaxScaler()
	scaled, err := scaler.FitTransform(rows)
	if err != nil {
		return nil, imputation.Diagnostics{}, err
	}
	windows, err := imputation.BuildWindows(scaled, gaps, opts.SequenceLength)
	if err != nil {
		return nil, imputation.Diagnostics{}, err
	}
	train, val := imputation.SplitTrainVal(windows, uc.cfg.ValFraction)
	if len(train) == 0 {
		return nil, imputation.Diagnostics{}, fmt.Errorf("%w: no gap-free windows to train on", models.ErrInsufficientData)
	}

	m := imputation.NewModel(opts)
	m.Scaler = scaler
	diag, err := m.Fit(ctx, train, val, epochs, batch)
	if err != nil {
		uc.metrics.RecordError("train")
		return nil, imputation.Diagnostics{}, err
	}
	m.SetProvenance(key, time.Now().UTC().Format(time.RFC3339))

	if err := uc.reg.Save(key, m); err != nil {
		// the in-memory model still serves this request
		uc.metrics.RecordError("bundle_save")
		uc.log.Error("bundle not persisted", logger.String("model", key), logger.Error(err))
		if putErr := uc.reg.Put(key, m); putErr != nil {
			return nil, imputation.Diagnostics{}, putErr
		}
	}

	uc.metrics.RecordLatency("train", time.Since(start).Seconds())
	uc.log.Info("model trained",
		logger.String("model", key),
		logger.Int("epochs", diag.EpochsRun),
		logger.Float64("val_loss", diag.ValLoss),
		logger.Float64("val_mae", diag.ValMAE),
		logger.Duration("took", time.Since(start)))
	return m, diag, nil
}

func featureRows(vectors []models.FeatureVector) ([][]float64, []bool) {
	rows := make([][]float64, len(vectors))
	gaps := make([]bool, len(vectors))
	for i := range vectors {
		cols := vectors[i].Columns()
		rows[i] = cols[:]
		gaps[i] = vectors[i].HasGap
	}
	return rows, gaps
}
