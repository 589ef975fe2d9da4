package models

// Requests for the analysis HTTP endpoints. Defined in domain for consistency
// and reuse.

type GapFillRequest struct {
	Records        []Reading `json:"records" validate:"required,min=1,dive"`
	ValueColumn    string    `json:"value_column" default:"PM25"`
	ParamType      string    `json:"param_type"`
	SequenceLength int       `json:"sequence_length" default:"24" validate:"gte=2,lte=168"`
	ModelName      string    `json:"model_name"`
	ForceRetrain   bool      `json:"force_retrain"`
}

type AnomalyRequest struct {
	Records       []Reading `json:"records" validate:"required,min=1,dive"`
	ValueColumn   string    `json:"value_column" default:"PM25"`
	ParamType     string    `json:"param_type"`
	ZThreshold    float64   `json:"z_threshold" default:"3.0" validate:"gt=0"`
	IQRMultiplier float64   `json:"iqr_multiplier" default:"1.5" validate:"gt=0"`
	Contamination float64   `json:"contamination" default:"0.1" validate:"gt=0,lt=0.5"`
}

type TrainRequest struct {
	Records        []Reading `json:"records" validate:"required,min=50,dive"`
	SequenceLength int       `json:"sequence_length" default:"24" validate:"gte=2,lte=168"`
	MaxEpochs      int       `json:"max_epochs" default:"100" validate:"gte=1,lte=1000"`
	BatchSize      int       `json:"batch_size" default:"16" validate:"gte=1,lte=512"`
}

// ModelInfo is the registry listing entry for one pollutant model.
type ModelInfo struct {
	Parameter       string  `json:"parameter"`
	BundleName      string  `json:"bundle_name"`
	FeatureCount    int     `json:"feature_count"`
	SequenceLength  int     `json:"sequence_length"`
	TrainingSamples int     `json:"training_samples"`
	TrainedAt       string  `json:"trained_at,omitempty"`
	ValLoss         float64 `json:"val_loss,omitempty"`
	ValMAE          float64 `json:"val_mae,omitempty"`
}
