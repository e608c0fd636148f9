package ai

import (
	"context"
	"errors"
	"fmt"

	"detectserver/internal/config"
	"detectserver/internal/logger"
)

var (
	// ErrModelUnavailable is returned by the adapter while running without a model.
	ErrModelUnavailable = errors.New("model not loaded")
	// ErrInvalidRunName is returned for caller-supplied run names that are not a single path segment.
	ErrInvalidRunName = errors.New("invalid run name")
)

// PredictOptions are passed through to the model backend.
type PredictOptions struct {
	Device     string
	Confidence float64
	// SaveDir receives annotated images when non-empty.
	SaveDir string
}

// Prediction is the backend-native output before normalization. The fields
// are deliberately loose: a backend reports whatever it got and the adapter
// decides per field what can be used.
type Prediction struct {
	Boxes   any
	Scores  any
	Classes any
	// Names optionally overrides the model labels for this prediction.
	Names map[int]string
}

// Model is a loaded, pretrained object detector.
type Model interface {
	Predict(ctx context.Context, imagePath string, opts PredictOptions) (*Prediction, error)
	Labels() map[int]string
	Backend() string
	Close() error
}

// LoadModel loads the backend selected in the configuration.
func LoadModel(ctx context.Context, cfg config.ModelConfig, log *logger.Logger) (Model, error) {
	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		log.Warning("Could not read labels from %s: %v", cfg.LabelsPath, err)
		labels = nil
	}

	switch cfg.Backend {
	case config.BackendRemote:
		m, err := NewRemoteModel(ctx, cfg, labels, log)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendGocv:
		return loadGocvModel(cfg, labels, log)
	case config.BackendNone:
		return nil, errors.New("model disabled by configuration")
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}
