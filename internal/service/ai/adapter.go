package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/service/storage"
)

// savedExtensions are the annotated outputs reported back to callers.
var savedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true}

// InferOptions control a single inference call.
type InferOptions struct {
	Device     string
	Confidence float64
	Save       bool
	// RunName names the output directory; a unique one is generated when empty.
	RunName string
}

// Adapter owns the loaded model and turns its output into model.InferenceResult.
// When the model could not be loaded the adapter stays usable and every call
// returns an error wrapping ErrModelUnavailable.
type Adapter struct {
	model   Model
	loadErr error
	runsDir string
	logger  *logger.Logger
}

// NewAdapter wraps an already loaded model. Pass a nil model and the load
// error to run degraded.
func NewAdapter(m Model, loadErr error, runsDir string, log *logger.Logger) *Adapter {
	if m == nil && loadErr == nil {
		loadErr = ErrModelUnavailable
	}
	return &Adapter{
		model:   m,
		loadErr: loadErr,
		runsDir: runsDir,
		logger:  log,
	}
}

// NewAdapterFromConfig loads the configured model once. Load failures are
// logged and leave the adapter degraded.
func NewAdapterFromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) *Adapter {
	m, err := LoadModel(ctx, cfg.Model, log)
	if err != nil {
		log.Warning("Could not load detection model (%s backend): %v", cfg.Model.Backend, err)
		return NewAdapter(nil, err, cfg.Storage.RunsDir, log)
	}
	log.Info("Detection model loaded (%s backend, %d labels)", m.Backend(), len(m.Labels()))
	return NewAdapter(m, nil, cfg.Storage.RunsDir, log)
}

// Ready returns nil when a model is loaded, otherwise the reason it is not.
func (a *Adapter) Ready() error {
	if a.model == nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, a.loadErr)
	}
	return nil
}

// Labels returns the label mapping of the loaded model.
func (a *Adapter) Labels() map[int]string {
	if a.model == nil {
		return nil
	}
	return a.model.Labels()
}

// Backend names the loaded backend, or "" when degraded.
func (a *Adapter) Backend() string {
	if a.model == nil {
		return ""
	}
	return a.model.Backend()
}

// RunsDir returns the root directory of annotated outputs.
func (a *Adapter) RunsDir() string {
	return a.runsDir
}

// Close releases the model.
func (a *Adapter) Close() error {
	if a.model == nil {
		return nil
	}
	return a.model.Close()
}

// ValidRunName reports whether name can be used as a single directory under the runs root.
func ValidRunName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// NewRunName returns a unique run name.
func NewRunName() string {
	return "run_" + storage.NewToken()
}

// Infer runs the model on imagePath. All failures, including panics inside
// the backend, come back as an error; a nil error always carries a result.
func (a *Adapter) Infer(ctx context.Context, imagePath string, opts InferOptions) (res *model.InferenceResult, err error) {
	if err := a.Ready(); err != nil {
		return nil, err
	}

	runName := opts.RunName
	if runName == "" {
		runName = NewRunName()
	} else if !ValidRunName(runName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunName, runName)
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Inference panicked on %s: %v", imagePath, r)
			res, err = nil, fmt.Errorf("inference panicked: %v", r)
		}
	}()

	a.logger.Info("Running inference on: %s (run_name=%s, device=%s, conf=%.2f)", imagePath, runName, opts.Device, opts.Confidence)

	predictOpts := PredictOptions{Device: opts.Device, Confidence: opts.Confidence}
	saveDir := filepath.Join(a.runsDir, runName)
	if opts.Save {
		if err := os.MkdirAll(saveDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create run directory: %w", err)
		}
		predictOpts.SaveDir = saveDir
	}

	pred, err := a.model.Predict(ctx, imagePath, predictOpts)
	if err != nil {
		a.logger.Error("Inference failed on %s: %v", imagePath, err)
		return nil, err
	}

	res = Normalize(pred, a.model.Labels())
	res.Source = imagePath
	res.RunName = runName
	res.Project = a.runsDir

	if opts.Save {
		saved, err := listSaved(saveDir)
		if err != nil {
			a.logger.Warning("Could not list annotated outputs in %s: %v", saveDir, err)
			res.Warnings = append(res.Warnings, "saved: could not list annotated outputs")
		}
		res.Saved = saved
	}

	if res.Status == model.StatusExtractionFailed || res.Status == model.StatusPartial {
		a.logger.Warning("Inference output for %s was incomplete: %s", imagePath, strings.Join(res.Warnings, "; "))
	}
	a.logger.Info("Inference result: %d boxes for %s; saved=%d", len(res.Detections), imagePath, len(res.Saved))
	return res, nil
}

func listSaved(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}, err
	}
	saved := []string{}
	for _, e := range entries {
		if e.IsDir() || !savedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		saved = append(saved, filepath.Join(dir, e.Name()))
	}
	sort.Strings(saved)
	return saved, nil
}
