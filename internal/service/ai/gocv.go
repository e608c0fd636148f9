//go:build gocv

package ai

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/service/annotate"
)

// GocvModel runs an SSD-style network through OpenCV's DNN module. Output
// rows are [batch_id, class_id, confidence, x1, y1, x2, y2] with coordinates
// relative to the image size.
type GocvModel struct {
	net       gocv.Net
	mu        sync.Mutex // gocv.Net is not safe for concurrent use
	device    string
	inputSize int
	labels    map[int]string
	logger    *logger.Logger
}

func loadGocvModel(cfg config.ModelConfig, labels map[int]string, log *logger.Logger) (Model, error) {
	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.Path)
	}
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	net := gocv.ReadNet(cfg.Path, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.Path)
	}

	m := &GocvModel{
		net:       net,
		inputSize: cfg.InputSize,
		labels:    labels,
		logger:    log,
	}
	if m.inputSize <= 0 {
		m.inputSize = 300
	}
	if m.labels == nil {
		m.labels = map[int]string{}
	}
	if err := m.setDevice(cfg.Device); err != nil {
		net.Close()
		return nil, err
	}

	log.Info("Detection network initialized successfully")
	return m, nil
}

// setDevice selects backend and target; callers hold mu or own m exclusively.
func (m *GocvModel) setDevice(device string) error {
	if device == m.device && device != "" {
		return nil
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if strings.HasPrefix(strings.ToLower(device), "cuda") {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}

	errBackend := m.net.SetPreferableBackend(backend)
	errTarget := m.net.SetPreferableTarget(target)
	if errBackend != nil || errTarget != nil {
		return fmt.Errorf("failed to set preferable backend or target for device %q", device)
	}
	m.device = device
	return nil
}

// Backend implements Model.
func (m *GocvModel) Backend() string {
	return config.BackendGocv
}

// Labels implements Model.
func (m *GocvModel) Labels() map[int]string {
	return m.labels
}

// Close implements Model.
func (m *GocvModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

// Predict implements Model.
func (m *GocvModel) Predict(ctx context.Context, imagePath string, opts PredictOptions) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.IMRead(imagePath, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image: %s", imagePath)
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(m.inputSize, m.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	if err := m.setDevice(opts.Device); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	m.mu.Unlock()
	defer output.Close()

	pred := &Prediction{}
	boxes := [][4]float64{}
	scores := []float64{}
	classes := []int{}

	n, err := ssdRows(output.Size(), output.Total())
	if err != nil {
		return nil, err
	}

	cols, rows := float32(mat.Cols()), float32(mat.Rows())
	reshaped := output.Reshape(1, n)
	defer reshaped.Close()
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := reshaped.GetFloatAt(i, 2)
		if float64(confidence) < opts.Confidence {
			continue
		}
		boxes = append(boxes, [4]float64{
			float64(reshaped.GetFloatAt(i, 3) * cols),
			float64(reshaped.GetFloatAt(i, 4) * rows),
			float64(reshaped.GetFloatAt(i, 5) * cols),
			float64(reshaped.GetFloatAt(i, 6) * rows),
		})
		scores = append(scores, float64(confidence))
		classes = append(classes, int(reshaped.GetFloatAt(i, 1)))
	}
	pred.Boxes, pred.Scores, pred.Classes = boxes, scores, classes

	if opts.SaveDir != "" {
		dst := filepath.Join(opts.SaveDir, annotate.OutputName(imagePath))
		if err := m.drawRectangles(mat, boxes, scores, classes, dst); err != nil {
			m.logger.Warning("Could not write annotated image for %s: %v", imagePath, err)
		}
	}
	return pred, nil
}

// drawRectangles draws detections on mat and writes it to dst.
func (m *GocvModel) drawRectangles(mat gocv.Mat, boxes [][4]float64, scores []float64, classes []int, dst string) error {
	green := color.RGBA{R: 0, G: 255, B: 0, A: 0}

	for i, b := range boxes {
		rect := image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3]))
		if err := gocv.Rectangle(&mat, rect, green, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", ClassName(m.labels, classes[i]), scores[i])
		pt := image.Pt(int(b[0]), int(b[1])-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, green, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}

	if !gocv.IMWrite(dst, mat) {
		return fmt.Errorf("failed to write %s", dst)
	}
	return nil
}
