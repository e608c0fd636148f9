package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/service/annotate"
)

const (
	maxRetryCount = 2
	retryDelay    = 200 * time.Millisecond
)

// RemoteModel calls a detection sidecar over HTTP. The sidecar exposes
// GET /health returning {"status", "names"} and POST /predict accepting a
// multipart "file" plus "device" and "conf" form fields.
type RemoteModel struct {
	client *resty.Client
	labels map[int]string
	logger *logger.Logger
}

type healthPayload struct {
	Status string            `json:"status"`
	Names  map[string]string `json:"names"`
}

type predictPayload struct {
	Boxes   json.RawMessage   `json:"boxes"`
	Scores  json.RawMessage   `json:"scores"`
	Classes json.RawMessage   `json:"classes"`
	Names   map[string]string `json:"names"`
	Error   string            `json:"error"`
}

// NewRemoteModel connects to the sidecar and checks that it is healthy.
// Labels reported by the sidecar take precedence over fallback.
func NewRemoteModel(ctx context.Context, cfg config.ModelConfig, fallback map[int]string, log *logger.Logger) (*RemoteModel, error) {
	if cfg.RemoteURL == "" {
		return nil, fmt.Errorf("model.remoteurl is not set")
	}

	client := resty.New().
		SetLogger(log.Sugar()).
		SetBaseURL(strings.TrimRight(cfg.RemoteURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(maxRetryCount).
		SetRetryWaitTime(retryDelay).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only idempotent probes are retried; a predict body is a consumed reader.
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	m := &RemoteModel{client: client, labels: fallback, logger: log}

	var health healthPayload
	resp, err := client.R().SetContext(ctx).SetResult(&health).ForceContentType("application/json").Get("/health")
	if err != nil {
		return nil, fmt.Errorf("detection service not reachable: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("detection service unhealthy: %s", resp.Status())
	}
	if names := StringKeyedLabels(health.Names); len(names) > 0 {
		m.labels = names
	}
	if m.labels == nil {
		m.labels = map[int]string{}
	}
	return m, nil
}

// Backend implements Model.
func (m *RemoteModel) Backend() string {
	return config.BackendRemote
}

// Labels implements Model.
func (m *RemoteModel) Labels() map[int]string {
	return m.labels
}

// Close implements Model.
func (m *RemoteModel) Close() error {
	return nil
}

// Predict uploads the image to the sidecar. When opts.SaveDir is set the
// annotated image is rendered locally from the returned boxes.
func (m *RemoteModel) Predict(ctx context.Context, imagePath string, opts PredictOptions) (*Prediction, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(imagePath); err == nil {
		contentType = mt.String()
	}

	var payload predictPayload
	resp, err := m.client.R().
		SetContext(ctx).
		SetMultipartField("file", filepath.Base(imagePath), contentType, f).
		SetFormData(map[string]string{
			"device": opts.Device,
			"conf":   strconv.FormatFloat(opts.Confidence, 'f', -1, 64),
		}).
		SetResult(&payload).
		SetError(&payload).
		ForceContentType("application/json").
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		if payload.Error != "" {
			return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode(), payload.Error)
		}
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode())
	}

	pred := &Prediction{
		Boxes:   payload.Boxes,
		Scores:  payload.Scores,
		Classes: payload.Classes,
		Names:   StringKeyedLabels(payload.Names),
	}

	if opts.SaveDir != "" {
		res := Normalize(pred, m.labels)
		dst := filepath.Join(opts.SaveDir, annotate.OutputName(imagePath))
		if err := annotate.File(imagePath, dst, res.Detections); err != nil {
			m.logger.Warning("Could not write annotated image for %s: %v", imagePath, err)
		}
	}
	return pred, nil
}
