package service

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"detectserver/internal/config"
	"detectserver/internal/dto"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/service/ai"
	"detectserver/internal/service/history"
	"detectserver/internal/service/storage"
	"detectserver/internal/service/websocket"
)

// Manager ties the upload pipeline together: store the file, run inference,
// journal the outcome and notify live viewers.
type Manager struct {
	store    *storage.UploadStore
	adapter  *ai.Adapter
	recorder *history.Recorder
	hub      *websocket.HubService
	logger   *logger.Logger

	device     string
	confidence float64
	save       bool
}

// Processed is the outcome of one upload. Result and InferErr are mutually
// exclusive.
type Processed struct {
	Asset    *model.UploadedAsset
	Result   *model.InferenceResult
	InferErr error
}

// NewManager wires the pipeline. recorder and hub may be nil.
func NewManager(cfg *config.Config, store *storage.UploadStore, adapter *ai.Adapter,
	recorder *history.Recorder, hub *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		store:      store,
		adapter:    adapter,
		recorder:   recorder,
		hub:        hub,
		logger:     logger,
		device:     cfg.Model.Device,
		confidence: cfg.Model.Confidence,
		save:       cfg.Model.Save,
	}
}

// GetAdapter returns the inference adapter.
func (m *Manager) GetAdapter() *ai.Adapter {
	return m.adapter
}

// GetRecorder returns the journal recorder, nil when history is disabled.
func (m *Manager) GetRecorder() *history.Recorder {
	return m.recorder
}

// GetWebsocketService returns the live hub, possibly nil.
func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

// GetStore returns the upload store.
func (m *Manager) GetStore() *storage.UploadStore {
	return m.store
}

// HandleUpload stores r under a generated name and runs inference on it. The
// returned error covers storage failures only; inference failures are
// reported in Processed.InferErr.
func (m *Manager) HandleUpload(ctx context.Context, r io.Reader, filename string) (*Processed, error) {
	asset, err := m.store.Save(r, filename)
	if err != nil {
		m.logger.Error("Failed to save upload %q: %v", filename, err)
		return nil, err
	}
	m.logger.Info("Saved file to: %s", asset.Path)

	if err := m.store.Load(asset); err != nil {
		m.logger.Error("Failed to read back %s: %v", asset.Path, err)
		return nil, err
	}

	p := &Processed{Asset: asset}
	p.Result, p.InferErr = m.adapter.Infer(ctx, asset.Path, ai.InferOptions{
		Device:     m.device,
		Confidence: m.confidence,
		Save:       m.save,
	})
	if p.InferErr != nil {
		m.logger.Warning("Inference unavailable for %s: %v", asset.StoredFilename, p.InferErr)
	}

	if _, err := m.recorder.Record(asset, p.Result, p.InferErr); err != nil {
		m.logger.Error("Error journaling upload %s: %v", asset.StoredFilename, err)
	}
	m.notify(p)
	return p, nil
}

// AnnotatedPaths returns the URL paths of the annotated images of p,
// relative to the server root.
func AnnotatedPaths(p *Processed) []string {
	paths := []string{}
	if p == nil || p.Result == nil {
		return paths
	}
	for _, saved := range p.Result.Saved {
		paths = append(paths, "/runs/"+p.Result.RunName+"/"+filepath.Base(saved))
	}
	return paths
}

func (m *Manager) notify(p *Processed) {
	if m.hub == nil {
		return
	}

	event := dto.LiveEvent{
		Type:             "upload",
		UploadedFilename: p.Asset.StoredFilename,
		Status:           model.StatusInferenceError,
		Classes:          history.ClassNames(p.Result),
		Annotated:        AnnotatedPaths(p),
		Time:             time.Now().UTC(),
	}
	if p.Result != nil {
		event.Status = string(p.Result.Status)
		event.RunName = p.Result.RunName
	}
	m.hub.Broadcast(event)
}
