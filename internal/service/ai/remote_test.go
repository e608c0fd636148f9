package ai

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/model"
)

type sidecarRequest struct {
	filename string
	content  []byte
	device   string
	conf     string
}

func newSidecar(t *testing.T, predict http.HandlerFunc) (*httptest.Server, chan sidecarRequest) {
	t.Helper()
	requests := make(chan sidecarRequest, 4)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"names":  map[string]string{"0": "person", "1": "bicycle"},
		})
	})
	mux.HandleFunc("POST /predict", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(file)
		requests <- sidecarRequest{
			filename: header.Filename,
			content:  content,
			device:   r.FormValue("device"),
			conf:     r.FormValue("conf"),
		}
		predict(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, requests
}

func remoteConfig(url string) config.ModelConfig {
	return config.ModelConfig{
		Backend:   config.BackendRemote,
		RemoteURL: url,
		Timeout:   5 * time.Second,
	}
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 48))))
	return path
}

func TestRemoteModel_Predict(t *testing.T) {
	srv, requests := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"boxes": [[4, 4, 20, 30]], "scores": [0.87], "classes": [1]}`))
	})

	m, err := NewRemoteModel(context.Background(), remoteConfig(srv.URL), nil, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, config.BackendRemote, m.Backend())
	assert.Equal(t, map[int]string{0: "person", 1: "bicycle"}, m.Labels())

	img := writePNG(t, t.TempDir(), "street.png")
	saveDir := t.TempDir()

	pred, err := m.Predict(context.Background(), img, PredictOptions{Device: "cuda:0", Confidence: 0.4, SaveDir: saveDir})
	require.NoError(t, err)

	req := <-requests
	assert.Equal(t, "street.png", req.filename)
	assert.Equal(t, "cuda:0", req.device)
	assert.Equal(t, "0.4", req.conf)
	want, _ := os.ReadFile(img)
	assert.Equal(t, want, req.content)

	res := Normalize(pred, m.Labels())
	assert.Equal(t, model.StatusDetected, res.Status)
	assert.Equal(t, "bicycle", res.Detections[0].ClassName)

	_, err = os.Stat(filepath.Join(saveDir, "street.png"))
	assert.NoError(t, err, "annotated image should be written")
}

func TestRemoteModel_PredictError(t *testing.T) {
	srv, _ := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "model crashed"}`))
	})

	m, err := NewRemoteModel(context.Background(), remoteConfig(srv.URL), nil, logger.NewNop())
	require.NoError(t, err)

	_, err = m.Predict(context.Background(), writePNG(t, t.TempDir(), "a.png"), PredictOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestRemoteModel_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := remoteConfig(url)
	cfg.Timeout = time.Second
	_, err := NewRemoteModel(context.Background(), cfg, nil, logger.NewNop())
	assert.Error(t, err)
}

func TestRemoteModel_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := NewRemoteModel(context.Background(), remoteConfig(srv.URL), nil, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhealthy")
}

func TestLoadModel_Backends(t *testing.T) {
	cfg := config.ModelConfig{Backend: config.BackendNone}
	m, err := LoadModel(context.Background(), cfg, logger.NewNop())
	assert.Nil(t, m)
	assert.EqualError(t, err, "model disabled by configuration")

	cfg.Backend = "tensorflow"
	_, err = LoadModel(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)

	srv, _ := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {})
	m, err = LoadModel(context.Background(), remoteConfig(srv.URL), logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, config.BackendRemote, m.Backend())
}
