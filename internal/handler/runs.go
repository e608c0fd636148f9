package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"detectserver/internal/service/ai"
)

// RunFileHandler serves GET /runs/{run}/{file...} from the runs directory.
func RunFileHandler(runsDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := r.PathValue("run")
		if !ai.ValidRunName(run) {
			respondError(w, http.StatusNotFound, "Run not found")
			return
		}

		dir := filepath.Join(runsDir, run)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			respondError(w, http.StatusNotFound, "Run not found")
			return
		}

		file := r.PathValue("file")
		if file == "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFileFS(w, r, os.DirFS(dir), file)
	}
}
