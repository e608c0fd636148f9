package handler

import (
	"errors"
	"net/http"
	"strings"

	"detectserver/internal/config"
	"detectserver/internal/dto"
	"detectserver/internal/logger"
	"detectserver/internal/middleware"
	"detectserver/internal/service"
	"detectserver/internal/service/storage"
)

// UploadHandler handles POST /upload: validate the "file" field, store it,
// run inference and answer with the image echo plus the inference result.
// Inference failures are embedded in the 200 answer.
func UploadHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	notAllowed := "File type not allowed. Allowed types: " + strings.Join(storage.AllowedExtensions, ", ")

	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				respondError(w, http.StatusRequestEntityTooLarge, middleware.TooLargeMessage(tooLarge.Limit))
			case errors.Is(err, http.ErrMissingFile) && hasEmptyFilePart(r):
				respondError(w, http.StatusBadRequest, "No file selected")
			default:
				respondError(w, http.StatusBadRequest, "No file provided")
			}
			return
		}
		defer file.Close()

		if header.Filename == "" {
			respondError(w, http.StatusBadRequest, "No file selected")
			return
		}
		if !storage.IsAllowed(header.Filename) {
			respondError(w, http.StatusBadRequest, notAllowed)
			return
		}

		processed, err := manager.HandleUpload(r.Context(), file, header.Filename)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(w, http.StatusRequestEntityTooLarge, middleware.TooLargeMessage(tooLarge.Limit))
				return
			}
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		base := baseURL(r, cfg.Server.PublicBaseURL)
		annotated := []string{}
		for _, p := range service.AnnotatedPaths(processed) {
			annotated = append(annotated, base+p)
		}

		var inference any = processed.Result
		if processed.InferErr != nil {
			inference = dto.InferenceError{Error: processed.InferErr.Error()}
		}

		asset := processed.Asset
		logger.Info("Processed upload %s (%d bytes)", asset.StoredFilename, asset.Size)
		respondJSON(w, http.StatusOK, dto.UploadResponse{
			Message:          "Image uploaded and processed successfully",
			OriginalFilename: asset.OriginalFilename,
			UploadedFilename: asset.StoredFilename,
			FileSize:         asset.Size,
			ImageURL:         storage.DataURL(asset),
			Inference:        inference,
			Annotated:        annotated,
		})
	}
}

// hasEmptyFilePart reports whether the form carried a "file" part without a
// filename, which is what browsers send for an empty file input.
func hasEmptyFilePart(r *http.Request) bool {
	if r.MultipartForm == nil {
		return false
	}
	_, ok := r.MultipartForm.Value["file"]
	return ok
}

// baseURL is the configured public base URL, or scheme and host of r.
func baseURL(r *http.Request, public string) string {
	if public != "" {
		return strings.TrimRight(public, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
