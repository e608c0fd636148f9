package handler

import (
	"math"
	"net/http"
	"strconv"

	"detectserver/internal/config"
	"detectserver/internal/dto"
	"detectserver/internal/logger"
	"detectserver/internal/repository"
	"detectserver/internal/service/annotate"
)

const historyDisabled = "History is disabled"

// GetUploadsHandler returns a filtered, paginated page of the upload journal.
func GetUploadsHandler(logger *logger.Logger, uploadRepo repository.UploadRepository,
	detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uploadRepo == nil || detectionRepo == nil {
			respondError(w, http.StatusServiceUnavailable, historyDisabled)
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := min(atoiDefault(q.Get("limit"), 24), 200)
		if page > math.MaxInt32/limit {
			respondError(w, http.StatusBadRequest, "Invalid page")
			return
		}

		filter := &dto.UploadFilters{
			Class:  q.Get("class"),
			Status: q.Get("status"),
		}

		totalCount, err := uploadRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting uploads: %v", err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		records, err := uploadRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying uploads from database: %v", err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		uploads := make([]dto.UploadInfo, 0, len(records))
		for _, rec := range records {
			classes, err := detectionRepo.GetClassNamesByUploadID(rec.ID)
			if err != nil {
				logger.Error("Error getting classes for upload %d: %v", rec.ID, err)
				classes = []string{}
			}

			uploads = append(uploads, dto.UploadInfo{
				Name:      rec.StoredFilename,
				Original:  rec.OriginalFilename,
				Status:    rec.Status,
				RunName:   rec.RunName.String,
				CreatedAt: rec.CreatedAt,
				Classes:   classes,
			})
		}

		respondJSON(w, http.StatusOK, dto.UploadsPage{
			Uploads:     uploads,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// GetUploadHandler returns one journal entry with its detections.
func GetUploadHandler(cfg *config.Config, logger *logger.Logger, uploadRepo repository.UploadRepository,
	detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uploadRepo == nil || detectionRepo == nil {
			respondError(w, http.StatusServiceUnavailable, historyDisabled)
			return
		}

		rec, err := uploadRepo.GetByStoredFilename(r.PathValue("name"))
		if err != nil {
			logger.Error("Error loading upload %q: %v", r.PathValue("name"), err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if rec == nil {
			respondError(w, http.StatusNotFound, "Upload not found")
			return
		}

		detections, err := detectionRepo.GetByUploadID(rec.ID)
		if err != nil {
			logger.Error("Error loading detections for upload %d: %v", rec.ID, err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		detail := dto.UploadDetail{Upload: *rec, Detections: detections}
		if rec.RunName.Valid {
			detail.AnnotatedURL = baseURL(r, cfg.Server.PublicBaseURL) + "/runs/" + rec.RunName.String + "/" + annotate.OutputName(rec.StoredFilename)
		}
		respondJSON(w, http.StatusOK, detail)
	}
}

// GetClassesHandler returns detection counts per class name.
func GetClassesHandler(logger *logger.Logger, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if detectionRepo == nil {
			respondError(w, http.StatusServiceUnavailable, historyDisabled)
			return
		}

		counts, err := detectionRepo.GetClassCounts()
		if err != nil {
			logger.Error("Error counting classes: %v", err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		respondJSON(w, http.StatusOK, counts)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
