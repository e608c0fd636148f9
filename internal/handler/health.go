package handler

import (
	"net/http"

	"detectserver/internal/dto"
	"detectserver/internal/service"
)

// HealthHandler reports liveness. The server is up even when no model is loaded.
func HealthHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := "ready"
		if manager.GetAdapter().Ready() != nil {
			state = "unavailable"
		}
		respondJSON(w, http.StatusOK, dto.HealthResponse{Status: "Backend is running", Model: state})
	}
}
