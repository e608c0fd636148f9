package handler

import (
	"encoding/json"
	"net/http"

	"detectserver/internal/dto"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, dto.ErrorResponse{Error: msg})
}
