package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxBytes rejects bodies larger than limit with 413. Requests that declare
// their length are refused up front; the rest fail while being read.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, TooLargeMessage(limit))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TooLargeMessage is the error text for bodies over limit bytes.
func TooLargeMessage(limit int64) string {
	return fmt.Sprintf("File too large. Maximum size is %d bytes", limit)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
