package dto

import (
	"encoding/json"
	"time"

	"detectserver/internal/model"
)

// UploadInfo summarizes one journal entry for listings.
type UploadInfo struct {
	Name      string    `json:"name"`
	Original  string    `json:"original_filename"`
	Status    string    `json:"status"`
	RunName   string    `json:"run_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Classes   []string  `json:"classes"`
}

// MarshalJSON formats CreatedAt as RFC 3339 in UTC.
func (u UploadInfo) MarshalJSON() ([]byte, error) {
	type Alias UploadInfo
	return json.Marshal(&struct {
		CreatedAt string `json:"created_at"`
		Alias
	}{
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		Alias:     (Alias)(u),
	})
}

// UploadDetail is a journal entry with all of its detections.
type UploadDetail struct {
	Upload       model.UploadRecord      `json:"upload"`
	Detections   []model.DetectionRecord `json:"detections"`
	AnnotatedURL string                  `json:"annotated_url,omitempty"`
}

// ClassCount is the number of detections recorded for one class name.
type ClassCount struct {
	ClassName string `json:"class_name"`
	Count     int    `json:"count"`
}
