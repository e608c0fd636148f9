package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// UploadedAsset is a file received by the upload gateway and stored on disk.
type UploadedAsset struct {
	OriginalFilename string
	StoredFilename   string
	Path             string
	Size             int64
	MediaType        string
	Content          []byte
}

// UploadRecord is a journal row describing one processed upload.
type UploadRecord struct {
	ID               int64       `json:"id"`
	OriginalFilename string      `json:"original_filename"`
	StoredFilename   string      `json:"uploaded_filename"`
	FilePath         string      `json:"filepath"`
	FileSize         int64       `json:"file_size"`
	MediaType        string      `json:"media_type"`
	RunName          null.String `json:"run_name"`
	Status           string      `json:"status"`
	InferenceError   null.String `json:"inference_error"`
	CreatedAt        time.Time   `json:"created_at"`
}

// DetectionRecord is a journal row for a single detected object.
type DetectionRecord struct {
	ID         int64   `json:"id"`
	UploadID   int64   `json:"upload_id"`
	ClassIndex int     `json:"class_index"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}
