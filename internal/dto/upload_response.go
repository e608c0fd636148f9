package dto

// UploadResponse is the body of a successful POST /upload.
type UploadResponse struct {
	Message          string   `json:"message"`
	OriginalFilename string   `json:"original_filename"`
	UploadedFilename string   `json:"uploaded_filename"`
	FileSize         int64    `json:"file_size"`
	ImageURL         string   `json:"image_url"`
	Inference        any      `json:"inference"`
	Annotated        []string `json:"annotated"`
}

// InferenceError is embedded as "inference" when the adapter failed.
type InferenceError struct {
	Error string `json:"error"`
}

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}
