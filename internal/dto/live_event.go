package dto

import "time"

// LiveEvent is broadcast to websocket viewers after each processed upload.
type LiveEvent struct {
	Type             string    `json:"type"`
	UploadedFilename string    `json:"uploaded_filename"`
	Status           string    `json:"status"`
	RunName          string    `json:"run_name,omitempty"`
	Classes          []string  `json:"classes"`
	Annotated        []string  `json:"annotated"`
	Time             time.Time `json:"time"`
}
