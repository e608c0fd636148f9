package model

// FieldState reports how a single field of a model prediction was extracted.
type FieldState string

const (
	FieldOK     FieldState = "ok"
	FieldAbsent FieldState = "absent"
	FieldFailed FieldState = "failed"
)

// DetectionStatus summarizes an inference result so that "nothing found"
// and "could not read the model output" are never confused.
type DetectionStatus string

const (
	StatusDetected         DetectionStatus = "detected"
	StatusNone             DetectionStatus = "none"
	StatusPartial          DetectionStatus = "partial"
	StatusExtractionFailed DetectionStatus = "extraction_failed"
)

// Status values recorded for uploads whose inference did not run.
const StatusInferenceError = "error"

// Box is an axis-aligned bounding box as x1, y1, x2, y2 in pixels.
type Box [4]float64

// Detection is one object found by the model.
type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
	ClassIndex int     `json:"class_index"`
	ClassName  string  `json:"class_name"`
}

// Extraction reports the per-field state of a normalized prediction.
type Extraction struct {
	Boxes   FieldState `json:"boxes"`
	Scores  FieldState `json:"scores"`
	Classes FieldState `json:"classes"`
}

// InferenceResult is the flat, JSON-safe outcome of one inference call.
type InferenceResult struct {
	Source     string          `json:"source"`
	RunName    string          `json:"run_name"`
	Project    string          `json:"project"`
	Status     DetectionStatus `json:"status"`
	Fields     Extraction      `json:"fields"`
	Detections []Detection     `json:"detections"`
	Boxes      []Box           `json:"boxes"`
	Scores     []float64       `json:"scores"`
	Classes    []int           `json:"classes"`
	Names      []string        `json:"names"`
	Saved      []string        `json:"saved"`
	Warnings   []string        `json:"warnings,omitempty"`
}
