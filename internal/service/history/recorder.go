// Package history journals processed uploads and their detections.
package history

import (
	"fmt"
	"sort"

	"gopkg.in/guregu/null.v4"

	"detectserver/internal/model"
	"detectserver/internal/repository"
)

// Recorder writes journal rows. A nil *Recorder is valid and records nothing.
type Recorder struct {
	uploads    repository.UploadRepository
	detections repository.DetectionRepository
}

// NewRecorder returns nil when either repository is nil.
func NewRecorder(uploads repository.UploadRepository, detections repository.DetectionRepository) *Recorder {
	if uploads == nil || detections == nil {
		return nil
	}
	return &Recorder{uploads: uploads, detections: detections}
}

// Enabled reports whether records are persisted.
func (r *Recorder) Enabled() bool {
	return r != nil
}

// Record stores asset with the outcome of its inference. Exactly one of res
// and inferErr is expected to be set.
func (r *Recorder) Record(asset *model.UploadedAsset, res *model.InferenceResult, inferErr error) (*model.UploadRecord, error) {
	if r == nil {
		return nil, nil
	}

	rec := &model.UploadRecord{
		OriginalFilename: asset.OriginalFilename,
		StoredFilename:   asset.StoredFilename,
		FilePath:         asset.Path,
		FileSize:         asset.Size,
		MediaType:        asset.MediaType,
		Status:           model.StatusInferenceError,
	}
	switch {
	case inferErr != nil:
		rec.InferenceError = null.StringFrom(inferErr.Error())
	case res != nil:
		rec.Status = string(res.Status)
		rec.RunName = null.NewString(res.RunName, res.RunName != "")
	}

	id, err := r.uploads.Insert(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to journal upload: %w", err)
	}

	if res == nil || len(res.Detections) == 0 {
		return rec, nil
	}

	rows := make([]model.DetectionRecord, 0, len(res.Detections))
	for _, d := range res.Detections {
		rows = append(rows, model.DetectionRecord{
			UploadID:   id,
			ClassIndex: d.ClassIndex,
			ClassName:  d.ClassName,
			Confidence: d.Confidence,
			X1:         d.Box[0],
			Y1:         d.Box[1],
			X2:         d.Box[2],
			Y2:         d.Box[3],
		})
	}
	if err := r.detections.InsertBatch(rows); err != nil {
		return rec, fmt.Errorf("failed to journal detections: %w", err)
	}
	return rec, nil
}

// ClassNames returns the sorted distinct class names in res.
func ClassNames(res *model.InferenceResult) []string {
	names := []string{}
	if res == nil {
		return names
	}
	seen := map[string]bool{}
	for _, d := range res.Detections {
		if !seen[d.ClassName] {
			seen[d.ClassName] = true
			names = append(names, d.ClassName)
		}
	}
	sort.Strings(names)
	return names
}
