package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectserver/internal/dto"
	"detectserver/internal/model"
)

type memUploads struct {
	rows []model.UploadRecord
	err  error
}

func (m *memUploads) Insert(rec *model.UploadRecord) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	rec.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *rec)
	return rec.ID, nil
}

func (m *memUploads) GetByID(int64) (*model.UploadRecord, error)              { return nil, nil }
func (m *memUploads) GetByStoredFilename(string) (*model.UploadRecord, error) { return nil, nil }
func (m *memUploads) GetAll(*dto.UploadFilters) ([]model.UploadRecord, error) { return m.rows, nil }
func (m *memUploads) GetTotalCount(*dto.UploadFilters) (int, error)           { return len(m.rows), nil }

type memDetections struct {
	rows []model.DetectionRecord
}

func (m *memDetections) InsertBatch(d []model.DetectionRecord) error {
	m.rows = append(m.rows, d...)
	return nil
}

func (m *memDetections) GetByUploadID(int64) ([]model.DetectionRecord, error) { return m.rows, nil }
func (m *memDetections) GetClassNamesByUploadID(int64) ([]string, error)      { return nil, nil }
func (m *memDetections) GetClassCounts() ([]dto.ClassCount, error)            { return nil, nil }

func asset() *model.UploadedAsset {
	return &model.UploadedAsset{
		OriginalFilename: "cat.png",
		StoredFilename:   "tok_cat.png",
		Path:             "uploads/tok_cat.png",
		Size:             12,
		MediaType:        "image/png",
	}
}

func TestRecorder_Nil(t *testing.T) {
	r := NewRecorder(nil, &memDetections{})
	assert.Nil(t, r)
	assert.False(t, r.Enabled())

	rec, err := r.Record(asset(), nil, errors.New("x"))
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecorder_RecordsResult(t *testing.T) {
	uploads, detections := &memUploads{}, &memDetections{}
	r := NewRecorder(uploads, detections)
	require.True(t, r.Enabled())

	res := &model.InferenceResult{
		RunName: "run_1",
		Status:  model.StatusDetected,
		Detections: []model.Detection{
			{Box: model.Box{1, 2, 3, 4}, Confidence: 0.9, ClassIndex: 0, ClassName: "person"},
			{Box: model.Box{5, 6, 7, 8}, Confidence: 0.4, ClassIndex: 2, ClassName: "dog"},
		},
	}

	rec, err := r.Record(asset(), res, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "detected", rec.Status)
	assert.Equal(t, "run_1", rec.RunName.String)
	assert.False(t, rec.InferenceError.Valid)

	require.Len(t, detections.rows, 2)
	assert.Equal(t, model.DetectionRecord{UploadID: 1, ClassIndex: 2, ClassName: "dog", Confidence: 0.4, X1: 5, Y1: 6, X2: 7, Y2: 8}, detections.rows[1])
}

func TestRecorder_RecordsInferenceError(t *testing.T) {
	uploads, detections := &memUploads{}, &memDetections{}
	r := NewRecorder(uploads, detections)

	rec, err := r.Record(asset(), nil, errors.New("model not loaded"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusInferenceError, rec.Status)
	assert.Equal(t, "model not loaded", rec.InferenceError.String)
	assert.False(t, rec.RunName.Valid)
	assert.Empty(t, detections.rows)
}

func TestRecorder_InsertFailure(t *testing.T) {
	r := NewRecorder(&memUploads{err: errors.New("disk full")}, &memDetections{})

	_, err := r.Record(asset(), &model.InferenceResult{Status: model.StatusNone}, nil)
	assert.ErrorContains(t, err, "disk full")
}

func TestClassNames(t *testing.T) {
	res := &model.InferenceResult{Detections: []model.Detection{
		{ClassName: "person"}, {ClassName: "car"}, {ClassName: "person"},
	}}
	assert.Equal(t, []string{"car", "person"}, ClassNames(res))
	assert.Equal(t, []string{}, ClassNames(nil))
}
