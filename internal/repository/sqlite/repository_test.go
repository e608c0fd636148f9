package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"gopkg.in/guregu/null.v4"

	"detectserver/internal/dto"
	"detectserver/internal/model"
)

func newTestDB(c *qt.C) *DB {
	c.Helper()
	db, err := New(filepath.Join(c.TempDir(), "test.db"))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { db.Close() })
	return db
}

func insertUpload(c *qt.C, repo *UploadRepository, name, status string, created time.Time) int64 {
	c.Helper()
	id, err := repo.Insert(&model.UploadRecord{
		OriginalFilename: name,
		StoredFilename:   "token_" + name,
		FilePath:         "uploads/token_" + name,
		FileSize:         10,
		MediaType:        "image/png",
		RunName:          null.StringFrom("run_" + name),
		Status:           status,
		CreatedAt:        created,
	})
	c.Assert(err, qt.IsNil)
	return id
}

func TestDatabase_Migration(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "test.db")

	db, err := New(path)
	c.Assert(err, qt.IsNil)
	c.Assert(db.Close(), qt.IsNil)

	// Reopening must not fail on existing tables.
	db, err = New(path)
	c.Assert(err, qt.IsNil)
	c.Assert(db.Close(), qt.IsNil)
}

func TestUploadRepository_InsertAndGet(t *testing.T) {
	c := qt.New(t)
	repo := NewUploadRepository(newTestDB(c))

	created := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	rec := &model.UploadRecord{
		OriginalFilename: "cat.png",
		StoredFilename:   "abc_cat.png",
		FilePath:         "uploads/abc_cat.png",
		FileSize:         2048,
		MediaType:        "image/png",
		Status:           model.StatusInferenceError,
		InferenceError:   null.StringFrom("model not loaded"),
		CreatedAt:        created,
	}
	id, err := repo.Insert(rec)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.ID, qt.Equals, id)

	got, err := repo.GetByID(id)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNotNil)
	c.Assert(got.StoredFilename, qt.Equals, "abc_cat.png")
	c.Assert(got.FileSize, qt.Equals, int64(2048))
	c.Assert(got.RunName.Valid, qt.IsFalse)
	c.Assert(got.InferenceError.String, qt.Equals, "model not loaded")
	c.Assert(got.CreatedAt.Equal(created), qt.IsTrue)

	byName, err := repo.GetByStoredFilename("abc_cat.png")
	c.Assert(err, qt.IsNil)
	c.Assert(byName.ID, qt.Equals, id)
}

func TestUploadRepository_Missing(t *testing.T) {
	c := qt.New(t)
	repo := NewUploadRepository(newTestDB(c))

	got, err := repo.GetByID(42)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNil)

	got, err = repo.GetByStoredFilename("nope.png")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNil)
}

func TestUploadRepository_DuplicateStoredName(t *testing.T) {
	c := qt.New(t)
	repo := NewUploadRepository(newTestDB(c))

	insertUpload(c, repo, "a.png", "none", time.Now())
	_, err := repo.Insert(&model.UploadRecord{StoredFilename: "token_a.png", Status: "none"})
	c.Assert(err, qt.IsNotNil)
}

func TestUploadRepository_FilterAndPaginate(t *testing.T) {
	c := qt.New(t)
	db := newTestDB(c)
	uploads := NewUploadRepository(db)
	detections := NewDetectionRepository(db)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := insertUpload(c, uploads, "a.png", string(model.StatusDetected), base)
	insertUpload(c, uploads, "b.png", string(model.StatusNone), base.Add(time.Hour))
	cID := insertUpload(c, uploads, "c.png", string(model.StatusDetected), base.Add(2*time.Hour))

	c.Assert(detections.InsertBatch([]model.DetectionRecord{
		{UploadID: a, ClassIndex: 0, ClassName: "person", Confidence: 0.9},
		{UploadID: cID, ClassIndex: 1, ClassName: "car", Confidence: 0.8},
	}), qt.IsNil)

	all, err := uploads.GetAll(&dto.UploadFilters{})
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 3)
	c.Assert(all[0].StoredFilename, qt.Equals, "token_c.png")

	page, err := uploads.GetAll(&dto.UploadFilters{Limit: 1, Offset: 1})
	c.Assert(err, qt.IsNil)
	c.Assert(page, qt.HasLen, 1)
	c.Assert(page[0].StoredFilename, qt.Equals, "token_b.png")

	byStatus, err := uploads.GetAll(&dto.UploadFilters{Status: string(model.StatusDetected)})
	c.Assert(err, qt.IsNil)
	c.Assert(byStatus, qt.HasLen, 2)

	byClass, err := uploads.GetAll(&dto.UploadFilters{Class: "person"})
	c.Assert(err, qt.IsNil)
	c.Assert(byClass, qt.HasLen, 1)
	c.Assert(byClass[0].ID, qt.Equals, a)

	count, err := uploads.GetTotalCount(&dto.UploadFilters{Class: "car", Status: string(model.StatusDetected)})
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 1)

	count, err = uploads.GetTotalCount(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 3)
}

func TestDetectionRepository(t *testing.T) {
	c := qt.New(t)
	db := newTestDB(c)
	uploads := NewUploadRepository(db)
	detections := NewDetectionRepository(db)

	first := insertUpload(c, uploads, "a.png", "detected", time.Now())
	second := insertUpload(c, uploads, "b.png", "detected", time.Now())

	c.Assert(detections.InsertBatch(nil), qt.IsNil)
	c.Assert(detections.InsertBatch([]model.DetectionRecord{
		{UploadID: first, ClassIndex: 0, ClassName: "person", Confidence: 0.5, X1: 1, Y1: 2, X2: 3, Y2: 4},
		{UploadID: first, ClassIndex: 0, ClassName: "person", Confidence: 0.9},
		{UploadID: first, ClassIndex: 2, ClassName: "dog", Confidence: 0.7},
		{UploadID: second, ClassIndex: 0, ClassName: "person", Confidence: 0.6},
	}), qt.IsNil)

	dets, err := detections.GetByUploadID(first)
	c.Assert(err, qt.IsNil)
	c.Assert(dets, qt.HasLen, 3)
	c.Assert(dets[0].Confidence, qt.Equals, 0.9)
	c.Assert(dets[2].X2, qt.Equals, 3.0)

	names, err := detections.GetClassNamesByUploadID(first)
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{"dog", "person"})

	counts, err := detections.GetClassCounts()
	c.Assert(err, qt.IsNil)
	c.Assert(counts, qt.DeepEquals, []dto.ClassCount{
		{ClassName: "person", Count: 3},
		{ClassName: "dog", Count: 1},
	})

	none, err := detections.GetByUploadID(999)
	c.Assert(err, qt.IsNil)
	c.Assert(none, qt.HasLen, 0)
}

func TestDetectionRepository_UnknownUpload(t *testing.T) {
	c := qt.New(t)
	detections := NewDetectionRepository(newTestDB(c))

	err := detections.InsertBatch([]model.DetectionRecord{{UploadID: 12345, ClassName: "ghost"}})
	c.Assert(err, qt.IsNotNil)
}
