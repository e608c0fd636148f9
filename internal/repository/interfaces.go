package repository

import (
	"detectserver/internal/dto"
	"detectserver/internal/model"
)

// UploadRepository defines the interface for upload journal operations.
type UploadRepository interface {
	// Create operations
	Insert(rec *model.UploadRecord) (int64, error)

	// Read operations
	GetByID(id int64) (*model.UploadRecord, error)
	GetByStoredFilename(name string) (*model.UploadRecord, error)
	GetAll(filter *dto.UploadFilters) ([]model.UploadRecord, error)
	GetTotalCount(filter *dto.UploadFilters) (int, error)
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.DetectionRecord) error

	// Read operations
	GetByUploadID(uploadID int64) ([]model.DetectionRecord, error)
	GetClassNamesByUploadID(uploadID int64) ([]string, error)
	GetClassCounts() ([]dto.ClassCount, error)
}
