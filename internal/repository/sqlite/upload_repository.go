package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"detectserver/internal/dto"
	"detectserver/internal/model"
)

const uploadColumns = `u.id, u.original_filename, u.stored_filename, u.filepath, u.filesize,
	u.media_type, u.run_name, u.status, u.inference_error, u.created_at`

// UploadRepository implements repository.UploadRepository for SQLite.
type UploadRepository struct {
	db *DB
}

// NewUploadRepository creates a new SQLite upload repository.
func NewUploadRepository(db *DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Insert adds a new upload record to the journal.
func (r *UploadRepository) Insert(rec *model.UploadRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO uploads (original_filename, stored_filename, filepath, filesize, media_type,
			run_name, status, inference_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.OriginalFilename, rec.StoredFilename, rec.FilePath, rec.FileSize, rec.MediaType,
		rec.RunName, rec.Status, rec.InferenceError, rec.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert upload: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// GetByID retrieves an upload by its ID. A missing row returns nil, nil.
func (r *UploadRepository) GetByID(id int64) (*model.UploadRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+uploadColumns+` FROM uploads u WHERE u.id = ?`, id)
	return scanUploadRow(row)
}

// GetByStoredFilename retrieves an upload by the name it was stored under.
func (r *UploadRepository) GetByStoredFilename(name string) (*model.UploadRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+uploadColumns+` FROM uploads u WHERE u.stored_filename = ?`, name)
	return scanUploadRow(row)
}

// GetAll retrieves uploads, newest first, based on filter criteria.
func (r *UploadRepository) GetAll(filter *dto.UploadFilters) ([]model.UploadRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := uploadWhere(filter)
	query := `SELECT ` + uploadColumns + ` FROM uploads u` + where + ` ORDER BY u.created_at DESC, u.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	uploads := []model.UploadRecord{}
	for rows.Next() {
		rec, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, *rec)
	}

	return uploads, rows.Err()
}

// GetTotalCount returns the total count of uploads matching the filter.
func (r *UploadRepository) GetTotalCount(filter *dto.UploadFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := uploadWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM uploads u`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}

	return count, nil
}

// uploadWhere builds the WHERE clause shared by GetAll and GetTotalCount.
func uploadWhere(filter *dto.UploadFilters) (string, []any) {
	if filter == nil {
		return "", nil
	}

	where := " WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		where += " AND u.status = ?"
		args = append(args, filter.Status)
	}

	if filter.Class != "" {
		where += " AND EXISTS (SELECT 1 FROM detections d WHERE d.upload_id = u.id AND d.class_name = ?)"
		args = append(args, filter.Class)
	}

	return where, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*model.UploadRecord, error) {
	var rec model.UploadRecord
	err := s.Scan(&rec.ID, &rec.OriginalFilename, &rec.StoredFilename, &rec.FilePath, &rec.FileSize,
		&rec.MediaType, &rec.RunName, &rec.Status, &rec.InferenceError, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanUploadRow(row *sql.Row) (*model.UploadRecord, error) {
	rec, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return rec, nil
}
