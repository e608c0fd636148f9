package sqlite

import (
	"fmt"

	"detectserver/internal/dto"
	"detectserver/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.DetectionRecord) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (upload_id, class_index, class_name, confidence, x1, y1, x2, y2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.UploadID, det.ClassIndex, det.ClassName, det.Confidence,
			det.X1, det.Y1, det.X2, det.Y2); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByUploadID retrieves all detections for an upload, highest confidence first.
func (r *DetectionRepository) GetByUploadID(uploadID int64) ([]model.DetectionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, upload_id, class_index, class_name, confidence, x1, y1, x2, y2
		FROM detections WHERE upload_id = ? ORDER BY confidence DESC, id
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	detections := []model.DetectionRecord{}
	for rows.Next() {
		var det model.DetectionRecord
		if err := rows.Scan(&det.ID, &det.UploadID, &det.ClassIndex, &det.ClassName, &det.Confidence,
			&det.X1, &det.Y1, &det.X2, &det.Y2); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}

// GetClassNamesByUploadID returns the distinct class names detected in an upload.
func (r *DetectionRepository) GetClassNamesByUploadID(uploadID int64) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT class_name FROM detections WHERE upload_id = ? ORDER BY class_name`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query class names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan class name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// GetClassCounts returns how many detections were recorded per class name.
func (r *DetectionRepository) GetClassCounts() ([]dto.ClassCount, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT class_name, COUNT(*) FROM detections
		GROUP BY class_name ORDER BY COUNT(*) DESC, class_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query class counts: %w", err)
	}
	defer rows.Close()

	counts := []dto.ClassCount{}
	for rows.Next() {
		var c dto.ClassCount
		if err := rows.Scan(&c.ClassName, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan class count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
