package casefile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lawdesk/internal/models"
)

func (s *Service) saveDocument(ctx context.Context, doc *models.Document) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (user_id, file_name, stored_path, format, size, status, extracted_text, analysis, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.UserID, doc.FileName, doc.StoredPath, doc.Format, doc.Size,
		doc.Status, doc.ExtractedText, doc.Analysis, doc.CreatedAt,
		sql.NullTime{Time: doc.ExpiresAt, Valid: !doc.ExpiresAt.IsZero()},
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("document id: %w", err)
	}
	doc.ID = id
	return nil
}

// ListDocuments returns the user's records, newest first. Extracted
// text is omitted from listings to keep responses small.
func (s *Service) ListDocuments(ctx context.Context, userID int64) ([]*models.Document, error) {
	if userID <= 0 {
		return nil, errors.New("invalid user id")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, file_name, stored_path, format, size, status, analysis, created_at, expires_at
		 FROM documents WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var d models.Document
		var expires sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.FileName, &d.StoredPath, &d.Format,
			&d.Size, &d.Status, &d.Analysis, &d.CreatedAt, &expires); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.ExpiresAt = expires.Time
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// GetDocument returns one record including its extracted text.
func (s *Service) GetDocument(ctx context.Context, userID, docID int64) (*models.Document, error) {
	if userID <= 0 || docID <= 0 {
		return nil, errors.New("invalid id")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, file_name, stored_path, format, size, status, extracted_text, analysis, created_at, expires_at
		 FROM documents WHERE id = ? AND user_id = ?`, docID, userID)

	var d models.Document
	var expires sql.NullTime
	if err := row.Scan(&d.ID, &d.UserID, &d.FileName, &d.StoredPath, &d.Format,
		&d.Size, &d.Status, &d.ExtractedText, &d.Analysis, &d.CreatedAt, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	d.ExpiresAt = expires.Time
	return &d, nil
}

// StorageUsage reports the total stored bytes for a user, used to
// enforce the per-user upload quota.
func (s *Service) StorageUsage(ctx context.Context, userID int64) (int64, error) {
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT SUM(size) FROM documents WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("storage usage: %w", err)
	}
	return total.Int64, nil
}
