package qa

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdfqa/internal/models"
)

// RecordDocument stores a new document summary in pending state.
func (s *Service) RecordDocument(ctx context.Context, sessionID int64, fileName, mimeType string, size int64, pages int) (*models.Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, errors.New("file name is required")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (session_id, file_name, mime_type, size, pages, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?)`,
		sessionID, fileName, mimeType, size, pages, models.DocumentPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("document id: %w", err)
	}
	if err := s.TouchSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return &models.Document{
		ID:        id,
		SessionID: sessionID,
		FileName:  fileName,
		MimeType:  mimeType,
		Size:      size,
		Pages:     pages,
		Status:    models.DocumentPending,
		CreatedAt: now,
	}, nil
}

// SetDocumentRemote records the provider-assigned identifiers once the
// upload is accepted.
func (s *Service) SetDocumentRemote(ctx context.Context, documentID int64, fileID, storeID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET remote_file_id = ?, store_id = ? WHERE id = ?`,
		fileID, storeID, documentID,
	)
	if err != nil {
		return fmt.Errorf("set document remote: %w", err)
	}
	return requireAffected(res)
}

// SetDocumentStatus moves a document to a terminal state, with an error
// message for failures.
func (s *Service) SetDocumentStatus(ctx context.Context, documentID int64, status models.DocumentStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, error = ? WHERE id = ?`,
		status, errMsg, documentID,
	)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}
	return requireAffected(res)
}

// ListDocuments returns all documents of a session in upload order.
func (s *Service) ListDocuments(ctx context.Context, sessionID int64) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, file_name, remote_file_id, store_id, mime_type, size, pages, status, error, created_at
		 FROM documents WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.SessionID, &d.FileName, &d.RemoteFileID, &d.StoreID,
			&d.MimeType, &d.Size, &d.Pages, &d.Status, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// CountReadyDocuments reports how many documents of the session completed
// ingestion.
func (s *Service) CountReadyDocuments(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE session_id = ? AND status = ?`,
		sessionID, models.DocumentReady,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ready documents: %w", err)
	}
	return count, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
