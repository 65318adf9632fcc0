package qa

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pdfqa/internal/models"
)

// ErrStoreBound reports an attempt to bind a second remote store to a
// session that already tracks one. The session must be reset first so no
// store is ever silently leaked.
var ErrStoreBound = errors.New("session already has an active store")

// ErrStoreEmpty refuses a query before at least one document is ready.
var ErrStoreEmpty = errors.New("no ready documents in the active store")

// Service handles session and document persistence.
type Service struct {
	db *sql.DB
}

// NewService builds a new qa service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// CreateSession inserts a fresh session with no store bound.
func (s *Service) CreateSession(ctx context.Context) (*models.Session, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (store_id, created_at, updated_at) VALUES ('', ?, ?)`,
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	return &models.Session{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

// GetSession returns one session.
func (s *Service) GetSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	var se models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, store_id, created_at, updated_at FROM sessions WHERE id = ?`,
		sessionID,
	).Scan(&se.ID, &se.StoreID, &se.CreatedAt, &se.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &se, nil
}

// TouchSession bumps the session's activity timestamp so the cleaner leaves
// it alone.
func (s *Service) TouchSession(ctx context.Context, sessionID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// BindStore records the remote store for a session. Exactly one store may be
// active at a time; a second bind without a reset fails with ErrStoreBound.
func (s *Service) BindStore(ctx context.Context, sessionID int64, storeID string) error {
	if storeID == "" {
		return errors.New("store id is required")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET store_id = ?, updated_at = ? WHERE id = ? AND store_id = ''`,
		storeID, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("bind store: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind store rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetSession(ctx, sessionID); err != nil {
			return err
		}
		return ErrStoreBound
	}
	return nil
}

// ActiveStore returns the session's bound store id, empty when none.
func (s *Service) ActiveStore(ctx context.Context, sessionID int64) (string, error) {
	var storeID string
	err := s.db.QueryRowContext(ctx,
		`SELECT store_id FROM sessions WHERE id = ?`, sessionID,
	).Scan(&storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("active store: %w", err)
	}
	return storeID, nil
}

// ResetSession clears the store binding and drops all tracked documents,
// returning the session to its initial empty state. The remote store itself
// is left to provider-side lifecycle.
func (s *Service) ResetSession(ctx context.Context, sessionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET store_id = '', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset rows affected: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		return sql.ErrNoRows
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reset session: %w", err)
	}
	return nil
}

// DeleteSession removes a session with its documents and tokens.
func (s *Service) DeleteSession(ctx context.Context, sessionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		return sql.ErrNoRows
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_tokens WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}
	return nil
}
