package qa

import (
	"context"
	"log"
	"time"
)

const (
	DefaultSessionTTL      = 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// StartSessionCleaner periodically removes sessions idle past ttl along with
// their documents and tokens. onDelete runs for every removed session so the
// caller can release per-session resources such as workers. Remote stores are
// not deleted; their lifecycle belongs to the provider.
func (s *Service) StartSessionCleaner(ctx context.Context, interval, ttl time.Duration, onDelete func(sessionID int64)) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	go s.cleanupLoop(ctx, interval, ttl, onDelete)
}

func (s *Service) cleanupLoop(ctx context.Context, interval, ttl time.Duration, onDelete func(sessionID int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.cleanupExpiredSessions(ctx, ttl, onDelete); err != nil {
				log.Printf("cleanup expired sessions error: %v", err)
			}
		}
	}
}

func (s *Service) cleanupExpiredSessions(ctx context.Context, ttl time.Duration, onDelete func(sessionID int64)) error {
	cutoff := time.Now().UTC().Add(-ttl)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE updated_at <= ?`, cutoff)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.DeleteSession(ctx, id); err != nil {
			log.Printf("delete expired session %d failed: %v", id, err)
			continue
		}
		if onDelete != nil {
			onDelete(id)
		}
	}
	return nil
}
