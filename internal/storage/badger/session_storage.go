package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

// SessionStorage persists finished scrape sessions
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.SessionStorage = (*SessionStorage)(nil)

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) *SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SessionStorage) SaveSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := s.db.Store().Upsert(session.ID, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Store().Get(id, &session); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.ID = id
	// gob does not keep empty slices apart from nil
	if session.Status.IsTerminal() && session.Results == nil {
		session.Results = []models.PlaceRecord{}
	}
	return &session, nil
}

func (s *SessionStorage) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Session{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteFinishedBefore removes terminal sessions that finished before cutoff
func (s *SessionStorage) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var sessions []models.Session
	if err := s.db.Store().Find(&sessions, nil); err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	deleted := 0
	for _, session := range sessions {
		if !session.Status.IsTerminal() || session.FinishedAt == nil || !session.FinishedAt.Before(cutoff) {
			continue
		}
		if err := s.DeleteSession(ctx, session.ID); err != nil {
			return deleted, err
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Debug().Int("deleted", deleted).Msg("Expired sessions removed from storage")
	}
	return deleted, nil
}
