package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/maplist/internal/models"
)

var (
	// ErrSessionNotFound is returned when a job identifier is unknown
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionTerminal is returned when an update targets a finished session
	ErrSessionTerminal = errors.New("session already finished")
)

// SessionTracker maps job identifiers to their latest progress
type SessionTracker interface {
	// Create registers a running session and returns its identifier
	Create(total int) string

	// Update folds snapshot into the stored session, last write wins
	Update(id string, snapshot models.ProgressSnapshot) error

	// Get returns a copy of the session
	Get(ctx context.Context, id string) (models.Session, bool)
}

// SessionStorage persists finished sessions
type SessionStorage interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
