package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/common"
	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

type entry struct {
	mu      sync.Mutex
	session models.Session
}

// Service is the in-memory session registry. Each session has its own lock,
// so updates to one job never wait on another.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	storage interfaces.SessionStorage
	ttl     time.Duration
	now     func() time.Time
	cron    *cron.Cron
	logger  arbor.ILogger
}

var _ interfaces.SessionTracker = (*Service)(nil)

// NewService creates a tracker. storage may be nil; ttl <= 0 disables eviction.
func NewService(storage interfaces.SessionStorage, ttl time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		sessions: make(map[string]*entry),
		storage:  storage,
		ttl:      ttl,
		now:      time.Now,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Create registers a running session
func (s *Service) Create(total int) string {
	id := common.NewSessionID()
	now := s.now()

	e := &entry{session: models.Session{
		ID:        id,
		Status:    models.SessionStatusRunning,
		Total:     total,
		Message:   "Starting scraper...",
		CreatedAt: now,
		UpdatedAt: now,
	}}

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", id).Int("total", total).Msg("Session created")
	return id
}

// Update overwrites the session's fields with snapshot
func (s *Service) Update(id string, snapshot models.ProgressSnapshot) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrSessionNotFound, id)
	}

	e.mu.Lock()
	if e.session.Status.IsTerminal() {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", interfaces.ErrSessionTerminal, id)
	}

	now := s.now()
	e.session.Status = snapshot.Status
	e.session.Progress = snapshot.Current
	e.session.Total = snapshot.Total
	e.session.Message = snapshot.Message
	e.session.Results = snapshot.Results
	e.session.Error = snapshot.Error
	e.session.UpdatedAt = now

	terminal := snapshot.Status.IsTerminal()
	if terminal {
		e.session.FinishedAt = &now
		if e.session.Results == nil {
			e.session.Results = []models.PlaceRecord{}
		}
	}
	persisted := e.session.Clone()
	e.mu.Unlock()

	if terminal {
		s.logger.Info().
			Str("session_id", id).
			Str("status", string(snapshot.Status)).
			Int("results", len(snapshot.Results)).
			Msg("Session finished")
		s.persist(&persisted)
	}
	return nil
}

func (s *Service) persist(session *models.Session) {
	if s.storage == nil {
		return
	}
	if err := s.storage.SaveSession(context.Background(), session); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to persist session")
	}
}

// Get returns a copy of the session, falling back to storage for sessions
// no longer held in memory
func (s *Service) Get(ctx context.Context, id string) (models.Session, bool) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.session.Clone(), true
	}

	if s.storage == nil {
		return models.Session{}, false
	}
	stored, err := s.storage.GetSession(ctx, id)
	if err != nil {
		return models.Session{}, false
	}
	return *stored, true
}

// Sweep evicts terminal sessions that finished more than ttl before now.
// Running sessions are never evicted.
func (s *Service) Sweep(ctx context.Context, now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		expired := e.session.Status.IsTerminal() && e.session.FinishedAt != nil && e.session.FinishedAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if s.storage != nil {
		if _, err := s.storage.DeleteFinishedBefore(ctx, cutoff); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to sweep stored sessions")
		}
	}

	if evicted > 0 {
		s.logger.Debug().Int("evicted", evicted).Msg("Expired sessions evicted")
	}
	return evicted
}

// Len returns the number of sessions held in memory
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start schedules the eviction sweep
func (s *Service) Start(schedule string) error {
	if s.ttl <= 0 || schedule == "" {
		s.logger.Debug().Msg("Session eviction disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		s.Sweep(context.Background(), s.now())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Debug().Str("schedule", schedule).Str("ttl", s.ttl.String()).Msg("Session sweeper started")
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}
