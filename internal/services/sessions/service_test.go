package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) SaveSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*models.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStorage) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func newService(storage interfaces.SessionStorage) *Service {
	return NewService(storage, time.Hour, arbor.NewLogger())
}

func TestCreateStartsRunning(t *testing.T) {
	svc := newService(nil)

	id := svc.Create(10)

	session, ok := svc.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, id, session.ID)
	assert.Equal(t, models.SessionStatusRunning, session.Status)
	assert.Equal(t, 0, session.Progress)
	assert.Equal(t, 10, session.Total)
	assert.Equal(t, "Starting scraper...", session.Message)
}

func TestGetUnknown(t *testing.T) {
	svc := newService(nil)

	_, ok := svc.Get(context.Background(), "session_missing")

	assert.False(t, ok)
}

func TestUpdateOverwrites(t *testing.T) {
	svc := newService(nil)
	id := svc.Create(10)

	require.NoError(t, svc.Update(id, models.ProgressSnapshot{Current: 3, Total: 8, Message: "Collected: Tartine (3 total)", Status: models.SessionStatusRunning}))
	require.NoError(t, svc.Update(id, models.ProgressSnapshot{Current: 3, Total: 8, Message: "Processing item 5/8", Status: models.SessionStatusRunning}))

	session, _ := svc.Get(context.Background(), id)
	assert.Equal(t, 3, session.Progress)
	assert.Equal(t, 8, session.Total)
	assert.Equal(t, "Processing item 5/8", session.Message)
	assert.Nil(t, session.FinishedAt)
}

func TestUpdateUnknown(t *testing.T) {
	svc := newService(nil)

	err := svc.Update("session_missing", models.ProgressSnapshot{Status: models.SessionStatusRunning})

	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestUpdateRejectedAfterTerminal(t *testing.T) {
	svc := newService(nil)
	id := svc.Create(1)

	require.NoError(t, svc.Update(id, models.ProgressSnapshot{Current: 1, Total: 1, Status: models.SessionStatusCompleted, Results: []models.PlaceRecord{{URL: "u"}}}))
	err := svc.Update(id, models.ProgressSnapshot{Status: models.SessionStatusRunning})

	assert.ErrorIs(t, err, interfaces.ErrSessionTerminal)
	session, _ := svc.Get(context.Background(), id)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	assert.Len(t, session.Results, 1)
	assert.NotNil(t, session.FinishedAt)
}

func TestTerminalUpdateAlwaysRecordsResults(t *testing.T) {
	svc := newService(nil)
	id := svc.Create(3)

	require.NoError(t, svc.Update(id, models.ProgressSnapshot{Total: 3, Status: models.SessionStatusError, Error: "context canceled"}))

	session, ok := svc.Get(context.Background(), id)
	require.True(t, ok)
	assert.True(t, session.HasResults())
	assert.NotNil(t, session.Results)
	assert.Empty(t, session.Results)
}

func TestGetReturnsCopy(t *testing.T) {
	svc := newService(nil)
	id := svc.Create(1)
	require.NoError(t, svc.Update(id, models.ProgressSnapshot{Status: models.SessionStatusCompleted, Results: []models.PlaceRecord{{URL: "a"}}}))

	session, _ := svc.Get(context.Background(), id)
	session.Results[0].URL = "changed"

	again, _ := svc.Get(context.Background(), id)
	assert.Equal(t, "a", again.Results[0].URL)
}

func TestTerminalSessionsAreWrittenThrough(t *testing.T) {
	storage := &mockStorage{}
	storage.On("SaveSession", mock.Anything, mock.MatchedBy(func(s *models.Session) bool {
		return s.Status == models.SessionStatusError && s.Error == "boom"
	})).Return(nil).Once()
	svc := newService(storage)
	id := svc.Create(5)

	require.NoError(t, svc.Update(id, models.ProgressSnapshot{Status: models.SessionStatusRunning}))
	require.NoError(t, svc.Update(id, models.ProgressSnapshot{Status: models.SessionStatusError, Message: "Error occurred", Error: "boom"}))

	storage.AssertExpectations(t)
}

func TestGetFallsBackToStorage(t *testing.T) {
	storage := &mockStorage{}
	storage.On("GetSession", mock.Anything, "session_old").Return(&models.Session{ID: "session_old", Status: models.SessionStatusCompleted}, nil)
	storage.On("GetSession", mock.Anything, "session_none").Return(nil, interfaces.ErrSessionNotFound)
	svc := newService(storage)

	session, ok := svc.Get(context.Background(), "session_old")
	assert.True(t, ok)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)

	_, ok = svc.Get(context.Background(), "session_none")
	assert.False(t, ok)
}

func TestSweepEvictsOnlyExpiredTerminal(t *testing.T) {
	svc := newService(nil)
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	oldDone := svc.Create(1)
	require.NoError(t, svc.Update(oldDone, models.ProgressSnapshot{Status: models.SessionStatusCompleted}))
	oldRunning := svc.Create(1)

	svc.now = func() time.Time { return start.Add(50 * time.Minute) }
	recentDone := svc.Create(1)
	require.NoError(t, svc.Update(recentDone, models.ProgressSnapshot{Status: models.SessionStatusError, Error: "x"}))

	evicted := svc.Sweep(context.Background(), start.Add(90*time.Minute))

	assert.Equal(t, 1, evicted)
	_, ok := svc.Get(context.Background(), oldDone)
	assert.False(t, ok)
	_, ok = svc.Get(context.Background(), oldRunning)
	assert.True(t, ok, "running sessions are never evicted")
	_, ok = svc.Get(context.Background(), recentDone)
	assert.True(t, ok)
}

func TestSweepAlsoPrunesStorage(t *testing.T) {
	storage := &mockStorage{}
	now := time.Now()
	storage.On("DeleteFinishedBefore", mock.Anything, now.Add(-time.Hour)).Return(2, nil).Once()
	svc := newService(storage)

	svc.Sweep(context.Background(), now)

	storage.AssertExpectations(t)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := newService(nil)

	assert.Error(t, svc.Start("not a schedule"))
}

func TestConcurrentUpdatesAcrossSessions(t *testing.T) {
	svc := newService(nil)
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = svc.Create(100)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for n := 1; n <= 100; n++ {
				if err := svc.Update(id, models.ProgressSnapshot{Current: n, Total: 100, Status: models.SessionStatusRunning}); err != nil {
					t.Error(err)
					return
				}
				svc.Get(context.Background(), id)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		session, _ := svc.Get(context.Background(), id)
		assert.Equal(t, 100, session.Progress)
	}
	assert.Equal(t, 8, svc.Len())
}
