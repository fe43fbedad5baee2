package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/models"
	"github.com/ternarybob/maplist/internal/services/browser/browsertest"
	"github.com/ternarybob/maplist/internal/services/listscraper"
	"github.com/ternarybob/maplist/internal/services/sessions"
)

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) Write(records []models.PlaceRecord) (string, error) {
	args := m.Called(records)
	return args.String(0), args.Error(1)
}

// blockingEngine reports one running snapshot and then waits for cancellation
type blockingEngine struct {
	started chan struct{}
}

func (e *blockingEngine) Run(ctx context.Context, req models.ScrapeRequest, events chan<- models.ProgressSnapshot) ([]models.PlaceRecord, error) {
	defer close(events)
	events <- models.ProgressSnapshot{Total: req.MaxItems, Message: "Launching browser...", Status: models.SessionStatusRunning}
	close(e.started)
	<-ctx.Done()
	events <- models.ProgressSnapshot{Total: req.MaxItems, Message: "Error occurred", Status: models.SessionStatusError, Error: ctx.Err().Error()}
	return nil, ctx.Err()
}

func testConfig() Config {
	return Config{DefaultMaxItems: 200}
}

func newScrapeRunner(t *testing.T, surface *browsertest.Surface, exporter Exporter) (*Runner, *sessions.Service) {
	t.Helper()
	logger := arbor.NewLogger()
	tracker := sessions.NewService(nil, time.Hour, logger)
	opts := listscraper.Options{Selectors: listscraper.DefaultSelectors(), Limits: listscraper.DefaultLimits()}
	controller := listscraper.NewController(&browsertest.Launcher{Surface: surface}, opts, logger)
	runner := NewRunner(controller, tracker, exporter, testConfig(), logger)
	t.Cleanup(func() { runner.Close() })
	return runner, tracker
}

func TestSubmitRunsToCompletion(t *testing.T) {
	runner, tracker := newScrapeRunner(t, &browsertest.Surface{Places: browsertest.Places(5)}, nil)

	id, err := runner.Submit(models.ScrapeRequest{ListURL: "https://maps.example/list/abc", MaxItems: 5})
	require.NoError(t, err)
	runner.Wait()

	session, ok := tracker.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	assert.Equal(t, 5, session.Progress)
	assert.Equal(t, 5, session.Total)
	assert.Len(t, session.Results, 5)
	assert.Zero(t, runner.Running())
}

func TestSubmitExportsResults(t *testing.T) {
	exporter := &mockExporter{}
	exporter.On("Write", mock.MatchedBy(func(r []models.PlaceRecord) bool { return len(r) == 2 })).
		Return("exports/places.json", nil).Once()
	runner, _ := newScrapeRunner(t, &browsertest.Surface{Places: browsertest.Places(2)}, exporter)

	_, err := runner.Submit(models.ScrapeRequest{ListURL: "https://maps.example/list/abc", MaxItems: 2})
	require.NoError(t, err)
	runner.Wait()

	exporter.AssertExpectations(t)
}

func TestSubmitSkipsExportWithoutResults(t *testing.T) {
	exporter := &mockExporter{}
	runner, _ := newScrapeRunner(t, &browsertest.Surface{}, exporter)

	_, err := runner.Submit(models.ScrapeRequest{ListURL: "https://maps.example/list/abc", MaxItems: 3})
	require.NoError(t, err)
	runner.Wait()

	exporter.AssertNotCalled(t, "Write", mock.Anything)
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	runner, tracker := newScrapeRunner(t, &browsertest.Surface{}, nil)

	tests := []struct {
		name string
		req  models.ScrapeRequest
		want string
	}{
		{"missing url", models.ScrapeRequest{}, "List URL is required"},
		{"relative url", models.ScrapeRequest{ListURL: "maps/list/abc"}, "List URL must be an absolute URL"},
		{"cap too large", models.ScrapeRequest{ListURL: "https://maps.example/list/abc", MaxItems: 10001}, "maxItems must be between 1 and 10000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.Submit(tt.req)
			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.want, reqErr.Message)
		})
	}
	assert.Zero(t, tracker.Len(), "rejected requests create no session")
}

func TestSubmitDefaultsMaxItems(t *testing.T) {
	logger := arbor.NewLogger()
	tracker := sessions.NewService(nil, time.Hour, logger)
	engine := &blockingEngine{started: make(chan struct{})}
	runner := NewRunner(engine, tracker, nil, testConfig(), logger)
	defer runner.Close()

	id, err := runner.Submit(models.ScrapeRequest{ListURL: "https://maps.example/list/abc"})
	require.NoError(t, err)

	session, ok := tracker.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, 200, session.Total)
}

func TestCancelEndsJobInError(t *testing.T) {
	logger := arbor.NewLogger()
	tracker := sessions.NewService(nil, time.Hour, logger)
	engine := &blockingEngine{started: make(chan struct{})}
	runner := NewRunner(engine, tracker, nil, testConfig(), logger)
	defer runner.Close()

	id, err := runner.Submit(models.ScrapeRequest{ListURL: "https://maps.example/list/abc", MaxItems: 10})
	require.NoError(t, err)
	<-engine.started

	require.NoError(t, runner.Cancel(id))
	runner.Wait()

	session, _ := tracker.Get(context.Background(), id)
	assert.Equal(t, models.SessionStatusError, session.Status)
	assert.Equal(t, "context canceled", session.Error)
	assert.ErrorIs(t, runner.Cancel(id), ErrJobNotFound, "finished jobs cannot be cancelled")
}

func TestCancelUnknown(t *testing.T) {
	runner, _ := newScrapeRunner(t, &browsertest.Surface{}, nil)

	assert.ErrorIs(t, runner.Cancel("session_missing"), ErrJobNotFound)
}

func TestCloseCancelsRunningJobs(t *testing.T) {
	logger := arbor.NewLogger()
	tracker := sessions.NewService(nil, time.Hour, logger)
	engine := &blockingEngine{started: make(chan struct{})}
	runner := NewRunner(engine, tracker, nil, testConfig(), logger)

	id, err := runner.Submit(models.ScrapeRequest{ListURL: "https://maps.example/list/abc", MaxItems: 10})
	require.NoError(t, err)
	<-engine.started

	require.NoError(t, runner.Close())

	session, _ := tracker.Get(context.Background(), id)
	assert.Equal(t, models.SessionStatusError, session.Status)
	_, err = runner.Submit(models.ScrapeRequest{ListURL: "https://maps.example/list/abc"})
	assert.ErrorIs(t, err, ErrRunnerClosed)
}
