package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/maplist/internal/common"
	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
	"github.com/ternarybob/maplist/internal/services/listscraper"
)

// ErrJobNotFound is returned when cancelling a job that is not running
var ErrJobNotFound = errors.New("job not found")

// ErrRunnerClosed is returned by Submit after Close
var ErrRunnerClosed = errors.New("runner closed")

// RequestError reports a submission rejected by validation
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }
func (e *RequestError) Unwrap() error { return e.Err }

// Engine runs one scrape to a terminal snapshot. *listscraper.Controller implements it.
type Engine interface {
	Run(ctx context.Context, req models.ScrapeRequest, events chan<- models.ProgressSnapshot) ([]models.PlaceRecord, error)
}

// Exporter persists a finished job's records
type Exporter interface {
	Write(records []models.PlaceRecord) (string, error)
}

// Config tunes job admission
type Config struct {
	DefaultMaxItems int
	LaunchRate      float64 // launches per second; <= 0 admits without limit
	LaunchBurst     int
}

// Runner accepts scrape requests and runs each as an independent job
type Runner struct {
	engine          Engine
	tracker         interfaces.SessionTracker
	exporter        Exporter
	limiter         *rate.Limiter
	defaultMaxItems int
	logger          arbor.ILogger

	baseCtx   context.Context
	cancelAll context.CancelFunc

	mu      sync.Mutex
	running map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewRunner creates a runner. exporter may be nil.
func NewRunner(engine Engine, tracker interfaces.SessionTracker, exporter Exporter, config Config, logger arbor.ILogger) *Runner {
	limit := rate.Inf
	if config.LaunchRate > 0 {
		limit = rate.Limit(config.LaunchRate)
	}
	burst := config.LaunchBurst
	if burst < 1 {
		burst = 1
	}

	baseCtx, cancelAll := context.WithCancel(context.Background())

	return &Runner{
		engine:          engine,
		tracker:         tracker,
		exporter:        exporter,
		limiter:         rate.NewLimiter(limit, burst),
		defaultMaxItems: config.DefaultMaxItems,
		logger:          logger,
		baseCtx:         baseCtx,
		cancelAll:       cancelAll,
		running:         make(map[string]context.CancelFunc),
	}
}

// Submit validates req, registers its session and starts the job in the background
func (r *Runner) Submit(req models.ScrapeRequest) (string, error) {
	req.Normalize(r.defaultMaxItems)
	if err := req.Validate(); err != nil {
		return "", &RequestError{Message: models.ValidationMessage(err), Err: err}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRunnerClosed
	}
	id := r.tracker.Create(req.MaxItems)
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.running[id] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.Info().Str("session_id", id).Str("list_url", req.ListURL).Int("max_items", req.MaxItems).Msg("Scrape job accepted")

	common.SafeGo(r.logger, "scrape:"+id, func() {
		defer r.wg.Done()
		defer r.release(id)
		r.run(ctx, id, req)
	}, func(recovered interface{}) {
		r.fail(id, req, fmt.Errorf("scrape job panicked: %v", recovered))
	})

	return id, nil
}

func (r *Runner) run(ctx context.Context, id string, req models.ScrapeRequest) {
	logger := r.logger.WithCorrelationId(id)

	if err := r.limiter.Wait(ctx); err != nil {
		logger.Warn().Err(err).Msg("Job cancelled before a browser slot was available")
		r.fail(id, req, err)
		return
	}

	events := make(chan models.ProgressSnapshot, 16)
	folded := make(chan struct{})

	common.SafeGo(logger, "progress:"+id, func() {
		defer close(folded)
		listscraper.Drain(events, func(snapshot models.ProgressSnapshot) {
			if err := r.tracker.Update(id, snapshot); err != nil {
				logger.Warn().Err(err).Msg("Progress update dropped")
			}
		})
	}, nil)

	results, err := r.engine.Run(ctx, req, events)
	<-folded

	if err != nil {
		logger.Warn().Err(err).Int("results", len(results)).Msg("Scrape job ended with error")
	}

	if r.exporter != nil && len(results) > 0 {
		if _, err := r.exporter.Write(results); err != nil {
			logger.Warn().Err(err).Msg("Failed to export results")
		}
	}
}

// fail records a terminal error for a job that never produced one itself
func (r *Runner) fail(id string, req models.ScrapeRequest, err error) {
	snapshot := models.ProgressSnapshot{
		Total:   req.MaxItems,
		Message: "Error occurred",
		Status:  models.SessionStatusError,
		Results: []models.PlaceRecord{},
		Error:   err.Error(),
	}
	if uerr := r.tracker.Update(id, snapshot); uerr != nil && !errors.Is(uerr, interfaces.ErrSessionTerminal) {
		r.logger.Warn().Err(uerr).Str("session_id", id).Msg("Failed to record job failure")
	}
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	cancel, ok := r.running[id]
	delete(r.running, id)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Cancel stops a running job. The job ends in the error state.
func (r *Runner) Cancel(id string) error {
	r.mu.Lock()
	cancel, ok := r.running[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	r.logger.Info().Str("session_id", id).Msg("Cancelling scrape job")
	cancel()
	return nil
}

// Running returns the number of jobs still in flight
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Wait blocks until every submitted job has finished
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close rejects new jobs, cancels running ones and waits for them to finish
func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancelAll()
	r.wg.Wait()
	return nil
}
