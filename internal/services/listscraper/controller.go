package listscraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

// Controller drives one scrape job from browser launch to a terminal snapshot
type Controller struct {
	launcher interfaces.SurfaceLauncher
	opts     Options
	logger   arbor.ILogger
}

// NewController creates a controller that launches a fresh surface per run
func NewController(launcher interfaces.SurfaceLauncher, opts Options, logger arbor.ILogger) *Controller {
	return &Controller{
		launcher: launcher,
		opts:     opts,
		logger:   logger,
	}
}

// Run scrapes the list addressed by req. Every progress snapshot, ending with
// exactly one terminal snapshot, is sent on events, which is closed on return.
// The caller must drain events until it is closed.
func (c *Controller) Run(ctx context.Context, req models.ScrapeRequest, events chan<- models.ProgressSnapshot) ([]models.PlaceRecord, error) {
	defer close(events)

	t := &traversal{
		opts:        c.opts,
		logger:      c.logger,
		events:      events,
		seen:        make(map[string]struct{}),
		totalTarget: req.MaxItems,
	}

	if err := t.run(ctx, c.launcher, req); err != nil {
		c.logger.Error().Err(err).Int("collected", len(t.results)).Msg("Scrape failed")
		events <- errorSnapshot(t.results, t.totalTarget, err)
		return t.results, err
	}

	c.logger.Info().Int("collected", len(t.results)).Int("target", t.totalTarget).Msg("Scrape completed")
	events <- completedSnapshot(t.results, t.totalTarget)
	return t.results, nil
}

// traversal is the per-run state; it never outlives Run
type traversal struct {
	opts   Options
	logger arbor.ILogger
	events chan<- models.ProgressSnapshot

	surface   interfaces.AutomationSurface
	locator   *Locator
	navigator *Navigator
	extractor *Extractor

	index               int
	results             []models.PlaceRecord
	seen                map[string]struct{}
	consecutiveFailures int
	duplicateCount      int
	totalTarget         int
}

func (t *traversal) emit(message string) {
	t.events <- runningSnapshot(len(t.results), t.totalTarget, message)
}

func (t *traversal) run(ctx context.Context, launcher interfaces.SurfaceLauncher, req models.ScrapeRequest) error {
	t.emit("Launching browser...")
	surface, err := launcher.Launch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := surface.Close(); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	t.surface = surface
	t.locator = NewLocator(surface, t.opts, t.logger)
	t.navigator = NewNavigator(surface, t.opts, t.logger)
	t.extractor = NewExtractor(surface, t.opts, t.logger)

	if err := t.prepare(ctx, req.ListURL); err != nil {
		return err
	}

	estimate, err := t.locator.EstimateTotal(ctx, t.emit)
	if err != nil {
		return err
	}
	if estimate > 0 && estimate < req.MaxItems {
		t.totalTarget = estimate
	} else {
		t.totalTarget = req.MaxItems
	}
	t.logger.Info().Int("estimate", estimate).Int("target", t.totalTarget).Msg("Starting traversal")

	return t.traverse(ctx)
}

// prepare loads the list and waits for the sidebar to settle
func (t *traversal) prepare(ctx context.Context, listURL string) error {
	t.emit("Navigating to list...")
	if err := t.surface.Navigate(ctx, listURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to navigate to list: %w", err)
	}

	t.emit("Waiting for sidebar to load...")
	if err := t.surface.WaitVisible(ctx, t.opts.Selectors.Container, t.opts.Timing.SidebarTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("list container never appeared: %w", err)
	}
	if err := pause(ctx, t.opts.Timing.AfterSidebar); err != nil {
		return err
	}

	if err := t.navigator.DismissDialogs(ctx); err != nil {
		return err
	}
	if err := pause(ctx, t.opts.Timing.BetweenDismissals); err != nil {
		return err
	}
	if err := t.navigator.DismissDialogs(ctx); err != nil {
		return err
	}

	t.emit("Detecting total number of items...")
	return nil
}

func (t *traversal) traverse(ctx context.Context) error {
	limits := t.opts.Limits

	for t.index = 0; t.index < t.totalTarget; t.index++ {
		t.emit(fmt.Sprintf("Processing item %d/%d", t.index+1, t.totalTarget))

		stop, err := t.visit(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrPageNotInitialized) {
				return err
			}
			t.consecutiveFailures++
			t.logger.Warn().Err(err).Int("index", t.index).Int("failures", t.consecutiveFailures).Msg("Entry failed")
			if t.consecutiveFailures >= limits.MaxConsecutiveFailures {
				t.logger.Info().Int("index", t.index).Msg("Too many consecutive failures, stopping")
				return nil
			}
			continue
		}
		if stop {
			return nil
		}
	}

	return nil
}

// visit processes the entry at t.index. stop ends the loop without error.
func (t *traversal) visit(ctx context.Context) (stop bool, err error) {
	limits := t.opts.Limits

	if t.index > 0 && limits.ScrollEvery > 0 && t.index%limits.ScrollEvery == 0 {
		if err := t.locator.ScrollIncrement(ctx); err != nil {
			return false, err
		}
	}

	previousURL, err := t.surface.CurrentURL(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read current url: %w", err)
	}

	entry, found, err := t.locator.EntryAt(ctx, t.index)
	if err != nil {
		return false, err
	}
	if !found {
		t.consecutiveFailures++
		t.logger.Debug().Int("index", t.index).Int("failures", t.consecutiveFailures).Msg("Entry not found")
		if t.consecutiveFailures >= limits.MaxConsecutiveFailures {
			t.logger.Info().Int("index", t.index).Msg("No more entries found, stopping")
			return true, nil
		}
		return false, t.locator.ScrollIncrement(ctx)
	}

	if err := t.navigator.Open(ctx, entry); err != nil {
		return false, err
	}
	detailURL, err := t.navigator.AwaitDetail(ctx)
	if err != nil {
		return false, err
	}

	if detailURL == previousURL && t.opts.KeyboardFallback {
		t.logger.Debug().Int("index", t.index).Msg("Click left page unchanged, trying keyboard")
		if err := t.navigator.OpenByKeyboard(ctx, t.index); err != nil {
			return false, err
		}
		if detailURL, err = t.navigator.AwaitDetail(ctx); err != nil {
			return false, err
		}
	}

	if detailURL == previousURL || !t.navigator.IsDetailURL(detailURL) {
		t.logger.Debug().Int("index", t.index).Str("url", detailURL).Msg("Navigation inconclusive")
		return false, nil
	}

	if _, dup := t.seen[detailURL]; dup {
		t.duplicateCount++
		t.logger.Debug().Int("index", t.index).Int("duplicates", t.duplicateCount).Msg("Duplicate detail page")
		if t.duplicateCount >= limits.MaxDuplicates {
			t.logger.Info().Int("index", t.index).Msg("Too many duplicates, list presumed exhausted")
			return true, nil
		}
		return false, nil
	}
	t.consecutiveFailures = 0
	t.duplicateCount = 0
	t.seen[detailURL] = struct{}{}

	record, err := t.extractor.Extract(ctx)
	if err != nil {
		return false, err
	}
	if record.Name == nil || *record.Name == t.opts.Selectors.Placeholder {
		t.logger.Debug().Str("url", detailURL).Msg("No usable name, skipping")
		return false, nil
	}

	t.results = append(t.results, record)
	t.emit(fmt.Sprintf("Collected: %s (%d total)", *record.Name, len(t.results)))

	return false, pause(ctx, t.opts.Timing.BetweenItems)
}
