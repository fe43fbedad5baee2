package listscraper

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

// Locator finds list entries in the current page and estimates how many there are
type Locator struct {
	surface interfaces.AutomationSurface
	sel     Selectors
	timing  Timing
	limits  Limits
	logger  arbor.ILogger
}

// NewLocator creates a locator over surface
func NewLocator(surface interfaces.AutomationSurface, opts Options, logger arbor.ILogger) *Locator {
	return &Locator{
		surface: surface,
		sel:     opts.Selectors,
		timing:  opts.Timing,
		limits:  opts.Limits,
		logger:  logger,
	}
}

// Entries returns the classified entries currently rendered, in document order
func (l *Locator) Entries(ctx context.Context) ([]models.ElementSnapshot, error) {
	snapshots, err := l.surface.SnapshotElements(ctx, l.sel.Container, l.sel.Candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot list elements: %w", err)
	}
	return Classify(snapshots), nil
}

// EntryAt returns the entry at index. A page error is reported as absent;
// only context errors are returned.
func (l *Locator) EntryAt(ctx context.Context, index int) (models.ElementSnapshot, bool, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return models.ElementSnapshot{}, false, ctx.Err()
		}
		l.logger.Debug().Err(err).Int("index", index).Msg("Entry lookup failed")
		return models.ElementSnapshot{}, false, nil
	}
	if index < 0 || index >= len(entries) {
		return models.ElementSnapshot{}, false, nil
	}
	return entries[index], true, nil
}

// Count returns how many entries are currently rendered, 0 on page error
func (l *Locator) Count(ctx context.Context) (int, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		l.logger.Debug().Err(err).Msg("Entry count failed")
		return 0, nil
	}
	return len(entries), nil
}

// ScrollIncrement nudges the list down to pull in more entries
func (l *Locator) ScrollIncrement(ctx context.Context) error {
	if err := l.surface.ScrollBy(ctx, l.sel.Container, l.sel.Feed, l.limits.ScrollStep); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Debug().Err(err).Msg("Incremental scroll failed")
	}
	return pause(ctx, l.timing.AfterScroll)
}

// EstimateTotal scrolls to the bottom of the list until the entry count holds
// steady. It returns the stable count, or 0 when the count never stabilised.
// report receives human-readable progress lines.
func (l *Locator) EstimateTotal(ctx context.Context, report func(message string)) (int, error) {
	if report == nil {
		report = func(string) {}
	}

	if err := pause(ctx, l.timing.CountWarmup); err != nil {
		return 0, err
	}

	previous := 0
	stable := 0

	for attempt := 0; attempt < l.limits.CountAttempts; attempt++ {
		count, err := l.Count(ctx)
		if err != nil {
			return 0, err
		}

		if attempt == 0 {
			report(fmt.Sprintf("Initial count: %d items found...", count))
		}

		if count == previous && count > 0 {
			stable++
			if stable >= l.limits.StableSamples {
				report(fmt.Sprintf("Detection complete: Found %d items", count))
				l.logger.Debug().Int("count", count).Int("attempts", attempt+1).Msg("Entry count stabilised")
				return count, nil
			}
		} else {
			stable = 0
		}
		previous = count

		if err := l.surface.ScrollToBottom(ctx, l.sel.Container, l.sel.Feed); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			l.logger.Debug().Err(err).Msg("Scroll to bottom failed")
		}
		if err := pause(ctx, l.timing.AfterCountScroll); err != nil {
			return 0, err
		}
	}

	l.logger.Warn().Int("last_count", previous).Int("attempts", l.limits.CountAttempts).Msg("Entry count never stabilised")
	return 0, nil
}
