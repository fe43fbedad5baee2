package listscraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

// Navigator opens list entries and confirms the resulting detail page
type Navigator struct {
	surface interfaces.AutomationSurface
	sel     Selectors
	timing  Timing
	limits  Limits
	logger  arbor.ILogger
}

// NewNavigator creates a navigator over surface
func NewNavigator(surface interfaces.AutomationSurface, opts Options, logger arbor.ILogger) *Navigator {
	return &Navigator{
		surface: surface,
		sel:     opts.Selectors,
		timing:  opts.Timing,
		limits:  opts.Limits,
		logger:  logger,
	}
}

// IsDetailURL reports whether url addresses a place detail page
func (n *Navigator) IsDetailURL(url string) bool {
	return strings.Contains(url, n.sel.DetailMarker)
}

// DismissDialogs closes modal dialogs and prompts that would intercept clicks.
// Failures are logged and ignored; only context errors are returned.
func (n *Navigator) DismissDialogs(ctx context.Context) error {
	if err := pause(ctx, n.timing.DialogSettle); err != nil {
		return err
	}

	targets := []models.Selector{n.sel.CancelButton, n.sel.CloseButton, n.sel.DismissButton}

	for round := 0; round < n.limits.DialogRounds; round++ {
		closed := 0

		for _, target := range targets {
			clicked, err := n.surface.ClickIfVisible(ctx, target, n.timing.DialogVisible)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				n.logger.Debug().Err(err).Str("selector", target.Query).Msg("Dialog control click failed")
				continue
			}
			if clicked {
				closed++
				if err := pause(ctx, n.timing.DialogAfterClick); err != nil {
					return err
				}
			}
		}

		if err := n.surface.PressKey(ctx, models.KeyEscape); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n.logger.Debug().Err(err).Msg("Escape key failed")
		} else if err := pause(ctx, n.timing.KeyboardStep); err != nil {
			return err
		}

		if closed == 0 {
			break
		}
		n.logger.Debug().Int("round", round+1).Int("closed", closed).Msg("Dismissed dialogs")
	}

	return nil
}

// Open clears dialogs and clicks entry
func (n *Navigator) Open(ctx context.Context, entry models.ElementSnapshot) error {
	if err := n.DismissDialogs(ctx); err != nil {
		return err
	}
	if err := n.surface.ClickElement(ctx, entry.Ref); err != nil {
		return fmt.Errorf("failed to click entry: %w", err)
	}
	return pause(ctx, n.timing.AfterClick)
}

// OpenByKeyboard focuses the list and walks to index with Home and ArrowDown, then presses Enter
func (n *Navigator) OpenByKeyboard(ctx context.Context, index int) error {
	if err := n.DismissDialogs(ctx); err != nil {
		return err
	}
	if err := n.surface.Click(ctx, n.sel.Container); err != nil {
		return fmt.Errorf("failed to focus list: %w", err)
	}

	keys := []string{models.KeyHome}
	for i := 0; i < index; i++ {
		keys = append(keys, models.KeyArrowDown)
	}
	keys = append(keys, models.KeyEnter)

	for _, key := range keys {
		if err := n.surface.PressKey(ctx, key); err != nil {
			return fmt.Errorf("failed to press %s: %w", key, err)
		}
		if err := pause(ctx, n.timing.KeyboardStep); err != nil {
			return err
		}
	}

	return pause(ctx, n.timing.AfterKeyboardOpen)
}

// AwaitDetail polls the current URL briefly until it contains the detail marker.
// The last observed URL is returned either way.
func (n *Navigator) AwaitDetail(ctx context.Context) (string, error) {
	if err := pause(ctx, n.timing.BeforeURLPoll); err != nil {
		return "", err
	}

	url, err := n.surface.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read current url: %w", err)
	}

	for attempt := 0; attempt < n.limits.URLPollAttempts && !n.IsDetailURL(url); attempt++ {
		if err := pause(ctx, n.timing.URLPollInterval); err != nil {
			return "", err
		}
		if url, err = n.surface.CurrentURL(ctx); err != nil {
			return "", fmt.Errorf("failed to read current url: %w", err)
		}
	}

	return url, nil
}
