package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/maplist/internal/models"
)

// AutomationSurface is the browser capability set consumed by the list scraper.
// Implementations bound every call by their default operation timeout.
type AutomationSurface interface {
	// Navigate loads url and waits for the document to load
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's current location
	CurrentURL(ctx context.Context) (string, error)

	// WaitVisible blocks until selector matches a visible element or timeout elapses
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// SnapshotElements samples every element matching candidates under container.
	// Refs from a previous snapshot are invalidated.
	SnapshotElements(ctx context.Context, container, candidates string) ([]models.ElementSnapshot, error)

	// ClickElement clicks the element addressed by a snapshot ref
	ClickElement(ctx context.Context, ref int) error

	// Click clicks the first element matching selector
	Click(ctx context.Context, selector string) error

	// ClickIfVisible clicks sel only if it becomes visible within timeout.
	// Returns false without error when nothing visible matched.
	ClickIfVisible(ctx context.Context, sel models.Selector, timeout time.Duration) (bool, error)

	// PressKey dispatches a single key press (see models.Key* names)
	PressKey(ctx context.Context, key string) error

	// ScrollBy scrolls feed (or container when feed is absent) by delta pixels
	ScrollBy(ctx context.Context, container, feed string, delta int) error

	// ScrollToBottom scrolls feed (or container when feed is absent) to its end
	ScrollToBottom(ctx context.Context, container, feed string) error

	// Texts returns the text content of every element matching selector
	Texts(ctx context.Context, selector string) ([]string, error)

	// AttributeIfVisible reads attribute name of the first match of selector
	// if it becomes visible within timeout
	AttributeIfVisible(ctx context.Context, selector, name string, timeout time.Duration) (string, bool, error)

	// TextIfVisible reads the text of textSelector once visibleSelector becomes
	// visible within timeout
	TextIfVisible(ctx context.Context, visibleSelector, textSelector string, timeout time.Duration) (string, bool, error)

	// Close releases the browser. Safe to call more than once.
	Close() error
}

// SurfaceLauncher starts one isolated browser per job
type SurfaceLauncher interface {
	Launch(ctx context.Context) (AutomationSurface, error)
}
