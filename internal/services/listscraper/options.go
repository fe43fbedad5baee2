package listscraper

import (
	"context"
	"time"

	"github.com/ternarybob/maplist/internal/models"
)

// Selectors address the parts of the host page the scraper touches
type Selectors struct {
	Container     string // list/sidebar container
	Feed          string // scrollable feed inside the container
	Candidates    string // elements considered for classification
	DetailMarker  string // substring of every detail-page URL
	Placeholder   string // list-level heading returned in place of a name
	Heading       string
	SaveControl   string
	AddressButton string
	AddressText   string
	CancelButton  models.Selector
	CloseButton   models.Selector
	DismissButton models.Selector
}

// DefaultSelectors returns the selectors for the current host UI
func DefaultSelectors() Selectors {
	return Selectors{
		Container:     `[role="main"]`,
		Feed:          `[role="feed"]`,
		Candidates:    `a, [role="button"], [jsaction]`,
		DetailMarker:  "/place/",
		Placeholder:   "Want to go",
		Heading:       "h1",
		SaveControl:   `[aria-label*="Save"][aria-label*="to"]`,
		AddressButton: `button[data-item-id="address"]`,
		AddressText:   `button[data-item-id="address"] div[class*="fontBodyMedium"]`,
		CancelButton:  models.CSS(`button[aria-label="Cancel"]`),
		CloseButton:   models.CSS(`button[aria-label="Close"]`),
		DismissButton: models.XPath(`(//button[contains(., "No thanks") or contains(., "Dismiss") or contains(., "Not now")])[1]`),
	}
}

// Timing holds every fixed pause and bounded wait used during a run
type Timing struct {
	SidebarTimeout     time.Duration
	AfterSidebar       time.Duration
	BetweenDismissals  time.Duration
	DialogSettle       time.Duration
	DialogVisible      time.Duration
	DialogAfterClick   time.Duration
	AfterClick         time.Duration
	BeforeURLPoll      time.Duration
	URLPollInterval    time.Duration
	AfterScroll        time.Duration
	CountWarmup        time.Duration
	AfterCountScroll   time.Duration
	BeforeExtract      time.Duration
	SaveControlVisible time.Duration
	AddressVisible     time.Duration
	BetweenItems       time.Duration
	KeyboardStep       time.Duration
	AfterKeyboardOpen  time.Duration
}

// DefaultTiming returns pauses tuned against the live host UI
func DefaultTiming() Timing {
	return Timing{
		SidebarTimeout:     15 * time.Second,
		AfterSidebar:       1000 * time.Millisecond,
		BetweenDismissals:  200 * time.Millisecond,
		DialogSettle:       250 * time.Millisecond,
		DialogVisible:      500 * time.Millisecond,
		DialogAfterClick:   100 * time.Millisecond,
		AfterClick:         400 * time.Millisecond,
		BeforeURLPoll:      100 * time.Millisecond,
		URLPollInterval:    150 * time.Millisecond,
		AfterScroll:        200 * time.Millisecond,
		CountWarmup:        1500 * time.Millisecond,
		AfterCountScroll:   800 * time.Millisecond,
		BeforeExtract:      300 * time.Millisecond,
		SaveControlVisible: 400 * time.Millisecond,
		AddressVisible:     800 * time.Millisecond,
		BetweenItems:       150 * time.Millisecond,
		KeyboardStep:       100 * time.Millisecond,
		AfterKeyboardOpen:  500 * time.Millisecond,
	}
}

// Limits bounds every retry loop and the run's circuit breakers
type Limits struct {
	MaxConsecutiveFailures int
	MaxDuplicates          int
	CountAttempts          int
	StableSamples          int
	URLPollAttempts        int
	DialogRounds           int
	ScrollStep             int // pixels per incremental scroll
	ScrollEvery            int // incremental scroll before every Nth index
}

// DefaultLimits returns the standard stop thresholds
func DefaultLimits() Limits {
	return Limits{
		MaxConsecutiveFailures: 3,
		MaxDuplicates:          5,
		CountAttempts:          30,
		StableSamples:          3,
		URLPollAttempts:        4,
		DialogRounds:           3,
		ScrollStep:             300,
		ScrollEvery:            3,
	}
}

// Options configures a Controller
type Options struct {
	Selectors        Selectors
	Timing           Timing
	Limits           Limits
	KeyboardFallback bool
}

// DefaultOptions returns the production configuration
func DefaultOptions() Options {
	return Options{
		Selectors: DefaultSelectors(),
		Timing:    DefaultTiming(),
		Limits:    DefaultLimits(),
	}
}

// pause waits for d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
