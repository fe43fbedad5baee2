// Package browsertest provides a scripted AutomationSurface for exercising the
// list scraper without a browser.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

// NoiseRef is the snapshot ref of the chrome element every snapshot starts with
const NoiseRef = 10000

// Place is one scripted list entry and the detail page it opens
type Place struct {
	Text         string // entry text shown in the list
	URL          string // detail URL the entry navigates to; empty leaves the page unchanged
	Heading      string
	SaveLabel    string
	Address      string
	ClickErr     error
	ClickIgnored bool // click does nothing; only keyboard Enter opens it
}

// Surface is an in-memory AutomationSurface driven by a list of Places
type Surface struct {
	mu sync.Mutex

	Places []Place

	// Counts, when set, is the number of rendered entries after each
	// ScrollToBottom call; the last value repeats.
	Counts []int

	// Visible maps a selector query to how many times it can still be clicked by ClickIfVisible
	Visible map[string]int

	NavigateErr   error
	WaitErr       error
	URLErr        error
	SnapshotErr   error
	URLErrAfter   int // CurrentURL fails once this many calls have succeeded; 0 disables
	current       string
	opened        int // index+1 of the open place, 0 when none
	cursor        int
	bottomScrolls int
	urlCalls      int

	Clicks []int
	Keys   []string
	Scroll []int
	Closed int
}

var _ interfaces.AutomationSurface = (*Surface)(nil)

func (s *Surface) rendered() int {
	if len(s.Counts) == 0 {
		return len(s.Places)
	}
	i := s.bottomScrolls
	if i >= len(s.Counts) {
		i = len(s.Counts) - 1
	}
	n := s.Counts[i]
	if n > len(s.Places) {
		n = len(s.Places)
	}
	return n
}

func (s *Surface) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.current = url
	s.opened = 0
	return ctx.Err()
}

func (s *Surface) CurrentURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.URLErr != nil {
		return "", s.URLErr
	}
	s.urlCalls++
	if s.URLErrAfter > 0 && s.urlCalls > s.URLErrAfter {
		return "", errors.New("target closed")
	}
	return s.current, nil
}

func (s *Surface) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if s.WaitErr != nil {
		return s.WaitErr
	}
	return ctx.Err()
}

func (s *Surface) SnapshotElements(ctx context.Context, container, candidates string) ([]models.ElementSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.SnapshotErr != nil {
		return nil, s.SnapshotErr
	}

	out := []models.ElementSnapshot{{Ref: NoiseRef, Text: "Overview", Width: 80, Height: 20, InContainer: true}}
	for i := 0; i < s.rendered(); i++ {
		out = append(out, models.ElementSnapshot{
			Ref:         i,
			Text:        s.Places[i].Text,
			Width:       300,
			Height:      72,
			InContainer: true,
		})
	}
	return out, nil
}

func (s *Surface) ClickElement(ctx context.Context, ref int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Clicks = append(s.Clicks, ref)
	if ref < 0 || ref >= len(s.Places) {
		return nil
	}
	p := s.Places[ref]
	if p.ClickErr != nil {
		return p.ClickErr
	}
	if !p.ClickIgnored {
		s.openPlace(ref)
	}
	return nil
}

func (s *Surface) openPlace(i int) {
	if s.Places[i].URL == "" {
		return
	}
	s.current = s.Places[i].URL
	s.opened = i + 1
}

func (s *Surface) openedPlace() (Place, bool) {
	if s.opened == 0 {
		return Place{}, false
	}
	return s.Places[s.opened-1], true
}

func (s *Surface) Click(ctx context.Context, selector string) error {
	return ctx.Err()
}

func (s *Surface) ClickIfVisible(ctx context.Context, sel models.Selector, timeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.Visible[sel.Query] > 0 {
		s.Visible[sel.Query]--
		return true, nil
	}
	return false, nil
}

func (s *Surface) PressKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Keys = append(s.Keys, key)
	switch key {
	case models.KeyHome:
		s.cursor = 0
	case models.KeyArrowDown:
		s.cursor++
	case models.KeyEnter:
		if s.cursor < len(s.Places) {
			s.openPlace(s.cursor)
		}
	}
	return nil
}

func (s *Surface) ScrollBy(ctx context.Context, container, feed string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scroll = append(s.Scroll, delta)
	return ctx.Err()
}

func (s *Surface) ScrollToBottom(ctx context.Context, container, feed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bottomScrolls++
	return ctx.Err()
}

func (s *Surface) Texts(ctx context.Context, selector string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.openedPlace()
	if !ok || p.Heading == "" {
		return nil, ctx.Err()
	}
	return []string{p.Heading}, ctx.Err()
}

func (s *Surface) AttributeIfVisible(ctx context.Context, selector, name string, timeout time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.openedPlace()
	if !ok || p.SaveLabel == "" {
		return "", false, ctx.Err()
	}
	return p.SaveLabel, true, ctx.Err()
}

func (s *Surface) TextIfVisible(ctx context.Context, visibleSelector, textSelector string, timeout time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.openedPlace()
	if !ok || p.Address == "" {
		return "", false, ctx.Err()
	}
	return p.Address, true, ctx.Err()
}

func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed++
	return nil
}

// Launcher hands out a single scripted Surface
type Launcher struct {
	Surface  *Surface
	Err      error
	Launches int
}

var _ interfaces.SurfaceLauncher = (*Launcher)(nil)

func (l *Launcher) Launch(ctx context.Context) (interfaces.AutomationSurface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Err != nil {
		return nil, l.Err
	}
	l.Launches++
	if l.Surface.Visible == nil {
		l.Surface.Visible = map[string]int{}
	}
	return l.Surface, nil
}

// Places builds n distinct places under a list
func Places(n int) []Place {
	names := []string{"Joe's Pizza", "Blue Bottle Coffee", "Golden Gate Park", "Tartine Bakery", "Ferry Building", "Mission Dolores", "Coit Tower", "Lands End"}
	out := make([]Place, 0, n)
	for i := 0; i < n; i++ {
		name := names[i%len(names)]
		if i >= len(names) {
			name = fmt.Sprintf("%s %d", name, i/len(names)+1)
		}
		out = append(out, Place{
			Text:    name + " 4.5 (120)",
			URL:     "https://maps.example/maps/place/" + slug(name) + fmt.Sprintf("/@37.7,-122.4,17z/data=!4m2!3m1!1s0x8085:0x%x", i+1),
			Address: "1 Market St, San Francisco",
		})
	}
	return out
}

func slug(name string) string {
	return strings.ReplaceAll(name, " ", "+")
}
