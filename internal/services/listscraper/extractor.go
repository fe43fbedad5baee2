package listscraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

// ErrPageNotInitialized is returned when the detail page cannot be read at all
var ErrPageNotInitialized = errors.New("page not initialized")

var (
	placeIDPattern   = regexp.MustCompile(`!1s(0x[0-9a-f]+:0x[0-9a-f]+)`)
	placeNamePattern = regexp.MustCompile(`/place/([^/@]+)`)
	saveLabelPattern = regexp.MustCompile(`Save (.+?) to`)
)

// ParsePlaceID returns the opaque place token embedded in a detail URL
func ParsePlaceID(detailURL string) string {
	if m := placeIDPattern.FindStringSubmatch(detailURL); m != nil {
		return m[1]
	}
	return ""
}

// ParsePlaceName returns the de-slugified name segment of a detail URL
func ParsePlaceName(detailURL string) string {
	m := placeNamePattern.FindStringSubmatch(detailURL)
	if m == nil {
		return ""
	}
	name, err := url.PathUnescape(strings.ReplaceAll(m[1], "+", " "))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}

// ParseSaveLabel returns the place name carried by a "Save <name> to ..." label
func ParseSaveLabel(label string) string {
	if m := saveLabelPattern.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Extractor reads a PlaceRecord from the currently open detail page
type Extractor struct {
	surface interfaces.AutomationSurface
	sel     Selectors
	timing  Timing
	logger  arbor.ILogger
}

// NewExtractor creates an extractor over surface
func NewExtractor(surface interfaces.AutomationSurface, opts Options, logger arbor.ILogger) *Extractor {
	return &Extractor{
		surface: surface,
		sel:     opts.Selectors,
		timing:  opts.Timing,
		logger:  logger,
	}
}

// Extract builds a record for the open detail page. Missing fields are left nil.
func (e *Extractor) Extract(ctx context.Context) (models.PlaceRecord, error) {
	if err := pause(ctx, e.timing.BeforeExtract); err != nil {
		return models.PlaceRecord{}, err
	}

	detailURL, err := e.surface.CurrentURL(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return models.PlaceRecord{}, ctx.Err()
		}
		return models.PlaceRecord{}, fmt.Errorf("%w: %v", ErrPageNotInitialized, err)
	}

	record := models.PlaceRecord{
		URL:     detailURL,
		PlaceID: models.StringPtr(ParsePlaceID(detailURL)),
	}

	name := ParsePlaceName(detailURL)
	if !e.usableName(name) {
		if heading, err := e.nameFromHeadings(ctx); err != nil {
			return models.PlaceRecord{}, err
		} else if heading != "" {
			name = heading
		}
	}
	if !e.usableName(name) {
		if label, err := e.nameFromSaveControl(ctx); err != nil {
			return models.PlaceRecord{}, err
		} else if label != "" {
			name = label
		}
	}
	record.Name = models.StringPtr(name)

	address, err := e.address(ctx)
	if err != nil {
		return models.PlaceRecord{}, err
	}
	record.Address = models.StringPtr(address)

	return record, nil
}

func (e *Extractor) usableName(name string) bool {
	return name != "" && name != e.sel.Placeholder
}

func (e *Extractor) nameFromHeadings(ctx context.Context) (string, error) {
	headings, err := e.surface.Texts(ctx, e.sel.Heading)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Debug().Err(err).Msg("Heading lookup failed")
		return "", nil
	}
	for _, h := range headings {
		if text := strings.TrimSpace(h); e.usableName(text) {
			return text, nil
		}
	}
	return "", nil
}

func (e *Extractor) nameFromSaveControl(ctx context.Context) (string, error) {
	label, ok, err := e.surface.AttributeIfVisible(ctx, e.sel.SaveControl, "aria-label", e.timing.SaveControlVisible)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Debug().Err(err).Msg("Save control lookup failed")
		return "", nil
	}
	if !ok {
		return "", nil
	}
	return ParseSaveLabel(label), nil
}

func (e *Extractor) address(ctx context.Context) (string, error) {
	text, ok, err := e.surface.TextIfVisible(ctx, e.sel.AddressButton, e.sel.AddressText, e.timing.AddressVisible)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Debug().Err(err).Msg("Address lookup failed")
		return "", nil
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(text), nil
}
