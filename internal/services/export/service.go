package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/models"
)

// ErrNoResults is returned when there is nothing to export
var ErrNoResults = errors.New("no results to export")

const timestampLayout = "2006-01-02T15-04-05"

// Service writes result documents to a directory
type Service struct {
	dir    string
	now    func() time.Time
	logger arbor.ILogger
}

// NewService creates an export service writing into dir
func NewService(dir string, logger arbor.ILogger) *Service {
	return &Service{
		dir:    dir,
		now:    time.Now,
		logger: logger,
	}
}

// Encode writes records as an indented JSON array
func Encode(w io.Writer, records []models.PlaceRecord) error {
	if records == nil {
		records = []models.PlaceRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// FileName returns the export file name for a moment in time, an ISO-8601
// timestamp with ':' and '.' replaced by '-'
func FileName(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("places_%s-%03dZ.json", at.Format(timestampLayout), at.Nanosecond()/int(time.Millisecond))
}

// Write stores records in a new timestamped file and returns its path
func (s *Service) Write(records []models.PlaceRecord) (string, error) {
	if len(records) == 0 {
		return "", ErrNoResults
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName(s.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Encode(f, records); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	s.logger.Info().Str("path", path).Int("records", len(records)).Msg("Results exported")
	return path, nil
}
