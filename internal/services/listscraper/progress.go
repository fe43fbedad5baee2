package listscraper

import "github.com/ternarybob/maplist/internal/models"

func runningSnapshot(current, total int, message string) models.ProgressSnapshot {
	return models.ProgressSnapshot{
		Current: current,
		Total:   total,
		Message: message,
		Status:  models.SessionStatusRunning,
	}
}

func completedSnapshot(results []models.PlaceRecord, total int) models.ProgressSnapshot {
	return models.ProgressSnapshot{
		Current: len(results),
		Total:   total,
		Message: "Scraping completed",
		Status:  models.SessionStatusCompleted,
		Results: copyRecords(results),
	}
}

func errorSnapshot(results []models.PlaceRecord, total int, err error) models.ProgressSnapshot {
	return models.ProgressSnapshot{
		Current: len(results),
		Total:   total,
		Message: "Error occurred",
		Status:  models.SessionStatusError,
		Results: copyRecords(results),
		Error:   err.Error(),
	}
}

// copyRecords never returns nil: a terminal snapshot always records its results
func copyRecords(results []models.PlaceRecord) []models.PlaceRecord {
	return append(make([]models.PlaceRecord, 0, len(results)), results...)
}

// Drain hands every snapshot on events to fn, in order, until the channel is
// closed. It returns the last snapshot seen.
func Drain(events <-chan models.ProgressSnapshot, fn func(models.ProgressSnapshot)) models.ProgressSnapshot {
	var last models.ProgressSnapshot
	for snapshot := range events {
		if fn != nil {
			fn(snapshot)
		}
		last = snapshot
	}
	return last
}
