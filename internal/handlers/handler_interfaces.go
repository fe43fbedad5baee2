package handlers

import "github.com/ternarybob/maplist/internal/models"

// JobSubmitter starts and cancels scrape jobs
type JobSubmitter interface {
	Submit(req models.ScrapeRequest) (string, error)
	Cancel(id string) error
}
