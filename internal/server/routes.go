package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Scrape jobs
	mux.HandleFunc("/api/scrape", s.app.ScrapeHandler.SubmitHandler)      // POST - start a job
	mux.HandleFunc("/api/status/", s.app.ScrapeHandler.StatusHandler)     // GET /{id}
	mux.HandleFunc("/api/download/", s.app.ScrapeHandler.DownloadHandler) // GET /{id}
	mux.HandleFunc("/api/cancel/", s.app.ScrapeHandler.CancelHandler)     // POST /{id}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
