package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/common"
	"github.com/ternarybob/maplist/internal/handlers"
	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/services/browser"
	"github.com/ternarybob/maplist/internal/services/export"
	"github.com/ternarybob/maplist/internal/services/jobs"
	"github.com/ternarybob/maplist/internal/services/listscraper"
	"github.com/ternarybob/maplist/internal/services/sessions"
	"github.com/ternarybob/maplist/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage (nil when badger is disabled)
	DB             *badger.BadgerDB
	SessionStorage interfaces.SessionStorage

	// Services
	Sessions   *sessions.Service
	Launcher   *browser.Launcher
	Controller *listscraper.Controller
	Exporter   *export.Service
	Runner     *jobs.Runner

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	ScrapeHandler *handlers.ScrapeHandler
}

// New initializes the application and starts background services
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Bool("persistence", app.SessionStorage != nil).
		Bool("export_on_complete", cfg.Export.OnComplete).
		Bool("headless", cfg.Browser.Headless).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens badger when session persistence is enabled
func (a *App) initDatabase() error {
	if !a.Config.Storage.Badger.Enabled {
		a.Logger.Debug().Msg("Session persistence disabled")
		return nil
	}

	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.SessionStorage = badger.NewSessionStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	ttl := common.ParseDurationOr(a.Config.Sessions.TTL, time.Hour)
	a.Sessions = sessions.NewService(a.SessionStorage, ttl, a.Logger)
	if err := a.Sessions.Start(a.Config.Sessions.SweepSchedule); err != nil {
		return err
	}

	a.Launcher = browser.NewLauncher(a.Config.Browser, a.Logger)
	a.Controller = listscraper.NewController(a.Launcher, ScraperOptions(a.Config), a.Logger)
	a.Exporter = export.NewService(a.Config.Export.Dir, a.Logger)

	var exporter jobs.Exporter
	if a.Config.Export.OnComplete {
		exporter = a.Exporter
	}
	a.Runner = jobs.NewRunner(a.Controller, a.Sessions, exporter, RunnerConfig(a.Config), a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ScrapeHandler = handlers.NewScrapeHandler(a.Runner, a.Sessions, a.Logger)
}

// ScraperOptions maps configuration onto the engine's options
func ScraperOptions(cfg *common.Config) listscraper.Options {
	opts := listscraper.DefaultOptions()
	opts.Timing.SidebarTimeout = common.ParseDurationOr(cfg.Scraper.SidebarTimeout, opts.Timing.SidebarTimeout)
	if cfg.Scraper.MaxConsecutiveFailures > 0 {
		opts.Limits.MaxConsecutiveFailures = cfg.Scraper.MaxConsecutiveFailures
	}
	if cfg.Scraper.MaxDuplicates > 0 {
		opts.Limits.MaxDuplicates = cfg.Scraper.MaxDuplicates
	}
	opts.KeyboardFallback = cfg.Scraper.KeyboardFallback
	return opts
}

// RunnerConfig maps configuration onto job admission settings
func RunnerConfig(cfg *common.Config) jobs.Config {
	return jobs.Config{
		DefaultMaxItems: cfg.Scraper.DefaultMaxItems,
		LaunchRate:      cfg.Browser.LaunchRate,
		LaunchBurst:     cfg.Browser.LaunchBurst,
	}
}

// Close cancels running jobs and releases storage
func (a *App) Close() error {
	if a.Runner != nil {
		a.Logger.Info().Int("running", a.Runner.Running()).Msg("Cancelling running jobs")
		a.Runner.Close()
	}

	if a.Sessions != nil {
		a.Sessions.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
