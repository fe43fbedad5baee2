package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/ternarybob/maplist/internal/app"
	"github.com/ternarybob/maplist/internal/models"
	"github.com/ternarybob/maplist/internal/services/browser"
	"github.com/ternarybob/maplist/internal/services/export"
	"github.com/ternarybob/maplist/internal/services/listscraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <list-url>",
	Short: "Scrape one list in the foreground and write the results document",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrape,
}

var scrapeMaxItems int

func init() {
	scrapeCmd.Flags().IntVarP(&scrapeMaxItems, "max-items", "n", 0, "Maximum number of places to collect (defaults to scraper.default_max_items)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	req := models.ScrapeRequest{ListURL: args[0], MaxItems: scrapeMaxItems}
	req.Normalize(config.Scraper.DefaultMaxItems)
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %s", models.ValidationMessage(err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := listscraper.NewController(
		browser.NewLauncher(config.Browser, logger),
		app.ScraperOptions(config),
		logger,
	)

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Suffix = " Starting scraper..."
	s.Start()

	events := make(chan models.ProgressSnapshot, 16)
	done := make(chan models.ProgressSnapshot, 1)
	go func() {
		done <- listscraper.Drain(events, func(snap models.ProgressSnapshot) {
			s.Lock()
			s.Suffix = fmt.Sprintf(" [%d/%d] %s", snap.Current, snap.Total, snap.Message)
			s.Unlock()
		})
	}()

	results, runErr := controller.Run(ctx, req, events)
	last := <-done
	s.Stop()

	fmt.Printf("%s: %d places collected\n", last.Message, len(results))

	if len(results) > 0 {
		path, err := export.NewService(config.Export.Dir, logger).Write(results)
		if err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", path)
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	if runErr != nil {
		logger.Warn().Err(runErr).Msg("Scrape interrupted")
	}
	return nil
}
