package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/common"
	"github.com/ternarybob/maplist/internal/interfaces"
)

const defaultOperationTimeout = 30 * time.Second

// Launcher starts one headless Chrome per job. Each browser gets its own exec
// allocator so jobs never share cookies, tabs or navigation state.
type Launcher struct {
	config  common.BrowserConfig
	timeout time.Duration
	logger  arbor.ILogger
}

var _ interfaces.SurfaceLauncher = (*Launcher)(nil)

// NewLauncher creates a launcher from browser configuration
func NewLauncher(config common.BrowserConfig, logger arbor.ILogger) *Launcher {
	return &Launcher{
		config:  config,
		timeout: common.ParseDurationOr(config.DefaultTimeout, defaultOperationTimeout),
		logger:  logger,
	}
}

func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("disable-gpu", l.config.DisableGPU),
		chromedp.Flag("no-sandbox", l.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", false),
		chromedp.Flag("disable-renderer-backgrounding", false),
		chromedp.WindowSize(1280, 900),
	)
	if l.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.config.UserAgent))
	}
	return opts
}

// Launch starts a browser and verifies it responds before handing it out
func (l *Launcher) Launch(ctx context.Context) (interfaces.AutomationSurface, error) {
	startTime := time.Now()

	// The browser outlives any single operation context; Close tears it down.
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	surface := &Surface{
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		timeout:         l.timeout,
		logger:          l.logger,
	}

	// The first Run allocates the browser process and ties it to its context.
	stopAlloc := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stopAlloc()
	if err != nil {
		surface.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if err := surface.run(ctx, l.timeout, chromedp.Navigate("about:blank")); err != nil {
		surface.Close()
		return nil, fmt.Errorf("browser startup check failed: %w", err)
	}

	l.logger.Debug().
		Bool("headless", l.config.Headless).
		Dur("startup", time.Since(startTime)).
		Msg("Browser launched")

	return surface, nil
}
