package browser

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/common"
)

// requireChrome skips tests that need a local Chrome or Chromium binary
func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary on PATH")
}

func testLauncher() *Launcher {
	config := common.NewDefaultConfig().Browser
	config.DefaultTimeout = "20s"
	return NewLauncher(config, arbor.NewLogger())
}

func TestLaunchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	surface, err := testLauncher().Launch(ctx)

	assert.Nil(t, surface)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLaunchLeavesBrowserUsable(t *testing.T) {
	requireChrome(t)

	ctx := context.Background()
	surface, err := testLauncher().Launch(ctx)
	require.NoError(t, err)
	defer surface.Close()

	// The startup check has returned; the browser must still accept work.
	page := "data:text/html,<div role=\"main\"><h1>Tartine Bakery</h1></div>"
	require.NoError(t, surface.Navigate(ctx, page))

	url, err := surface.CurrentURL(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:text/html"))

	// An expired bounded wait must not take the browser down with it.
	err = surface.WaitVisible(ctx, "#missing", 50*time.Millisecond)
	assert.Error(t, err)

	texts, err := surface.Texts(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tartine Bakery"}, texts)
}
