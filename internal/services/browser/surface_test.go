package browser

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/maplist/internal/common"
)

func TestNodeAttr(t *testing.T) {
	n := &cdp.Node{Attributes: []string{"class", "g88MCb", "aria-label", "Save Tartine to list"}}

	v, ok := nodeAttr(n, "aria-label")
	assert.True(t, ok)
	assert.Equal(t, "Save Tartine to list", v)

	v, ok = nodeAttr(n, "ARIA-LABEL")
	assert.True(t, ok, "attribute names are case-insensitive")
	assert.Equal(t, "Save Tartine to list", v)

	_, ok = nodeAttr(n, "href")
	assert.False(t, ok)

	_, ok = nodeAttr(nil, "class")
	assert.False(t, ok)
}

func TestTextsFromHTML(t *testing.T) {
	html := `<html><body>
		<div role="main"><h1> </h1><h1>
			Tartine Bakery
		</h1></div>
		<h1>Want to go</h1>
	</body></html>`

	texts, err := textsFromHTML(html, "h1")

	require.NoError(t, err)
	assert.Equal(t, []string{"Tartine Bakery", "Want to go"}, texts)
}

func TestSnapshotScriptQuotesSelectors(t *testing.T) {
	script := snapshotScript(`[role="main"]`, `a, [role="button"], [jsaction]`)

	assert.Contains(t, script, `document.querySelector("[role=\"main\"]")`)
	assert.Contains(t, script, `querySelectorAll("a, [role=\"button\"], [jsaction]")`)
	assert.Contains(t, script, refAttribute)
}

func TestLauncherAllocatorOptions(t *testing.T) {
	config := common.NewDefaultConfig().Browser

	plain := NewLauncher(config, nil)
	config.UserAgent = "maplist-test"
	withAgent := NewLauncher(config, nil)

	assert.Len(t, withAgent.allocatorOptions(), len(plain.allocatorOptions())+1)
	assert.Equal(t, defaultOperationTimeout, plain.timeout)
}
