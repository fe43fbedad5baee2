package listscraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/models"
	"github.com/ternarybob/maplist/internal/services/browser/browsertest"
)

func TestDismissDialogsNothingVisible(t *testing.T) {
	surface := &browsertest.Surface{}
	navigator := NewNavigator(surface, fastOptions(), arbor.NewLogger())

	require.NoError(t, navigator.DismissDialogs(context.Background()))
	assert.Equal(t, []string{models.KeyEscape}, surface.Keys, "a round that closes nothing ends the loop")
}

func TestDismissDialogsRepeatsWhileClosing(t *testing.T) {
	sel := DefaultSelectors()
	surface := &browsertest.Surface{Visible: map[string]int{
		sel.CancelButton.Query:  1,
		sel.DismissButton.Query: 1,
	}}
	navigator := NewNavigator(surface, fastOptions(), arbor.NewLogger())

	require.NoError(t, navigator.DismissDialogs(context.Background()))
	assert.Equal(t, []string{models.KeyEscape, models.KeyEscape}, surface.Keys)
	assert.Zero(t, surface.Visible[sel.CancelButton.Query])
	assert.Zero(t, surface.Visible[sel.DismissButton.Query])
}

func TestDismissDialogsBoundedRounds(t *testing.T) {
	sel := DefaultSelectors()
	surface := &browsertest.Surface{Visible: map[string]int{sel.CloseButton.Query: 10}}
	navigator := NewNavigator(surface, fastOptions(), arbor.NewLogger())

	require.NoError(t, navigator.DismissDialogs(context.Background()))
	assert.Len(t, surface.Keys, 3)
	assert.Equal(t, 7, surface.Visible[sel.CloseButton.Query])
}

func TestAwaitDetail(t *testing.T) {
	places := browsertest.Places(1)
	surface := &browsertest.Surface{Places: places}
	navigator := NewNavigator(surface, fastOptions(), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, surface.Navigate(ctx, testListURL))
	require.NoError(t, navigator.Open(ctx, models.ElementSnapshot{Ref: 0}))

	url, err := navigator.AwaitDetail(ctx)
	require.NoError(t, err)
	assert.Equal(t, places[0].URL, url)
	assert.True(t, navigator.IsDetailURL(url))
}

func TestAwaitDetailReturnsLastURL(t *testing.T) {
	surface := &browsertest.Surface{}
	navigator := NewNavigator(surface, fastOptions(), arbor.NewLogger())
	ctx := context.Background()
	require.NoError(t, surface.Navigate(ctx, testListURL))

	url, err := navigator.AwaitDetail(ctx)

	require.NoError(t, err)
	assert.Equal(t, testListURL, url)
	assert.False(t, navigator.IsDetailURL(url))
}

func TestOpenByKeyboard(t *testing.T) {
	places := browsertest.Places(3)
	surface := &browsertest.Surface{Places: places}
	navigator := NewNavigator(surface, fastOptions(), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, navigator.OpenByKeyboard(ctx, 2))

	url, err := surface.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, places[2].URL, url)
	assert.Equal(t, []string{models.KeyEscape, models.KeyHome, models.KeyArrowDown, models.KeyArrowDown, models.KeyEnter}, surface.Keys)
}
