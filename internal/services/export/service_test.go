package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/models"
)

func TestFileName(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC)

	assert.Equal(t, "places_2026-03-04T05-06-07-890Z.json", FileName(at))
}

func TestWriteProducesParseableArray(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, arbor.NewLogger())
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	records := []models.PlaceRecord{
		{Name: models.StringPtr("Tartine"), URL: "https://maps.example/maps/place/Tartine", PlaceID: models.StringPtr("0x1:0x2")},
		{URL: "https://maps.example/maps/place/Unknown"},
	}

	path, err := svc.Write(records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "places_2026-01-01T00-00-00-000Z.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Tartine", decoded[0]["name"])
	assert.Equal(t, "0x1:0x2", decoded[0]["placeId"])
	assert.Contains(t, decoded[1], "name", "absent fields serialize as null")
	assert.Nil(t, decoded[1]["name"])
	assert.Nil(t, decoded[1]["address"])
}

func TestWriteWithoutResults(t *testing.T) {
	svc := NewService(t.TempDir(), arbor.NewLogger())

	_, err := svc.Write(nil)

	assert.ErrorIs(t, err, ErrNoResults)
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Encode(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
