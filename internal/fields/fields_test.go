package fields_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javierballesterjack/crop-health-engine/internal/fields"
	"github.com/javierballesterjack/crop-health-engine/internal/geo"
)

const collection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"field_id": "north", "field_name": "North plot", "crop_type": "wheat", "created_at": "2024-05-10T08:00:00Z", "scene_path": "tiles/30/T/VK/"},
      "geometry": {"type": "Polygon", "coordinates": [[[-3.705, 40.410], [-3.690, 40.411], [-3.688, 40.422], [-3.703, 40.420], [-3.705, 40.410]]]}
    },
    {
      "type": "Feature",
      "properties": {"plot_id": "7", "crop_type": "olive", "created_at": "2024-03-01", "sentinel2_query": "tiles/30/S/UG/"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[-5.99, 37.38], [-5.97, 37.38], [-5.98, 37.40]]]]}
    },
    {
      "type": "Feature",
      "properties": {"field_id": 12, "crop_type": "barley", "scene_path": "tiles/30/T/VK/"},
      "geometry": {"type": "Polygon", "coordinates": [[[-3.70, 40.40], [-3.69, 40.40], [-3.69, 40.41]]]}
    }
  ]
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fields.geojson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGeoJSON(t *testing.T) {
	got, err := fields.LoadGeoJSON(writeFile(t, collection), "alice")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "north", got[0].FieldID)
	assert.Equal(t, "North plot", got[0].Name)
	assert.Equal(t, "wheat", got[0].CropType)
	assert.Equal(t, "alice", got[0].Owner)
	assert.Equal(t, "tiles/30/T/VK/", got[0].ScenePath)
	assert.Equal(t, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC), got[0].CreatedAt)

	assert.Equal(t, "7", got[1].FieldID)
	assert.Equal(t, "7", got[1].Name)
	assert.Equal(t, "tiles/30/S/UG/", got[1].ScenePath)
	assert.True(t, got[1].Polygon.Rings()[0].Closed())

	assert.Equal(t, "12", got[2].FieldID)
	assert.True(t, got[2].CreatedAt.IsZero())
}

func TestLoadGeoJSONSkipsBadFeatures(t *testing.T) {
	bad := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"field_id": "x"}, "geometry": {"type": "Point", "coordinates": [1, 2]}},
	  {"type": "Feature", "properties": {"field_id": "y"}, "geometry": {"type": "Polygon", "coordinates": [[[40.4, -93.7], [40.5, -93.7], [40.5, -93.6]]]}},
	  {"type": "Feature", "properties": {"field_id": "good"}, "geometry": {"type": "Polygon", "coordinates": [[[-3.70, 40.40], [-3.69, 40.40], [-3.69, 40.41]]]}}
	]}`
	got, err := fields.LoadGeoJSON(writeFile(t, bad), "alice")
	assert.ErrorIs(t, err, geo.ErrInvalidPolygon)
	assert.Contains(t, err.Error(), "feature 0")
	assert.Contains(t, err.Error(), "feature 1")
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].FieldID)

	_, err = fields.LoadGeoJSON(filepath.Join(t.TempDir(), "missing.geojson"), "alice")
	assert.Error(t, err)
}

func TestLoadGeoJSONPropertyTypes(t *testing.T) {
	mixed := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"field_id": 3.5, "crop_type": 41, "field_name": null}, "geometry": {"type": "Polygon", "coordinates": [[[-3.70, 40.40], [-3.69, 40.40], [-3.69, 40.41]]]}},
	  {"type": "Feature", "properties": {"field_id": "odd", "crop_type": {"code": 41}}, "geometry": {"type": "Polygon", "coordinates": [[[-3.70, 40.40], [-3.69, 40.40], [-3.69, 40.41]]]}},
	  {"type": "Feature", "properties": {"field_id": "flag", "scene_path": true}, "geometry": {"type": "Polygon", "coordinates": [[[-3.70, 40.40], [-3.69, 40.40], [-3.69, 40.41]]]}}
	]}`
	got, err := fields.LoadGeoJSON(writeFile(t, mixed), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "property crop_type has unsupported type")
	assert.Contains(t, err.Error(), "property scene_path has unsupported type")

	require.Len(t, got, 1)
	assert.Equal(t, "3.5", got[0].FieldID)
	assert.Equal(t, "41", got[0].CropType)
	assert.Equal(t, "3.5", got[0].Name)
}

func TestParsePolygon(t *testing.T) {
	p, err := fields.ParsePolygon([]byte(`{"type":"Polygon","coordinates":[[[-3.70,40.40],[-3.69,40.40],[-3.69,40.41],[-3.70,40.40]]]}`))
	require.NoError(t, err)
	assert.Len(t, p.Rings()[0], 4)

	_, err = fields.ParsePolygon([]byte(`{"type":"MultiPolygon","coordinates":[]}`))
	assert.ErrorIs(t, err, geo.ErrInvalidPolygon)

	_, err = fields.ParsePolygon([]byte(`not json`))
	assert.Error(t, err)
}

func TestGroupingAndStartDate(t *testing.T) {
	list, err := fields.LoadGeoJSON(writeFile(t, collection), "alice")
	require.NoError(t, err)

	groups := fields.GroupByScene(list)
	assert.Len(t, groups, 2)
	assert.Len(t, groups["tiles/30/T/VK/"], 2)
	assert.Len(t, groups["tiles/30/S/UG/"], 1)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), fields.OldestCreatedAt(list[:2]))
	assert.Equal(t, time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC), fields.StartDate(list[:2], 230*24*time.Hour))
	assert.Equal(t, fields.OldestCreatedAt(list[:2]), fields.OldestCreatedAt(list))
	assert.True(t, fields.OldestCreatedAt(nil).IsZero())
}
