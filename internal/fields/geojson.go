package fields

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/javierballesterjack/crop-health-engine/internal/geo"
)

// ParsePolygon reads a GeoJSON Polygon, or a MultiPolygon holding exactly one
// polygon, with (longitude, latitude) positions.
func ParsePolygon(data []byte) (geo.Polygon, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return geo.Polygon{}, fmt.Errorf("failed to unmarshal geometry: %w", err)
	}
	return polygonFromGeometry(g.Geometry())
}

func polygonFromGeometry(g orb.Geometry) (geo.Polygon, error) {
	switch shape := g.(type) {
	case orb.Polygon:
		return geo.NewPolygon(shape)
	case orb.MultiPolygon:
		if len(shape) != 1 {
			return geo.Polygon{}, fmt.Errorf("%w: multipolygon with %d parts", geo.ErrInvalidPolygon, len(shape))
		}
		return geo.NewPolygon(shape[0])
	case nil:
		return geo.Polygon{}, fmt.Errorf("%w: missing geometry", geo.ErrInvalidPolygon)
	default:
		return geo.Polygon{}, fmt.Errorf("%w: unsupported geometry %s", geo.ErrInvalidPolygon, g.GeoJSONType())
	}
}

// LoadGeoJSON reads the fields of owner from a FeatureCollection. Features
// carry field_id (or plot_id), field_name, crop_type, created_at and
// scene_path properties. A feature that cannot be read is skipped; the
// fields that could be read are returned with the joined feature errors.
func LoadGeoJSON(path, owner string) ([]Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := make([]Field, 0, len(fc.Features))
	var errs []error
	for i, feat := range fc.Features {
		f, err := featureField(feat, owner)
		if err != nil {
			errs = append(errs, fmt.Errorf("feature %d of %s: %w", i, path, err))
			continue
		}
		out = append(out, f)
	}
	return out, errors.Join(errs...)
}

func featureField(feat *geojson.Feature, owner string) (Field, error) {
	var (
		props  = feat.Properties
		values = make(map[string]string)
		errs   []error
	)
	for _, key := range []string{"field_id", "plot_id", "field_name", "crop_type", "created_at", "scene_path", "sentinel2_query"} {
		v, err := stringProperty(props, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[key] = v
	}
	if err := errors.Join(errs...); err != nil {
		return Field{}, err
	}

	id := firstNonEmpty(values["field_id"], values["plot_id"])
	if id == "" {
		return Field{}, errors.New("no field_id")
	}

	poly, err := polygonFromGeometry(feat.Geometry)
	if err != nil {
		return Field{}, fmt.Errorf("field %s: %w", id, err)
	}

	var createdAt time.Time
	if raw := values["created_at"]; raw != "" {
		createdAt, err = parseTime(raw)
		if err != nil {
			return Field{}, fmt.Errorf("field %s: %w", id, err)
		}
	}

	return Field{
		Owner:     owner,
		FieldID:   id,
		Name:      firstNonEmpty(values["field_name"], id),
		CropType:  values["crop_type"],
		Polygon:   poly,
		CreatedAt: createdAt,
		ScenePath: firstNonEmpty(values["scene_path"], values["sentinel2_query"]),
	}, nil
}

// stringProperty reads a string or numeric property. Missing and null
// properties are empty.
func stringProperty(props geojson.Properties, key string) (string, error) {
	switch v := props[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("property %s has unsupported type %T", key, v)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}
