// Package fields describes the user-drawn parcels whose health is tracked.
package fields

import (
	"time"

	"github.com/javierballesterjack/crop-health-engine/internal/geo"
)

// Field is one parcel of an owner. ScenePath is the Sentinel-2 tile prefix
// that covers it, e.g. "tiles/30/T/TK/".
type Field struct {
	Owner     string
	FieldID   string
	Name      string
	CropType  string
	Polygon   geo.Polygon
	CreatedAt time.Time
	ScenePath string
}

// GroupByScene splits fields by tile so each group shares one zone.
func GroupByScene(fields []Field) map[string][]Field {
	groups := make(map[string][]Field)
	for _, f := range fields {
		groups[f.ScenePath] = append(groups[f.ScenePath], f)
	}
	return groups
}

// OldestCreatedAt returns the earliest known creation time, or the zero time
// when no field has one.
func OldestCreatedAt(fields []Field) time.Time {
	var oldest time.Time
	for _, f := range fields {
		if f.CreatedAt.IsZero() {
			continue
		}
		if oldest.IsZero() || f.CreatedAt.Before(oldest) {
			oldest = f.CreatedAt
		}
	}
	return oldest
}

// StartDate is the first date to scan: the oldest creation day minus
// lookback, truncated to midnight UTC.
func StartDate(fields []Field, lookback time.Duration) time.Time {
	oldest := OldestCreatedAt(fields).UTC()
	day := time.Date(oldest.Year(), oldest.Month(), oldest.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(-lookback)
}
