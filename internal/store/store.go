// Package store persists crop health rows.
package store

import (
	"fmt"
	"time"
)

// HealthRow is one aggregated result of a field for a date. Area is the
// number of pixels that were averaged.
type HealthRow struct {
	Date     time.Time
	Owner    string
	FieldID  string
	NDWI     float64
	NDVI     float64
	SAVI     float64
	EVI      float64
	Area     int
	CropType string
	Cloud    string
}

// PersistenceError reports a row or query the store could not handle.
type PersistenceError struct {
	Op        string
	Owner     string
	FieldID   string
	Date      time.Time
	Duplicate bool
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("%s owner=%s field=%s: %v", e.Op, e.Owner, e.FieldID, e.Err)
	}
	return fmt.Sprintf("%s owner=%s field=%s date=%s: %v", e.Op, e.Owner, e.FieldID, e.Date.Format(time.DateOnly), e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
