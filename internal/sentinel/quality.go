package sentinel

import (
	"fmt"

	"github.com/javierballesterjack/crop-health-engine/internal/raster"
)

const (
	// Thresholds calibrated on the 10980x10980 TCI tile: 10% no-data, 90% saturated.
	DefaultMaxNoData    = 12056040
	DefaultMaxSaturated = 108504360

	scanRows = 256
)

// Gate rejects scenes whose reference band has too many no-data or saturated
// pixels over the whole tile.
type Gate struct {
	Band         int
	NoDataValue  float64
	Saturation   float64
	MaxNoData    int
	MaxSaturated int
}

func DefaultGate() Gate {
	return Gate{
		Band:         1,
		NoDataValue:  0,
		Saturation:   255,
		MaxNoData:    DefaultMaxNoData,
		MaxSaturated: DefaultMaxSaturated,
	}
}

// SceneStats are the gate counts of one reference band.
type SceneStats struct {
	Pixels    int
	NoData    int
	Saturated int
}

// QualityRejectedError marks a scene as unusable.
type QualityRejectedError struct {
	Stats  SceneStats
	Reason string
}

func (e *QualityRejectedError) Error() string {
	return fmt.Sprintf("scene rejected: %s (%d no-data, %d saturated of %d pixels)", e.Reason, e.Stats.NoData, e.Stats.Saturated, e.Stats.Pixels)
}

// Count adds the no-data and saturated pixels of values to stats.
func (g Gate) Count(values []float64, stats *SceneStats) {
	for _, v := range values {
		switch {
		case v == g.NoDataValue:
			stats.NoData++
		case v >= g.Saturation:
			stats.Saturated++
		}
	}
	stats.Pixels += len(values)
}

// Assess returns nil for a usable scene and a *QualityRejectedError otherwise.
// A count equal to its threshold is still usable.
func (g Gate) Assess(stats SceneStats) error {
	if stats.NoData > g.MaxNoData {
		return &QualityRejectedError{Stats: stats, Reason: fmt.Sprintf("no-data pixels above %d", g.MaxNoData)}
	}
	if stats.Saturated > g.MaxSaturated {
		return &QualityRejectedError{Stats: stats, Reason: fmt.Sprintf("saturated pixels above %d", g.MaxSaturated)}
	}
	return nil
}

// Inspect streams the reference band of the full scene through the gate.
func (g Gate) Inspect(ds raster.Dataset) (SceneStats, error) {
	var stats SceneStats
	err := ds.ScanBand(g.Band, scanRows, func(values []float64) error {
		g.Count(values, &stats)
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, g.Assess(stats)
}
