package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Projector converts (longitude, latitude) points to metric coordinates of a
// zone. Implementations must be deterministic.
type Projector interface {
	Project(zone Zone, points []orb.Point) ([]orb.Point, error)
}

// Project reprojects every ring of p into zone.
func Project(projector Projector, p Polygon, zone Zone) (ProjectedPolygon, error) {
	if err := zone.Validate(); err != nil {
		return ProjectedPolygon{}, err
	}

	shape := make(orb.Polygon, 0, len(p.shape))
	for _, ring := range p.shape {
		pts, err := projector.Project(zone, []orb.Point(ring))
		if err != nil {
			return ProjectedPolygon{}, err
		}
		if len(pts) != len(ring) {
			return ProjectedPolygon{}, &ProjectionError{Zone: zone, Err: fmt.Errorf("projected %d of %d vertices", len(pts), len(ring))}
		}
		shape = append(shape, orb.Ring(pts))
	}
	return ProjectedPolygon{Zone: zone, Shape: shape}, nil
}
