package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var ErrInvalidPolygon = errors.New("invalid polygon")

// Polygon is a field boundary in geographic coordinates. Every vertex is
// stored as orb.Point{longitude, latitude}; the order is checked once in
// NewPolygon and never guessed again downstream.
type Polygon struct {
	shape orb.Polygon
}

// NewPolygon validates rings of (longitude, latitude) vertices. The first ring
// is the exterior, any further rings are holes. Open rings are closed.
func NewPolygon(rings orb.Polygon) (Polygon, error) {
	if len(rings) == 0 {
		return Polygon{}, fmt.Errorf("%w: no rings", ErrInvalidPolygon)
	}

	shape := make(orb.Polygon, 0, len(rings))
	for i, ring := range rings {
		checked, err := checkRing(ring)
		if err != nil {
			return Polygon{}, fmt.Errorf("%w: ring %d: %v", ErrInvalidPolygon, i, err)
		}
		shape = append(shape, checked)
	}
	return Polygon{shape: shape}, nil
}

// PolygonFromVertices builds a single-ring polygon from (longitude, latitude) pairs.
func PolygonFromVertices(vertices [][2]float64) (Polygon, error) {
	ring := make(orb.Ring, 0, len(vertices))
	for _, v := range vertices {
		ring = append(ring, orb.Point{v[0], v[1]})
	}
	return NewPolygon(orb.Polygon{ring})
}

func checkRing(ring orb.Ring) (orb.Ring, error) {
	distinct := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring {
		lon, lat := p.Lon(), p.Lat()
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return nil, fmt.Errorf("non-finite vertex %v", p)
		}
		if lon < -180 || lon > 180 {
			return nil, fmt.Errorf("longitude %f out of range, vertices must be (lon, lat)", lon)
		}
		if lat < -90 || lat > 90 {
			return nil, fmt.Errorf("latitude %f out of range, vertices must be (lon, lat)", lat)
		}
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, fmt.Errorf("need at least 3 distinct vertices, got %d", len(distinct))
	}

	out := make(orb.Ring, len(ring), len(ring)+1)
	copy(out, ring)
	if !out.Closed() {
		out = append(out, out[0])
	}
	return out, nil
}

// Rings returns a copy of the geographic rings.
func (p Polygon) Rings() orb.Polygon {
	return p.shape.Clone()
}

func (p Polygon) Bound() orb.Bound {
	return p.shape.Bound()
}

// ProjectedPolygon is a Polygon reprojected into the metric system of Zone.
type ProjectedPolygon struct {
	Zone  Zone
	Shape orb.Polygon
}

// Bound is the axis-aligned envelope of the exterior ring, in metres.
func (p ProjectedPolygon) Bound() orb.Bound {
	return p.Shape.Bound()
}

// Contains reports whether pt is inside the polygon using the even-odd rule.
// Points exactly on the exterior boundary count as inside; points on a hole
// boundary count as inside the hole and therefore outside the polygon.
func (p ProjectedPolygon) Contains(pt orb.Point) bool {
	return planar.PolygonContains(p.Shape, pt)
}

// Centroid returns the area centroid of the projected shape.
func (p ProjectedPolygon) Centroid() (orb.Point, error) {
	c, area := planar.CentroidArea(p.Shape)
	if area == 0 {
		return orb.Point{}, errors.New("degenerate polygon has no area")
	}
	return c, nil
}
