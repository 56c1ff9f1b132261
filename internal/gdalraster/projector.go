package gdalraster

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"

	"github.com/javierballesterjack/crop-health-engine/internal/geo"
	"github.com/javierballesterjack/crop-health-engine/internal/utils"
)

const wgs84 = 4326

// Projector projects WGS84 longitude/latitude to UTM with GDAL OSR. One
// transform is built per zone and reused.
type Projector struct {
	mu         sync.Mutex
	src        *godal.SpatialRef
	refs       []*godal.SpatialRef
	transforms map[geo.Zone]*godal.Transform
}

func NewProjector() (*Projector, error) {
	Register()

	var (
		src *godal.SpatialRef
		err error
	)
	utils.ExecuteWithMutex(func() {
		src, err = godal.NewSpatialRefFromEPSG(wgs84)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create WGS84 spatial reference: %w", err)
	}
	return &Projector{src: src, transforms: make(map[geo.Zone]*godal.Transform)}, nil
}

func (p *Projector) transform(zone geo.Zone) (*godal.Transform, error) {
	if tr, ok := p.transforms[zone]; ok {
		return tr, nil
	}

	epsg, err := zone.EPSG()
	if err != nil {
		return nil, err
	}

	var (
		dst *godal.SpatialRef
		tr  *godal.Transform
	)
	utils.ExecuteWithMutex(func() {
		dst, err = godal.NewSpatialRefFromEPSG(epsg)
		if err != nil {
			return
		}
		tr, err = godal.NewTransform(p.src, dst)
	})
	if err != nil {
		if dst != nil {
			dst.Close()
		}
		return nil, &geo.ProjectionError{Zone: zone, Err: fmt.Errorf("EPSG:%d: %w", epsg, err)}
	}

	p.refs = append(p.refs, dst)
	p.transforms[zone] = tr
	return tr, nil
}

func (p *Projector) Project(zone geo.Zone, points []orb.Point) ([]orb.Point, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tr, err := p.transform(zone)
	if err != nil {
		return nil, err
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, pt := range points {
		xs[i], ys[i] = pt.Lon(), pt.Lat()
	}

	utils.ExecuteWithMutex(func() {
		err = tr.TransformEx(xs, ys, nil, nil)
	})
	if err != nil {
		return nil, &geo.ProjectionError{Zone: zone, Err: fmt.Errorf("transform error: %w", err)}
	}

	out := make([]orb.Point, len(points))
	for i := range out {
		out[i] = orb.Point{xs[i], ys[i]}
	}
	return out, nil
}

// Close releases every GDAL object held by the projector.
func (p *Projector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	utils.ExecuteWithMutex(func() {
		for zone, tr := range p.transforms {
			tr.Close()
			delete(p.transforms, zone)
		}
		for _, sr := range p.refs {
			sr.Close()
		}
		p.refs = nil
		if p.src != nil {
			p.src.Close()
			p.src = nil
		}
	})
}
