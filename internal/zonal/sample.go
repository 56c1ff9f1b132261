// Package zonal turns a field polygon and a Sentinel-2 scene into averaged
// health indices.
package zonal

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/javierballesterjack/crop-health-engine/internal/raster"
	"github.com/javierballesterjack/crop-health-engine/internal/sentinel"
)

// Scene holds the open rasters of one acquisition date. Cloud may be nil.
type Scene struct {
	Visual raster.Dataset
	NIR    raster.Dataset
	Cloud  raster.Dataset
}

// Close closes every open raster of the scene.
func (s Scene) Close() error {
	var firstErr error
	for _, ds := range []raster.Dataset{s.Visual, s.NIR, s.Cloud} {
		if ds == nil {
			continue
		}
		if err := ds.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BandStack is every band needed by the index calculator over one window.
type BandStack struct {
	Window    raster.Window
	Transform raster.GeoTransform
	Bands     sentinel.Bands
}

// Sample reads the minimal window covering b from every raster of the scene.
// The NIR raster must share the visual grid; the cloud raster is replicated
// onto it.
func Sample(scene Scene, b orb.Bound) (*BandStack, error) {
	gt, err := scene.Visual.GeoTransform()
	if err != nil {
		return nil, &raster.AccessError{Op: "geotransform", Err: err}
	}
	width, height := scene.Visual.Size()

	w, err := raster.WindowForBounds(b, gt, width, height)
	if err != nil {
		return nil, err
	}

	nirGT, err := scene.NIR.GeoTransform()
	if err != nil {
		return nil, &raster.AccessError{Op: "geotransform", Err: err}
	}
	nirWidth, nirHeight := scene.NIR.Size()
	if nirGT != gt || nirWidth != width || nirHeight != height {
		return nil, &raster.AccessError{Op: "sample", Err: fmt.Errorf("nir grid %v %dx%d does not match visual grid %v %dx%d", nirGT, nirWidth, nirHeight, gt, width, height)}
	}

	stack := &BandStack{
		Window:    w,
		Transform: gt.ForWindow(w),
		Bands:     sentinel.Bands{Width: w.Width, Height: w.Height},
	}

	reads := []struct {
		ds   raster.Dataset
		band int
		dst  *[]float64
	}{
		{scene.Visual, sentinel.RedBand, &stack.Bands.Red},
		{scene.Visual, sentinel.GreenBand, &stack.Bands.Green},
		{scene.Visual, sentinel.BlueBand, &stack.Bands.Blue},
		{scene.NIR, sentinel.NIRBand, &stack.Bands.NIR},
	}
	for _, r := range reads {
		values, err := r.ds.ReadWindow(r.band, w)
		if err != nil {
			return nil, err
		}
		*r.dst = values
	}

	if scene.Cloud != nil {
		cloud, err := raster.ReadUpsampled(scene.Cloud, sentinel.CloudBand, gt, w)
		if err != nil {
			return nil, err
		}
		stack.Bands.Cloud = cloud
	}
	return stack, nil
}
