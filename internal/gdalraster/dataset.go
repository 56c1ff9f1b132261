// Package gdalraster implements raster access and coordinate projection on
// top of GDAL.
package gdalraster

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/javierballesterjack/crop-health-engine/internal/raster"
	"github.com/javierballesterjack/crop-health-engine/internal/utils"
)

var registerOnce sync.Once

// Register loads the GDAL drivers once per process.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

func ignoreWarnings(ec godal.ErrorCategory, code int, msg string) error {
	if ec == godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("gdal error %d: %s", code, msg)
}

// Opener opens files with GDAL.
type Opener struct{}

func (Opener) Open(path string) (raster.Dataset, error) {
	Register()

	var (
		ds  *godal.Dataset
		err error
	)
	utils.ExecuteWithMutex(func() {
		ds, err = godal.Open(path, godal.ErrLogger(ignoreWarnings))
	})
	if err != nil {
		return nil, &raster.AccessError{Path: path, Op: "open", Err: err}
	}
	return Wrap(path, ds), nil
}

// Dataset adapts a *godal.Dataset to raster.Dataset. Every GDAL call holds the
// shared GDAL lock.
type Dataset struct {
	path   string
	ds     *godal.Dataset
	width  int
	height int
	bands  int
}

// Wrap takes ownership of ds.
func Wrap(path string, ds *godal.Dataset) *Dataset {
	var st godal.DatasetStructure
	utils.ExecuteWithMutex(func() {
		st = ds.Structure()
	})
	return &Dataset{path: path, ds: ds, width: st.SizeX, height: st.SizeY, bands: st.NBands}
}

func (d *Dataset) GeoTransform() (raster.GeoTransform, error) {
	var (
		gt  [6]float64
		err error
	)
	utils.ExecuteWithMutex(func() {
		gt, err = d.ds.GeoTransform()
	})
	if err != nil {
		return raster.GeoTransform{}, &raster.AccessError{Path: d.path, Op: "geotransform", Err: err}
	}
	return raster.GeoTransform(gt), nil
}

func (d *Dataset) Size() (int, int) {
	return d.width, d.height
}

func (d *Dataset) BandCount() int {
	return d.bands
}

func (d *Dataset) ReadWindow(band int, w raster.Window) ([]float64, error) {
	if err := raster.CheckBand(d, band); err != nil {
		return nil, err
	}
	if w.Empty() || w.Col < 0 || w.Row < 0 || w.Col+w.Width > d.width || w.Row+w.Height > d.height {
		return nil, &raster.AccessError{Path: d.path, Op: "read", Err: fmt.Errorf("window %s outside %dx%d", w, d.width, d.height)}
	}

	buf := make([]float64, w.Len())
	var err error
	utils.ExecuteWithMutex(func() {
		err = d.ds.Bands()[band-1].Read(w.Col, w.Row, buf, w.Width, w.Height)
	})
	if err != nil {
		return nil, &raster.AccessError{Path: d.path, Op: "read", Err: fmt.Errorf("band %d window %s: %w", band, w, err)}
	}
	return buf, nil
}

func (d *Dataset) ScanBand(band int, rows int, fn func([]float64) error) error {
	if err := raster.CheckBand(d, band); err != nil {
		return err
	}
	if rows < 1 {
		rows = 1
	}

	buf := make([]float64, d.width*rows)
	for y := 0; y < d.height; y += rows {
		n := min(rows, d.height-y)
		strip := buf[:d.width*n]

		var err error
		utils.ExecuteWithMutex(func() {
			err = d.ds.Bands()[band-1].Read(0, y, strip, d.width, n)
		})
		if err != nil {
			return &raster.AccessError{Path: d.path, Op: "scan", Err: fmt.Errorf("band %d rows %d-%d: %w", band, y, y+n, err)}
		}
		if err := fn(strip); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) Close() error {
	var err error
	utils.ExecuteWithMutex(func() {
		err = d.ds.Close()
	})
	if err != nil {
		return &raster.AccessError{Path: d.path, Op: "close", Err: err}
	}
	return nil
}
