// Package rastertest provides an in-memory raster.Dataset for tests.
package rastertest

import (
	"fmt"
	"sync"

	"github.com/javierballesterjack/crop-health-engine/internal/raster"
)

// Dataset holds row-major bands of equal size.
type Dataset struct {
	Transform raster.GeoTransform
	Width     int
	Height    int
	Bands     [][]float64

	mu     sync.Mutex
	closed bool
	reads  int
}

// New returns a dataset with nBands bands filled with fill.
func New(gt raster.GeoTransform, width, height, nBands int, fill float64) *Dataset {
	bands := make([][]float64, nBands)
	for i := range bands {
		bands[i] = make([]float64, width*height)
		for j := range bands[i] {
			bands[i][j] = fill
		}
	}
	return &Dataset{Transform: gt, Width: width, Height: height, Bands: bands}
}

// Set writes v at (col, row) of a 1-based band.
func (d *Dataset) Set(band, col, row int, v float64) {
	d.Bands[band-1][row*d.Width+col] = v
}

// Fill writes v into every pixel of a 1-based band.
func (d *Dataset) Fill(band int, v float64) {
	for i := range d.Bands[band-1] {
		d.Bands[band-1][i] = v
	}
}

func (d *Dataset) GeoTransform() (raster.GeoTransform, error) {
	return d.Transform, nil
}

func (d *Dataset) Size() (int, int) {
	return d.Width, d.Height
}

func (d *Dataset) BandCount() int {
	return len(d.Bands)
}

func (d *Dataset) ReadWindow(band int, w raster.Window) ([]float64, error) {
	if err := raster.CheckBand(d, band); err != nil {
		return nil, err
	}
	if w.Empty() || w.Col < 0 || w.Row < 0 || w.Col+w.Width > d.Width || w.Row+w.Height > d.Height {
		return nil, &raster.AccessError{Op: "read", Err: fmt.Errorf("window %s outside %dx%d", w, d.Width, d.Height)}
	}

	d.mu.Lock()
	d.reads++
	d.mu.Unlock()

	src := d.Bands[band-1]
	out := make([]float64, 0, w.Len())
	for row := w.Row; row < w.Row+w.Height; row++ {
		out = append(out, src[row*d.Width+w.Col:row*d.Width+w.Col+w.Width]...)
	}
	return out, nil
}

func (d *Dataset) ScanBand(band int, rows int, fn func([]float64) error) error {
	if err := raster.CheckBand(d, band); err != nil {
		return err
	}
	if rows < 1 {
		rows = 1
	}
	src := d.Bands[band-1]
	for y := 0; y < d.Height; y += rows {
		n := min(rows, d.Height-y)
		if err := fn(src[y*d.Width : (y+n)*d.Width]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Dataset) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Reads counts ReadWindow calls.
func (d *Dataset) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}
