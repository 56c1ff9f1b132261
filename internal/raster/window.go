package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const gridEpsilon = 1e-9

// GeoTransform is a GDAL affine transform:
// x = gt[0] + col*gt[1] + row*gt[2], y = gt[3] + col*gt[4] + row*gt[5].
type GeoTransform [6]float64

// Window is a pixel-aligned rectangle inside a raster grid.
type Window struct {
	Col, Row      int
	Width, Height int
}

func (w Window) Empty() bool {
	return w.Width <= 0 || w.Height <= 0
}

func (w Window) Len() int {
	return w.Width * w.Height
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", w.Width, w.Height, w.Col, w.Row)
}

// NorthUp reports whether the transform has no rotation terms.
func (gt GeoTransform) NorthUp() bool {
	return gt[2] == 0 && gt[4] == 0 && gt[1] != 0 && gt[5] != 0
}

// ForWindow returns the transform whose origin is the top-left corner of w.
func (gt GeoTransform) ForWindow(w Window) GeoTransform {
	out := gt
	out[0] = gt[0] + float64(w.Col)*gt[1] + float64(w.Row)*gt[2]
	out[3] = gt[3] + float64(w.Col)*gt[4] + float64(w.Row)*gt[5]
	return out
}

// PixelCenter returns the coordinate of the centre of pixel (col, row).
func (gt GeoTransform) PixelCenter(col, row int) orb.Point {
	x := float64(col) + 0.5
	y := float64(row) + 0.5
	return orb.Point{
		gt[0] + x*gt[1] + y*gt[2],
		gt[3] + x*gt[4] + y*gt[5],
	}
}

// WindowForBounds returns the smallest window of a width x height raster that
// covers b. The window is not buffered; parts of b outside the raster are
// dropped. A bound that misses the raster entirely is an *AccessError.
func WindowForBounds(b orb.Bound, gt GeoTransform, width, height int) (Window, error) {
	if !gt.NorthUp() {
		return Window{}, &AccessError{Op: "window", Err: fmt.Errorf("rotated geotransform %v is not supported", gt)}
	}

	colA := (b.Min.X() - gt[0]) / gt[1]
	colB := (b.Max.X() - gt[0]) / gt[1]
	rowA := (b.Max.Y() - gt[3]) / gt[5]
	rowB := (b.Min.Y() - gt[3]) / gt[5]

	colOff, colEnd := span(colA, colB)
	rowOff, rowEnd := span(rowA, rowB)

	if colEnd <= 0 || rowEnd <= 0 || colOff >= width || rowOff >= height {
		return Window{}, &AccessError{Op: "window", Err: fmt.Errorf("bounds %v lie outside the %dx%d raster", b, width, height)}
	}

	colOff, colEnd = max(colOff, 0), min(colEnd, width)
	rowOff, rowEnd = max(rowOff, 0), min(rowEnd, height)

	w := Window{Col: colOff, Row: rowOff, Width: colEnd - colOff, Height: rowEnd - rowOff}
	if w.Empty() {
		return Window{}, &AccessError{Op: "window", Err: fmt.Errorf("bounds %v produce empty window %s", b, w)}
	}
	return w, nil
}

// span converts two fractional grid positions into [off, end) integer pixel
// indices, keeping at least one pixel when both positions fall on one line.
func span(a, b float64) (int, int) {
	lo, hi := math.Min(a, b), math.Max(a, b)
	off := int(math.Floor(lo + gridEpsilon))
	end := int(math.Ceil(hi - gridEpsilon))
	if end <= off {
		end = off + 1
	}
	return off, end
}
