package raster

import (
	"fmt"
	"math"
)

// Ratio returns the integer factor between a coarse grid and a fine grid that
// share the same origin, e.g. 2 for a 20 m band against a 10 m band.
func Ratio(fine, coarse GeoTransform) (int, error) {
	if !fine.NorthUp() || !coarse.NorthUp() {
		return 0, &AccessError{Op: "resample", Err: fmt.Errorf("rotated geotransforms are not supported")}
	}

	tolerance := math.Abs(fine[1]) * 1e-6
	if math.Abs(fine[0]-coarse[0]) > tolerance || math.Abs(fine[3]-coarse[3]) > tolerance {
		return 0, &AccessError{Op: "resample", Err: fmt.Errorf("grids do not share an origin: %v vs %v", fine, coarse)}
	}

	rx := coarse[1] / fine[1]
	ry := coarse[5] / fine[5]
	factor := math.Round(rx)
	if factor < 1 || math.Abs(rx-factor) > 1e-9 || math.Abs(ry-factor) > 1e-9 {
		return 0, &AccessError{Op: "resample", Err: fmt.Errorf("resolution ratio %gx%g is not a positive integer", rx, ry)}
	}
	return int(factor), nil
}

// Upsample replicates every source pixel into a factor x factor block. No
// interpolation is applied.
func Upsample(src []float64, width, height, factor int) ([]float64, error) {
	if factor < 1 {
		return nil, fmt.Errorf("upsample factor %d must be positive", factor)
	}
	if len(src) != width*height {
		return nil, fmt.Errorf("upsample: %d values for a %dx%d grid", len(src), width, height)
	}

	outWidth := width * factor
	out := make([]float64, outWidth*height*factor)
	for row := 0; row < height; row++ {
		line := out[row*factor*outWidth : (row*factor+1)*outWidth]
		for col := 0; col < width; col++ {
			v := src[row*width+col]
			for k := 0; k < factor; k++ {
				line[col*factor+k] = v
			}
		}
		for k := 1; k < factor; k++ {
			copy(out[(row*factor+k)*outWidth:(row*factor+k+1)*outWidth], line)
		}
	}
	return out, nil
}

// ReadUpsampled reads one band of a coarse raster over the area of window w of
// the fine grid and returns it replicated onto that grid, pixel for pixel.
func ReadUpsampled(coarse Dataset, band int, fine GeoTransform, w Window) ([]float64, error) {
	cgt, err := coarse.GeoTransform()
	if err != nil {
		return nil, &AccessError{Op: "geotransform", Err: err}
	}
	factor, err := Ratio(fine, cgt)
	if err != nil {
		return nil, err
	}

	cw := Window{Col: w.Col / factor, Row: w.Row / factor}
	cw.Width = ceilDiv(w.Col+w.Width, factor) - cw.Col
	cw.Height = ceilDiv(w.Row+w.Height, factor) - cw.Row

	width, height := coarse.Size()
	if cw.Col+cw.Width > width || cw.Row+cw.Height > height {
		return nil, &AccessError{Op: "resample", Err: fmt.Errorf("window %s exceeds the %dx%d coarse raster", cw, width, height)}
	}

	data, err := coarse.ReadWindow(band, cw)
	if err != nil {
		return nil, err
	}
	up, err := Upsample(data, cw.Width, cw.Height, factor)
	if err != nil {
		return nil, &AccessError{Op: "resample", Err: err}
	}

	dx := w.Col - cw.Col*factor
	dy := w.Row - cw.Row*factor
	upWidth := cw.Width * factor
	out := make([]float64, w.Len())
	for row := 0; row < w.Height; row++ {
		copy(out[row*w.Width:(row+1)*w.Width], up[(row+dy)*upWidth+dx:])
	}
	return out, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
