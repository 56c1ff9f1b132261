package raster_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javierballesterjack/crop-health-engine/internal/raster"
	"github.com/javierballesterjack/crop-health-engine/internal/raster/rastertest"
)

// 10 m grid with its top-left corner at (500000, 4500000).
var tenMetre = raster.GeoTransform{500000, 10, 0, 4500000, 0, -10}

func TestWindowForBoundsCoversEnvelope(t *testing.T) {
	b := orb.Bound{Min: orb.Point{500015, 4499925}, Max: orb.Point{500052, 4499990}}

	w, err := raster.WindowForBounds(b, tenMetre, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, raster.Window{Col: 1, Row: 1, Width: 5, Height: 7}, w)

	origin := tenMetre.ForWindow(w)
	assert.Equal(t, 500010.0, origin[0])
	assert.Equal(t, 4499990.0, origin[3])
	assert.Equal(t, orb.Point{500015, 4499985}, origin.PixelCenter(0, 0))
}

func TestWindowForBoundsOnGridLinesIsNotWidened(t *testing.T) {
	b := orb.Bound{Min: orb.Point{500020, 4499900}, Max: orb.Point{500060, 4499980}}

	w, err := raster.WindowForBounds(b, tenMetre, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, raster.Window{Col: 2, Row: 2, Width: 4, Height: 8}, w)
}

func TestWindowForBoundsClipsAtRasterEdge(t *testing.T) {
	b := orb.Bound{Min: orb.Point{499950, 4499950}, Max: orb.Point{500030, 4500050}}

	w, err := raster.WindowForBounds(b, tenMetre, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, raster.Window{Col: 0, Row: 0, Width: 3, Height: 5}, w)
}

func TestWindowForBoundsOutsideRaster(t *testing.T) {
	outside := []orb.Bound{
		{Min: orb.Point{400000, 4400000}, Max: orb.Point{400100, 4400100}},
		{Min: orb.Point{501000, 4499000}, Max: orb.Point{501100, 4499100}},
		{Min: orb.Point{499000, 4499000}, Max: orb.Point{500000, 4499100}},
	}
	for _, b := range outside {
		_, err := raster.WindowForBounds(b, tenMetre, 100, 100)
		var aerr *raster.AccessError
		assert.ErrorAs(t, err, &aerr, "bounds %v", b)
	}
}

func TestWindowForBoundsRejectsRotation(t *testing.T) {
	gt := raster.GeoTransform{500000, 10, 0.5, 4500000, 0.5, -10}
	_, err := raster.WindowForBounds(orb.Bound{Max: orb.Point{1, 1}}, gt, 10, 10)
	var aerr *raster.AccessError
	assert.ErrorAs(t, err, &aerr)
}

func TestUpsampleReplicatesBlocks(t *testing.T) {
	src := []float64{
		1, 2, 3,
		4, 5, 6,
	}
	up, err := raster.Upsample(src, 3, 2, 2)
	require.NoError(t, err)

	want := []float64{
		1, 1, 2, 2, 3, 3,
		1, 1, 2, 2, 3, 3,
		4, 4, 5, 5, 6, 6,
		4, 4, 5, 5, 6, 6,
	}
	assert.Equal(t, want, up)

	for row := 0; row < 4; row++ {
		for col := 0; col < 6; col++ {
			assert.Equal(t, src[(row/2)*3+col/2], up[row*6+col])
		}
	}
}

func TestUpsampleRejectsShapeMismatch(t *testing.T) {
	_, err := raster.Upsample([]float64{1, 2, 3}, 2, 2, 2)
	assert.Error(t, err)
}

func TestRatio(t *testing.T) {
	twenty := raster.GeoTransform{500000, 20, 0, 4500000, 0, -20}
	f, err := raster.Ratio(tenMetre, twenty)
	require.NoError(t, err)
	assert.Equal(t, 2, f)

	_, err = raster.Ratio(tenMetre, raster.GeoTransform{500000, 15, 0, 4500000, 0, -15})
	assert.Error(t, err)

	_, err = raster.Ratio(tenMetre, raster.GeoTransform{500005, 20, 0, 4500000, 0, -20})
	assert.Error(t, err)
}

func TestReadUpsampledAlignsOddWindows(t *testing.T) {
	twenty := raster.GeoTransform{500000, 20, 0, 4500000, 0, -20}
	coarse := rastertest.New(twenty, 5, 5, 1, 0)
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			coarse.Set(1, col, row, float64(row*10+col))
		}
	}

	w := raster.Window{Col: 3, Row: 1, Width: 4, Height: 3}
	got, err := raster.ReadUpsampled(coarse, 1, tenMetre, w)
	require.NoError(t, err)
	require.Len(t, got, w.Len())

	for row := 0; row < w.Height; row++ {
		for col := 0; col < w.Width; col++ {
			fineCol, fineRow := w.Col+col, w.Row+row
			assert.Equal(t, float64((fineRow/2)*10+fineCol/2), got[row*w.Width+col], "pixel %d,%d", fineCol, fineRow)
		}
	}
}
