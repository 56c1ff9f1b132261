package sentinel

import (
	"fmt"
	"math"
)

// SoilFactor is the SAVI canopy background adjustment L.
const SoilFactor = 0.5

// Bands holds co-registered window arrays, row-major. Cloud is optional.
type Bands struct {
	Width, Height int
	Red           []float64
	Green         []float64
	Blue          []float64
	NIR           []float64
	Cloud         []float64
}

// IndexRaster holds the four indices for every pixel of a window. Defined is
// false for pixels where any index has a zero denominator or an input is not
// finite; such pixels carry NaN and must never be aggregated.
type IndexRaster struct {
	Width, Height int
	NDWI          []float64
	NDVI          []float64
	SAVI          []float64
	EVI           []float64
	Defined       []bool
	Cloud         []float64
}

// ShapeMismatchError reports band arrays that disagree with the window shape.
type ShapeMismatchError struct {
	Band     string
	Got      int
	Expected int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("band %s has %d values, window needs %d", e.Band, e.Got, e.Expected)
}

func (b Bands) check() error {
	n := b.Width * b.Height
	if b.Width <= 0 || b.Height <= 0 {
		return &ShapeMismatchError{Band: "window", Got: n, Expected: 1}
	}
	bands := []struct {
		name   string
		values []float64
	}{
		{"red", b.Red},
		{"green", b.Green},
		{"blue", b.Blue},
		{"nir", b.NIR},
	}
	for _, band := range bands {
		if len(band.values) != n {
			return &ShapeMismatchError{Band: band.name, Got: len(band.values), Expected: n}
		}
	}
	if b.Cloud != nil && len(b.Cloud) != n {
		return &ShapeMismatchError{Band: "cloud", Got: len(b.Cloud), Expected: n}
	}
	return nil
}

// ComputeIndexes derives NDWI, NDVI, SAVI and EVI for every pixel:
//
//	NDWI = (green - nir) / (green + nir)
//	NDVI = (nir - red) / (nir + red)
//	SAVI = (nir - red) / (nir + red + L)
//	EVI  = 2.5*(nir - red) / (nir + 6*green - 7.5*blue + 1)
func ComputeIndexes(b Bands) (*IndexRaster, error) {
	if err := b.check(); err != nil {
		return nil, err
	}

	n := b.Width * b.Height
	idx := &IndexRaster{
		Width:   b.Width,
		Height:  b.Height,
		NDWI:    make([]float64, n),
		NDVI:    make([]float64, n),
		SAVI:    make([]float64, n),
		EVI:     make([]float64, n),
		Defined: make([]bool, n),
		Cloud:   b.Cloud,
	}

	for i := 0; i < n; i++ {
		red, green, blue, nir := b.Red[i], b.Green[i], b.Blue[i], b.NIR[i]

		ndwi, ok1 := ratio(green-nir, green+nir)
		ndvi, ok2 := ratio(nir-red, nir+red)
		savi, ok3 := ratio(nir-red, nir+red+SoilFactor)
		evi, ok4 := ratio(2.5*(nir-red), nir+6*green-7.5*blue+1)

		idx.NDWI[i], idx.NDVI[i], idx.SAVI[i], idx.EVI[i] = ndwi, ndvi, savi, evi
		idx.Defined[i] = ok1 && ok2 && ok3 && ok4
	}
	return idx, nil
}

func ratio(num, den float64) (float64, bool) {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) || math.IsInf(num, 0) || math.IsInf(den, 0) {
		return math.NaN(), false
	}
	return num / den, true
}
