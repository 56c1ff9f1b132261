package zonal

import (
	"errors"
	"fmt"

	"github.com/javierballesterjack/crop-health-engine/internal/geo"
	"github.com/javierballesterjack/crop-health-engine/internal/raster"
	"github.com/javierballesterjack/crop-health-engine/internal/sentinel"
)

// ErrNoPoints is returned when no pixel centre of the window falls inside the
// polygon.
var ErrNoPoints = errors.New("no pixel centre inside the polygon")

type Options struct {
	// CloudProbability is the CLD value from which a pixel counts as cloudy.
	CloudProbability float64
	// MaskClouds drops cloudy pixels from the means.
	MaskClouds bool
}

func DefaultOptions() Options {
	return Options{CloudProbability: 50}
}

// Result holds the mean indices of one polygon for one date.
type Result struct {
	NDWI float64
	NDVI float64
	SAVI float64
	EVI  float64
	// Count is the number of pixels averaged.
	Count int
	// Covered counts defined inliers before cloud masking, Cloudy the cloudy
	// ones among them.
	Covered int
	Cloudy  int
}

// CloudFraction is the share of covered pixels flagged cloudy.
func (r Result) CloudFraction() float64 {
	if r.Covered == 0 {
		return 0
	}
	return float64(r.Cloudy) / float64(r.Covered)
}

// CloudLabel returns "yes" when the cloud fraction exceeds limit.
func (r Result) CloudLabel(limit float64) string {
	if r.CloudFraction() > limit {
		return "yes"
	}
	return "no"
}

// Aggregate averages the indices of every defined pixel whose centre lies in
// poly. gt is the transform of the index raster's window.
func Aggregate(poly geo.ProjectedPolygon, gt raster.GeoTransform, idx *sentinel.IndexRaster, opts Options) (Result, error) {
	n := idx.Width * idx.Height
	if len(idx.Defined) != n || len(idx.NDVI) != n {
		return Result{}, &sentinel.ShapeMismatchError{Band: "index", Got: len(idx.Defined), Expected: n}
	}
	if idx.Cloud != nil && len(idx.Cloud) != n {
		return Result{}, &sentinel.ShapeMismatchError{Band: "cloud", Got: len(idx.Cloud), Expected: n}
	}

	var res Result
	var ndwi, ndvi, savi, evi float64
	for row := 0; row < idx.Height; row++ {
		for col := 0; col < idx.Width; col++ {
			i := row*idx.Width + col
			if !idx.Defined[i] {
				continue
			}
			if !poly.Contains(gt.PixelCenter(col, row)) {
				continue
			}

			res.Covered++
			cloudy := idx.Cloud != nil && idx.Cloud[i] >= opts.CloudProbability
			if cloudy {
				res.Cloudy++
				if opts.MaskClouds {
					continue
				}
			}

			ndwi += idx.NDWI[i]
			ndvi += idx.NDVI[i]
			savi += idx.SAVI[i]
			evi += idx.EVI[i]
			res.Count++
		}
	}

	if res.Count == 0 {
		if res.Covered > 0 {
			return res, fmt.Errorf("all %d covered pixels are cloudy: %w", res.Covered, ErrNoPoints)
		}
		return res, ErrNoPoints
	}

	c := float64(res.Count)
	res.NDWI, res.NDVI, res.SAVI, res.EVI = ndwi/c, ndvi/c, savi/c, evi/c
	return res, nil
}

// WeightedMean combines results by pixel count. Results without pixels are
// ignored; if none has pixels ErrNoPoints is returned.
func WeightedMean(results []Result) (Result, error) {
	var out Result
	for _, r := range results {
		if r.Count == 0 {
			continue
		}
		w := float64(r.Count)
		out.NDWI += w * r.NDWI
		out.NDVI += w * r.NDVI
		out.SAVI += w * r.SAVI
		out.EVI += w * r.EVI
		out.Count += r.Count
		out.Covered += r.Covered
		out.Cloudy += r.Cloudy
	}
	if out.Count == 0 {
		return Result{}, ErrNoPoints
	}
	c := float64(out.Count)
	out.NDWI /= c
	out.NDVI /= c
	out.SAVI /= c
	out.EVI /= c
	return out, nil
}
