package raster

import "fmt"

// Dataset is an open, read-only raster. Band numbers start at 1.
type Dataset interface {
	GeoTransform() (GeoTransform, error)
	Size() (width, height int)
	BandCount() int
	// ReadWindow returns the pixels of one band inside w, row-major.
	ReadWindow(band int, w Window) ([]float64, error)
	// ScanBand streams a full band in strips of at most rows lines.
	ScanBand(band int, rows int, fn func(values []float64) error) error
	Close() error
}

type Opener interface {
	Open(path string) (Dataset, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Dataset, error)

func (f OpenerFunc) Open(path string) (Dataset, error) {
	return f(path)
}

// AccessError reports a raster that cannot be opened or read, or a window that
// falls outside it.
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *AccessError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("raster %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("raster %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// CheckBand validates a 1-based band number against ds.
func CheckBand(ds Dataset, band int) error {
	if band < 1 || band > ds.BandCount() {
		return &AccessError{Op: "read", Err: fmt.Errorf("band %d out of range 1..%d", band, ds.BandCount())}
	}
	return nil
}
