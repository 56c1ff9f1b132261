package sentinel

import (
	"fmt"
	"path/filepath"
	"time"
)

// Asset is one downloadable file of a Sentinel-2 L2A scene.
type Asset struct {
	Name   string
	Folder string
	File   string
}

var (
	// Visual is the true-colour composite; its first band drives the gate.
	Visual = Asset{Name: "visual", Folder: "R10m", File: "TCI.jp2"}
	NIR    = Asset{Name: "nir", Folder: "R10m", File: "B08.jp2"}
	Cloud  = Asset{Name: "cloud", Folder: "qi", File: "CLD_20m.jp2"}
)

// Assets lists every asset of a scene, reference first.
func Assets() []Asset {
	return []Asset{Visual, NIR, Cloud}
}

// TCI band order.
const (
	RedBand   = 1
	GreenBand = 2
	BlueBand  = 3
	NIRBand   = 1
	CloudBand = 1
)

// DatePath renders date as the un-padded year/month/day key segment.
func DatePath(date time.Time) string {
	return fmt.Sprintf("%d/%d/%d", date.Year(), int(date.Month()), date.Day())
}

// AssetKey returns the object key of asset for date under a scene prefix such
// as "tiles/30/T/TK/".
func AssetKey(prefix string, date time.Time, asset Asset) string {
	return fmt.Sprintf("%s%s/0/%s/%s", prefix, DatePath(date), asset.Folder, asset.File)
}

// LocalPath returns where asset for date is stored below dir.
func LocalPath(dir string, date time.Time, asset Asset) string {
	return filepath.Join(dir, date.Format(time.DateOnly), asset.Name+filepath.Ext(asset.File))
}
