package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// Zone identifies a UTM projected coordinate system.
type Zone struct {
	Number int
	South  bool
}

// ProjectionError is returned when a zone does not resolve to a projected system
// or a coordinate cannot be transformed into it.
type ProjectionError struct {
	Zone Zone
	Err  error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection to zone %s: %v", e.Zone, e.Err)
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}

func (z Zone) String() string {
	if z.South {
		return fmt.Sprintf("%dS", z.Number)
	}
	return fmt.Sprintf("%dN", z.Number)
}

// Validate returns a *ProjectionError for zone numbers outside 1..60.
func (z Zone) Validate() error {
	if z.Number < 1 || z.Number > 60 {
		return &ProjectionError{Zone: z, Err: fmt.Errorf("zone number %d outside 1..60", z.Number)}
	}
	return nil
}

// EPSG returns the WGS84 / UTM code, 326zz in the north and 327zz in the south.
func (z Zone) EPSG() (int, error) {
	if err := z.Validate(); err != nil {
		return 0, err
	}
	if z.South {
		return 32700 + z.Number, nil
	}
	return 32600 + z.Number, nil
}

// ZoneFromScenePath reads the zone from a Sentinel-2 tile prefix such as
// "tiles/30/T/TK/". Latitude bands C to M lie in the southern hemisphere.
func ZoneFromScenePath(path string) (Zone, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "tiles" {
		return Zone{}, &ProjectionError{Err: fmt.Errorf("scene path %q is not tiles/<zone>/<band>/<square>/", path)}
	}

	number, err := strconv.Atoi(parts[1])
	if err != nil {
		return Zone{}, &ProjectionError{Err: fmt.Errorf("scene path %q: zone %q is not a number", path, parts[1])}
	}

	band := strings.ToUpper(parts[2])
	if len(band) != 1 || band[0] < 'C' || band[0] > 'X' || band[0] == 'I' || band[0] == 'O' {
		return Zone{}, &ProjectionError{Zone: Zone{Number: number}, Err: fmt.Errorf("scene path %q: invalid latitude band %q", path, parts[2])}
	}

	zone := Zone{Number: number, South: band[0] < 'N'}
	if err := zone.Validate(); err != nil {
		return Zone{}, err
	}
	return zone, nil
}
