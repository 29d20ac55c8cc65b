package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// We always store as 3857, including for tunnel locations, because SQLite has
// no spatial awareness and we need to be able to interpret point data from
// strings during migrations using the inherent Scan function. Geometry data
// is stored in the WKB format.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrPositionOutOfRange is returned for tunnel positions outside [0,100].
var ErrPositionOutOfRange = errors.New("tunnel position out of range")

// earthRadiusM is the WGS84 equatorial radius used for the axis offset.
const earthRadiusM = 6378137.0

// Coord3857FromString parses a string in the format "x,y" or "x,y,elev" into
// a point, and returns the elevation.
func Coord3857FromString(
	coords string,
) (
	point geom.Point,
	elev float64,
	err error,
) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(coordsSplit[0], 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(coordsSplit[1], 64)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
	}
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(coordsSplit[2], 64)
		if err != nil {
			return geom.NewEmptyPoint(geom.DimXYZ), 0, ErrInvalidCoordinates
		}
	}
	point = geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Z:    elev,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
	return point, elev, nil
}

// Coords3857From4326 creates a point from a WGS84 longitude and latitude
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	var x, y float64
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
			Z:  0,
		},
	)
	return point, nil
}

// Axis georeferences the tunnel tube: the entrance portal in WGS84 plus the
// bearing and length of the bore. Simulation positions are percent of length
// from the entrance.
type Axis struct {
	PortalLon  float64
	PortalLat  float64
	HeadingDeg float64 // clockwise from true north
	LengthM    float64
}

// LonLatAt returns the WGS84 location at pct percent along the axis. The
// offset uses a spherical approximation, which is fine at tunnel scale.
func (a Axis) LonLatAt(pct float64) (lon, lat float64) {
	d := a.LengthM * pct / 100
	theta := a.HeadingDeg * math.Pi / 180
	latRad := a.PortalLat * math.Pi / 180

	dLat := d * math.Cos(theta) / earthRadiusM
	dLon := d * math.Sin(theta) / (earthRadiusM * math.Cos(latRad))

	lat = a.PortalLat + dLat*180/math.Pi
	lon = a.PortalLon + dLon*180/math.Pi
	return lon, lat
}

// PointAt projects the location pct percent along the axis to EPSG:3857.
func (a Axis) PointAt(pct float64) (geom.Point, error) {
	if pct < 0 || pct > 100 {
		return geom.Point{}, ErrPositionOutOfRange
	}
	lon, lat := a.LonLatAt(pct)
	return Coords3857From4326(lon, lat)
}

// LineString returns the projected axis sampled at the camera zone
// boundaries (every 25 percent), entrance first.
func (a Axis) LineString() (geom.LineString, error) {
	flat := make([]float64, 0, 10)
	for pct := 0.0; pct <= 100; pct += 25 {
		p, err := a.PointAt(pct)
		if err != nil {
			return geom.LineString{}, err
		}
		xy, ok := p.XY()
		if !ok {
			return geom.LineString{}, ErrInvalidCoordinates
		}
		flat = append(flat, xy.X, xy.Y)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}
