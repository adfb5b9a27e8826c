// Package geo reduces WKT geometry literals to a representative point and a
// bounding box, and lowers the GeoSPARQL distance and simple-feature relation
// functions to native distance comparisons.
//
// The reduction is an approximation. Multi-coordinate shapes are represented
// by the center of their coordinate bounding box (not an area-weighted
// centroid) and topological relations become radius checks around that
// center. No polygon topology is evaluated.
//
// Coordinates are read as WGS84 longitude/latitude, the only system the
// native point constructor built here accepts. WKT in a projected CRS, or any
// ordinate outside [-180, 180] x [-90, 90], is refused like malformed text so
// the caller evaluates the filter itself.
//
// Every entry point is best-effort: malformed or refused WKT yields false and
// leaves the parameter table untouched.
package geo

import (
	"fmt"
	"math"

	"github.com/roach88/graphpush/internal/ir"
)

// EarthRadius is the mean earth radius in meters used by the target
// database's distance function.
const EarthRadius = 6371000.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// BoundingBox is the coordinate envelope of a shape.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// BoundingBox returns the envelope of every coordinate of g.
func (g *Geometry) BoundingBox() BoundingBox {
	bb := BoundingBox{
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
	}
	for _, p := range g.Coords {
		bb.MinLat = math.Min(bb.MinLat, p.Lat)
		bb.MaxLat = math.Max(bb.MaxLat, p.Lat)
		bb.MinLon = math.Min(bb.MinLon, p.Lon)
		bb.MaxLon = math.Max(bb.MaxLon, p.Lon)
	}
	return bb
}

// Representative returns the point itself for POINT and the bounding-box
// center for every other shape.
func (g *Geometry) Representative() Point {
	if g.Kind == KindPoint {
		return g.Coords[0]
	}
	return g.BoundingBox().Center()
}

// Radius returns the distance in meters from the representative point to
// the farthest bounding-box corner. It is 0 for a POINT.
func (g *Geometry) Radius() float64 {
	if g.Kind == KindPoint {
		return 0
	}
	bb := g.BoundingBox()
	c := bb.Center()
	r := 0.0
	for _, corner := range []Point{
		{bb.MinLat, bb.MinLon}, {bb.MinLat, bb.MaxLon},
		{bb.MaxLat, bb.MinLon}, {bb.MaxLat, bb.MaxLon},
	} {
		r = math.Max(r, Haversine(c, corner))
	}
	return r
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PointExpr returns the native point constructor over {prefix}_lat and
// {prefix}_lon.
func PointExpr(prefix string) string {
	return fmt.Sprintf("point({latitude: $%s_lat, longitude: $%s_lon})", prefix, prefix)
}

// ParseToPoint parses wkt and binds {prefix}_lat and {prefix}_lon (plus
// {prefix}_minLat, _maxLat, _minLon, _maxLon for multi-coordinate shapes)
// into params. It returns the native point expression, or false with no
// parameters written when wkt is malformed.
func ParseToPoint(wkt, prefix string, params *ir.Params) (string, bool) {
	g, err := Parse(wkt)
	if err != nil {
		return "", false
	}
	params.Merge(pointParams(g, prefix))
	return PointExpr(prefix), true
}

func pointParams(g *Geometry, prefix string) *ir.Params {
	staged := ir.NewParams()
	p := g.Representative()
	staged.Set(prefix+"_lat", p.Lat)
	staged.Set(prefix+"_lon", p.Lon)
	if g.Kind != KindPoint {
		bb := g.BoundingBox()
		staged.Set(prefix+"_minLat", bb.MinLat)
		staged.Set(prefix+"_maxLat", bb.MaxLat)
		staged.Set(prefix+"_minLon", bb.MinLon)
		staged.Set(prefix+"_maxLon", bb.MaxLon)
	}
	return staged
}

// ExtractLatitude returns the representative latitude of wkt.
func ExtractLatitude(wkt string) (float64, bool) {
	g, err := Parse(wkt)
	if err != nil {
		return 0, false
	}
	return g.Representative().Lat, true
}

// ExtractLongitude returns the representative longitude of wkt.
func ExtractLongitude(wkt string) (float64, bool) {
	g, err := Parse(wkt)
	if err != nil {
		return 0, false
	}
	return g.Representative().Lon, true
}

// ExtractBoundingBox returns the envelope of wkt. A POINT yields a
// degenerate box.
func ExtractBoundingBox(wkt string) (BoundingBox, bool) {
	g, err := Parse(wkt)
	if err != nil {
		return BoundingBox{}, false
	}
	return g.BoundingBox(), true
}
