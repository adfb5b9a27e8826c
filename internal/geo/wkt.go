package geo

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// --- Participle grammar structs ---
// The grammar covers the four WKT shapes the translator understands. Keywords
// are case-insensitive and any whitespace between tokens is ignored.

// wktLiteral parses: [<crs-iri>] shape
type wktLiteral struct {
	CRS   string    `parser:"@CRS?"`
	Shape *wktShape `parser:"@@"`
}

// wktShape is one of: POINT, LINESTRING, POLYGON, MULTIPOINT.
type wktShape struct {
	Point      *wktCoordList  `parser:"  PointKW @@"`
	LineString *wktCoordList  `parser:"| LineStringKW @@"`
	Polygon    *wktRingList   `parser:"| PolygonKW @@"`
	MultiPoint *wktMultiPoint `parser:"| MultiPointKW @@"`
}

// wktCoordList parses: ( x y [, x y]* )
type wktCoordList struct {
	Coords []wktCoord `parser:"'(' @@ ( ',' @@ )* ')'"`
}

// wktRingList parses: ( (ring) [, (ring)]* )
type wktRingList struct {
	Rings []wktCoordList `parser:"'(' @@ ( ',' @@ )* ')'"`
}

// wktMultiPoint parses both MULTIPOINT ((1 2), (3 4)) and MULTIPOINT (1 2, 3 4).
type wktMultiPoint struct {
	Members []wktMultiPointMember `parser:"'(' @@ ( ',' @@ )* ')'"`
}

type wktMultiPointMember struct {
	Wrapped *wktCoord `parser:"  '(' @@ ')'"`
	Bare    *wktCoord `parser:"| @@"`
}

// wktCoord parses: x y [z]. WKT puts longitude first.
type wktCoord struct {
	X wktNumber  `parser:"@Number"`
	Y wktNumber  `parser:"@Number"`
	Z *wktNumber `parser:"@Number?"`
}

// wktNumber is one ordinate. The lexer takes every adjacent number character
// into a single token, so "1.2.3" or "1-2" fail here instead of splitting
// into two ordinates.
type wktNumber float64

func (n *wktNumber) Capture(values []string) error {
	f, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return fmt.Errorf("invalid ordinate %q", values[0])
	}
	*n = wktNumber(f)
	return nil
}

var wktLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "CRS", Pattern: `<[^>]*>`},
	{Name: "MultiPointKW", Pattern: `(?i)multipoint`},
	{Name: "LineStringKW", Pattern: `(?i)linestring`},
	{Name: "PolygonKW", Pattern: `(?i)polygon`},
	{Name: "PointKW", Pattern: `(?i)point`},
	{Name: "Number", Pattern: `[-+]?[.\d][-+.\deE]*`},
	{Name: "Punct", Pattern: `[(),]`},
})

var wktParser = participle.MustBuild[wktLiteral](
	participle.Lexer(wktLexer),
	participle.Elide("Whitespace"),
)

// Kind names a supported WKT shape.
type Kind string

const (
	KindPoint      Kind = "POINT"
	KindLineString Kind = "LINESTRING"
	KindPolygon    Kind = "POLYGON"
	KindMultiPoint Kind = "MULTIPOINT"
)

// Geometry is a parsed WKT shape reduced to its coordinates.
type Geometry struct {
	Kind   Kind
	CRS    string
	Coords []Point
}

// Parse parses WKT text. Coordinates must be valid longitude/latitude pairs;
// projected coordinates are rejected because the native point is geographic.
func Parse(wkt string) (*Geometry, error) {
	ast, err := wktParser.ParseString("wkt", wkt)
	if err != nil {
		return nil, fmt.Errorf("parse wkt: %w", err)
	}

	g := &Geometry{}
	if ast.CRS != "" {
		g.CRS = ast.CRS[1 : len(ast.CRS)-1]
	}

	shape := ast.Shape
	switch {
	case shape.Point != nil:
		g.Kind = KindPoint
		if len(shape.Point.Coords) != 1 {
			return nil, fmt.Errorf("POINT takes exactly one coordinate, got %d", len(shape.Point.Coords))
		}
		g.Coords = toPoints(shape.Point.Coords)
	case shape.LineString != nil:
		g.Kind = KindLineString
		if len(shape.LineString.Coords) < 2 {
			return nil, fmt.Errorf("LINESTRING needs at least two coordinates")
		}
		g.Coords = toPoints(shape.LineString.Coords)
	case shape.Polygon != nil:
		g.Kind = KindPolygon
		for i, ring := range shape.Polygon.Rings {
			if len(ring.Coords) < 3 {
				return nil, fmt.Errorf("POLYGON ring %d needs at least three coordinates", i)
			}
			g.Coords = append(g.Coords, toPoints(ring.Coords)...)
		}
	case shape.MultiPoint != nil:
		g.Kind = KindMultiPoint
		for _, m := range shape.MultiPoint.Members {
			c := m.Bare
			if m.Wrapped != nil {
				c = m.Wrapped
			}
			g.Coords = append(g.Coords, Point{Lat: float64(c.Y), Lon: float64(c.X)})
		}
	default:
		return nil, fmt.Errorf("empty geometry")
	}

	for _, p := range g.Coords {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return nil, fmt.Errorf("coordinate out of range: lon=%g lat=%g", p.Lon, p.Lat)
		}
	}
	return g, nil
}

func toPoints(coords []wktCoord) []Point {
	out := make([]Point, len(coords))
	for i, c := range coords {
		out[i] = Point{Lat: float64(c.Y), Lon: float64(c.X)}
	}
	return out
}
