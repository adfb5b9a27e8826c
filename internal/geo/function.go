package geo

import (
	"fmt"

	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
)

// GeoSPARQL function URIs.
const (
	FunctionNamespace = "http://www.opengis.net/def/function/geosparql/"

	FuncDistance     = FunctionNamespace + "distance"
	FuncSfWithin     = FunctionNamespace + "sfWithin"
	FuncSfContains   = FunctionNamespace + "sfContains"
	FuncSfIntersects = FunctionNamespace + "sfIntersects"
)

// IsFunction reports whether uri names one of the translated geometry functions.
func IsFunction(uri string) bool {
	switch uri {
	case FuncDistance, FuncSfWithin, FuncSfContains, FuncSfIntersects:
		return true
	default:
		return false
	}
}

// TranslateFunction lowers a geometry function call.
//
//	distance(A, B)                      -> distance(pA, pB)
//	sfWithin/sfContains/sfIntersects    -> distance(pA, pB) <= $prefix_radius
//
// Both arguments must be WKT literals; they are bound under {prefix}_0 and
// {prefix}_1. Variables are refused: stored geometries are WKT text, which
// the target's distance function cannot read. The relation radius is the sum
// of the shapes' bounding radii, so two points must coincide.
//
// Unknown functions, a wrong argument count, non-literal arguments and
// malformed WKT return false and write nothing to params.
func TranslateFunction(call queryir.FunctionCall, prefix string, params *ir.Params) (string, bool) {
	if !IsFunction(call.Function) || len(call.Args) != 2 {
		return "", false
	}

	staged := ir.NewParams()
	points := make([]string, 2)
	radius := 0.0
	for i, arg := range call.Args {
		c, ok := arg.(queryir.ConstRef)
		if !ok {
			return "", false
		}
		lit, ok := c.Value.(ir.Literal)
		if !ok {
			return "", false
		}
		g, err := Parse(lit.Lexical)
		if err != nil {
			return "", false
		}
		argPrefix := fmt.Sprintf("%s_%d", prefix, i)
		staged.Merge(pointParams(g, argPrefix))
		points[i] = PointExpr(argPrefix)
		radius += g.Radius()
	}

	out := fmt.Sprintf("distance(%s, %s)", points[0], points[1])
	if call.Function != FuncDistance {
		staged.Set(prefix+"_radius", radius)
		out = fmt.Sprintf("%s <= $%s_radius", out, prefix)
	}
	params.Merge(staged)
	return out, true
}
