// Package interp compiles zoom keyed stop functions into expressions of the
// target language. Every function can also be evaluated directly with At,
// which follows the exact semantics encoded by Expression.
//
// Stops must be sorted by zoom in ascending order.
package interp

import (
	"fmt"
	"math"
	"strings"

	"glc/color"
	"glc/expr"
)

// Stop is a single zoom keyed value.
type Stop[T any] struct {
	Zoom  float64
	Value T
}

// segment computes value of one interpolation segment, zoom is clamped to
// the segment range.
func segment(z, z0, z1, v0, v1, base float64) float64 {
	if v0 == v1 {
		return v0
	}
	switch {
	case z <= z0:
		return v0
	case z >= z1:
		return v1
	}
	if base == 1 {
		return v0 + (v1-v0)*(z-z0)/(z1-z0)
	}
	return v0 + (v1-v0)*(math.Pow(base, z-z0)-1)/(math.Pow(base, z1-z0)-1)
}

func segmentExpression(zoom string, z0, z1, v0, v1, base float64) string {
	return expr.Segment(zoom, z0, z1, v0, v1, base)
}

// ladder evaluates piecewise function: value of the first stop below range,
// segment functions inside and value of the last stop above.
func ladder(z float64, zooms []float64, first, last float64, seg func(i int) float64) float64 {
	if z <= zooms[0] {
		return first
	}
	for i := 0; i < len(zooms)-1; i++ {
		if z <= zooms[i+1] {
			return seg(i)
		}
	}
	return last
}

// ladderExpression renders the same piecewise function as ladder.
func ladderExpression(zoom string, zooms []float64, first, last string, seg func(i int) string) string {
	if len(zooms) == 2 {
		return seg(0)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CASE WHEN %s <= %s THEN %s", zoom, expr.FormatNumber(zooms[0]), first)
	for i := 0; i < len(zooms)-1; i++ {
		fmt.Fprintf(&b, " WHEN %s <= %s THEN %s", zoom, expr.FormatNumber(zooms[i+1]), seg(i))
	}
	fmt.Fprintf(&b, " ELSE %s END", last)
	return b.String()
}

func zoomsOf[T any](stops []Stop[T]) []float64 {
	out := make([]float64, len(stops))
	for i, s := range stops {
		out[i] = s.Zoom
	}
	return out
}

func baseOrLinear(base float64) float64 {
	if base <= 0 {
		return 1
	}
	return base
}

// Numeric interpolates numbers, every value is scaled by Multiplier.
type Numeric struct {
	Stops      []Stop[float64]
	Base       float64
	Multiplier float64
}

// NewNumeric returns numeric interpolation. Zero multiplier means 1.
func NewNumeric(stops []Stop[float64], base, multiplier float64) Numeric {
	if multiplier == 0 {
		multiplier = 1
	}
	return Numeric{Stops: stops, Base: baseOrLinear(base), Multiplier: multiplier}
}

func (f Numeric) value(i int) float64 {
	return f.Stops[i].Value * f.Multiplier
}

// At evaluates function at zoom z.
func (f Numeric) At(z float64) float64 {
	n := len(f.Stops)
	switch n {
	case 0:
		return 0
	case 1:
		return f.value(0)
	}
	return ladder(z, zoomsOf(f.Stops), f.value(0), f.value(n-1), func(i int) float64 {
		return segment(z, f.Stops[i].Zoom, f.Stops[i+1].Zoom, f.value(i), f.value(i+1), f.Base)
	})
}

// Expression renders function.
func (f Numeric) Expression(ctx expr.Context) string {
	n := len(f.Stops)
	switch n {
	case 0:
		return "NULL"
	case 1:
		return expr.FormatNumber(f.value(0))
	}
	zoom := ctx.Zoom()
	return ladderExpression(zoom, zoomsOf(f.Stops), expr.FormatNumber(f.value(0)), expr.FormatNumber(f.value(n-1)), func(i int) string {
		return segmentExpression(zoom, f.Stops[i].Zoom, f.Stops[i+1].Zoom, f.value(i), f.value(i+1), f.Base)
	})
}

// Constant reports if all stops share the same value.
func (f Numeric) Constant() (float64, bool) {
	if len(f.Stops) == 0 {
		return 0, false
	}
	for _, s := range f.Stops[1:] {
		if s.Value != f.Stops[0].Value {
			return 0, false
		}
	}
	return f.value(0), true
}

// Color interpolates colors in HSL space, every channel independently.
type Color struct {
	Stops []Stop[color.RGBA]
	Base  float64
}

func NewColor(stops []Stop[color.RGBA], base float64) Color {
	return Color{Stops: stops, Base: baseOrLinear(base)}
}

type hsla [4]float64

func (f Color) channels() []hsla {
	out := make([]hsla, len(f.Stops))
	for i, s := range f.Stops {
		h, sat, l, a := s.Value.HSLA()
		out[i] = hsla{h, sat, l, a}
	}
	return out
}

// At evaluates function at zoom z.
func (f Color) At(z float64) color.RGBA {
	n := len(f.Stops)
	switch n {
	case 0:
		return color.Transparent
	case 1:
		return f.Stops[0].Value
	}
	ch := f.channels()
	var res hsla
	for c := range res {
		res[c] = ladder(z, zoomsOf(f.Stops), ch[0][c], ch[n-1][c], func(i int) float64 {
			return segment(z, f.Stops[i].Zoom, f.Stops[i+1].Zoom, ch[i][c], ch[i+1][c], f.Base)
		})
	}
	return color.FromHSLA(res[0], res[1], res[2], res[3])
}

func hslaExpression(parts [4]string) string {
	return "color_hsla(" + strings.Join(parts[:], ", ") + ")"
}

func constantHSLA(v hsla) string {
	return hslaExpression([4]string{
		expr.FormatNumber(math.Round(v[0])), expr.FormatNumber(math.Round(v[1])),
		expr.FormatNumber(math.Round(v[2])), expr.FormatNumber(math.Round(v[3])),
	})
}

// Expression renders function.
func (f Color) Expression(ctx expr.Context) string {
	n := len(f.Stops)
	switch n {
	case 0:
		return "NULL"
	case 1:
		return f.Stops[0].Value.Expression()
	}
	zoom := ctx.Zoom()
	ch := f.channels()
	return ladderExpression(zoom, zoomsOf(f.Stops), constantHSLA(ch[0]), constantHSLA(ch[n-1]), func(i int) string {
		var parts [4]string
		for c := range parts {
			parts[c] = segmentExpression(zoom, f.Stops[i].Zoom, f.Stops[i+1].Zoom, ch[i][c], ch[i+1][c], f.Base)
		}
		return hslaExpression(parts)
	})
}

// Opacity interpolates alpha channel only and applies it to the color
// already resolved for the symbol.
type Opacity struct {
	alpha Numeric
}

// NewOpacity returns opacity interpolation, stop values are 0-1 and are
// scaled to 0-maxAlpha.
func NewOpacity(stops []Stop[float64], base float64, maxAlpha uint8) Opacity {
	return Opacity{alpha: NewNumeric(stops, base, float64(maxAlpha))}
}

// At returns alpha (0-255) at zoom z.
func (f Opacity) At(z float64) float64 {
	return f.alpha.At(z)
}

func (f Opacity) Expression(ctx expr.Context) string {
	return fmt.Sprintf("set_color_part(@symbol_color, 'alpha', %s)", f.alpha.Expression(ctx))
}

// Point interpolates x and y independently.
type Point struct {
	x, y Numeric
}

func NewPoint(stops []Stop[[2]float64], base, multiplier float64) Point {
	xs := make([]Stop[float64], len(stops))
	ys := make([]Stop[float64], len(stops))
	for i, s := range stops {
		xs[i] = Stop[float64]{Zoom: s.Zoom, Value: s.Value[0]}
		ys[i] = Stop[float64]{Zoom: s.Zoom, Value: s.Value[1]}
	}
	return Point{x: NewNumeric(xs, base, multiplier), y: NewNumeric(ys, base, multiplier)}
}

func (f Point) At(z float64) [2]float64 {
	return [2]float64{f.x.At(z), f.y.At(z)}
}

func (f Point) Expression(ctx expr.Context) string {
	return fmt.Sprintf("array(%s, %s)", f.x.Expression(ctx), f.y.Expression(ctx))
}

// Steps is discrete function, value of a stop holds until the next one.
type Steps[T any] struct {
	Stops []Stop[T]
}

// At returns value in effect at zoom z.
func (f Steps[T]) At(z float64) T {
	var zero T
	if len(f.Stops) == 0 {
		return zero
	}
	v := f.Stops[0].Value
	for _, s := range f.Stops[1:] {
		if z < s.Zoom {
			break
		}
		v = s.Value
	}
	return v
}

// Expression renders function, render converts single value.
func (f Steps[T]) Expression(ctx expr.Context, render func(T) string) string {
	switch len(f.Stops) {
	case 0:
		return "NULL"
	case 1:
		return render(f.Stops[0].Value)
	}
	var b strings.Builder
	b.WriteString("CASE")
	for i := 1; i < len(f.Stops); i++ {
		fmt.Fprintf(&b, " WHEN %s < %s THEN %s", ctx.Zoom(), expr.FormatNumber(f.Stops[i].Zoom), render(f.Stops[i-1].Value))
	}
	fmt.Fprintf(&b, " ELSE %s END", render(f.Stops[len(f.Stops)-1].Value))
	return b.String()
}
