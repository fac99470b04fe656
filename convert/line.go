package convert

import (
	"fmt"
	"strings"

	"glc/color"
	"glc/expr"
	"glc/interp"
	"glc/style"
)

var (
	lineCaps  = map[string]string{"butt": "flat", "round": "round", "square": "square"}
	lineJoins = map[string]string{"miter": "miter", "round": "round", "bevel": "bevel"}
)

func buildLine(lc *layerContext, rule Rule) ([]Rule, error) {
	l := lc.layer
	if !l.HasPaint {
		return nil, errNoPaint
	}

	sym := &Symbol{Kind: SymbolLine, Color: color.Black, Opacity: 1, Width: lc.pixels()}

	c, err := lc.color(l.Paint, "line-color")
	if err := hard(err); err != nil {
		return nil, err
	}
	if c.IsSet() {
		sym.Color = c.Const
		if c.DataDefined() {
			sym.DataDefined.Set(PropertyStrokeColor, c.Expr)
		}
	}
	sym.OutlineColor = sym.Color

	width, err := lc.number(l.Paint, "line-width", 1, lc.pixels())
	if err := hard(err); err != nil {
		return nil, err
	}
	if width.IsSet() {
		sym.Width = width.Const
		if width.DataDefined() {
			sym.DataDefined.Set(PropertyStrokeWidth, width.Expr)
		}
	} else {
		width = constant(sym.Width)
	}

	offset, err := lc.number(l.Paint, "line-offset", 0, lc.pixels())
	if err := hard(err); err != nil {
		return nil, err
	}
	if offset.IsSet() {
		sym.LineOffset = offset.Const
		if offset.DataDefined() {
			sym.DataDefined.Set(PropertyOffset, offset.Expr)
		}
	}

	lc.applyOpacity(sym, "line-opacity", c.DataDefined())

	sym.Cap = lineCaps[lc.keyword(l.Layout, "line-cap", "butt")]
	if len(sym.Cap) == 0 {
		lc.warn("line-cap: unknown value, using butt")
		sym.Cap = lineCaps["butt"]
	}
	sym.Join = lineJoins[lc.keyword(l.Layout, "line-join", "miter")]
	if len(sym.Join) == 0 {
		lc.warn("line-join: unknown value, using miter")
		sym.Join = lineJoins["miter"]
	}

	lc.dashes(sym, width)

	if region, ok := lc.pattern(l.Paint, "line-pattern"); ok {
		sym.Pattern = &region
	}

	rule.Geometry = GeometryLine
	rule.Symbol = sym
	return []Rule{rule}, nil
}

// dashes resolves line-dasharray. Dash lengths are in line widths.
func (lc *layerContext) dashes(sym *Symbol, width value[float64]) {
	pv, ok := lc.layer.Paint.Get("line-dasharray")
	if !ok {
		return
	}
	widthExpr := expr.FormatNumber(width.Const)
	if width.DataDefined() {
		widthExpr = width.Expr
	}
	scaledDash := func(dash string) string {
		return fmt.Sprintf("array_to_string(array_foreach(%s, @element * (%s)), ';')", dash, widthExpr)
	}

	switch pv.Kind() {
	case style.Constant:
		n, _ := pv.Constant()
		v, ok := n.Numbers()
		if !ok || len(v) == 0 {
			lc.warn("line-dasharray: %s is not a numeric array", n)
			return
		}
		sym.Dash = scaleVector(v, width.Const)
		if width.DataDefined() {
			sym.DataDefined.Set(PropertyCustomDash, scaledDash(vectorExpression(v)))
		}

	case style.ZoomFunction:
		fn, _ := pv.Function()
		stops, err := fn.Vectors()
		if err != nil {
			lc.warn("line-dasharray: %v", err)
			return
		}
		sym.Dash = scaleVector(stops[0].Value, width.Const)
		steps := interp.Steps[[]float64]{Stops: stops}
		if width.DataDefined() {
			sym.DataDefined.Set(PropertyCustomDash, steps.Expression(lc.ctx, func(v []float64) string {
				return scaledDash(vectorExpression(v))
			}))
			return
		}
		for _, s := range stops {
			sym.DashByZoom = append(sym.DashByZoom, ZoomDash{Zoom: s.Zoom, Dash: scaleVector(s.Value, width.Const)})
		}
		sym.DataDefined.Set(PropertyCustomDash, steps.Expression(lc.ctx, func(v []float64) string {
			return dashString(scaleVector(v, width.Const))
		}))

	case style.Expression:
		n, _ := pv.Expression()
		e, err := expr.CompileValue(n, lc.ctx, lc.w, false)
		if err != nil {
			return
		}
		sym.DataDefined.Set(PropertyCustomDash, scaledDash(e))
	}
}

func scaleVector(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

func vectorExpression(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = expr.FormatNumber(f)
	}
	return "array(" + strings.Join(parts, ", ") + ")"
}

// dashString renders dash vector the way sinks expect custom dash strings.
func dashString(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = expr.FormatNumber(f)
	}
	return expr.QuotedString(strings.Join(parts, ";"))
}
