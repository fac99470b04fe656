package convert

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"glc/color"
	"glc/expr"
	"glc/interp"
	"glc/style"
)

// value is property resolved either to constant or to data defined
// expression. Const is also set for data defined values and holds value at
// the lowest zoom, sinks use it as a fallback.
type value[T any] struct {
	Const T
	Expr  string
	set   bool
}

func constant[T any](v T) value[T] {
	return value[T]{Const: v, set: true}
}

func dataDefined[T any](fallback T, expression string) value[T] {
	return value[T]{Const: fallback, Expr: expression, set: true}
}

func (v value[T]) IsSet() bool       { return v.set }
func (v value[T]) DataDefined() bool { return len(v.Expr) > 0 }

// layerContext holds everything needed to compile a single layer.
type layerContext struct {
	layer *style.Layer
	ctx   expr.Context
	w     *expr.Warnings
	opts  *Options
	log   *zap.Logger
}

func (lc *layerContext) warn(format string, args ...any) {
	lc.w.Add(lc.ctx, format, args...)
}

func (lc *layerContext) unsupported(format string, args ...any) error {
	return expr.Unsupported(lc.ctx, lc.w, format, args...)
}

// soft reports if error is a soft failure: warning is already recorded and
// property must be skipped.
func soft(err error) bool {
	return errors.Is(err, expr.ErrUnsupported)
}

// pixels is scale converting style pixels into render units.
func (lc *layerContext) pixels() float64 {
	return lc.ctx.Pixels(1)
}

func scaled(expression string, k float64) string {
	if k == 1 {
		return expression
	}
	return fmt.Sprintf("(%s) * %s", expression, expr.FormatNumber(k))
}

func (lc *layerContext) color(props style.Properties, name string) (value[color.RGBA], error) {
	pv, ok := props.Get(name)
	if !ok {
		return value[color.RGBA]{}, nil
	}
	switch pv.Kind() {
	case style.Constant:
		n, _ := pv.Constant()
		s, ok := n.AsString()
		if !ok {
			return value[color.RGBA]{}, lc.unsupported("%s: %s is not a color", name, n)
		}
		c, err := color.Parse(s)
		if err != nil {
			return value[color.RGBA]{}, fmt.Errorf("%s: %w", name, err)
		}
		return constant(c), nil

	case style.ZoomFunction:
		fn, _ := pv.Function()
		stops, err := fn.Colors()
		if err != nil {
			var cerr *color.Error
			if errors.As(err, &cerr) {
				return value[color.RGBA]{}, fmt.Errorf("%s: %w", name, err)
			}
			return value[color.RGBA]{}, lc.unsupported("%s: %v", name, err)
		}
		if sameValues(stops) {
			return constant(stops[0].Value), nil
		}
		if fn.Interval {
			steps := interp.Steps[color.RGBA]{Stops: stops}
			return dataDefined(stops[0].Value, steps.Expression(lc.ctx, color.RGBA.Expression)), nil
		}
		return dataDefined(stops[0].Value, interp.NewColor(stops, fn.Base).Expression(lc.ctx)), nil

	case style.Expression:
		n, _ := pv.Expression()
		s, err := expr.CompileValue(n, lc.ctx, lc.w, true)
		if err != nil {
			return value[color.RGBA]{}, err
		}
		return dataDefined(color.Transparent, s), nil
	}
	return value[color.RGBA]{}, nil
}

func sameValues[T comparable](stops []interp.Stop[T]) bool {
	for _, s := range stops[1:] {
		if s.Value != stops[0].Value {
			return false
		}
	}
	return true
}

// number resolves numeric property, every value is multiplied by k. Data
// defined expressions fall back to def * k when feature value is unknown.
func (lc *layerContext) number(props style.Properties, name string, def, k float64) (value[float64], error) {
	pv, ok := props.Get(name)
	if !ok {
		return value[float64]{}, nil
	}
	switch pv.Kind() {
	case style.Constant:
		n, _ := pv.Constant()
		f, ok := n.AsNumber()
		if !ok {
			return value[float64]{}, lc.unsupported("%s: %s is not a number", name, n)
		}
		return constant(f * k), nil

	case style.ZoomFunction:
		fn, _ := pv.Function()
		stops, err := fn.Numbers()
		if err != nil {
			return value[float64]{}, lc.unsupported("%s: %v", name, err)
		}
		if fn.Interval {
			for i := range stops {
				stops[i].Value *= k
			}
			if sameValues(stops) {
				return constant(stops[0].Value), nil
			}
			steps := interp.Steps[float64]{Stops: stops}
			return dataDefined(stops[0].Value, steps.Expression(lc.ctx, expr.FormatNumber)), nil
		}
		f := interp.NewNumeric(stops, fn.Base, k)
		if c, ok := f.Constant(); ok {
			return constant(c), nil
		}
		return dataDefined(f.At(stops[0].Zoom), f.Expression(lc.ctx)), nil

	case style.Expression:
		n, _ := pv.Expression()
		s, err := expr.CompileValue(n, lc.ctx, lc.w, false)
		if err != nil {
			return value[float64]{}, err
		}
		return dataDefined(def*k, scaled(s, k)), nil
	}
	return value[float64]{}, nil
}

// opacity resolves opacity property. Data defined opacity is applied to the
// alpha channel of already resolved symbol color, maxAlpha is alpha of that
// color.
func (lc *layerContext) opacity(props style.Properties, name string, maxAlpha uint8) (value[float64], error) {
	pv, ok := props.Get(name)
	if !ok {
		return value[float64]{}, nil
	}
	switch pv.Kind() {
	case style.Constant:
		n, _ := pv.Constant()
		f, ok := n.AsNumber()
		if !ok {
			return value[float64]{}, lc.unsupported("%s: %s is not a number", name, n)
		}
		return constant(clamp01(f)), nil

	case style.ZoomFunction:
		fn, _ := pv.Function()
		stops, err := fn.Numbers()
		if err != nil {
			return value[float64]{}, lc.unsupported("%s: %v", name, err)
		}
		if sameValues(stops) {
			return constant(clamp01(stops[0].Value)), nil
		}
		if fn.Interval {
			alpha := make([]interp.Stop[float64], len(stops))
			for i, s := range stops {
				alpha[i] = interp.Stop[float64]{Zoom: s.Zoom, Value: clamp01(s.Value) * float64(maxAlpha)}
			}
			steps := interp.Steps[float64]{Stops: alpha}
			return dataDefined(stops[0].Value, setAlpha(steps.Expression(lc.ctx, expr.FormatNumber))), nil
		}
		return dataDefined(stops[0].Value, interp.NewOpacity(stops, fn.Base, maxAlpha).Expression(lc.ctx)), nil

	case style.Expression:
		n, _ := pv.Expression()
		s, err := expr.CompileValue(n, lc.ctx, lc.w, false)
		if err != nil {
			return value[float64]{}, err
		}
		return dataDefined(1.0, setAlpha(scaled(s, float64(maxAlpha)))), nil
	}
	return value[float64]{}, nil
}

func setAlpha(alpha string) string {
	return fmt.Sprintf("set_color_part(@symbol_color, 'alpha', %s)", alpha)
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// point resolves 2 element numeric array property, every component is
// multiplied by k.
func (lc *layerContext) point(props style.Properties, name string, k float64) (value[[2]float64], error) {
	pv, ok := props.Get(name)
	if !ok {
		return value[[2]float64]{}, nil
	}
	switch pv.Kind() {
	case style.Constant:
		n, _ := pv.Constant()
		v, ok := n.Numbers()
		if !ok || len(v) != 2 {
			return value[[2]float64]{}, lc.unsupported("%s: %s is not a point", name, n)
		}
		return constant([2]float64{v[0] * k, v[1] * k}), nil

	case style.ZoomFunction:
		fn, _ := pv.Function()
		stops, err := fn.Points()
		if err != nil {
			return value[[2]float64]{}, lc.unsupported("%s: %v", name, err)
		}
		first := [2]float64{stops[0].Value[0] * k, stops[0].Value[1] * k}
		if sameValues(stops) {
			return constant(first), nil
		}
		if fn.Interval {
			steps := interp.Steps[[2]float64]{Stops: stops}
			return dataDefined(first, steps.Expression(lc.ctx, func(p [2]float64) string {
				return fmt.Sprintf("array(%s, %s)", expr.FormatNumber(p[0]*k), expr.FormatNumber(p[1]*k))
			})), nil
		}
		return dataDefined(first, interp.NewPoint(stops, fn.Base, k).Expression(lc.ctx)), nil

	case style.Expression:
		n, _ := pv.Expression()
		s, err := expr.CompileValue(n, lc.ctx, lc.w, false)
		if err != nil {
			return value[[2]float64]{}, err
		}
		if k != 1 {
			s = fmt.Sprintf("array_foreach(%s, @element * %s)", s, expr.FormatNumber(k))
		}
		return dataDefined([2]float64{}, s), nil
	}
	return value[[2]float64]{}, nil
}

// keyword resolves enumeration property. Zoom dependent keywords take value
// of the first stop, expressions are not supported.
func (lc *layerContext) keyword(props style.Properties, name, def string) string {
	pv, ok := props.Get(name)
	if !ok {
		return def
	}
	var n expr.Node
	switch pv.Kind() {
	case style.Constant:
		n, _ = pv.Constant()
	case style.ZoomFunction:
		fn, _ := pv.Function()
		n = fn.Stops[0].Value
		lc.warn("%s: zoom dependent value is not supported, using %s", name, n)
	case style.Expression:
		lc.warn("%s: data defined value is not supported, using %q", name, def)
		return def
	}
	s, ok := n.AsString()
	if !ok {
		lc.warn("%s: %s is not a keyword, using %q", name, n, def)
		return def
	}
	return strings.ToLower(s)
}
