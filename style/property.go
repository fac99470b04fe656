package style

import (
	"fmt"

	"glc/color"
	"glc/expr"
	"glc/interp"
)

// ValueKind tells how property value is computed.
type ValueKind int

const (
	// Constant value, same for every feature and zoom.
	Constant ValueKind = iota
	// ZoomFunction value depends on zoom level only.
	ZoomFunction
	// Expression value is computed per feature.
	Expression
)

func (k ValueKind) String() string {
	switch k {
	case Constant:
		return "constant"
	case ZoomFunction:
		return "zoom-function"
	case Expression:
		return "expression"
	}
	return fmt.Sprintf("value-kind(%d)", int(k))
}

// Stop is a zoom keyed raw value.
type Stop struct {
	Zoom  float64
	Value expr.Node
}

// Function describes zoom function.
type Function struct {
	Stops []Stop
	Base  float64
	// Interval functions are discrete, no interpolation between stops.
	Interval bool
}

// PropertyValue is classified once when the document is parsed, consumers
// switch on Kind.
type PropertyValue struct {
	kind ValueKind
	node expr.Node
	fn   Function
}

func NewConstant(n expr.Node) PropertyValue { return PropertyValue{kind: Constant, node: n} }
func NewExpression(n expr.Node) PropertyValue { return PropertyValue{kind: Expression, node: n} }
func NewZoomFunction(fn Function) PropertyValue { return PropertyValue{kind: ZoomFunction, fn: fn} }

func (v PropertyValue) Kind() ValueKind { return v.kind }

// Constant returns constant value.
func (v PropertyValue) Constant() (expr.Node, bool) {
	return v.node, v.kind == Constant
}

// Expression returns expression node.
func (v PropertyValue) Expression() (expr.Node, bool) {
	return v.node, v.kind == Expression
}

// Function returns zoom function.
func (v PropertyValue) Function() (Function, bool) {
	return v.fn, v.kind == ZoomFunction
}

// Classify decides how value of a property is computed.
func Classify(n expr.Node) PropertyValue {
	switch n.Kind() {
	case expr.KindObject:
		return classifyObject(n)
	case expr.KindArray:
		return classifyArray(n)
	}
	return NewConstant(n)
}

func classifyObject(n expr.Node) PropertyValue {
	stopsNode, hasStops := n.Field("stops")
	prop, hasProperty := n.Field("property")
	if !hasStops && !hasProperty {
		return NewConstant(n)
	}
	typ, _ := n.Field("type")
	kind, _ := typ.AsString()
	base := 1.0
	if b, ok := n.Field("base"); ok {
		if f, ok := b.AsNumber(); ok {
			base = f
		}
	}

	// identity functions have no stops
	if hasProperty {
		name, _ := prop.AsString()
		if e, ok := propertyFunction(name, kind, base, stopsNode, n); ok {
			return NewExpression(e)
		}
		return NewExpression(n)
	}

	fn := Function{Base: base, Interval: kind == "interval" || kind == "categorical"}
	for _, s := range stopsNode.Items() {
		z, ok := s.Index(0).AsNumber()
		if !ok || s.Len() != 2 {
			// zoom-and-property stops
			return NewExpression(n)
		}
		fn.Stops = append(fn.Stops, Stop{Zoom: z, Value: s.Index(1)})
	}
	if len(fn.Stops) == 0 {
		return NewExpression(n)
	}
	return NewZoomFunction(fn)
}

// propertyFunction rewrites legacy data driven function into equivalent
// expression.
func propertyFunction(name, kind string, base float64, stops, fn expr.Node) (expr.Node, bool) {
	if len(name) == 0 {
		return expr.Node{}, false
	}
	input := expr.NewExpression("get", expr.NewString(name))
	if kind == "identity" {
		return input, true
	}
	if stops.Len() == 0 {
		return expr.Node{}, false
	}

	args := []expr.Node{input}
	switch kind {
	case "categorical":
		for _, s := range stops.Items() {
			args = append(args, s.Index(0), s.Index(1))
		}
		def, ok := fn.Field("default")
		if !ok {
			def = expr.NewNull()
		}
		return expr.NewExpression("match", append(args, def)...), true
	case "interval":
		args = append(args, stops.Index(0).Index(1))
		for _, s := range stops.Items()[1:] {
			args = append(args, s.Index(0), s.Index(1))
		}
		return expr.NewExpression("step", args...), true
	}
	interpolation := expr.NewExpression("linear")
	if base != 1 {
		interpolation = expr.NewExpression("exponential", expr.NewNumber(base))
	}
	args = append([]expr.Node{interpolation}, args...)
	for _, s := range stops.Items() {
		args = append(args, s.Index(0), s.Index(1))
	}
	return expr.NewExpression("interpolate", args...), true
}

func isZoom(n expr.Node) bool {
	return n.Op() == "zoom" && n.Len() == 1
}

func classifyArray(n expr.Node) PropertyValue {
	args := n.Args()
	switch n.Op() {
	case "literal":
		if len(args) == 1 {
			return NewConstant(args[0])
		}
	case "interpolate":
		if len(args) >= 4 && len(args)%2 == 0 && isZoom(args[1]) {
			base, ok := interpolationBase(args[0])
			if !ok {
				break
			}
			if fn, ok := collectStops(args[2:], base, false); ok {
				return NewZoomFunction(fn)
			}
		}
	case "step":
		if len(args) >= 2 && len(args)%2 == 0 && isZoom(args[0]) {
			pairs := append([]expr.Node{expr.NewNumber(0)}, args[1:]...)
			if fn, ok := collectStops(pairs, 1, true); ok {
				return NewZoomFunction(fn)
			}
		}
	}
	if expr.IsExpression(n) {
		return NewExpression(n)
	}
	return NewConstant(n)
}

func interpolationBase(kind expr.Node) (float64, bool) {
	switch kind.Op() {
	case "linear", "cubic-bezier":
		return 1, true
	case "exponential":
		return kind.Index(1).AsNumber()
	}
	return 0, false
}

func collectStops(pairs []expr.Node, base float64, interval bool) (Function, bool) {
	fn := Function{Base: base, Interval: interval}
	for i := 0; i+1 < len(pairs); i += 2 {
		z, ok := pairs[i].AsNumber()
		if !ok {
			return Function{}, false
		}
		v := pairs[i+1]
		if v.Op() == "literal" {
			v = v.Index(1)
		} else if expr.IsExpression(v) {
			return Function{}, false
		}
		fn.Stops = append(fn.Stops, Stop{Zoom: z, Value: v})
	}
	return fn, len(fn.Stops) > 0
}

// Numbers returns stops with numeric values.
func (f Function) Numbers() ([]interp.Stop[float64], error) {
	out := make([]interp.Stop[float64], 0, len(f.Stops))
	for _, s := range f.Stops {
		v, ok := s.Value.AsNumber()
		if !ok {
			return nil, fmt.Errorf("stop at zoom %v: %s is not a number", s.Zoom, s.Value)
		}
		out = append(out, interp.Stop[float64]{Zoom: s.Zoom, Value: v})
	}
	return out, nil
}

// Colors returns stops with color values.
func (f Function) Colors() ([]interp.Stop[color.RGBA], error) {
	out := make([]interp.Stop[color.RGBA], 0, len(f.Stops))
	for _, s := range f.Stops {
		text, ok := s.Value.AsString()
		if !ok {
			return nil, fmt.Errorf("stop at zoom %v: %s is not a color", s.Zoom, s.Value)
		}
		c, err := color.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("stop at zoom %v: %w", s.Zoom, err)
		}
		out = append(out, interp.Stop[color.RGBA]{Zoom: s.Zoom, Value: c})
	}
	return out, nil
}

// Points returns stops with 2 element numeric arrays.
func (f Function) Points() ([]interp.Stop[[2]float64], error) {
	out := make([]interp.Stop[[2]float64], 0, len(f.Stops))
	for _, s := range f.Stops {
		v, ok := s.Value.Numbers()
		if !ok || len(v) != 2 {
			return nil, fmt.Errorf("stop at zoom %v: %s is not a point", s.Zoom, s.Value)
		}
		out = append(out, interp.Stop[[2]float64]{Zoom: s.Zoom, Value: [2]float64{v[0], v[1]}})
	}
	return out, nil
}

// Vectors returns stops with numeric array values.
func (f Function) Vectors() ([]interp.Stop[[]float64], error) {
	out := make([]interp.Stop[[]float64], 0, len(f.Stops))
	for _, s := range f.Stops {
		v, ok := s.Value.Numbers()
		if !ok {
			return nil, fmt.Errorf("stop at zoom %v: %s is not a numeric array", s.Zoom, s.Value)
		}
		out = append(out, interp.Stop[[]float64]{Zoom: s.Zoom, Value: v})
	}
	return out, nil
}

// Raw returns stops as they are.
func (f Function) Raw() []interp.Stop[expr.Node] {
	out := make([]interp.Stop[expr.Node], 0, len(f.Stops))
	for _, s := range f.Stops {
		out = append(out, interp.Stop[expr.Node]{Zoom: s.Zoom, Value: s.Value})
	}
	return out
}
