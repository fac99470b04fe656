package convert

import (
	"fmt"
	"strings"

	"glc/color"
	"glc/expr"
	"glc/fonts"
	"glc/interp"
	"glc/sprite"
	"glc/style"
)

// Defaults of text properties in style pixels and ems.
const (
	defaultTextSize     = 16.0
	defaultTextMaxWidth = 10.0
)

var defaultFontStack = []string{"Open Sans Regular", "Arial Unicode MS Regular"}

// anchorQuadrant maps text-anchor (side of the text touching the point) to
// label position relative to the point.
var anchorQuadrant = map[string]Quadrant{
	"center":       QuadrantOver,
	"left":         QuadrantRight,
	"right":        QuadrantLeft,
	"top":          QuadrantBelow,
	"bottom":       QuadrantAbove,
	"top-left":     QuadrantBelowRight,
	"top-right":    QuadrantBelowLeft,
	"bottom-left":  QuadrantAboveRight,
	"bottom-right": QuadrantAboveLeft,
}

func buildSymbol(lc *layerContext, rule Rule) ([]Rule, error) {
	l := lc.layer
	if !l.HasPaint && !l.HasLayout {
		return nil, errNoLayout
	}

	var rules []Rule
	if marker := lc.marker(); marker != nil {
		r := rule
		r.Geometry = lc.geometry(GeometryPoint)
		r.Symbol = marker
		rules = append(rules, r)
	}

	label, err := lc.label()
	if err != nil {
		return nil, err
	}
	if label != nil {
		r := rule
		if label.Placement == PlacementCurved {
			r.Geometry = GeometryLine
		} else {
			r.Geometry = lc.geometry(GeometryPoint)
		}
		r.Label = label
		rules = append(rules, r)
	}
	if len(rules) == 0 {
		lc.log.Debug("Symbol layer has neither text nor icon")
	}
	return rules, nil
}

// textField compiles text-field into label expression. Empty string means
// no label.
func (lc *layerContext) textField() string {
	pv, ok := lc.layer.Layout.Get("text-field")
	if !ok {
		return ""
	}
	switch pv.Kind() {
	case style.Constant:
		n, _ := pv.Constant()
		s, ok := n.AsString()
		if !ok {
			lc.warn("text-field: %s is not a string", n)
			return ""
		}
		if len(s) == 0 {
			return ""
		}
		return expr.DecodeTemplate(s)

	case style.ZoomFunction:
		fn, _ := pv.Function()
		stops, err := stringStops(fn)
		if err != nil {
			lc.warn("text-field: %v", err)
			return ""
		}
		return interp.Steps[string]{Stops: stops}.Expression(lc.ctx, expr.DecodeTemplate)

	case style.Expression:
		n, _ := pv.Expression()
		s, err := expr.CompileValue(n, lc.ctx, lc.w, false)
		if err != nil {
			return ""
		}
		return s
	}
	return ""
}

func stringStops(fn style.Function) ([]interp.Stop[string], error) {
	raw := fn.Raw()
	out := make([]interp.Stop[string], 0, len(raw))
	for _, s := range raw {
		v, ok := s.Value.AsString()
		if !ok {
			return nil, fmt.Errorf("stop at zoom %v: %s is not a string", s.Zoom, s.Value)
		}
		out = append(out, interp.Stop[string]{Zoom: s.Zoom, Value: v})
	}
	return out, nil
}

func (lc *layerContext) label() (*Label, error) {
	l := lc.layer
	field := lc.textField()
	if len(field) == 0 {
		return nil, nil
	}
	switch lc.keyword(l.Layout, "text-transform", "none") {
	case "uppercase":
		field = "upper(" + field + ")"
	case "lowercase":
		field = "lower(" + field + ")"
	}

	label := &Label{
		Field:     field,
		Size:      defaultTextSize * lc.pixels(),
		Color:     color.Black,
		Opacity:   1,
		HaloColor: color.Transparent,
		Placement: PlacementPoint,
		MaxWidth:  defaultTextMaxWidth,
	}

	size, err := lc.number(l.Layout, "text-size", defaultTextSize, lc.pixels())
	if err := hard(err); err != nil {
		return nil, err
	}
	sizeExpr := expr.FormatNumber(label.Size)
	if size.IsSet() {
		if size.Const > 0 {
			label.Size = size.Const
		}
		sizeExpr = expr.FormatNumber(label.Size)
		if size.DataDefined() {
			sizeExpr = size.Expr
			label.DataDefined.Set(PropertySize, size.Expr)
		}
	}

	label.Font = lc.font()

	if err := lc.labelColors(label); err != nil {
		return nil, err
	}

	opacity, err := lc.number(l.Paint, "text-opacity", 1, 100)
	if err := hard(err); err != nil {
		return nil, err
	}
	if opacity.IsSet() {
		if opacity.DataDefined() {
			label.DataDefined.Set(PropertyOpacity, opacity.Expr)
		} else {
			label.Opacity = clamp01(opacity.Const / 100)
		}
	}

	spacing, err := lc.number(l.Layout, "text-letter-spacing", 0, 1)
	if err := hard(err); err != nil {
		return nil, err
	}
	if spacing.IsSet() {
		if spacing.DataDefined() || size.DataDefined() {
			spacingExpr := spacing.Expr
			if !spacing.DataDefined() {
				spacingExpr = expr.FormatNumber(spacing.Const)
			}
			label.DataDefined.Set(PropertyFontLetterSpacing, fmt.Sprintf("(%s) * (%s)", spacingExpr, sizeExpr))
		} else {
			label.LetterSpacing = spacing.Const * label.Size
		}
	}

	maxWidth, err := lc.number(l.Layout, "text-max-width", defaultTextMaxWidth, 1)
	if err := hard(err); err != nil {
		return nil, err
	}
	if maxWidth.IsSet() {
		if maxWidth.DataDefined() {
			label.DataDefined.Set(PropertyAutoWrapLength, maxWidth.Expr)
		} else {
			label.MaxWidth = maxWidth.Const
		}
	}

	switch placement := lc.keyword(l.Layout, "symbol-placement", "point"); placement {
	case "line", "line-center":
		label.Placement = PlacementCurved
	case "point":
	default:
		lc.warn("symbol-placement: %q is not supported, using point", placement)
	}

	offset, err := lc.point(l.Layout, "text-offset", label.Size)
	if err := hard(err); err != nil {
		return nil, err
	}
	if offset.IsSet() {
		label.Offset = offset.Const
		if offset.DataDefined() {
			label.DataDefined.Set(PropertyOffset, offset.Expr)
		}
	}

	if label.Placement == PlacementCurved {
		switch y := label.Offset[1]; {
		case y > 0:
			label.BelowLine = true
		case y < 0:
			label.AboveLine = true
		default:
			label.OnLine = true
		}
		return label, nil
	}

	label.Wrap = true
	anchor := lc.keyword(l.Layout, "text-anchor", "center")
	q, ok := anchorQuadrant[anchor]
	if !ok {
		lc.warn("text-anchor: %q is not supported, using center", anchor)
		q = QuadrantOver
	}
	label.Quadrant = q
	return label, nil
}

func (lc *layerContext) labelColors(label *Label) error {
	l := lc.layer

	c, err := lc.color(l.Paint, "text-color")
	if err := hard(err); err != nil {
		return err
	}
	if c.IsSet() {
		label.Color = c.Const
		if c.DataDefined() {
			label.DataDefined.Set(PropertyColor, c.Expr)
		}
	}

	halo, err := lc.color(l.Paint, "text-halo-color")
	if err := hard(err); err != nil {
		return err
	}
	if halo.IsSet() {
		label.HaloColor = halo.Const
		if halo.DataDefined() {
			label.DataDefined.Set(PropertyBufferColor, halo.Expr)
		}
	}

	width, err := lc.number(l.Paint, "text-halo-width", 0, lc.pixels())
	if err := hard(err); err != nil {
		return err
	}
	if width.IsSet() {
		label.HaloSize = width.Const
		if width.DataDefined() {
			label.DataDefined.Set(PropertyBufferSize, width.Expr)
		}
	}
	return nil
}

// font matches text-font stack against catalog.
func (lc *layerContext) font() fonts.Font {
	stack := defaultFontStack
	if pv, ok := lc.layer.Layout.Get("text-font"); ok {
		var n expr.Node
		switch pv.Kind() {
		case style.Constant:
			n, _ = pv.Constant()
		case style.ZoomFunction:
			fn, _ := pv.Function()
			n = fn.Stops[0].Value
			lc.warn("text-font: zoom dependent fonts are not supported, using first stop")
		case style.Expression:
			lc.warn("text-font: data defined fonts are not supported")
		}
		if s, ok := n.Strings(); ok && len(s) > 0 {
			stack = s
		}
	}
	if f, ok := fonts.Match(lc.opts.Fonts, stack); ok {
		return f
	}
	lc.warn("text-font: none of %q is available, using %s", stack, lc.opts.DefaultFont)
	return lc.opts.DefaultFont
}

// marker builds icon symbol from icon-image, nil when layer has no icon.
func (lc *layerContext) marker() *Symbol {
	l := lc.layer
	pv, ok := l.Layout.Get("icon-image")
	if !ok {
		return nil
	}

	sym := &Symbol{Kind: SymbolMarker, Color: color.Transparent, OutlineColor: color.Transparent, Opacity: 1}
	var region sprite.Region
	switch pv.Kind() {
	case style.Constant:
		n, _ := pv.Constant()
		name, ok := n.AsString()
		if !ok || len(name) == 0 {
			lc.warn("icon-image: %s is not a sprite name", n)
			return nil
		}
		if region, ok = lc.icon(name); !ok {
			lc.warn("icon-image: sprite %q not found", name)
			return nil
		}
		if expr.HasTemplate(name) {
			sym.DataDefined.Set(PropertyName, expr.DecodeTemplate(name))
		}

	case style.ZoomFunction:
		fn, _ := pv.Function()
		stops, err := stringStops(fn)
		if err != nil {
			lc.warn("icon-image: %v", err)
			return nil
		}
		found := false
		for _, s := range stops {
			if region, found = lc.icon(s.Value); found {
				break
			}
		}
		if !found {
			lc.warn("icon-image: none of the stops names a known sprite")
			return nil
		}
		sym.DataDefined.Set(PropertyName, interp.Steps[string]{Stops: stops}.Expression(lc.ctx, expr.DecodeTemplate))

	case style.Expression:
		n, _ := pv.Expression()
		s, err := expr.CompileValue(n, lc.ctx, lc.w, false)
		if err != nil {
			return nil
		}
		found := false
		for _, name := range literals(n, nil) {
			if region, found = lc.icon(name); found {
				break
			}
		}
		if !found {
			lc.warn("icon-image: expression does not reference known sprite")
			return nil
		}
		sym.DataDefined.Set(PropertyName, s)
	}
	sym.Icon = &region

	iconWidth, _ := region.Size()
	sym.Size = iconWidth * lc.pixels()

	scale, err := lc.number(l.Layout, "icon-size", 1, 1)
	if err == nil && scale.IsSet() {
		if scale.DataDefined() {
			if sym.Size > 0 {
				sym.DataDefined.Set(PropertySize, scaled(scale.Expr, sym.Size))
			}
		} else {
			sym.Size *= scale.Const
		}
	}

	opacity, err := lc.number(l.Paint, "icon-opacity", 1, 1)
	if err == nil && opacity.IsSet() {
		if opacity.DataDefined() {
			sym.DataDefined.Set(PropertyOpacity, opacity.Expr)
		} else {
			sym.Opacity = clamp01(opacity.Const)
		}
	}
	return sym
}

// literals collects string literals of expression which may name sprites.
// Attribute names are skipped, concat of literals and attributes becomes
// {field} template.
func literals(n expr.Node, out []string) []string {
	switch n.Kind() {
	case expr.KindString:
		s, _ := n.AsString()
		return append(out, s)
	case expr.KindArray:
		switch n.Op() {
		case "get", "has":
			return out
		case "concat":
			if tmpl, ok := concatTemplate(n.Args()); ok {
				out = append(out, tmpl)
			}
		}
		for _, item := range n.Items() {
			out = literals(item, out)
		}
	}
	return out
}

func concatTemplate(args []expr.Node) (string, bool) {
	var b strings.Builder
	for _, a := range args {
		if s, ok := a.AsString(); ok {
			b.WriteString(s)
			continue
		}
		if a.Op() != "get" || a.Len() != 2 {
			return "", false
		}
		name, ok := a.Index(1).AsString()
		if !ok {
			return "", false
		}
		b.WriteString("{" + name + "}")
	}
	return b.String(), true
}
