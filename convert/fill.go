package convert

import (
	"errors"

	"glc/color"
	"glc/sprite"
	"glc/style"
)

var (
	errNoPaint  = errors.New("layer has no paint section")
	errNoLayout = errors.New("layer has neither paint nor layout section")
)

// hard filters out soft failures, those are already recorded as warnings.
func hard(err error) error {
	if err == nil || soft(err) {
		return nil
	}
	return err
}

func buildFill(lc *layerContext, rule Rule) ([]Rule, error) {
	l := lc.layer
	if !l.HasPaint {
		return nil, errNoPaint
	}

	sym := &Symbol{Kind: SymbolFill, Color: color.Black, Opacity: 1}

	fill, err := lc.color(l.Paint, "fill-color")
	if err := hard(err); err != nil {
		return nil, err
	}
	if fill.IsSet() {
		sym.Color = fill.Const
		if fill.DataDefined() {
			sym.DataDefined.Set(PropertyFillColor, fill.Expr)
		}
	}

	outline, err := lc.color(l.Paint, "fill-outline-color")
	if err := hard(err); err != nil {
		return nil, err
	}
	switch {
	case !outline.IsSet():
		sym.OutlineColor = sym.Color
		if fill.DataDefined() {
			sym.DataDefined.Set(PropertyStrokeColor, fill.Expr)
		}
	case outline.DataDefined():
		sym.OutlineColor = outline.Const
		sym.DataDefined.Set(PropertyStrokeColor, outline.Expr)
	default:
		sym.OutlineColor = outline.Const
	}

	if lc.applyOpacity(sym, "fill-opacity", fill.DataDefined()) {
		if _, ok := sym.DataDefined.Get(PropertyStrokeColor); !ok {
			if e, ok := sym.DataDefined.Get(PropertyFillColor); ok {
				sym.DataDefined.Set(PropertyStrokeColor, e)
			}
		}
	}

	offset, err := lc.point(l.Paint, "fill-translate", lc.pixels())
	if err := hard(err); err != nil {
		return nil, err
	}
	if offset.IsSet() {
		sym.Offset = offset.Const
		if offset.DataDefined() {
			sym.DataDefined.Set(PropertyOffset, offset.Expr)
		}
	}

	if antialias, ok := l.Paint.Get("fill-antialias"); ok {
		if n, ok := antialias.Constant(); ok {
			if b, ok := n.AsBool(); ok && !b && !outline.IsSet() {
				sym.OutlineColor = color.Transparent
				sym.DataDefined.Remove(PropertyStrokeColor)
			}
		}
	}

	if region, ok := lc.pattern(l.Paint, "fill-pattern"); ok {
		sym.Pattern = &region
		sym.Color = color.Transparent
		sym.DataDefined.Remove(PropertyFillColor)
		if !outline.IsSet() {
			sym.OutlineColor = color.Transparent
			sym.DataDefined.Remove(PropertyStrokeColor)
		}
	}

	rule.Geometry = GeometryPolygon
	rule.Symbol = sym
	return []Rule{rule}, nil
}

// applyOpacity resolves opacity property into symbol. Zoom dependent opacity
// is applied through data defined color, unless color is data defined
// already. Returns true when data defined fill color was set.
func (lc *layerContext) applyOpacity(sym *Symbol, name string, colorDataDefined bool) bool {
	pv, ok := lc.layer.Paint.Get(name)
	if !ok {
		return false
	}
	if pv.Kind() != style.Constant && colorDataDefined {
		lc.warn("%s: data defined opacity combined with data defined color is not supported, opacity skipped", name)
		return false
	}
	opacity, err := lc.opacity(lc.layer.Paint, name, sym.Color.A)
	if err != nil || !opacity.IsSet() {
		return false
	}
	if !opacity.DataDefined() {
		sym.Opacity = opacity.Const
		return false
	}
	property := PropertyFillColor
	if sym.Kind == SymbolLine {
		property = PropertyStrokeColor
	}
	sym.DataDefined.Set(property, opacity.Expr)
	return property == PropertyFillColor
}

// pattern resolves constant sprite reference. Missing sprites and data
// defined references are reported.
func (lc *layerContext) pattern(props style.Properties, name string) (sprite.Region, bool) {
	pv, ok := props.Get(name)
	if !ok {
		return sprite.Region{}, false
	}
	n, ok := pv.Constant()
	if !ok {
		lc.warn("%s: only constant patterns are supported", name)
		return sprite.Region{}, false
	}
	ref, ok := n.AsString()
	if !ok || len(ref) == 0 {
		lc.warn("%s: %s is not a sprite name", name, n)
		return sprite.Region{}, false
	}
	region, ok := lc.sprite(ref)
	if !ok {
		lc.warn("%s: sprite %q not found", name, ref)
		return sprite.Region{}, false
	}
	return region, true
}
