package convert

import (
	"glc/color"
	"glc/style"
)

func buildBackground(lc *layerContext, rule Rule) ([]Rule, error) {
	l := lc.layer
	if !l.HasPaint {
		return nil, errNoPaint
	}

	sym := &Symbol{Kind: SymbolBackground, Color: color.Black, OutlineColor: color.Transparent, Opacity: 1}
	c, err := lc.color(l.Paint, "background-color")
	if err := hard(err); err != nil {
		return nil, err
	}
	if c.IsSet() {
		sym.Color = c.Const
		if c.DataDefined() {
			sym.DataDefined.Set(PropertyFillColor, c.Expr)
		}
	}
	lc.applyOpacity(sym, "background-opacity", c.DataDefined())

	rule.Geometry = GeometryPolygon
	rule.Symbol = sym
	return []Rule{rule}, nil
}

var rasterResampling = map[string]string{"linear": "bilinear", "nearest": "nearest"}

func buildRaster(lc *layerContext, rule Rule) ([]Rule, error) {
	l := lc.layer
	r := &Raster{Opacity: 1, Resampling: rasterResampling["linear"]}

	if pv, ok := l.Paint.Get("raster-opacity"); ok {
		switch pv.Kind() {
		case style.Constant:
			n, _ := pv.Constant()
			if f, ok := n.AsNumber(); ok {
				r.Opacity = clamp01(f)
			} else {
				lc.warn("raster-opacity: %s is not a number", n)
			}
		case style.ZoomFunction:
			fn, _ := pv.Function()
			stops, err := fn.Numbers()
			if err != nil {
				lc.warn("raster-opacity: %v", err)
				break
			}
			r.Opacity = clamp01((stops[0].Value + stops[len(stops)-1].Value) / 2)
			lc.warn("raster-opacity: zoom dependent opacity is not supported, using %v", r.Opacity)
		case style.Expression:
			lc.warn("raster-opacity: data defined opacity is not supported")
		}
	}

	method := lc.keyword(l.Paint, "raster-resampling", "linear")
	if m, ok := rasterResampling[method]; ok {
		r.Resampling = m
	} else {
		lc.warn("raster-resampling: %q is not supported, using linear", method)
	}

	rule.Raster = r
	return []Rule{rule}, nil
}
