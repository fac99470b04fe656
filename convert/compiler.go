// Package convert compiles GL style layers into render and label rules.
package convert

import (
	"slices"

	"go.uber.org/zap"

	"glc/expr"
	"glc/fonts"
	"glc/sprite"
	"glc/style"
)

// SpriteResolver resolves icon and pattern names.
type SpriteResolver interface {
	Resolve(name string) (sprite.Region, bool)
	// Names lists known icons, used to match templated icon names.
	Names() []string
}

// Options are per pass compilation settings.
type Options struct {
	// ZoomVariable is the name of current zoom level variable.
	ZoomVariable string
	// PixelSize converts style pixels into render units.
	PixelSize float64
	// DefaultFont is used when text-font cannot be matched.
	DefaultFont fonts.Font
	Fonts       fonts.Catalog
	// Sprites may be nil, all icon and pattern references fail then.
	Sprites SpriteResolver
}

type builder func(lc *layerContext, rule Rule) ([]Rule, error)

var builders = map[style.LayerKind]builder{
	style.KindFill:       buildFill,
	style.KindLine:       buildLine,
	style.KindSymbol:     buildSymbol,
	style.KindBackground: buildBackground,
	style.KindRaster:     buildRaster,
}

// Compiler turns style layers into rules. It keeps no state between passes
// and may be reused.
type Compiler struct {
	opts Options
	log  *zap.Logger
}

func NewCompiler(log *zap.Logger, opts Options) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PixelSize <= 0 {
		opts.PixelSize = 1
	}
	if len(opts.ZoomVariable) == 0 {
		opts.ZoomVariable = expr.DefaultZoomVariable
	}
	return &Compiler{opts: opts, log: log.Named("compiler")}
}

func (c *Compiler) context() expr.Context {
	return expr.Context{ZoomVariable: c.opts.ZoomVariable, PixelSize: c.opts.PixelSize}
}

// Compile compiles every layer of the document in document order.
func (c *Compiler) Compile(doc *style.Document) *Result {
	return c.compileLayers(doc.Layers)
}

// CompileSource compiles layers rendering source, in document order.
func (c *Compiler) CompileSource(doc *style.Document, source string) *Result {
	return c.compileLayers(doc.LayersOf(source))
}

// CompileBackground compiles background layers.
func (c *Compiler) CompileBackground(doc *style.Document) *Result {
	return c.compileLayers(doc.Background())
}

func (c *Compiler) compileLayers(layers []style.Layer) *Result {
	var (
		w   expr.Warnings
		res = &Result{}
	)
	for i := range layers {
		l := &layers[i]
		rules, err := c.compileLayer(l, &w)
		if err != nil {
			c.log.Debug("Layer skipped", zap.String("layer", l.ID), zap.Error(err))
			res.Errors = append(res.Errors, &LayerError{LayerID: l.ID, Err: err})
			continue
		}
		res.Rules = append(res.Rules, rules...)
	}
	res.Warnings = w.List()
	c.log.Debug("Layers compiled",
		zap.Int("layers", len(layers)),
		zap.Int("rules", len(res.Rules)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("errors", len(res.Errors)))
	return res
}

func (c *Compiler) compileLayer(l *style.Layer, w *expr.Warnings) ([]Rule, error) {
	ctx := c.context().WithLayer(l.ID)
	lc := &layerContext{
		layer: l,
		ctx:   ctx,
		w:     w,
		opts:  &c.opts,
		log:   c.log.With(zap.String("layer", l.ID)),
	}

	build, ok := builders[l.Kind]
	if !ok {
		lc.warn("layer type %q is not supported, skipped", l.Kind)
		return nil, nil
	}
	lc.reportUnknown()

	rule := Rule{
		StyleID: l.ID,
		Source:  l.Source,
		Layer:   l.SourceLayer,
		MinZoom: l.MinZoom,
		MaxZoom: l.MaxZoom,
		Enabled: l.Visible,
	}
	if l.HasFilter() {
		filter, err := expr.Compile(l.Filter, ctx, w)
		if err != nil {
			if !soft(err) {
				return nil, err
			}
			lc.warn("filter cannot be compiled, layer skipped")
			return nil, nil
		}
		rule.Filter = filter
	}
	return build(lc, rule)
}

func (lc *layerContext) sprite(name string) (sprite.Region, bool) {
	if lc.opts.Sprites == nil {
		return sprite.Region{}, false
	}
	return lc.opts.Sprites.Resolve(name)
}

// icon resolves icon name which may contain {field} placeholders. For
// templates the first matching sprite in natural order is returned.
func (lc *layerContext) icon(name string) (sprite.Region, bool) {
	if !expr.HasTemplate(name) {
		return lc.sprite(name)
	}
	if lc.opts.Sprites == nil {
		return sprite.Region{}, false
	}
	for _, candidate := range lc.opts.Sprites.Names() {
		if !expr.MatchTemplate(name, candidate) {
			continue
		}
		if r, ok := lc.sprite(candidate); ok {
			return r, true
		}
	}
	return sprite.Region{}, false
}

// geometry returns geometry kind selected by layer filter or def.
func (lc *layerContext) geometry(def GeometryKind) GeometryKind {
	if g, ok := filterGeometry(lc.layer.Filter); ok {
		return g
	}
	return def
}

var geometryTypes = map[string]GeometryKind{
	"Point":           GeometryPoint,
	"MultiPoint":      GeometryPoint,
	"LineString":      GeometryLine,
	"MultiLineString": GeometryLine,
	"Polygon":         GeometryPolygon,
	"MultiPolygon":    GeometryPolygon,
}

func filterGeometry(n expr.Node) (GeometryKind, bool) {
	args := n.Args()
	switch n.Op() {
	case "all":
		for _, a := range args {
			if g, ok := filterGeometry(a); ok {
				return g, true
			}
		}
	case "==":
		if len(args) != 2 {
			break
		}
		if s, ok := args[0].AsString(); !(ok && s == "$type") && args[0].Op() != "geometry-type" {
			break
		}
		if s, ok := args[1].AsString(); ok {
			g, ok := geometryTypes[s]
			return g, ok
		}
	}
	return "", false
}

var knownProperties = map[style.LayerKind][]string{
	style.KindFill: {
		"fill-color", "fill-outline-color", "fill-opacity", "fill-translate", "fill-pattern", "fill-antialias",
	},
	style.KindLine: {
		"line-color", "line-width", "line-offset", "line-opacity", "line-dasharray", "line-cap", "line-join",
		"line-pattern",
	},
	style.KindSymbol: {
		"text-field", "text-transform", "text-size", "text-font", "text-color", "text-halo-color",
		"text-halo-width", "text-opacity", "text-letter-spacing", "text-max-width", "symbol-placement",
		"text-offset", "text-anchor", "icon-image", "icon-size", "icon-opacity",
	},
	style.KindBackground: {"background-color", "background-opacity"},
	style.KindRaster:     {"raster-opacity", "raster-resampling"},
}

// reportUnknown logs properties compiler ignores.
func (lc *layerContext) reportUnknown() {
	known := knownProperties[lc.layer.Kind]
	for _, props := range []style.Properties{lc.layer.Paint, lc.layer.Layout} {
		for name := range props {
			if name == "visibility" || slices.Contains(known, name) {
				continue
			}
			lc.log.Debug("Property is not supported", zap.String("property", name))
		}
	}
}
