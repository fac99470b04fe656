package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"glc/convert"
	"glc/expr"
	"glc/sprite"
)

func writeXML(w io.Writer, doc *Document) error {
	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := x.CreateElement("style")
	root.CreateAttr("name", doc.Name)
	if len(doc.RunID) > 0 {
		root.CreateAttr("run", doc.RunID)
	}

	if len(doc.Sources) > 0 {
		sources := root.CreateElement("sources")
		for _, s := range doc.Sources {
			el := sources.CreateElement("source")
			el.CreateAttr("id", s.ID)
			el.CreateAttr("name", s.Name)
			el.CreateAttr("type", s.Kind)
			el.CreateAttr("order", strconv.Itoa(s.Order))
			el.CreateAttr("minzoom", number(s.MinZoom))
			el.CreateAttr("maxzoom", number(s.MaxZoom))
			for _, t := range s.Tiles {
				el.CreateElement("tiles").SetText(t)
			}
			if len(s.Attribution) > 0 {
				el.CreateElement("attribution").SetText(s.Attribution)
			}
		}
	}

	// split the same way vector tile renderers do: symbols, labels, rasters
	renderer := root.CreateElement("renderer")
	labeling := root.CreateElement("labeling")
	var rasters *etree.Element
	for i := range doc.Rules {
		r := &doc.Rules[i]
		switch {
		case r.Symbol != nil:
			symbolElement(ruleElement(renderer, r), r.Symbol)
		case r.Label != nil:
			labelElement(ruleElement(labeling, r), r.Label)
		case r.Raster != nil:
			if rasters == nil {
				rasters = root.CreateElement("rasters")
			}
			el := ruleElement(rasters, r)
			el.CreateAttr("opacity", number(r.Raster.Opacity))
			el.CreateAttr("resampling", r.Raster.Resampling)
		}
	}

	if len(doc.Warnings) > 0 {
		warnings := root.CreateElement("warnings")
		for _, wr := range doc.Warnings {
			el := warnings.CreateElement("warning")
			el.CreateAttr("layer", wr.LayerID)
			el.SetText(wr.Message)
		}
	}
	if len(doc.Errors) > 0 {
		errs := root.CreateElement("errors")
		for _, e := range doc.Errors {
			errs.CreateElement("error").SetText(e)
		}
	}

	x.Indent(2)
	_, err := x.WriteTo(w)
	return err
}

func number(f float64) string {
	return expr.FormatNumber(f)
}

func numbers(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = number(f)
	}
	return strings.Join(parts, ";")
}

func ruleElement(parent *etree.Element, r *convert.Rule) *etree.Element {
	el := parent.CreateElement("rule")
	el.CreateAttr("id", r.StyleID)
	if len(r.Source) > 0 {
		el.CreateAttr("source", r.Source)
	}
	if len(r.Layer) > 0 {
		el.CreateAttr("layer", r.Layer)
	}
	if len(r.Geometry) > 0 {
		el.CreateAttr("geometry", string(r.Geometry))
	}
	el.CreateAttr("minzoom", number(r.MinZoom))
	el.CreateAttr("maxzoom", number(r.MaxZoom))
	el.CreateAttr("enabled", strconv.FormatBool(r.Enabled))
	if len(r.Filter) > 0 {
		el.CreateElement("filter").SetText(r.Filter)
	}
	return el
}

func dataDefinedElement(parent *etree.Element, list convert.DataDefinedList) {
	if len(list) == 0 {
		return
	}
	dd := parent.CreateElement("data-defined")
	for _, d := range list {
		p := dd.CreateElement("property")
		p.CreateAttr("name", d.Property)
		p.SetText(d.Expression)
	}
}

func regionElement(parent *etree.Element, tag string, r *sprite.Region) {
	el := parent.CreateElement(tag)
	el.CreateAttr("name", r.Name)
	el.CreateAttr("x", strconv.Itoa(r.Rect.Min.X))
	el.CreateAttr("y", strconv.Itoa(r.Rect.Min.Y))
	el.CreateAttr("width", strconv.Itoa(r.Rect.Dx()))
	el.CreateAttr("height", strconv.Itoa(r.Rect.Dy()))
	if r.PixelRatio > 0 {
		el.CreateAttr("pixel-ratio", number(r.PixelRatio))
	}
}

func symbolElement(parent *etree.Element, s *convert.Symbol) {
	el := parent.CreateElement("symbol")
	el.CreateAttr("kind", string(s.Kind))
	el.CreateAttr("color", s.Color.String())
	el.CreateAttr("outline-color", s.OutlineColor.String())
	el.CreateAttr("opacity", number(s.Opacity))
	if s.Width > 0 {
		el.CreateAttr("width", number(s.Width))
	}
	if s.Size > 0 {
		el.CreateAttr("size", number(s.Size))
	}
	if s.Offset != [2]float64{} {
		el.CreateAttr("offset", numbers(s.Offset[:]))
	}
	if s.LineOffset != 0 {
		el.CreateAttr("line-offset", number(s.LineOffset))
	}
	if len(s.Cap) > 0 {
		el.CreateAttr("cap", s.Cap)
	}
	if len(s.Join) > 0 {
		el.CreateAttr("join", s.Join)
	}
	if len(s.Dash) > 0 {
		el.CreateAttr("dash", numbers(s.Dash))
	}
	for _, d := range s.DashByZoom {
		z := el.CreateElement("dash")
		z.CreateAttr("zoom", number(d.Zoom))
		z.SetText(numbers(d.Dash))
	}
	if s.Pattern != nil {
		regionElement(el, "pattern", s.Pattern)
	}
	if s.Icon != nil {
		regionElement(el, "icon", s.Icon)
	}
	dataDefinedElement(el, s.DataDefined)
}

func labelElement(parent *etree.Element, l *convert.Label) {
	el := parent.CreateElement("label")
	el.CreateAttr("placement", string(l.Placement))
	if len(l.Quadrant) > 0 {
		el.CreateAttr("quadrant", string(l.Quadrant))
	}
	el.CreateElement("field").SetText(l.Field)

	text := el.CreateElement("text")
	text.CreateAttr("font-family", l.Font.Family)
	if len(l.Font.Style) > 0 {
		text.CreateAttr("font-style", l.Font.Style)
	}
	text.CreateAttr("size", number(l.Size))
	text.CreateAttr("color", l.Color.String())
	text.CreateAttr("opacity", number(l.Opacity))
	if l.LetterSpacing != 0 {
		text.CreateAttr("letter-spacing", number(l.LetterSpacing))
	}

	if l.HaloSize > 0 {
		buffer := el.CreateElement("buffer")
		buffer.CreateAttr("size", number(l.HaloSize))
		buffer.CreateAttr("color", l.HaloColor.String())
	}

	placement := el.CreateElement("placement")
	placement.CreateAttr("offset", numbers(l.Offset[:]))
	switch {
	case l.AboveLine:
		placement.CreateAttr("line", "above")
	case l.BelowLine:
		placement.CreateAttr("line", "below")
	case l.OnLine:
		placement.CreateAttr("line", "on")
	}
	if l.Wrap {
		placement.CreateAttr("max-width", number(l.MaxWidth))
	}
	dataDefinedElement(el, l.DataDefined)
}
