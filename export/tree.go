package export

import (
	"fmt"
	"strconv"
	"strings"

	"glc/convert"
)

// treeWriter renders indented human readable dump.
type treeWriter struct {
	w *strings.Builder
}

func newTreeWriter() *treeWriter {
	return &treeWriter{w: &strings.Builder{}}
}

func (tw *treeWriter) String() string {
	return tw.w.String()
}

func (tw *treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// text writes possibly multiline value quoted.
func (tw *treeWriter) text(depth int, label, value string) {
	if len(value) == 0 {
		return
	}
	tw.line(depth, "%s: %s", label, strconv.Quote(value))
}

func tree(doc *Document) string {
	tw := newTreeWriter()
	tw.line(0, "Style %q", doc.Name)
	if len(doc.RunID) > 0 {
		tw.line(1, "run: %s", doc.RunID)
	}

	for _, s := range doc.Sources {
		tw.line(1, "Source %q (%s) order=%d zoom=[%s, %s]", s.ID, s.Kind, s.Order, number(s.MinZoom), number(s.MaxZoom))
		tw.text(2, "name", s.Name)
		for _, t := range s.Tiles {
			tw.text(2, "tiles", t)
		}
	}

	for i := range doc.Rules {
		r := &doc.Rules[i]
		tw.line(1, "Rule %q layer=%q geometry=%s zoom=[%s, %s] enabled=%t",
			r.StyleID, r.Layer, r.Geometry, number(r.MinZoom), number(r.MaxZoom), r.Enabled)
		tw.text(2, "filter", r.Filter)
		switch {
		case r.Symbol != nil:
			treeSymbol(tw, r.Symbol)
		case r.Label != nil:
			treeLabel(tw, r.Label)
		case r.Raster != nil:
			tw.line(2, "Raster opacity=%s resampling=%s", number(r.Raster.Opacity), r.Raster.Resampling)
		}
	}

	if len(doc.Warnings) > 0 {
		tw.line(1, "Warnings (%d)", len(doc.Warnings))
		for _, w := range doc.Warnings {
			tw.line(2, "%s", w)
		}
	}
	if len(doc.Errors) > 0 {
		tw.line(1, "Errors (%d)", len(doc.Errors))
		for _, e := range doc.Errors {
			tw.line(2, "%s", e)
		}
	}
	return tw.String()
}

func treeSymbol(tw *treeWriter, s *convert.Symbol) {
	tw.line(2, "Symbol %s color=%s outline=%s opacity=%s", s.Kind, s.Color, s.OutlineColor, number(s.Opacity))
	if s.Width > 0 {
		tw.line(3, "width=%s cap=%s join=%s", number(s.Width), s.Cap, s.Join)
	}
	if len(s.Dash) > 0 {
		tw.line(3, "dash=%s", numbers(s.Dash))
	}
	for _, d := range s.DashByZoom {
		tw.line(3, "dash@%s=%s", number(d.Zoom), numbers(d.Dash))
	}
	if s.Pattern != nil {
		tw.line(3, "pattern=%q %v", s.Pattern.Name, s.Pattern.Rect)
	}
	if s.Icon != nil {
		tw.line(3, "icon=%q %v size=%s", s.Icon.Name, s.Icon.Rect, number(s.Size))
	}
	treeDataDefined(tw, s.DataDefined)
}

func treeLabel(tw *treeWriter, l *convert.Label) {
	tw.line(2, "Label placement=%s size=%s color=%s font=%q", l.Placement, number(l.Size), l.Color, l.Font)
	tw.text(3, "field", l.Field)
	if l.HaloSize > 0 {
		tw.line(3, "halo=%s %s", number(l.HaloSize), l.HaloColor)
	}
	if len(l.Quadrant) > 0 {
		tw.line(3, "quadrant=%s offset=%s", l.Quadrant, numbers(l.Offset[:]))
	}
	treeDataDefined(tw, l.DataDefined)
}

func treeDataDefined(tw *treeWriter, list convert.DataDefinedList) {
	for _, d := range list {
		tw.text(3, d.Property, d.Expression)
	}
}
