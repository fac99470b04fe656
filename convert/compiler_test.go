package convert

import (
	"errors"
	"fmt"
	"image"
	"maps"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"glc/color"
	"glc/fonts"
	"glc/sprite"
	"glc/style"
)

type fakeSprites map[string]sprite.Region

func (f fakeSprites) Resolve(name string) (sprite.Region, bool) {
	r, ok := f[name]
	return r, ok
}

func (f fakeSprites) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

var testFont = fonts.Font{Family: "Open Sans", Style: "Regular"}

func parseDoc(t *testing.T, layers string) *style.Document {
	t.Helper()
	data := fmt.Sprintf(`{
		"version": 8,
		"sources": {
			"osm": {"type": "vector", "tiles": ["https://tiles.example.com/{z}/{x}/{y}.pbf"]},
			"terrain": {"type": "raster", "tiles": ["https://tiles.example.com/terrain/{z}/{x}/{y}.png"]}
		},
		"layers": [%s]
	}`, layers)
	doc, err := style.Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func compile(t *testing.T, opts Options, layers string) *Result {
	t.Helper()
	if opts.Fonts == nil {
		opts.Fonts = fonts.NewStatic().Add("Open Sans", "Regular", "Bold")
	}
	if opts.DefaultFont == (fonts.Font{}) {
		opts.DefaultFont = testFont
	}
	return NewCompiler(zaptest.NewLogger(t), opts).Compile(parseDoc(t, layers))
}

func singleRule(t *testing.T, res *Result) Rule {
	t.Helper()
	if err := res.Err(); err != nil {
		t.Fatalf("unexpected layer errors: %v", err)
	}
	if len(res.Rules) != 1 {
		t.Fatalf("got %d rules, want 1: %+v", len(res.Rules), res.Rules)
	}
	return res.Rules[0]
}

func hasWarning(res *Result, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

func TestCompile_Water(t *testing.T) {
	res := compile(t, Options{}, `{"id": "water", "type": "fill", "source": "osm", "source-layer": "water",
		"paint": {"fill-color": "#a0c8f0"}}`)

	r := singleRule(t, res)
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if r.StyleID != "water" || r.Layer != "water" || r.Source != "osm" {
		t.Errorf("rule identity = %q/%q/%q", r.StyleID, r.Source, r.Layer)
	}
	if !r.Enabled {
		t.Error("rule must be enabled")
	}
	if r.MinZoom != style.Unbounded || r.MaxZoom != style.Unbounded {
		t.Errorf("zoom range = [%v, %v], want unbounded", r.MinZoom, r.MaxZoom)
	}
	if r.Geometry != GeometryPolygon || r.Symbol == nil || r.Symbol.Kind != SymbolFill {
		t.Fatalf("unexpected rule shape: %+v", r)
	}
	want := color.RGBA{R: 160, G: 200, B: 240, A: 255}
	if r.Symbol.Color != want {
		t.Errorf("Color = %v, want %v", r.Symbol.Color, want)
	}
	if r.Symbol.OutlineColor != want {
		t.Errorf("OutlineColor = %v, want fill color", r.Symbol.OutlineColor)
	}
	if r.Symbol.Opacity != 1 {
		t.Errorf("Opacity = %v", r.Symbol.Opacity)
	}
	if len(r.Symbol.DataDefined) != 0 {
		t.Errorf("unexpected data defined properties: %v", r.Symbol.DataDefined)
	}
}

func TestCompile_Visibility(t *testing.T) {
	res := compile(t, Options{}, `{"id": "hidden", "type": "fill", "source": "osm", "minzoom": 4, "maxzoom": 12,
		"layout": {"visibility": "none"}, "paint": {"fill-color": "red"}}`)
	r := singleRule(t, res)
	if r.Enabled {
		t.Error("rule must be disabled")
	}
	if r.MinZoom != 4 || r.MaxZoom != 12 {
		t.Errorf("zoom range = [%v, %v]", r.MinZoom, r.MaxZoom)
	}
}

func TestCompile_FillOpacityFunction(t *testing.T) {
	res := compile(t, Options{}, `{"id": "park", "type": "fill", "source": "osm",
		"paint": {"fill-color": "#ff0000", "fill-opacity": {"stops": [[5, 0], [10, 1]]}}}`)
	r := singleRule(t, res)

	fill, ok := r.Symbol.DataDefined.Get(PropertyFillColor)
	if !ok {
		t.Fatal("fill color must be data defined")
	}
	want := "set_color_part(@symbol_color, 'alpha', scale_linear(@vector_tile_zoom, 5, 10, 0, 255))"
	if fill != want {
		t.Errorf("fill color = %q, want %q", fill, want)
	}
	if stroke, _ := r.Symbol.DataDefined.Get(PropertyStrokeColor); stroke != want {
		t.Errorf("stroke color = %q, want %q", stroke, want)
	}
}

func TestCompile_OpacityConflict(t *testing.T) {
	res := compile(t, Options{}, `{"id": "landuse", "type": "fill", "source": "osm",
		"paint": {"fill-color": ["get", "colour"], "fill-opacity": {"stops": [[5, 0], [10, 1]]}}}`)
	r := singleRule(t, res)

	if !hasWarning(res, "opacity skipped") {
		t.Errorf("conflict warning missing: %v", res.Warnings)
	}
	fill, _ := r.Symbol.DataDefined.Get(PropertyFillColor)
	if fill != "attribute($currentfeature, 'colour')" {
		t.Errorf("fill color = %q", fill)
	}
	if strings.Contains(fill, "set_color_part") {
		t.Error("opacity must be skipped")
	}
}

func TestCompile_FillPattern(t *testing.T) {
	sprites := fakeSprites{"wood": {Name: "wood", Rect: image.Rect(0, 0, 16, 16), PixelRatio: 1}}

	t.Run("resolved", func(t *testing.T) {
		res := compile(t, Options{Sprites: sprites}, `{"id": "forest", "type": "fill", "source": "osm",
			"paint": {"fill-color": "#00ff00", "fill-pattern": "wood"}}`)
		r := singleRule(t, res)
		if r.Symbol.Pattern == nil || r.Symbol.Pattern.Name != "wood" {
			t.Fatalf("Pattern = %+v", r.Symbol.Pattern)
		}
		if r.Symbol.Color != color.Transparent || r.Symbol.OutlineColor != color.Transparent {
			t.Errorf("colors = %v/%v, want transparent", r.Symbol.Color, r.Symbol.OutlineColor)
		}
	})

	t.Run("missing", func(t *testing.T) {
		res := compile(t, Options{Sprites: sprites}, `{"id": "forest", "type": "fill", "source": "osm",
			"paint": {"fill-color": "#00ff00", "fill-pattern": "rock"}}`)
		r := singleRule(t, res)
		if r.Symbol.Pattern != nil {
			t.Error("Pattern must not be set")
		}
		if r.Symbol.Color != color.MustParse("#00ff00") {
			t.Errorf("Color = %v", r.Symbol.Color)
		}
		if !hasWarning(res, `"rock" not found`) {
			t.Errorf("missing sprite warning: %v", res.Warnings)
		}
	})
}

func TestCompile_FillOutline(t *testing.T) {
	res := compile(t, Options{PixelSize: 2}, `{"id": "building", "type": "fill", "source": "osm",
		"paint": {"fill-color": "#ddd", "fill-outline-color": "#aaa", "fill-translate": [1, 2]}}`)
	r := singleRule(t, res)
	if r.Symbol.OutlineColor != color.MustParse("#aaa") {
		t.Errorf("OutlineColor = %v", r.Symbol.OutlineColor)
	}
	if r.Symbol.Offset != [2]float64{2, 4} {
		t.Errorf("Offset = %v", r.Symbol.Offset)
	}

	res = compile(t, Options{}, `{"id": "building", "type": "fill", "source": "osm",
		"paint": {"fill-color": "#ddd", "fill-antialias": false}}`)
	if r := singleRule(t, res); r.Symbol.OutlineColor != color.Transparent {
		t.Errorf("OutlineColor = %v, want transparent", r.Symbol.OutlineColor)
	}
}

func TestCompile_Line(t *testing.T) {
	res := compile(t, Options{PixelSize: 0.5}, `{"id": "road", "type": "line", "source": "osm",
		"layout": {"line-cap": "round"},
		"paint": {"line-color": "#fff", "line-width": {"base": 1.2, "stops": [[10, 1], [16, 6]]}, "line-offset": 2}}`)
	r := singleRule(t, res)
	s := r.Symbol
	if r.Geometry != GeometryLine || s.Kind != SymbolLine {
		t.Fatalf("unexpected rule shape: %+v", r)
	}
	if s.Cap != "round" || s.Join != "miter" {
		t.Errorf("cap/join = %q/%q", s.Cap, s.Join)
	}
	if s.LineOffset != 1 {
		t.Errorf("LineOffset = %v", s.LineOffset)
	}
	if s.Width != 0.5 {
		t.Errorf("Width = %v, want value at first stop", s.Width)
	}
	width, ok := s.DataDefined.Get(PropertyStrokeWidth)
	if !ok || !strings.Contains(width, "clamp(10, @vector_tile_zoom, 16)") {
		t.Errorf("stroke width = %q", width)
	}
}

func TestCompile_LineDefaults(t *testing.T) {
	res := compile(t, Options{PixelSize: 0.25}, `{"id": "path", "type": "line", "source": "osm", "paint": {}}`)
	s := singleRule(t, res).Symbol
	if s.Color != color.Black || s.Width != 0.25 || s.Cap != "flat" || s.Join != "miter" {
		t.Errorf("defaults = %+v", s)
	}
}

func TestCompile_LineDashes(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		res := compile(t, Options{}, `{"id": "rail", "type": "line", "source": "osm",
			"paint": {"line-width": 2, "line-dasharray": [2, 1]}}`)
		s := singleRule(t, res).Symbol
		if fmt.Sprint(s.Dash) != "[4 2]" {
			t.Errorf("Dash = %v", s.Dash)
		}
		if len(s.DataDefined) != 0 {
			t.Errorf("unexpected data defined properties: %v", s.DataDefined)
		}
	})

	t.Run("stops with constant width", func(t *testing.T) {
		res := compile(t, Options{}, `{"id": "boundary", "type": "line", "source": "osm",
			"paint": {"line-width": 1.0, "line-dasharray": {"stops": [[10, [2, 1]], [14, [4, 2]]]}}}`)
		s := singleRule(t, res).Symbol
		want := []ZoomDash{{Zoom: 10, Dash: []float64{2, 1}}, {Zoom: 14, Dash: []float64{4, 2}}}
		if fmt.Sprint(s.DashByZoom) != fmt.Sprint(want) {
			t.Errorf("DashByZoom = %v, want %v", s.DashByZoom, want)
		}
		dash, _ := s.DataDefined.Get(PropertyCustomDash)
		if dash != "CASE WHEN @vector_tile_zoom < 14 THEN '2;1' ELSE '4;2' END" {
			t.Errorf("custom dash = %q", dash)
		}
	})

	t.Run("stops with data defined width", func(t *testing.T) {
		res := compile(t, Options{}, `{"id": "boundary", "type": "line", "source": "osm",
			"paint": {"line-width": ["get", "width"], "line-dasharray": {"stops": [[10, [2, 1]], [14, [4, 2]]]}}}`)
		s := singleRule(t, res).Symbol
		if len(s.DashByZoom) != 0 {
			t.Errorf("DashByZoom = %v, want none", s.DashByZoom)
		}
		dash, _ := s.DataDefined.Get(PropertyCustomDash)
		want := "CASE WHEN @vector_tile_zoom < 14 THEN " +
			"array_to_string(array_foreach(array(2, 1), @element * (attribute($currentfeature, 'width'))), ';') ELSE " +
			"array_to_string(array_foreach(array(4, 2), @element * (attribute($currentfeature, 'width'))), ';') END"
		if dash != want {
			t.Errorf("custom dash = %q, want %q", dash, want)
		}
	})

	t.Run("constant with data defined width", func(t *testing.T) {
		res := compile(t, Options{}, `{"id": "rail", "type": "line", "source": "osm",
			"paint": {"line-width": ["get", "width"], "line-dasharray": [3, 1]}}`)
		s := singleRule(t, res).Symbol
		dash, _ := s.DataDefined.Get(PropertyCustomDash)
		if dash != "array_to_string(array_foreach(array(3, 1), @element * (attribute($currentfeature, 'width'))), ';')" {
			t.Errorf("custom dash = %q", dash)
		}
		if s.Width != 1 || fmt.Sprint(s.Dash) != "[3 1]" {
			t.Errorf("fallback width/dash = %v/%v", s.Width, s.Dash)
		}
	})

	t.Run("data defined width uses pixel size fallback", func(t *testing.T) {
		res := compile(t, Options{PixelSize: 0.5}, `{"id": "rail", "type": "line", "source": "osm",
			"paint": {"line-width": ["get", "width"], "line-dasharray": [4, 2]}}`)
		s := singleRule(t, res).Symbol
		if s.Width != 0.5 || fmt.Sprint(s.Dash) != "[2 1]" {
			t.Errorf("fallback width/dash = %v/%v", s.Width, s.Dash)
		}
	})
}

func TestCompile_Label(t *testing.T) {
	res := compile(t, Options{}, `{"id": "place", "type": "symbol", "source": "osm",
		"layout": {"text-field": "{name_en}", "text-transform": "uppercase", "text-anchor": "top-left",
			"text-size": 10, "text-letter-spacing": 0.1, "text-offset": [0, 1.5], "text-font": ["Open Sans Bold"]},
		"paint": {"text-color": "#333", "text-halo-color": "#fff", "text-halo-width": 1.5}}`)
	r := singleRule(t, res)
	l := r.Label
	if l == nil {
		t.Fatal("label expected")
	}
	if l.Field != `upper("name_en")` {
		t.Errorf("Field = %q", l.Field)
	}
	if l.Placement != PlacementPoint || l.Quadrant != QuadrantBelowRight || !l.Wrap {
		t.Errorf("placement = %q/%q wrap=%v", l.Placement, l.Quadrant, l.Wrap)
	}
	if r.Geometry != GeometryPoint {
		t.Errorf("Geometry = %q", r.Geometry)
	}
	if l.Size != 10 || l.LetterSpacing != 1 || l.Offset != [2]float64{0, 15} {
		t.Errorf("size/spacing/offset = %v/%v/%v", l.Size, l.LetterSpacing, l.Offset)
	}
	if l.HaloSize != 1.5 || l.HaloColor != color.White || l.Color != color.MustParse("#333") {
		t.Errorf("colors = %+v", l)
	}
	if l.Font != (fonts.Font{Family: "Open Sans", Style: "Bold"}) {
		t.Errorf("Font = %+v", l.Font)
	}
	if l.MaxWidth != defaultTextMaxWidth {
		t.Errorf("MaxWidth = %v", l.MaxWidth)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestCompile_LabelIdentityFunction(t *testing.T) {
	res := compile(t, Options{}, `{"id": "place", "type": "symbol", "source": "osm",
		"layout": {"text-field": {"property": "name", "type": "identity"},
			"text-size": {"property": "rank", "type": "identity"}}}`)
	r := singleRule(t, res)
	if r.Label == nil || r.Label.Field != `"name"` {
		t.Fatalf("Label = %+v", r.Label)
	}
	if size, _ := r.Label.DataDefined.Get(PropertySize); !strings.Contains(size, "'rank'") {
		t.Errorf("size = %q", size)
	}
	if hasWarning(res, "is not a") {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestCompile_LabelLinePlacement(t *testing.T) {
	tests := []struct {
		name   string
		offset string
		check  func(l *Label) bool
	}{
		{"below", "[0, 1]", func(l *Label) bool { return l.BelowLine && !l.AboveLine }},
		{"above", "[0, -1]", func(l *Label) bool { return l.AboveLine && !l.BelowLine }},
		{"on line", "[0, 0]", func(l *Label) bool { return l.OnLine }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compile(t, Options{}, fmt.Sprintf(`{"id": "road-label", "type": "symbol", "source": "osm",
				"layout": {"text-field": ["get", "name"], "symbol-placement": "line", "text-offset": %s}}`, tt.offset))
			r := singleRule(t, res)
			if r.Label.Placement != PlacementCurved || r.Geometry != GeometryLine {
				t.Fatalf("placement = %q geometry = %q", r.Label.Placement, r.Geometry)
			}
			if r.Label.Field != `"name"` {
				t.Errorf("Field = %q", r.Label.Field)
			}
			if !tt.check(r.Label) {
				t.Errorf("unexpected line flags: %+v", r.Label)
			}
		})
	}
}

func TestCompile_LabelFontFallback(t *testing.T) {
	res := compile(t, Options{}, `{"id": "poi", "type": "symbol", "source": "osm",
		"layout": {"text-field": "{name}", "text-font": ["Klokantech Noto Sans Black"]}}`)
	r := singleRule(t, res)
	if r.Label.Font != testFont {
		t.Errorf("Font = %+v", r.Label.Font)
	}
	if !hasWarning(res, "text-font") {
		t.Errorf("font warning missing: %v", res.Warnings)
	}
}

func TestCompile_LabelDataDefined(t *testing.T) {
	res := compile(t, Options{}, `{"id": "city", "type": "symbol", "source": "osm",
		"filter": ["==", "$type", "Polygon"],
		"layout": {"text-field": "{name}", "text-size": {"stops": [[4, 10], [8, 20]]}},
		"paint": {"text-opacity": ["get", "opacity"]}}`)
	r := singleRule(t, res)
	if r.Geometry != GeometryPolygon {
		t.Errorf("Geometry = %q", r.Geometry)
	}
	if !strings.Contains(r.Filter, "_geom_type") {
		t.Errorf("Filter = %q", r.Filter)
	}
	if size, _ := r.Label.DataDefined.Get(PropertySize); size != "scale_linear(@vector_tile_zoom, 4, 8, 10, 20)" {
		t.Errorf("size = %q", size)
	}
	if r.Label.Size != 10 {
		t.Errorf("Size = %v", r.Label.Size)
	}
	if opacity, _ := r.Label.DataDefined.Get(PropertyOpacity); opacity != "(attribute($currentfeature, 'opacity')) * 100" {
		t.Errorf("opacity = %q", opacity)
	}
}

func TestCompile_Icon(t *testing.T) {
	sprites := fakeSprites{"bus": {Name: "bus", Rect: image.Rect(0, 0, 24, 24), PixelRatio: 2}}
	res := compile(t, Options{Sprites: sprites}, `{"id": "bus-stop", "type": "symbol", "source": "osm",
		"layout": {"icon-image": "bus", "icon-size": 2, "text-field": "{ref}"},
		"paint": {"icon-opacity": 0.5}}`)
	if err := res.Err(); err != nil {
		t.Fatal(err)
	}
	if len(res.Rules) != 2 {
		t.Fatalf("got %d rules, want marker and label", len(res.Rules))
	}
	marker, label := res.Rules[0], res.Rules[1]
	if marker.Symbol == nil || marker.Symbol.Kind != SymbolMarker || label.Label == nil {
		t.Fatalf("unexpected rule order: %+v", res.Rules)
	}
	if marker.Symbol.Icon == nil || marker.Symbol.Icon.Name != "bus" {
		t.Errorf("Icon = %+v", marker.Symbol.Icon)
	}
	if marker.Symbol.Size != 24 || marker.Symbol.Opacity != 0.5 {
		t.Errorf("size/opacity = %v/%v", marker.Symbol.Size, marker.Symbol.Opacity)
	}

	res = compile(t, Options{Sprites: sprites}, `{"id": "poi", "type": "symbol", "source": "osm",
		"layout": {"icon-image": "{class}_11"}}`)
	if len(res.Rules) != 0 || !hasWarning(res, `"{class}_11" not found`) {
		t.Errorf("rules = %v warnings = %v", res.Rules, res.Warnings)
	}

	res = compile(t, Options{Sprites: sprites}, `{"id": "poi", "type": "symbol", "source": "osm",
		"layout": {"icon-image": "tram"}}`)
	if len(res.Rules) != 0 || !hasWarning(res, `"tram" not found`) {
		t.Errorf("rules = %v warnings = %v", res.Rules, res.Warnings)
	}
}

func TestCompile_IconDataDefined(t *testing.T) {
	sprites := fakeSprites{
		"bus_11":  {Name: "bus_11", Rect: image.Rect(0, 0, 22, 22), PixelRatio: 1},
		"rail_11": {Name: "rail_11", Rect: image.Rect(22, 0, 44, 22), PixelRatio: 1},
		"bus_15":  {Name: "bus_15", Rect: image.Rect(0, 22, 30, 52), PixelRatio: 1},
	}
	tests := []struct {
		name   string
		layout string
		icon   string
		size   string
	}{
		{"template", `{"icon-image": "{class}_11", "icon-size": ["get", "scale"]}`,
			`concat("class", '_11')`, "(attribute($currentfeature, 'scale')) * 22"},
		{"concat", `{"icon-image": ["concat", ["get", "class"], "_15"]}`, `concat("class", '_15')`, ""},
		{"match", `{"icon-image": ["match", ["get", "class"], "rail", "rail_11", "bus_11"]}`, "", ""},
		{"zoom", `{"icon-image": {"stops": [[10, "{class}_11"], [15, "{class}_15"]]}}`, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compile(t, Options{Sprites: sprites}, fmt.Sprintf(`{"id": "poi", "type": "symbol", "source": "osm",
				"layout": %s}`, tt.layout))
			r := singleRule(t, res)
			sym := r.Symbol
			if sym == nil || sym.Icon == nil {
				t.Fatalf("Symbol = %+v", sym)
			}
			if sym.Size <= 0 {
				t.Errorf("Size = %v, want icon size", sym.Size)
			}
			name, ok := sym.DataDefined.Get(PropertyName)
			if !ok || (len(tt.icon) > 0 && name != tt.icon) {
				t.Errorf("icon name = %q", name)
			}
			if size, _ := sym.DataDefined.Get(PropertySize); size != tt.size {
				t.Errorf("size = %q, want %q", size, tt.size)
			}
		})
	}

	res := compile(t, Options{Sprites: sprites}, `{"id": "poi", "type": "symbol", "source": "osm",
		"layout": {"icon-image": ["get", "icon"]}}`)
	if len(res.Rules) != 0 || !hasWarning(res, "does not reference known sprite") {
		t.Errorf("rules = %v warnings = %v", res.Rules, res.Warnings)
	}
}

func TestCompile_BackgroundAndRaster(t *testing.T) {
	res := compile(t, Options{}, `
		{"id": "bg", "type": "background", "paint": {"background-color": "#f8f4f0", "background-opacity": 0.5}},
		{"id": "hillshade", "type": "raster", "source": "terrain",
			"paint": {"raster-opacity": {"stops": [[0, 0.2], [10, 0.8]]}, "raster-resampling": "nearest"}}`)
	if err := res.Err(); err != nil {
		t.Fatal(err)
	}
	if len(res.Rules) != 2 {
		t.Fatalf("got %d rules", len(res.Rules))
	}
	bg := res.Rules[0].Symbol
	if bg.Kind != SymbolBackground || bg.Opacity != 0.5 || bg.OutlineColor != color.Transparent {
		t.Errorf("background = %+v", bg)
	}
	raster := res.Rules[1].Raster
	if raster == nil || raster.Resampling != "nearest" || raster.Opacity != 0.5 {
		t.Errorf("raster = %+v", raster)
	}
	if !hasWarning(res, "raster-opacity") {
		t.Errorf("raster opacity warning missing: %v", res.Warnings)
	}
}

func TestCompile_Failures(t *testing.T) {
	res := compile(t, Options{}, `
		{"id": "bad-color", "type": "fill", "source": "osm", "paint": {"fill-color": "#zzz"}},
		{"id": "no-paint", "type": "line", "source": "osm"},
		{"id": "empty-symbol", "type": "symbol", "source": "osm"},
		{"id": "circles", "type": "circle", "source": "osm", "paint": {"circle-radius": 3}},
		{"id": "within", "type": "fill", "source": "osm", "filter": ["within", {}], "paint": {"fill-color": "red"}},
		{"id": "ok", "type": "fill", "source": "osm", "paint": {"fill-color": "red"}}`)

	if len(res.Rules) != 1 || res.Rules[0].StyleID != "ok" {
		t.Fatalf("rules = %+v, want only layer ok", res.Rules)
	}
	if len(res.Errors) != 3 {
		t.Fatalf("got %d errors: %v", len(res.Errors), res.Err())
	}

	var cerr *color.Error
	if res.Errors[0].LayerID != "bad-color" || !errors.As(res.Errors[0], &cerr) {
		t.Errorf("errors[0] = %v", res.Errors[0])
	}
	if res.Errors[1].LayerID != "no-paint" || !errors.Is(res.Errors[1], errNoPaint) {
		t.Errorf("errors[1] = %v", res.Errors[1])
	}
	if res.Errors[2].LayerID != "empty-symbol" || !errors.Is(res.Errors[2], errNoLayout) {
		t.Errorf("errors[2] = %v", res.Errors[2])
	}
	if !hasWarning(res, `"circle" is not supported`) {
		t.Errorf("unknown kind warning missing: %v", res.Warnings)
	}
	if !hasWarning(res, "layer skipped") {
		t.Errorf("filter warning missing: %v", res.Warnings)
	}
	if res.Err() == nil {
		t.Error("Err() must combine layer errors")
	}
}

func TestCompiler_CompileSource(t *testing.T) {
	doc := parseDoc(t, `
		{"id": "bg", "type": "background", "paint": {"background-color": "white"}},
		{"id": "water", "type": "fill", "source": "osm", "paint": {"fill-color": "blue"}},
		{"id": "hillshade", "type": "raster", "source": "terrain"},
		{"id": "road", "type": "line", "source": "osm", "paint": {"line-color": "gray"}}`)
	c := NewCompiler(nil, Options{})

	res := c.CompileSource(doc, "osm")
	if len(res.Rules) != 2 || res.Rules[0].StyleID != "water" || res.Rules[1].StyleID != "road" {
		t.Errorf("CompileSource() rules = %+v", res.Rules)
	}
	bg := c.CompileBackground(doc)
	if len(bg.Rules) != 1 || bg.Rules[0].StyleID != "bg" {
		t.Errorf("CompileBackground() rules = %+v", bg.Rules)
	}

	res.Merge(bg)
	if len(res.Rules) != 3 || res.Rules[2].StyleID != "bg" {
		t.Errorf("Merge() rules = %+v", res.Rules)
	}
}

func TestDataDefinedList(t *testing.T) {
	var l DataDefinedList
	l.Set(PropertyFillColor, "a")
	l.Set(PropertyStrokeColor, "b")
	l.Set(PropertyFillColor, "c")
	if len(l) != 2 || l[0].Property != PropertyFillColor || l[0].Expression != "c" {
		t.Errorf("Set() = %+v", l)
	}
	l.Remove(PropertyFillColor)
	if _, ok := l.Get(PropertyFillColor); ok || len(l) != 1 {
		t.Errorf("Remove() = %+v", l)
	}
}
