package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"

	"glc/color"
	"glc/convert"
	"glc/expr"
	"glc/source"
	"glc/sprite"
	"glc/style"
)

func testDocument() *Document {
	res := &convert.Result{
		Rules: []convert.Rule{
			{
				StyleID: "water", Source: "osm", Layer: "water", Filter: `"class" IS 'lake'`,
				MinZoom: style.Unbounded, MaxZoom: 14, Enabled: true, Geometry: convert.GeometryPolygon,
				Symbol: &convert.Symbol{
					Kind: convert.SymbolFill, Color: color.MustParse("#a0c8f0"), OutlineColor: color.Transparent, Opacity: 1,
					Pattern:     &sprite.Region{Name: "wave", Rect: image.Rect(10, 20, 26, 36), PixelRatio: 1},
					DataDefined: convert.DataDefinedList{{Property: convert.PropertyFillColor, Expression: "CASE WHEN @vector_tile_zoom < 5 THEN 1 ELSE 2 END"}},
				},
			},
			{
				StyleID: "rail", Source: "osm", Layer: "transportation", MinZoom: 10, MaxZoom: style.Unbounded, Enabled: true,
				Geometry: convert.GeometryLine,
				Symbol: &convert.Symbol{
					Kind: convert.SymbolLine, Color: color.Black, Width: 1, Opacity: 1, Cap: "flat", Join: "miter",
					Dash:       []float64{2, 1},
					DashByZoom: []convert.ZoomDash{{Zoom: 10, Dash: []float64{2, 1}}, {Zoom: 14, Dash: []float64{4, 2}}},
				},
			},
			{
				StyleID: "place", Source: "osm", Layer: "place", MinZoom: style.Unbounded, MaxZoom: style.Unbounded, Enabled: false,
				Geometry: convert.GeometryPoint,
				Label: &convert.Label{
					Field: `upper("name_en")`, Size: 12, Color: color.Black, Opacity: 1, HaloSize: 1, HaloColor: color.White,
					Placement: convert.PlacementPoint, Quadrant: convert.QuadrantOver, Wrap: true, MaxWidth: 10,
				},
			},
			{
				StyleID: "hillshade", Source: "terrain", MinZoom: style.Unbounded, MaxZoom: style.Unbounded, Enabled: true,
				Raster: &convert.Raster{Opacity: 0.5, Resampling: "bilinear"},
			},
		},
		Warnings: []expr.Warning{{LayerID: "poi", Message: `text-font: none of ["Foo"] is available`}},
		Errors:   []*convert.LayerError{{LayerID: "broken", Err: errors.New("layer has no paint section")}},
	}
	sources := []source.Resolved{
		{ID: "osm", Kind: style.SourceVector, Name: "OpenMapTiles", Order: 0, Tiles: []string{"https://tiles.example.com/{z}/{x}/{y}.pbf"}, MinZoom: 0, MaxZoom: 14},
	}
	doc := NewDocument("Basic", sources, res)
	doc.RunID = "run-1"
	return doc
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", FormatXML, false},
		{"tree", FormatTree, false},
		{"qml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %q, want %q", got, tt.want)
			}
		})
	}
	if FormatTree.Ext() != ".txt" || FormatYAML.Ext() != ".yaml" {
		t.Error("unexpected extensions")
	}
}

func TestNewDocument(t *testing.T) {
	doc := testDocument()
	if len(doc.Sources) != 1 || doc.Sources[0].Kind != "vector" {
		t.Errorf("Sources = %+v", doc.Sources)
	}
	if len(doc.Errors) != 1 || !strings.Contains(doc.Errors[0], `layer "broken"`) {
		t.Errorf("Errors = %v", doc.Errors)
	}

	empty := NewDocument("empty", nil, &convert.Result{})
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, empty); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"rules": []`) {
		t.Errorf("empty rules must be rendered as array: %s", buf.String())
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, testDocument()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "@vector_tile_zoom < 5") {
		t.Error("expressions must not be HTML escaped")
	}

	var decoded Document
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Rules) != 4 {
		t.Fatalf("decoded %d rules", len(decoded.Rules))
	}
	if decoded.Rules[0].Symbol.Color != color.MustParse("#a0c8f0") {
		t.Errorf("color = %v", decoded.Rules[0].Symbol.Color)
	}
	if decoded.Rules[0].Symbol.Pattern.Rect != image.Rect(10, 20, 26, 36) {
		t.Errorf("pattern = %+v", decoded.Rules[0].Symbol.Pattern)
	}
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatYAML, testDocument()); err != nil {
		t.Fatal(err)
	}
	var decoded Document
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, buf.String())
	}
	if len(decoded.Rules) != 4 || decoded.Rules[2].Label.Field != `upper("name_en")` {
		t.Errorf("decoded rules = %+v", decoded.Rules)
	}
	if decoded.Rules[2].Label.HaloColor != color.White {
		t.Errorf("halo color = %v", decoded.Rules[2].Label.HaloColor)
	}
	if !strings.Contains(buf.String(), "dash: [2, 1]") {
		t.Errorf("dash must be written in flow style:\n%s", buf.String())
	}
}

func TestWrite_XML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXML, testDocument()); err != nil {
		t.Fatal(err)
	}

	x := etree.NewDocument()
	if err := x.ReadFromBytes(buf.Bytes()); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	root := x.Root()
	if root.Tag != "style" || root.SelectAttrValue("name", "") != "Basic" {
		t.Fatalf("root = %s", root.Tag)
	}
	if n := len(root.FindElements("./renderer/rule")); n != 2 {
		t.Errorf("renderer has %d rules, want 2", n)
	}
	if n := len(root.FindElements("./labeling/rule")); n != 1 {
		t.Errorf("labeling has %d rules, want 1", n)
	}
	if el := root.FindElement("./rasters/rule"); el == nil || el.SelectAttrValue("resampling", "") != "bilinear" {
		t.Error("raster rule missing")
	}

	water := root.FindElement("./renderer/rule[@id='water']")
	if water == nil {
		t.Fatal("water rule missing")
	}
	if f := water.FindElement("filter"); f == nil || f.Text() != `"class" IS 'lake'` {
		t.Errorf("filter = %v", f)
	}
	if p := water.FindElement("./symbol/pattern"); p == nil || p.SelectAttrValue("width", "") != "16" {
		t.Error("pattern region missing")
	}
	if p := water.FindElement("./symbol/data-defined/property[@name='fillColor']"); p == nil || !strings.HasPrefix(p.Text(), "CASE WHEN") {
		t.Error("data defined property missing")
	}
	if n := len(root.FindElements("./renderer/rule[@id='rail']/symbol/dash")); n != 2 {
		t.Errorf("got %d zoom dashes", n)
	}
	if w := root.FindElement("./warnings/warning"); w == nil || w.SelectAttrValue("layer", "") != "poi" {
		t.Error("warning missing")
	}
}

func TestWrite_Tree(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTree, testDocument()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`Style "Basic"`,
		`  Source "osm" (vector) order=0 zoom=[0, 14]`,
		`  Rule "water" layer="water" geometry=polygon zoom=[-1, 14] enabled=true`,
		`    filter: "\"class\" IS 'lake'"`,
		`      dash@14=4;2`,
		`    Label placement=point size=12 color=#000000 font=""`,
		`      field: "upper(\"name_en\")"`,
		`    Raster opacity=0.5 resampling=bilinear`,
		`  Warnings (1)`,
		`  Errors (1)`,
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if err := Write(&buf, Format("qml"), testDocument()); err == nil {
		t.Error("unknown format must fail")
	}
}
