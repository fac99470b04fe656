package convert

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"glc/color"
	"glc/expr"
	"glc/fonts"
	"glc/sprite"
)

// Names of data defined properties. Sinks map them to their own property
// keys.
const (
	PropertyFillColor         = "fillColor"
	PropertyStrokeColor       = "strokeColor"
	PropertyStrokeWidth       = "strokeWidth"
	PropertyOffset            = "offset"
	PropertyCustomDash        = "customDash"
	PropertyOpacity           = "opacity"
	PropertySize              = "size"
	PropertyName              = "name"
	PropertyColor             = "color"
	PropertyBufferSize        = "bufferSize"
	PropertyBufferColor       = "bufferColor"
	PropertyFontLetterSpacing = "fontLetterSpacing"
	PropertyAutoWrapLength    = "autoWrapLength"
)

// DataDefined is a property computed per feature by expression.
type DataDefined struct {
	Property   string `json:"property" yaml:"property"`
	Expression string `json:"expression" yaml:"expression"`
}

// DataDefinedList keeps properties in the order they were first set.
type DataDefinedList []DataDefined

// Set adds property or replaces expression of already present one.
func (l *DataDefinedList) Set(property, expression string) {
	for i := range *l {
		if (*l)[i].Property == property {
			(*l)[i].Expression = expression
			return
		}
	}
	*l = append(*l, DataDefined{Property: property, Expression: expression})
}

// Remove drops property.
func (l *DataDefinedList) Remove(property string) {
	*l = slices.DeleteFunc(*l, func(d DataDefined) bool { return d.Property == property })
}

// Get returns expression of the property.
func (l DataDefinedList) Get(property string) (string, bool) {
	for _, d := range l {
		if d.Property == property {
			return d.Expression, true
		}
	}
	return "", false
}

// SymbolKind is the kind of rendered symbol.
type SymbolKind string

const (
	SymbolFill       SymbolKind = "fill"
	SymbolLine       SymbolKind = "line"
	SymbolMarker     SymbolKind = "marker"
	SymbolBackground SymbolKind = "background"
)

// GeometryKind is the kind of features rule applies to.
type GeometryKind string

const (
	GeometryPolygon GeometryKind = "polygon"
	GeometryLine    GeometryKind = "line"
	GeometryPoint   GeometryKind = "point"
)

// ZoomDash is dash pattern in effect starting at zoom level.
type ZoomDash struct {
	Zoom float64   `json:"zoom" yaml:"zoom"`
	Dash []float64 `json:"dash" yaml:"dash,flow"`
}

// Symbol describes fill, line, marker or background rendering.
type Symbol struct {
	Kind         SymbolKind      `json:"kind" yaml:"kind"`
	Color        color.RGBA      `json:"color" yaml:"color"`
	OutlineColor color.RGBA      `json:"outline_color" yaml:"outline_color"`
	Width        float64         `json:"width,omitempty" yaml:"width,omitempty"`
	Opacity      float64         `json:"opacity" yaml:"opacity"`
	Offset       [2]float64      `json:"offset" yaml:"offset,flow"`
	LineOffset   float64         `json:"line_offset,omitempty" yaml:"line_offset,omitempty"`
	Cap          string          `json:"cap,omitempty" yaml:"cap,omitempty"`
	Join         string          `json:"join,omitempty" yaml:"join,omitempty"`
	Dash         []float64       `json:"dash,omitempty" yaml:"dash,omitempty,flow"`
	DashByZoom   []ZoomDash      `json:"dash_by_zoom,omitempty" yaml:"dash_by_zoom,omitempty"`
	Pattern      *sprite.Region  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	// Icon is the first matching region when icon name is data defined.
	Icon         *sprite.Region  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Size         float64         `json:"size,omitempty" yaml:"size,omitempty"`
	DataDefined  DataDefinedList `json:"data_defined,omitempty" yaml:"data_defined,omitempty"`
}

// Placement is label placement mode.
type Placement string

const (
	PlacementPoint  Placement = "point"
	PlacementCurved Placement = "curved"
)

// Quadrant is position of point label relative to the point.
type Quadrant string

const (
	QuadrantAboveLeft  Quadrant = "above-left"
	QuadrantAbove      Quadrant = "above"
	QuadrantAboveRight Quadrant = "above-right"
	QuadrantLeft       Quadrant = "left"
	QuadrantOver       Quadrant = "over"
	QuadrantRight      Quadrant = "right"
	QuadrantBelowLeft  Quadrant = "below-left"
	QuadrantBelow      Quadrant = "below"
	QuadrantBelowRight Quadrant = "below-right"
)

// Label describes text labeling.
type Label struct {
	Field         string          `json:"field" yaml:"field"`
	Size          float64         `json:"size" yaml:"size"`
	Color         color.RGBA      `json:"color" yaml:"color"`
	Opacity       float64         `json:"opacity" yaml:"opacity"`
	HaloSize      float64         `json:"halo_size,omitempty" yaml:"halo_size,omitempty"`
	HaloColor     color.RGBA      `json:"halo_color" yaml:"halo_color"`
	Font          fonts.Font      `json:"font" yaml:"font"`
	Placement     Placement       `json:"placement" yaml:"placement"`
	AboveLine     bool            `json:"above_line,omitempty" yaml:"above_line,omitempty"`
	BelowLine     bool            `json:"below_line,omitempty" yaml:"below_line,omitempty"`
	OnLine        bool            `json:"on_line,omitempty" yaml:"on_line,omitempty"`
	Quadrant      Quadrant        `json:"quadrant,omitempty" yaml:"quadrant,omitempty"`
	Offset        [2]float64      `json:"offset" yaml:"offset,flow"`
	LetterSpacing float64         `json:"letter_spacing,omitempty" yaml:"letter_spacing,omitempty"`
	MaxWidth      float64         `json:"max_width,omitempty" yaml:"max_width,omitempty"`
	Wrap          bool            `json:"wrap,omitempty" yaml:"wrap,omitempty"`
	DataDefined   DataDefinedList `json:"data_defined,omitempty" yaml:"data_defined,omitempty"`
}

// Raster describes rendering of raster sources.
type Raster struct {
	Opacity    float64 `json:"opacity" yaml:"opacity"`
	Resampling string  `json:"resampling" yaml:"resampling"`
}

// Rule is a single compiled style rule. Exactly one of Symbol, Label and
// Raster is set.
type Rule struct {
	StyleID  string       `json:"id" yaml:"id"`
	Source   string       `json:"source,omitempty" yaml:"source,omitempty"`
	Layer    string       `json:"layer,omitempty" yaml:"layer,omitempty"`
	Filter   string       `json:"filter,omitempty" yaml:"filter,omitempty"`
	MinZoom  float64      `json:"minzoom" yaml:"minzoom"`
	MaxZoom  float64      `json:"maxzoom" yaml:"maxzoom"`
	Enabled  bool         `json:"enabled" yaml:"enabled"`
	Geometry GeometryKind `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	Symbol   *Symbol      `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Label    *Label       `json:"label,omitempty" yaml:"label,omitempty"`
	Raster   *Raster      `json:"raster,omitempty" yaml:"raster,omitempty"`
}

// LayerError is a hard failure which prevented layer from being compiled.
type LayerError struct {
	LayerID string
	Err     error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %q: %v", e.LayerID, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

// Result is outcome of a single compile pass.
type Result struct {
	Rules    []Rule
	Warnings []expr.Warning
	Errors   []*LayerError
}

// Err combines layer errors.
func (r *Result) Err() error {
	var err error
	for _, e := range r.Errors {
		err = multierr.Append(err, e)
	}
	return err
}

// Merge appends other result to this one.
func (r *Result) Merge(other *Result) {
	r.Rules = append(r.Rules, other.Rules...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Errors = append(r.Errors, other.Errors...)
}
