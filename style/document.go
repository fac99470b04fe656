// Package style holds GL style document model. Documents are parsed once and
// are never modified afterwards, every paint and layout property is
// classified into PropertyValue during parsing.
package style

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"glc/expr"
)

// Unbounded marks absent zoom limit.
const Unbounded = -1.0

// LayerKind is GL layer type.
type LayerKind string

const (
	KindFill       LayerKind = "fill"
	KindLine       LayerKind = "line"
	KindSymbol     LayerKind = "symbol"
	KindBackground LayerKind = "background"
	KindRaster     LayerKind = "raster"
)

// Known reports if compiler has a builder for the layer kind.
func (k LayerKind) Known() bool {
	switch k {
	case KindFill, KindLine, KindSymbol, KindBackground, KindRaster:
		return true
	}
	return false
}

// SourceKind is GL source type.
type SourceKind string

const (
	SourceVector    SourceKind = "vector"
	SourceRaster    SourceKind = "raster"
	SourceRasterDEM SourceKind = "raster-dem"
)

// Source is a named tile endpoint.
type Source struct {
	ID          string
	Kind        SourceKind
	Tiles       []string
	URL         string
	MinZoom     float64
	MaxZoom     float64
	Attribution string
	Scheme      string
	TileSize    int
}

// Sprite is a named sprite atlas reference.
type Sprite struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Properties is classified paint or layout section.
type Properties map[string]PropertyValue

// Get returns property value if present.
func (p Properties) Get(name string) (PropertyValue, bool) {
	v, ok := p[name]
	return v, ok
}

// Layer is a single style layer with "ref" already applied.
type Layer struct {
	ID          string
	Kind        LayerKind
	Source      string
	SourceLayer string
	MinZoom     float64
	MaxZoom     float64
	Visible     bool
	Filter      expr.Node
	Paint       Properties
	Layout      Properties
	HasPaint    bool
	HasLayout   bool
}

// HasFilter reports if layer carries a filter.
func (l *Layer) HasFilter() bool {
	return !l.Filter.IsNull()
}

// Document is parsed GL style.
type Document struct {
	Version int
	Name    string
	Sources map[string]Source
	Layers  []Layer
	Sprites []Sprite
	Glyphs  string
}

// Sprite returns URL of the default sprite (first one when several are
// defined) or empty string.
func (d *Document) Sprite() string {
	if len(d.Sprites) == 0 {
		return ""
	}
	for _, s := range d.Sprites {
		if s.ID == DefaultSprite {
			return s.URL
		}
	}
	return d.Sprites[0].URL
}

// LayersOf returns layers which render source, in document order.
func (d *Document) LayersOf(source string) []Layer {
	var out []Layer
	for _, l := range d.Layers {
		if l.Source == source {
			out = append(out, l)
		}
	}
	return out
}

// Background returns background layers, in document order.
func (d *Document) Background() []Layer {
	var out []Layer
	for _, l := range d.Layers {
		if l.Kind == KindBackground {
			out = append(out, l)
		}
	}
	return out
}

// DefaultSprite is the id given to sprite specified as a plain URL.
const DefaultSprite = "default"

type rawSource struct {
	Type        string   `json:"type"`
	Tiles       []string `json:"tiles"`
	URL         string   `json:"url"`
	MinZoom     *float64 `json:"minzoom"`
	MaxZoom     *float64 `json:"maxzoom"`
	Attribution string   `json:"attribution"`
	Scheme      string   `json:"scheme"`
	TileSize    int      `json:"tileSize"`
}

type rawLayer struct {
	ID          string               `json:"id"`
	Type        string               `json:"type"`
	Ref         string               `json:"ref"`
	Source      string               `json:"source"`
	SourceLayer string               `json:"source-layer"`
	MinZoom     *float64             `json:"minzoom"`
	MaxZoom     *float64             `json:"maxzoom"`
	Filter      *expr.Node           `json:"filter"`
	Paint       map[string]expr.Node `json:"paint"`
	Layout      map[string]expr.Node `json:"layout"`
}

type rawDocument struct {
	Version int                  `json:"version"`
	Name    string               `json:"name"`
	Sources map[string]rawSource `json:"sources"`
	Layers  []rawLayer           `json:"layers"`
	Sprite  json.RawMessage      `json:"sprite"`
	Glyphs  string               `json:"glyphs"`
}

// ErrNoLayers is returned for documents without "layers" array.
var ErrNoLayers = errors.New("style document has no layers")

// Parse decodes style document.
func Parse(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to decode style document: %w", err)
	}
	if raw.Layers == nil {
		return nil, ErrNoLayers
	}

	doc := &Document{
		Version: raw.Version,
		Name:    raw.Name,
		Glyphs:  raw.Glyphs,
		Sources: make(map[string]Source, len(raw.Sources)),
		Layers:  make([]Layer, 0, len(raw.Layers)),
	}

	sprites, err := parseSprites(raw.Sprite)
	if err != nil {
		return nil, err
	}
	doc.Sprites = sprites

	for id, s := range raw.Sources {
		doc.Sources[id] = Source{
			ID:          id,
			Kind:        SourceKind(s.Type),
			Tiles:       s.Tiles,
			URL:         s.URL,
			MinZoom:     zoomOrUnbounded(s.MinZoom),
			MaxZoom:     zoomOrUnbounded(s.MaxZoom),
			Attribution: s.Attribution,
			Scheme:      s.Scheme,
			TileSize:    s.TileSize,
		}
	}

	byID := make(map[string]*rawLayer, len(raw.Layers))
	for i := range raw.Layers {
		if _, ok := byID[raw.Layers[i].ID]; !ok {
			byID[raw.Layers[i].ID] = &raw.Layers[i]
		}
	}
	for i := range raw.Layers {
		l, err := resolveRef(raw.Layers[i], byID)
		if err != nil {
			return nil, err
		}
		doc.Layers = append(doc.Layers, newLayer(l))
	}
	return doc, nil
}

func parseSprites(data json.RawMessage) ([]Sprite, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		if len(url) == 0 {
			return nil, nil
		}
		return []Sprite{{ID: DefaultSprite, URL: url}}, nil
	}
	var list []Sprite
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unable to decode sprite reference: %w", err)
	}
	return list, nil
}

// resolveRef copies every property except paint from the referenced layer,
// references are followed recursively.
func resolveRef(l rawLayer, byID map[string]*rawLayer) (rawLayer, error) {
	seen := map[string]bool{l.ID: true}
	for len(l.Ref) > 0 {
		target, ok := byID[l.Ref]
		if !ok {
			return rawLayer{}, fmt.Errorf("layer %q references unknown layer %q", l.ID, l.Ref)
		}
		if seen[target.ID] {
			return rawLayer{}, fmt.Errorf("layer %q has circular reference through %q", l.ID, target.ID)
		}
		seen[target.ID] = true

		paint := l.Paint
		id := l.ID
		l = *target
		l.ID, l.Paint = id, paint
	}
	return l, nil
}

func zoomOrUnbounded(z *float64) float64 {
	if z == nil {
		return Unbounded
	}
	return *z
}

func classifyAll(raw map[string]expr.Node) Properties {
	out := make(Properties, len(raw))
	for name, v := range raw {
		out[name] = Classify(v)
	}
	return out
}

func newLayer(l rawLayer) Layer {
	layer := Layer{
		ID:          l.ID,
		Kind:        LayerKind(strings.ToLower(l.Type)),
		Source:      l.Source,
		SourceLayer: l.SourceLayer,
		MinZoom:     zoomOrUnbounded(l.MinZoom),
		MaxZoom:     zoomOrUnbounded(l.MaxZoom),
		Visible:     true,
		Paint:       classifyAll(l.Paint),
		Layout:      classifyAll(l.Layout),
		HasPaint:    l.Paint != nil,
		HasLayout:   l.Layout != nil,
	}
	if l.Filter != nil {
		layer.Filter = *l.Filter
	}
	if v, ok := l.Layout["visibility"]; ok {
		if s, _ := v.AsString(); s == "none" {
			layer.Visible = false
		}
	}
	return layer
}
