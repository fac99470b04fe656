// Package sprite resolves icon and pattern names against sprite atlas index.
// Crop rectangle computation is pure, decoding of atlas images is done by
// Decoder.
package sprite

import (
	"encoding/json"
	"fmt"
	"image"
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"
)

// Entry is a single sprite index record.
type Entry struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	SDF        bool    `json:"sdf"`
}

// Region is resolved icon location inside atlas image.
type Region struct {
	Name       string          `json:"name" yaml:"name"`
	Rect       image.Rectangle `json:"rect" yaml:"rect"`
	PixelRatio float64         `json:"pixel_ratio,omitempty" yaml:"pixel_ratio,omitempty"`
	SDF        bool            `json:"sdf,omitempty" yaml:"sdf,omitempty"`
}

// Size returns icon size in style pixels.
func (r Region) Size() (w, h float64) {
	ratio := r.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	return float64(r.Rect.Dx()) / ratio, float64(r.Rect.Dy()) / ratio
}

// Index maps icon names to atlas regions.
type Index struct {
	entries map[string]Entry
	// bounds of atlas image, empty when unknown
	bounds image.Rectangle
}

// ParseIndex decodes sprite index JSON.
func ParseIndex(data []byte) (*Index, error) {
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unable to decode sprite index: %w", err)
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	return &Index{entries: entries}, nil
}

// WithBounds returns index which also checks regions against atlas image
// bounds.
func (idx *Index) WithBounds(bounds image.Rectangle) *Index {
	return &Index{entries: idx.entries, bounds: bounds}
}

// Len returns number of entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Names returns entry names in natural order.
func (idx *Index) Names() []string {
	if idx == nil {
		return nil
	}
	names := slices.Collect(maps.Keys(idx.entries))
	sort.Sort(natural.StringSlice(names))
	return names
}

// Resolve returns atlas region for the icon name. Empty, negative or out of
// bounds regions are not resolved.
func (idx *Index) Resolve(name string) (Region, bool) {
	if idx == nil {
		return Region{}, false
	}
	e, ok := idx.entries[name]
	if !ok || e.Width <= 0 || e.Height <= 0 || e.X < 0 || e.Y < 0 {
		return Region{}, false
	}
	rect := image.Rect(e.X, e.Y, e.X+e.Width, e.Y+e.Height)
	if !idx.bounds.Empty() && !rect.In(idx.bounds) {
		return Region{}, false
	}
	return Region{Name: name, Rect: rect, PixelRatio: e.PixelRatio, SDF: e.SDF}, true
}
