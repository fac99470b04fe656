// Package source derives draw order of style sources and resolves their tile
// endpoints.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"glc/style"
)

// Fetcher retrieves remote documents.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DrawOrder returns ids of sources referenced by layers. Sources are
// recorded at their first reference and the resulting list is reversed, so
// index 0 belongs to the source referenced first most recently. Sink inserts
// every new layer at the top.
func DrawOrder(doc *style.Document) []string {
	var ids []string
	for _, l := range doc.Layers {
		if len(l.Source) == 0 || slices.Contains(ids, l.Source) {
			continue
		}
		ids = append(ids, l.Source)
	}
	slices.Reverse(ids)
	return ids
}

// Resolved is a source with tile endpoint known.
type Resolved struct {
	ID          string
	Kind        style.SourceKind
	Name        string
	Order       int
	Tiles       []string
	MinZoom     float64
	MaxZoom     float64
	Attribution string
	Format      string
	Scheme      string
	Bounds      *orb.Bound
}

// TileJSON is tile metadata document.
type TileJSON struct {
	Name        string    `json:"name"`
	Tiles       []string  `json:"tiles"`
	MinZoom     *float64  `json:"minzoom"`
	MaxZoom     *float64  `json:"maxzoom"`
	Attribution string    `json:"attribution"`
	Format      string    `json:"format"`
	Scheme      string    `json:"scheme"`
	Bounds      []float64 `json:"bounds"`
}

// ParseTileJSON decodes tile metadata.
func ParseTileJSON(data []byte) (*TileJSON, error) {
	var tj TileJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("unable to decode tile metadata: %w", err)
	}
	if len(tj.Tiles) == 0 {
		return nil, fmt.Errorf("tile metadata has no tiles")
	}
	return &tj, nil
}

// Resolver resolves tile endpoints of style sources.
type Resolver struct {
	fetcher Fetcher
	log     *zap.Logger
}

func NewResolver(fetcher Fetcher, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, log: log.Named("sources")}
}

// Resolve returns referenced sources in draw order. Sources which could not
// be resolved are left out and their errors are combined into returned error.
func (r *Resolver) Resolve(ctx context.Context, doc *style.Document) ([]Resolved, error) {
	var (
		out  []Resolved
		errs error
	)
	for order, id := range DrawOrder(doc) {
		src, ok := doc.Sources[id]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("source %q is referenced by layers but not defined", id))
			continue
		}
		res, err := r.resolve(ctx, src)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("source %q: %w", id, err))
			continue
		}
		res.Order = order
		r.log.Debug("Source resolved",
			zap.String("id", id), zap.Int("order", order), zap.Strings("tiles", res.Tiles))
		out = append(out, *res)
	}
	return out, errs
}

func (r *Resolver) resolve(ctx context.Context, src style.Source) (*Resolved, error) {
	res := &Resolved{
		ID:          src.ID,
		Kind:        src.Kind,
		Name:        src.ID,
		Tiles:       src.Tiles,
		MinZoom:     src.MinZoom,
		MaxZoom:     src.MaxZoom,
		Attribution: src.Attribution,
		Scheme:      src.Scheme,
	}
	if len(src.Tiles) > 0 {
		return res, nil
	}
	if len(src.URL) == 0 {
		return nil, fmt.Errorf("neither tiles nor url specified")
	}

	tj, err := r.fetchTileJSON(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	res.merge(tj)
	return res, nil
}

// TileJSON resolves standalone tile metadata URL, id is used when metadata
// does not carry a name.
func (r *Resolver) TileJSON(ctx context.Context, id, url string) (*Resolved, error) {
	tj, err := r.fetchTileJSON(ctx, url)
	if err != nil {
		return nil, err
	}
	res := &Resolved{ID: id, Name: id, MinZoom: style.Unbounded, MaxZoom: style.Unbounded}
	res.merge(tj)
	return res, nil
}

func (r *Resolver) fetchTileJSON(ctx context.Context, url string) (*TileJSON, error) {
	if r.fetcher == nil {
		return nil, fmt.Errorf("unable to fetch %s: no fetcher", url)
	}
	data, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch tile metadata: %w", err)
	}
	return ParseTileJSON(data)
}

func (res *Resolved) merge(tj *TileJSON) {
	res.Tiles = tj.Tiles
	if name := strings.TrimSpace(tj.Name); len(name) > 0 {
		res.Name = name
	}
	if tj.MinZoom != nil {
		res.MinZoom = *tj.MinZoom
	}
	if tj.MaxZoom != nil {
		res.MaxZoom = *tj.MaxZoom
	}
	if len(tj.Attribution) > 0 {
		res.Attribution = tj.Attribution
	}
	if len(tj.Scheme) > 0 {
		res.Scheme = tj.Scheme
	}
	res.Format = tj.Format
	if len(tj.Bounds) == 4 {
		res.Bounds = &orb.Bound{
			Min: orb.Point{tj.Bounds[0], tj.Bounds[1]},
			Max: orb.Point{tj.Bounds[2], tj.Bounds[3]},
		}
	}
}

// TileURL expands tile template for a tile. When several templates are
// available they are distributed by tile coordinates.
func (res *Resolved) TileURL(t maptile.Tile) (string, error) {
	if len(res.Tiles) == 0 {
		return "", fmt.Errorf("source %q has no tile templates", res.ID)
	}
	tmpl := res.Tiles[int((t.X+t.Y)%uint32(len(res.Tiles)))]

	maxY := uint32(1)<<uint32(t.Z) - 1
	y := t.Y
	if res.Scheme == "tms" {
		y = maxY - t.Y
	}

	replacer := strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(y), 10),
		"{-y}", strconv.FormatUint(uint64(maxY-t.Y), 10),
		"{quadkey}", quadkey(t),
		"{bbox-epsg-3857}", mercatorBBox(t),
		"{ratio}", "",
	)
	return replacer.Replace(tmpl), nil
}

// TileAt returns tile covering a point at zoom level.
func TileAt(lon, lat float64, z int) maptile.Tile {
	return maptile.At(orb.Point{lon, lat}, maptile.Zoom(z))
}

// Center returns center of the source bounds or of the whole world.
func (res *Resolved) Center() orb.Point {
	if res.Bounds == nil {
		return orb.Point{0, 0}
	}
	return res.Bounds.Center()
}

func quadkey(t maptile.Tile) string {
	if t.Z == 0 {
		return ""
	}
	key := strconv.FormatUint(t.Quadkey(), 4)
	if pad := int(t.Z) - len(key); pad > 0 {
		key = strings.Repeat("0", pad) + key
	}
	return key
}

func mercatorBBox(t maptile.Tile) string {
	b := t.Bound()
	lo := project.Point(b.Min, project.WGS84.ToMercator)
	hi := project.Point(b.Max, project.WGS84.ToMercator)
	parts := []float64{lo[0], lo[1], hi[0], hi[1]}
	out := make([]string, len(parts))
	for i, v := range parts {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(out, ",")
}
