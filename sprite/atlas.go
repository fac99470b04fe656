package sprite

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gosimple/slug"
	"go.uber.org/multierr"
)

// Fetcher retrieves remote documents.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// URLs returns index and atlas image locations for sprite base URL. Query
// string, when present, is kept at the end.
func URLs(base string, ratio int) (index, atlas string) {
	query := ""
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base, query = base[:i], base[i:]
	}
	suffix := ""
	if ratio > 1 {
		suffix = fmt.Sprintf("@%dx", ratio)
	}
	return base + suffix + ".json" + query, base + suffix + ".png" + query
}

// Atlas is loaded sprite: index and decoded image.
type Atlas struct {
	Index   *Index
	Image   image.Image
	decoder Decoder
}

// Load fetches and decodes sprite index and atlas image.
func Load(ctx context.Context, fetcher Fetcher, base string, ratio int, decoder Decoder) (*Atlas, error) {
	indexURL, imageURL := URLs(base, ratio)

	data, err := fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sprite index: %w", err)
	}
	idx, err := ParseIndex(data)
	if err != nil {
		return nil, err
	}

	if data, err = fetcher.Fetch(ctx, imageURL); err != nil {
		return nil, fmt.Errorf("unable to fetch sprite atlas: %w", err)
	}
	img, err := decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	return &Atlas{Index: idx.WithBounds(img.Bounds()), Image: img, decoder: decoder}, nil
}

// Resolve returns atlas region for the icon name.
func (a *Atlas) Resolve(name string) (Region, bool) {
	if a == nil {
		return Region{}, false
	}
	return a.Index.Resolve(name)
}

// Names returns icon names in natural order.
func (a *Atlas) Names() []string {
	if a == nil {
		return nil
	}
	return a.Index.Names()
}

// Icon extracts icon image.
func (a *Atlas) Icon(name string) (image.Image, error) {
	r, ok := a.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("sprite %q not found", name)
	}
	return a.decoder.Crop(a.Image, r.Rect)
}

// Export writes every icon into dir as PNG file named after icon. Returns
// number of written files, icons which could not be written are reported in
// returned error.
func (a *Atlas) Export(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("unable to create directory: %w", err)
	}

	var (
		count int
		errs  error
		used  = make(map[string]int)
	)
	for _, name := range a.Index.Names() {
		img, err := a.Icon(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		file := slug.Make(name)
		if len(file) == 0 {
			file = "icon"
		}
		if n := used[file]; n > 0 {
			used[file] = n + 1
			file = fmt.Sprintf("%s-%d", file, n)
		} else {
			used[file] = 1
		}
		if err := imaging.Save(img, filepath.Join(dir, file+".png")); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to save sprite %q: %w", name, err))
			continue
		}
		count++
	}
	return count, errs
}
