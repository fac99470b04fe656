package fonts

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/image/font/sfnt"
)

var fontExtensions = map[string]bool{".ttf": true, ".otf": true, ".ttc": true, ".otc": true}

// ScanDirs builds catalog from font files found under dirs. Directories are
// scanned once, files which cannot be parsed are skipped.
func ScanDirs(log *zap.Logger, dirs ...string) *Static {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("fonts")

	c := NewStatic()
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Debug("Unable to access font location", zap.String("path", path), zap.Error(err))
				return nil
			}
			if d.IsDir() || !fontExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				log.Debug("Unable to read font", zap.String("path", path), zap.Error(err))
				return nil
			}
			n, err := c.AddFontData(data)
			if err != nil {
				log.Debug("Unable to parse font", zap.String("path", path), zap.Error(err))
				return nil
			}
			log.Debug("Font registered", zap.String("path", path), zap.Int("faces", n))
			return nil
		})
		if err != nil {
			log.Warn("Unable to scan font directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	log.Debug("Font catalog ready", zap.Int("families", c.Len()))
	return c
}

var collectionTag = []byte("ttcf")

// ErrUnsupportedFormat is returned for data which is neither font nor font
// collection.
var ErrUnsupportedFormat = errors.New("unsupported font format")

// AddFontData registers every face found in TrueType/OpenType font or font
// collection. Returns number of registered faces.
func (c *Static) AddFontData(data []byte) (int, error) {
	var faces []*sfnt.Font
	switch {
	case bytes.HasPrefix(data, collectionTag):
		coll, err := sfnt.ParseCollection(data)
		if err != nil {
			return 0, err
		}
		for i := range coll.NumFonts() {
			f, err := coll.Font(i)
			if err != nil {
				return 0, err
			}
			faces = append(faces, f)
		}
	case filetype.Is(data, "ttf"), filetype.Is(data, "otf"):
		f, err := sfnt.Parse(data)
		if err != nil {
			return 0, err
		}
		faces = append(faces, f)
	default:
		return 0, ErrUnsupportedFormat
	}

	var buf sfnt.Buffer
	for _, f := range faces {
		family := faceName(f, &buf, sfnt.NameIDTypographicFamily, sfnt.NameIDFamily)
		style := faceName(f, &buf, sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily)
		if len(family) == 0 {
			continue
		}
		c.Add(family, style)
	}
	return len(faces), nil
}

func faceName(f *sfnt.Font, buf *sfnt.Buffer, ids ...sfnt.NameID) string {
	for _, id := range ids {
		if name, err := f.Name(buf, id); err == nil && len(name) > 0 {
			return name
		}
	}
	return ""
}
