package expr

import (
	"errors"
	"fmt"
)

// DefaultZoomVariable is the name of the current zoom level variable in
// the target expression language.
const DefaultZoomVariable = "@vector_tile_zoom"

// ErrUnsupported marks soft failures: expression or value shape the compiler
// cannot translate. Property which failed this way is skipped.
var ErrUnsupported = errors.New("unsupported")

// Context carries immutable per-pass compilation settings.
type Context struct {
	// ZoomVariable is substituted for ["zoom"] and used by interpolation.
	ZoomVariable string
	// PixelSize converts style pixels into render units.
	PixelSize float64
	// LayerID identifies style layer being compiled, used for warnings.
	LayerID string
}

// NewContext returns context with default settings.
func NewContext() Context {
	return Context{ZoomVariable: DefaultZoomVariable, PixelSize: 1}
}

// WithLayer returns copy of the context for a particular style layer.
func (c Context) WithLayer(id string) Context {
	c.LayerID = id
	return c
}

// Zoom returns zoom variable name.
func (c Context) Zoom() string {
	if len(c.ZoomVariable) == 0 {
		return DefaultZoomVariable
	}
	return c.ZoomVariable
}

// Pixels converts style pixels into render units.
func (c Context) Pixels(v float64) float64 {
	if c.PixelSize == 0 {
		return v
	}
	return v * c.PixelSize
}

// Warning is non fatal diagnostic produced during compilation.
type Warning struct {
	LayerID string `json:"layer" yaml:"layer"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if len(w.LayerID) == 0 {
		return w.Message
	}
	return w.LayerID + ": " + w.Message
}

// Warnings accumulates diagnostics of a single compilation pass. Not to be
// used concurrently.
type Warnings struct {
	list []Warning
}

// Add records warning for the layer in context. Calls on nil accumulator are
// ignored.
func (w *Warnings) Add(ctx Context, format string, args ...any) {
	if w == nil {
		return
	}
	w.list = append(w.list, Warning{LayerID: ctx.LayerID, Message: fmt.Sprintf(format, args...)})
}

// List returns accumulated warnings in order they were added.
func (w *Warnings) List() []Warning {
	if w == nil {
		return nil
	}
	out := make([]Warning, len(w.list))
	copy(out, w.list)
	return out
}

func (w *Warnings) Len() int {
	if w == nil {
		return 0
	}
	return len(w.list)
}

// Unsupported records warning and returns soft failure error.
func Unsupported(ctx Context, w *Warnings, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	w.Add(ctx, "%s", msg)
	return fmt.Errorf("%w: %s", ErrUnsupported, msg)
}
