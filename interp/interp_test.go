package interp

import (
	"math"
	"testing"

	"glc/color"
	"glc/expr"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNumeric_LinearTwoStops(t *testing.T) {
	f := NewNumeric([]Stop[float64]{{10, 2}, {20, 6}}, 1, 1)

	for _, tc := range []struct{ z, want float64 }{
		{10, 2}, {20, 6}, {15, 4}, {0, 2}, {30, 6},
	} {
		if got := f.At(tc.z); !almostEqual(got, tc.want) {
			t.Errorf("At(%v) = %v, want %v", tc.z, got, tc.want)
		}
	}
	if got, want := f.Expression(expr.NewContext()), "scale_linear(@vector_tile_zoom, 10, 20, 2, 6)"; got != want {
		t.Errorf("Expression() = %s, want %s", got, want)
	}
}

func TestNumeric_Multiplier(t *testing.T) {
	f := NewNumeric([]Stop[float64]{{10, 2}, {20, 6}}, 1, 2)
	if got, want := f.Expression(expr.NewContext()), "scale_linear(@vector_tile_zoom, 10, 20, 4, 12)"; got != want {
		t.Errorf("Expression() = %s, want %s", got, want)
	}
	if got := f.At(15); !almostEqual(got, 8) {
		t.Errorf("At(15) = %v, want 8", got)
	}
}

func TestNumeric_Exponential(t *testing.T) {
	f := NewNumeric([]Stop[float64]{{0, 0}, {10, 1023}}, 2, 1)

	closedForm := func(z float64) float64 {
		return 0 + (1023-0)*(math.Pow(2, z-0)-1)/(math.Pow(2, 10-0)-1)
	}
	for _, z := range []float64{0, 5, 10, 3.3} {
		if got := f.At(z); !almostEqual(got, closedForm(z)) {
			t.Errorf("At(%v) = %v, want %v", z, got, closedForm(z))
		}
	}
	if got := f.At(5); !almostEqual(got, 31) {
		t.Errorf("At(5) = %v, want 31", got)
	}

	prev := f.At(0)
	for z := 0.25; z <= 10; z += 0.25 {
		cur := f.At(z)
		if cur < prev {
			t.Fatalf("not monotonic at %v: %v < %v", z, cur, prev)
		}
		prev = cur
	}

	want := "(0 + 1023 * (2 ^ (clamp(0, @vector_tile_zoom, 10) - 0) - 1) / (2 ^ (10 - 0) - 1))"
	if got := f.Expression(expr.NewContext()); got != want {
		t.Errorf("Expression()\n got: %s\nwant: %s", got, want)
	}
}

func TestNumeric_Ladder(t *testing.T) {
	f := NewNumeric([]Stop[float64]{{5, 1}, {10, 2}, {15, 10}}, 1, 1)

	for _, tc := range []struct{ z, want float64 }{
		{0, 1}, {5, 1}, {7.5, 1.5}, {10, 2}, {12.5, 6}, {15, 10}, {20, 10},
	} {
		if got := f.At(tc.z); !almostEqual(got, tc.want) {
			t.Errorf("At(%v) = %v, want %v", tc.z, got, tc.want)
		}
	}

	want := "CASE WHEN @vector_tile_zoom <= 5 THEN 1" +
		" WHEN @vector_tile_zoom <= 10 THEN scale_linear(@vector_tile_zoom, 5, 10, 1, 2)" +
		" WHEN @vector_tile_zoom <= 15 THEN scale_linear(@vector_tile_zoom, 10, 15, 2, 10)" +
		" ELSE 10 END"
	if got := f.Expression(expr.NewContext()); got != want {
		t.Errorf("Expression()\n got: %s\nwant: %s", got, want)
	}
}

func TestNumeric_Degenerate(t *testing.T) {
	f := NewNumeric([]Stop[float64]{{5, 3}, {10, 3}}, 1.5, 1)
	if got := f.Expression(expr.NewContext()); got != "3" {
		t.Errorf("Expression() = %s, want 3", got)
	}
	if v, ok := f.Constant(); !ok || v != 3 {
		t.Errorf("Constant() = %v %v", v, ok)
	}
	if got := f.At(7); got != 3 {
		t.Errorf("At(7) = %v", got)
	}
}

func TestColor(t *testing.T) {
	f := NewColor([]Stop[color.RGBA]{
		{0, color.MustParse("hsl(0, 100%, 50%)")},
		{10, color.MustParse("hsl(120, 100%, 50%)")},
	}, 1)

	if got := f.At(0); got != (color.RGBA{R: 255, G: 0, B: 0, A: 255}) {
		t.Errorf("At(0) = %+v", got)
	}
	if got := f.At(5); got != (color.RGBA{R: 255, G: 255, B: 0, A: 255}) {
		t.Errorf("At(5) = %+v, want yellow", got)
	}
	if got := f.At(10); got != (color.RGBA{R: 0, G: 255, B: 0, A: 255}) {
		t.Errorf("At(10) = %+v", got)
	}

	want := "color_hsla(scale_linear(@vector_tile_zoom, 0, 10, 0, 120), 100, 50, 255)"
	if got := f.Expression(expr.NewContext()); got != want {
		t.Errorf("Expression()\n got: %s\nwant: %s", got, want)
	}
}

func TestOpacity(t *testing.T) {
	f := NewOpacity([]Stop[float64]{{0, 0}, {10, 1}}, 1, 255)
	want := "set_color_part(@symbol_color, 'alpha', scale_linear(@vector_tile_zoom, 0, 10, 0, 255))"
	if got := f.Expression(expr.NewContext()); got != want {
		t.Errorf("Expression()\n got: %s\nwant: %s", got, want)
	}
	if got := f.At(5); !almostEqual(got, 127.5) {
		t.Errorf("At(5) = %v", got)
	}
}

func TestPoint(t *testing.T) {
	f := NewPoint([]Stop[[2]float64]{{0, [2]float64{0, 0}}, {10, [2]float64{2, 4}}}, 1, 1)
	want := "array(scale_linear(@vector_tile_zoom, 0, 10, 0, 2), scale_linear(@vector_tile_zoom, 0, 10, 0, 4))"
	if got := f.Expression(expr.NewContext()); got != want {
		t.Errorf("Expression()\n got: %s\nwant: %s", got, want)
	}
	if got := f.At(5); got != [2]float64{1, 2} {
		t.Errorf("At(5) = %v", got)
	}
}

func TestSteps(t *testing.T) {
	f := Steps[string]{Stops: []Stop[string]{{10, "a"}, {14, "b"}}}

	for _, tc := range []struct {
		z    float64
		want string
	}{
		{5, "a"}, {12, "a"}, {14, "b"}, {20, "b"},
	} {
		if got := f.At(tc.z); got != tc.want {
			t.Errorf("At(%v) = %q, want %q", tc.z, got, tc.want)
		}
	}

	want := "CASE WHEN @vector_tile_zoom < 14 THEN 'a' ELSE 'b' END"
	if got := f.Expression(expr.NewContext(), expr.QuotedString); got != want {
		t.Errorf("Expression() = %s, want %s", got, want)
	}
}
