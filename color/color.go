// Package color parses and serializes color literals used by GL styles.
package color

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// RGBA is a normalized color, alpha is 0-255.
type RGBA struct {
	R, G, B, A uint8
}

var (
	// Transparent is fully transparent black.
	Transparent = RGBA{}
	Black       = RGBA{A: 255}
	White       = RGBA{255, 255, 255, 255}
)

// Error is returned for color literals which could not be understood.
type Error struct {
	Text   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("unable to parse color %q: %s", e.Text, e.Reason)
}

var keywords = map[string]RGBA{
	"transparent": {0, 0, 0, 0},
	"black":       {0, 0, 0, 255},
	"white":       {255, 255, 255, 255},
	"red":         {255, 0, 0, 255},
	"green":       {0, 128, 0, 255},
	"blue":        {0, 0, 255, 255},
	"gray":        {128, 128, 128, 255},
	"grey":        {128, 128, 128, 255},
	"silver":      {192, 192, 192, 255},
	"maroon":      {128, 0, 0, 255},
	"navy":        {0, 0, 128, 255},
	"teal":        {0, 128, 128, 255},
	"olive":       {128, 128, 0, 255},
	"purple":      {128, 0, 128, 255},
	"yellow":      {255, 255, 0, 255},
	"orange":      {255, 165, 0, 255},
	"lime":        {0, 255, 0, 255},
	"aqua":        {0, 255, 255, 255},
	"cyan":        {0, 255, 255, 255},
	"fuchsia":     {255, 0, 255, 255},
	"magenta":     {255, 0, 255, 255},
}

// Parse converts color literal into RGBA. Supported forms are #rgb, #rgba,
// #rrggbb, #rrggbbaa, rgb(), rgba(), hsl(), hsla() and a small set of
// keywords. Any other input is an error.
func Parse(text string) (RGBA, error) {
	src := strings.TrimSpace(text)
	if len(src) == 0 {
		return RGBA{}, &Error{Text: text, Reason: "empty value"}
	}

	lexer := css.NewLexer(parse.NewInputString(src))

	tt, data := nextToken(lexer)
	var (
		c   RGBA
		err error
	)
	switch tt {
	case css.HashToken:
		c, err = parseHex(string(data[1:]))
	case css.IdentToken:
		var ok bool
		if c, ok = keywords[strings.ToLower(string(data))]; !ok {
			err = fmt.Errorf("unknown keyword %q", data)
		}
	case css.FunctionToken:
		name := strings.ToLower(strings.TrimSuffix(string(data), "("))
		var args []argument
		if args, err = collectArguments(lexer); err == nil {
			c, err = fromFunction(name, args)
		}
	default:
		err = fmt.Errorf("unexpected token %s", tt)
	}
	if err != nil {
		return RGBA{}, &Error{Text: text, Reason: err.Error()}
	}

	if tt, data = nextToken(lexer); tt != css.ErrorToken {
		return RGBA{}, &Error{Text: text, Reason: fmt.Sprintf("unexpected trailing %q", data)}
	}
	if lexer.Err() != nil && lexer.Err() != io.EOF {
		return RGBA{}, &Error{Text: text, Reason: lexer.Err().Error()}
	}
	return c, nil
}

// MustParse is Parse for literals known to be correct.
func MustParse(text string) RGBA {
	c, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return c
}

func nextToken(lexer *css.Lexer) (css.TokenType, []byte) {
	for {
		tt, data := lexer.Next()
		if tt != css.WhitespaceToken {
			return tt, data
		}
	}
}

type argument struct {
	value   float64
	percent bool
}

// collectArguments reads function arguments up to closing parenthesis. Both
// comma separated and space separated (with "/" before alpha) forms are
// accepted.
func collectArguments(lexer *css.Lexer) ([]argument, error) {
	var args []argument
	for {
		tt, data := nextToken(lexer)
		switch tt {
		case css.RightParenthesisToken:
			return args, nil
		case css.CommaToken:
		case css.DelimToken:
			if string(data) != "/" {
				return nil, fmt.Errorf("unexpected delimiter %q", data)
			}
		case css.NumberToken:
			v, err := strconv.ParseFloat(string(data), 64)
			if err != nil {
				return nil, err
			}
			args = append(args, argument{value: v})
		case css.PercentageToken:
			v, err := strconv.ParseFloat(strings.TrimSuffix(string(data), "%"), 64)
			if err != nil {
				return nil, err
			}
			args = append(args, argument{value: v, percent: true})
		case css.DimensionToken:
			num, unit := splitDimension(string(data))
			if unit != "deg" {
				return nil, fmt.Errorf("unsupported unit %q", unit)
			}
			v, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return nil, err
			}
			args = append(args, argument{value: v})
		case css.ErrorToken:
			return nil, fmt.Errorf("unterminated function")
		default:
			return nil, fmt.Errorf("unexpected token %s", tt)
		}
	}
}

func splitDimension(s string) (string, string) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
	})
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.ToLower(s[i:])
}

func parseHex(hex string) (RGBA, error) {
	switch len(hex) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range hex {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		return parseHex(expanded.String())
	case 6, 8:
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return RGBA{}, fmt.Errorf("bad hex digits %q", hex)
		}
		if len(hex) == 6 {
			return RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
		}
		return RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
	}
	return RGBA{}, fmt.Errorf("bad hex length %d", len(hex))
}

func fromFunction(name string, args []argument) (RGBA, error) {
	alpha := uint8(255)
	switch name {
	case "rgb", "hsl":
		if len(args) == 4 {
			alpha = alphaByte(args[3])
		} else if len(args) != 3 {
			return RGBA{}, fmt.Errorf("%s() needs 3 arguments, got %d", name, len(args))
		}
	case "rgba", "hsla":
		if len(args) != 4 {
			return RGBA{}, fmt.Errorf("%s() needs 4 arguments, got %d", name, len(args))
		}
		alpha = alphaByte(args[3])
	default:
		return RGBA{}, fmt.Errorf("unknown function %q", name)
	}

	if strings.HasPrefix(name, "rgb") {
		return RGBA{R: channelByte(args[0]), G: channelByte(args[1]), B: channelByte(args[2]), A: alpha}, nil
	}

	if !args[1].percent || !args[2].percent {
		return RGBA{}, fmt.Errorf("%s() saturation and lightness must be percentages", name)
	}
	return FromHSLA(args[0].value, args[1].value, args[2].value, float64(alpha)), nil
}

func channelByte(a argument) uint8 {
	v := a.value
	if a.percent {
		v = v * 255 / 100
	}
	return uint8(math.Round(clamp(v, 0, 255)))
}

func alphaByte(a argument) uint8 {
	v := a.value
	if a.percent {
		v /= 100
	}
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// String serializes color so that Parse(c.String()) == c.
func (c RGBA) String() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(c.Opacity(), 'f', -1, 64))
}

// Opacity returns alpha in 0-1 range.
func (c RGBA) Opacity() float64 {
	return float64(c.A) / 255
}

// WithAlpha returns copy of the color with alpha replaced.
func (c RGBA) WithAlpha(a uint8) RGBA {
	c.A = a
	return c
}

// WithOpacity returns copy of the color with alpha multiplied by opacity.
func (c RGBA) WithOpacity(opacity float64) RGBA {
	c.A = uint8(math.Round(float64(c.A) * clamp(opacity, 0, 1)))
	return c
}

// HSLA returns hue (0-360), saturation and lightness (0-100) and alpha (0-255).
func (c RGBA) HSLA() (h, s, l, a float64) {
	h, s, l = colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return h, s * 100, l * 100, float64(c.A)
}

// FromHSLA is the inverse of HSLA.
func FromHSLA(h, s, l, a float64) RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsl(h, clamp(s/100, 0, 1), clamp(l/100, 0, 1)).Clamped().RGB255()
	return RGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp(a, 0, 255)))}
}

// Expression renders color as a constructor call of the target expression
// language.
func (c RGBA) Expression() string {
	return fmt.Sprintf("color_rgba(%d,%d,%d,%d)", c.R, c.G, c.B, c.A)
}

func (c RGBA) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *RGBA) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
