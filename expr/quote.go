package expr

import (
	"math"
	"strconv"
	"strings"
)

// QuotedColumn returns field reference.
func QuotedColumn(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `''`, "\n", `\n`, "\t", `\t`)

// QuotedString returns string literal.
func QuotedString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

// FormatNumber renders number literal rounded to 6 decimal places.
func FormatNumber(f float64) string {
	r := math.Round(f*1e6) / 1e6
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Bool renders boolean literal.
func Bool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

type segment struct {
	text  string
	field bool
}

func splitTemplate(s string) []segment {
	var (
		out  []segment
		rest = s
	)
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out = append(out, segment{text: rest})
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			out = append(out, segment{text: rest})
			break
		}
		closing += open
		if open > 0 {
			out = append(out, segment{text: rest[:open]})
		}
		if name := rest[open+1 : closing]; len(name) > 0 {
			out = append(out, segment{text: name, field: true})
		} else {
			out = append(out, segment{text: "{}"})
		}
		rest = rest[closing+1:]
	}
	return out
}

// HasTemplate reports if string contains {field} placeholders.
func HasTemplate(s string) bool {
	for _, seg := range splitTemplate(s) {
		if seg.field {
			return true
		}
	}
	return false
}

// MatchTemplate reports if s could be produced by substituting {field}
// placeholders of tmpl with non empty values.
func MatchTemplate(tmpl, s string) bool {
	return matchSegments(splitTemplate(tmpl), s)
}

func matchSegments(segs []segment, s string) bool {
	if len(segs) == 0 {
		return len(s) == 0
	}
	if seg := segs[0]; !seg.field {
		return strings.HasPrefix(s, seg.text) && matchSegments(segs[1:], s[len(seg.text):])
	}
	for i := 1; i <= len(s); i++ {
		if matchSegments(segs[1:], s[i:]) {
			return true
		}
	}
	return false
}

// DecodeTemplate converts string with {field} placeholders into expression.
// String which is exactly one placeholder becomes bare field reference,
// string without placeholders becomes string literal.
func DecodeTemplate(s string) string {
	segs := splitTemplate(s)
	switch {
	case len(segs) == 0:
		return QuotedString("")
	case len(segs) == 1 && segs[0].field:
		return QuotedColumn(segs[0].text)
	case len(segs) == 1:
		return QuotedString(segs[0].text)
	}
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		if seg.field {
			parts = append(parts, QuotedColumn(seg.text))
		} else {
			parts = append(parts, QuotedString(seg.text))
		}
	}
	return "concat(" + strings.Join(parts, ", ") + ")"
}
