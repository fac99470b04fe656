package expr

import (
	"fmt"
	"strings"

	"glc/color"
)

// knownOperators lists GL expression operators. Arrays starting with any of
// these are expressions, everything else is literal data.
var knownOperators = map[string]bool{
	"all": true, "any": true, "none": true, "!": true,
	"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
	"has": true, "!has": true, "in": true, "!in": true,
	"get": true, "match": true, "case": true, "step": true, "interpolate": true,
	"concat": true, "literal": true, "coalesce": true, "to-string": true, "to-number": true,
	"upcase": true, "downcase": true, "zoom": true, "geometry-type": true, "id": true,
	"+": true, "-": true, "*": true, "/": true, "%": true, "^": true,
	"min": true, "max": true, "round": true, "floor": true, "ceil": true, "abs": true, "sqrt": true,
	// recognized but not translated
	"interpolate-hcl": true, "interpolate-lab": true, "let": true, "var": true, "at": true,
	"length": true, "format": true, "number-format": true, "image": true, "to-boolean": true,
	"to-color": true, "rgb": true, "rgba": true, "properties": true, "feature-state": true,
	"heatmap-density": true, "line-progress": true, "typeof": true, "number": true, "string": true,
	"boolean": true, "object": true, "array": true, "collator": true, "resolved-locale": true,
	"is-supported-script": true, "slice": true, "index-of": true, "within": true, "distance": true,
	"accumulated": true, "ln": true, "log10": true, "log2": true, "pi": true, "e": true, "ln2": true,
	"sin": true, "cos": true, "tan": true, "asin": true, "acos": true, "atan": true,
}

// IsOperator reports if name is a GL expression operator.
func IsOperator(name string) bool {
	return knownOperators[name]
}

// IsExpression reports if node is an expression (array with operator head).
func IsExpression(n Node) bool {
	return n.IsArray() && IsOperator(n.Op())
}

// negations maps operators to their null-safe negated form.
var negations = map[string]string{
	"has": "!has", "!has": "has",
	"in": "!in", "!in": "in",
	"==": "!=", "!=": "==",
}

// Compile converts filter (boolean) expression.
func Compile(n Node, ctx Context, w *Warnings) (string, error) {
	switch n.Kind() {
	case KindBool:
		b, _ := n.AsBool()
		return Bool(b), nil
	case KindArray:
	default:
		return "", Unsupported(ctx, w, "filter %s is not an expression", n)
	}

	args := n.Args()
	switch op := n.Op(); op {
	case "all", "any", "none":
		return compileCombinator(op, args, ctx, w)
	case "==", "!=", ">=", ">", "<=", "<":
		return compileComparison(op, args, ctx, w)
	case "has", "!has":
		return compileHas(op, args, ctx, w)
	case "in", "!in":
		return compileMembership(op, args, ctx, w)
	case "!":
		return compileNot(args, ctx, w)
	}
	return CompileValue(n, ctx, w, false)
}

// CompileValue converts expression in value position. When colorExpected is
// set string literals are treated as colors.
func CompileValue(n Node, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	switch n.Kind() {
	case KindNull:
		return "NULL", nil
	case KindBool:
		b, _ := n.AsBool()
		return Bool(b), nil
	case KindNumber:
		f, _ := n.AsNumber()
		return FormatNumber(f), nil
	case KindString:
		s, _ := n.AsString()
		return compileString(s, ctx, w, colorExpected)
	case KindObject:
		return "", Unsupported(ctx, w, "object value %s", n)
	}

	op := n.Op()
	if len(op) == 0 && n.Len() > 0 && n.Index(0).Kind() != KindString {
		return compileArray(n.Items(), ctx, w, colorExpected)
	}

	args := n.Args()
	switch op {
	case "all", "any", "none", "==", "!=", ">=", ">", "<=", "<", "has", "!has", "in", "!in", "!":
		return Compile(n, ctx, w)
	case "get":
		return compileGet(args, ctx, w)
	case "match":
		return compileMatch(args, ctx, w, colorExpected)
	case "case":
		return compileCase(args, ctx, w, colorExpected)
	case "step":
		return compileStep(args, ctx, w, colorExpected)
	case "interpolate":
		return compileInterpolate(args, ctx, w)
	case "literal":
		return compileLiteral(args, ctx, w, colorExpected)
	case "concat":
		return compileCall("concat", args, 1, -1, ctx, w, false)
	case "coalesce":
		return compileCall("coalesce", args, 1, -1, ctx, w, colorExpected)
	case "to-string":
		return compileCall("to_string", args, 1, 1, ctx, w, false)
	case "to-number":
		return compileCall("to_real", args, 1, 1, ctx, w, false)
	case "upcase":
		return compileCall("upper", args, 1, 1, ctx, w, false)
	case "downcase":
		return compileCall("lower", args, 1, 1, ctx, w, false)
	case "min", "max":
		return compileCall(op, args, 1, -1, ctx, w, false)
	case "round", "floor", "ceil", "abs", "sqrt":
		return compileCall(op, args, 1, 1, ctx, w, false)
	case "+", "*":
		return compileArithmetic(op, args, 1, -1, ctx, w)
	case "/", "%", "^":
		return compileArithmetic(op, args, 2, 2, ctx, w)
	case "-":
		if len(args) == 1 {
			v, err := CompileValue(args[0], ctx, w, false)
			if err != nil {
				return "", err
			}
			return "(-" + v + ")", nil
		}
		return compileArithmetic(op, args, 2, 2, ctx, w)
	case "zoom":
		return ctx.Zoom(), nil
	case "geometry-type":
		return "_geom_type", nil
	case "id":
		return "$id", nil
	}
	if len(op) == 0 {
		return "", Unsupported(ctx, w, "empty expression")
	}
	return "", Unsupported(ctx, w, "expression operator %q is not supported", op)
}

func compileString(s string, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	if !colorExpected {
		return QuotedString(s), nil
	}
	c, err := color.Parse(s)
	if err != nil {
		return "", Unsupported(ctx, w, "%v", err)
	}
	return c.Expression(), nil
}

func compileArray(items []Node, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		v, err := CompileValue(item, ctx, w, colorExpected)
		if err != nil {
			return "", err
		}
		parts = append(parts, v)
	}
	return "array(" + strings.Join(parts, ", ") + ")", nil
}

func compileCombinator(op string, args []Node, ctx Context, w *Warnings) (string, error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		s, err := Compile(a, ctx, w)
		if err != nil {
			// partial combinator would change meaning of the filter
			return "", fmt.Errorf("%q: %w", op, err)
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return Bool(op != "any"), nil
	}
	switch op {
	case "all":
		return "(" + strings.Join(parts, ") AND (") + ")", nil
	case "any":
		return "(" + strings.Join(parts, ") OR (") + ")", nil
	}
	return "NOT (" + strings.Join(parts, ") AND NOT (") + ")", nil
}

var mirrored = map[string]string{"==": "==", "!=": "!=", "<": ">", ">": "<", "<=": ">=", ">=": "<="}

func compileComparison(op string, args []Node, ctx Context, w *Warnings) (string, error) {
	if len(args) != 2 {
		return "", Unsupported(ctx, w, "%q needs 2 arguments, got %d", op, len(args))
	}
	left, right := args[0], args[1]
	if left.Kind() != KindArray && IsExpression(right) && right.Op() != "literal" {
		// literal on the left side of an expression comparison
		left, right, op = right, left, mirrored[op]
	}

	key, isType, err := compileKey(left, ctx, w)
	if err != nil {
		return "", err
	}
	if right.IsNull() {
		switch op {
		case "==":
			return key + " IS NULL", nil
		case "!=":
			return key + " IS NOT NULL", nil
		}
		return "", Unsupported(ctx, w, "%q comparison with null", op)
	}
	val, err := compileOperand(right, isType, ctx, w)
	if err != nil {
		return "", err
	}
	switch op {
	case "==":
		op = "IS"
	case "!=":
		op = "IS NOT"
	}
	return key + " " + op + " " + val, nil
}

func compileHas(op string, args []Node, ctx Context, w *Warnings) (string, error) {
	if len(args) != 1 {
		return "", Unsupported(ctx, w, "%q needs 1 argument, got %d", op, len(args))
	}
	if _, ok := args[0].AsString(); !ok {
		return "", Unsupported(ctx, w, "%q needs attribute name, got %s", op, args[0])
	}
	key, _, err := compileKey(args[0], ctx, w)
	if err != nil {
		return "", err
	}
	if op == "has" {
		return key + " IS NOT NULL", nil
	}
	return key + " IS NULL", nil
}

func compileMembership(op string, args []Node, ctx Context, w *Warnings) (string, error) {
	if len(args) == 0 {
		return "", Unsupported(ctx, w, "%q needs arguments", op)
	}
	needle, values := args[0], args[1:]
	if len(values) == 1 && values[0].Op() == "literal" {
		// expression form: ["in", needle, ["literal", [...]]]
		haystack := values[0].Index(1)
		if !haystack.IsArray() {
			return "", Unsupported(ctx, w, "%q substring search is not supported", op)
		}
		values = haystack.Items()
	}

	key, isType, err := compileKey(needle, ctx, w)
	if err != nil {
		return "", err
	}
	items := make([]string, 0, len(values))
	for _, v := range values {
		if v.IsArray() {
			return "", Unsupported(ctx, w, "%q against expression %s", op, v)
		}
		s, err := compileOperand(v, isType, ctx, w)
		if err != nil {
			return "", err
		}
		items = append(items, s)
	}
	if len(items) == 0 {
		return Bool(op == "!in"), nil
	}
	return membership(key, items, op == "!in"), nil
}

func membership(key string, items []string, negate bool) string {
	list := strings.Join(items, ", ")
	if negate {
		return fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))", key, key, list)
	}
	return fmt.Sprintf("%s IN (%s)", key, list)
}

func compileNot(args []Node, ctx Context, w *Warnings) (string, error) {
	if len(args) != 1 {
		return "", Unsupported(ctx, w, "\"!\" needs 1 argument, got %d", len(args))
	}
	child := args[0]
	if b, ok := child.AsBool(); ok {
		return Bool(!b), nil
	}
	if !child.IsArray() {
		return "", Unsupported(ctx, w, "\"!\" of non expression %s", child)
	}
	if child.Op() == "!" && child.Len() == 2 {
		return Compile(child.Index(1), ctx, w)
	}
	if neg, ok := negations[child.Op()]; ok {
		return Compile(child.WithOp(neg), ctx, w)
	}
	inner, err := Compile(child, ctx, w)
	if err != nil {
		return "", err
	}
	return "NOT (" + inner + ")", nil
}

// compileKey handles left side of legacy filters where plain strings are
// attribute names.
func compileKey(n Node, ctx Context, w *Warnings) (string, bool, error) {
	if s, ok := n.AsString(); ok {
		switch s {
		case "$type":
			return "_geom_type", true, nil
		case "$id":
			return "$id", false, nil
		}
		return QuotedColumn(s), false, nil
	}
	if n.Op() == "geometry-type" {
		return "_geom_type", true, nil
	}
	if !n.IsArray() {
		return "", false, Unsupported(ctx, w, "unexpected key %s", n)
	}
	v, err := CompileValue(n, ctx, w, false)
	return v, false, err
}

var geometryTypes = map[string]string{
	"Point": "Point", "MultiPoint": "Point",
	"LineString": "Line", "MultiLineString": "Line",
	"Polygon": "Polygon", "MultiPolygon": "Polygon",
}

func compileOperand(n Node, isType bool, ctx Context, w *Warnings) (string, error) {
	if s, ok := n.AsString(); ok {
		if isType {
			if gt, ok := geometryTypes[s]; ok {
				s = gt
			}
		}
		return QuotedString(s), nil
	}
	return CompileValue(n, ctx, w, false)
}

func compileGet(args []Node, ctx Context, w *Warnings) (string, error) {
	if len(args) != 1 {
		return "", Unsupported(ctx, w, "\"get\" with %d arguments", len(args))
	}
	name, ok := args[0].AsString()
	if !ok {
		return "", Unsupported(ctx, w, "\"get\" needs attribute name, got %s", args[0])
	}
	return FieldReference(name), nil
}

// FieldReference returns attribute reference. Names which are always present
// in tile schema are referenced directly.
func FieldReference(name string) string {
	if name == "class" || strings.HasPrefix(name, "name") {
		return QuotedColumn(name)
	}
	return "attribute($currentfeature, " + QuotedString(name) + ")"
}

func compileMatch(args []Node, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	if len(args) < 4 || len(args)%2 != 0 {
		return "", Unsupported(ctx, w, "\"match\" needs input, label/output pairs and fallback, got %d arguments", len(args))
	}
	input, err := CompileValue(args[0], ctx, w, false)
	if err != nil {
		return "", err
	}
	pairs, fallback := args[1:len(args)-1], args[len(args)-1]

	if len(pairs) == 2 {
		out, okOut := pairs[1].AsBool()
		fb, okFb := fallback.AsBool()
		if okOut && okFb {
			if out == fb {
				return Bool(out), nil
			}
			return matchCondition(input, pairs[0], !out, ctx, w)
		}
	}

	var b strings.Builder
	b.WriteString("CASE")
	for i := 0; i < len(pairs); i += 2 {
		cond, err := matchCondition(input, pairs[i], false, ctx, w)
		if err != nil {
			return "", err
		}
		val, err := CompileValue(pairs[i+1], ctx, w, colorExpected)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " WHEN %s THEN %s", cond, val)
	}
	fb, err := CompileValue(fallback, ctx, w, colorExpected)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, " ELSE %s END", fb)
	return b.String(), nil
}

func matchCondition(input string, label Node, negate bool, ctx Context, w *Warnings) (string, error) {
	if label.IsArray() {
		items := make([]string, 0, label.Len())
		for _, l := range label.Items() {
			if l.IsArray() || l.Kind() == KindObject {
				return "", Unsupported(ctx, w, "\"match\" label %s", l)
			}
			v, err := CompileValue(l, ctx, w, false)
			if err != nil {
				return "", err
			}
			items = append(items, v)
		}
		return membership(input, items, negate), nil
	}
	if label.Kind() == KindObject {
		return "", Unsupported(ctx, w, "\"match\" label %s", label)
	}
	v, err := CompileValue(label, ctx, w, false)
	if err != nil {
		return "", err
	}
	if negate {
		return input + " IS NOT " + v, nil
	}
	return input + " IS " + v, nil
}

func compileCase(args []Node, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	if len(args) < 3 || len(args)%2 != 1 {
		return "", Unsupported(ctx, w, "\"case\" needs condition/output pairs and fallback, got %d arguments", len(args))
	}
	var b strings.Builder
	b.WriteString("CASE")
	for i := 0; i+1 < len(args); i += 2 {
		cond, err := Compile(args[i], ctx, w)
		if err != nil {
			return "", err
		}
		val, err := CompileValue(args[i+1], ctx, w, colorExpected)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " WHEN %s THEN %s", cond, val)
	}
	fb, err := CompileValue(args[len(args)-1], ctx, w, colorExpected)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, " ELSE %s END", fb)
	return b.String(), nil
}

func compileStep(args []Node, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	if len(args) < 2 || len(args)%2 != 0 {
		return "", Unsupported(ctx, w, "\"step\" needs input, base output and threshold/output pairs, got %d arguments", len(args))
	}
	outputs := make([]string, 0, len(args)/2)
	for i := 1; i < len(args); i += 2 {
		v, err := CompileValue(args[i], ctx, w, colorExpected)
		if err != nil {
			return "", err
		}
		outputs = append(outputs, v)
	}
	if len(outputs) == 1 {
		return outputs[0], nil
	}
	input, err := CompileValue(args[0], ctx, w, false)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CASE")
	for i := 2; i < len(args); i += 2 {
		t, ok := args[i].AsNumber()
		if !ok {
			return "", Unsupported(ctx, w, "\"step\" threshold %s is not a number", args[i])
		}
		fmt.Fprintf(&b, " WHEN %s < %s THEN %s", input, FormatNumber(t), outputs[i/2-1])
	}
	fmt.Fprintf(&b, " ELSE %s END", outputs[len(outputs)-1])
	return b.String(), nil
}

// compileInterpolate handles interpolate nested inside other expressions or
// driven by something other than zoom. Only numeric outputs are supported.
func compileInterpolate(args []Node, ctx Context, w *Warnings) (string, error) {
	if len(args) < 4 || len(args)%2 != 0 {
		return "", Unsupported(ctx, w, "\"interpolate\" needs type, input and stops, got %d arguments", len(args))
	}
	base := 1.0
	switch kind := args[0]; kind.Op() {
	case "linear":
	case "exponential":
		b, ok := kind.Index(1).AsNumber()
		if !ok {
			return "", Unsupported(ctx, w, "\"interpolate\" exponential base %s", kind.Index(1))
		}
		base = b
	default:
		return "", Unsupported(ctx, w, "\"interpolate\" type %s is not supported", kind)
	}
	input, err := CompileValue(args[1], ctx, w, false)
	if err != nil {
		return "", err
	}

	var stops, values []float64
	for i := 2; i+1 < len(args); i += 2 {
		z, okZ := args[i].AsNumber()
		v, okV := args[i+1].AsNumber()
		if !okZ || !okV {
			return "", Unsupported(ctx, w, "\"interpolate\" supports only numeric stops, got %s: %s", args[i], args[i+1])
		}
		stops, values = append(stops, z), append(values, v)
	}
	if len(stops) == 1 {
		return FormatNumber(values[0]), nil
	}

	segment := func(i int) string {
		return Segment(input, stops[i], stops[i+1], values[i], values[i+1], base)
	}
	if len(stops) == 2 {
		return segment(0), nil
	}
	var b strings.Builder
	b.WriteString("CASE")
	for i := 0; i < len(stops)-1; i++ {
		fmt.Fprintf(&b, " WHEN %s <= %s THEN %s", input, FormatNumber(stops[i+1]), segment(i))
	}
	fmt.Fprintf(&b, " ELSE %s END", FormatNumber(values[len(values)-1]))
	return b.String(), nil
}

// Segment interpolates input between two stops. Exponential segments use
// the closed form of GL renderers: v0 + (v1-v0) * (base^(t-z0) - 1) /
// (base^(z1-z0) - 1) with t clamped to [z0, z1].
func Segment(input string, z0, z1, v0, v1, base float64) string {
	if v0 == v1 {
		return FormatNumber(v0)
	}
	if base == 1 {
		return fmt.Sprintf("scale_linear(%s, %s, %s, %s, %s)", input,
			FormatNumber(z0), FormatNumber(z1), FormatNumber(v0), FormatNumber(v1))
	}
	return fmt.Sprintf("(%s + %s * (%s ^ (clamp(%s, %s, %s) - %s) - 1) / (%s ^ (%s - %s) - 1))",
		FormatNumber(v0), FormatNumber(v1-v0),
		FormatNumber(base), FormatNumber(z0), input, FormatNumber(z1), FormatNumber(z0),
		FormatNumber(base), FormatNumber(z1), FormatNumber(z0))
}

func compileLiteral(args []Node, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	if len(args) != 1 {
		return "", Unsupported(ctx, w, "\"literal\" needs 1 argument, got %d", len(args))
	}
	v := args[0]
	if s, ok := v.AsString(); ok && !colorExpected {
		return DecodeTemplate(s), nil
	}
	if v.IsArray() {
		return compileArray(v.Items(), ctx, w, colorExpected)
	}
	return CompileValue(v, ctx, w, colorExpected)
}

func compileCall(name string, args []Node, minArgs, maxArgs int, ctx Context, w *Warnings, colorExpected bool) (string, error) {
	parts, err := compileArguments(name, args, minArgs, maxArgs, ctx, w, colorExpected)
	if err != nil {
		return "", err
	}
	return name + "(" + strings.Join(parts, ", ") + ")", nil
}

func compileArithmetic(op string, args []Node, minArgs, maxArgs int, ctx Context, w *Warnings) (string, error) {
	parts, err := compileArguments(op, args, minArgs, maxArgs, ctx, w, false)
	if err != nil {
		return "", err
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}

func compileArguments(name string, args []Node, minArgs, maxArgs int, ctx Context, w *Warnings, colorExpected bool) ([]string, error) {
	if len(args) < minArgs || (maxArgs >= 0 && len(args) > maxArgs) {
		return nil, Unsupported(ctx, w, "%q with %d arguments", name, len(args))
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		v, err := CompileValue(a, ctx, w, colorExpected)
		if err != nil {
			return nil, err
		}
		parts = append(parts, v)
	}
	return parts, nil
}
