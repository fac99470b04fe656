package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Kind is the JSON kind of a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is an immutable JSON value. GL expressions are arrays whose first
// element names the operator. Nodes are never modified after construction,
// all "modifying" methods return new values.
type Node struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	items  []Node
	keys   []string
	fields map[string]Node
}

func NewNull() Node { return Node{} }
func NewBool(b bool) Node { return Node{kind: KindBool, b: b} }
func NewNumber(f float64) Node { return Node{kind: KindNumber, num: f} }
func NewString(s string) Node { return Node{kind: KindString, str: s} }
func NewArray(items ...Node) Node { return Node{kind: KindArray, items: slices.Clone(items)} }

// NewExpression builds operator node.
func NewExpression(op string, args ...Node) Node {
	return Node{kind: KindArray, items: append([]Node{NewString(op)}, args...)}
}

// NewObject builds object node, keys are kept sorted.
func NewObject(fields map[string]Node) Node {
	n := Node{kind: KindObject, fields: make(map[string]Node, len(fields))}
	for k, v := range fields {
		n.keys = append(n.keys, k)
		n.fields[k] = v
	}
	slices.Sort(n.keys)
	return n
}

// FromValue converts result of json.Unmarshal into any into Node.
func FromValue(v any) (Node, error) {
	switch t := v.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(t), nil
	case float64:
		return NewNumber(t), nil
	case int:
		return NewNumber(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Node{}, fmt.Errorf("bad number %q: %w", t, err)
		}
		return NewNumber(f), nil
	case string:
		return NewString(t), nil
	case []any:
		n := Node{kind: KindArray, items: make([]Node, 0, len(t))}
		for i, e := range t {
			item, err := FromValue(e)
			if err != nil {
				return Node{}, fmt.Errorf("element %d: %w", i, err)
			}
			n.items = append(n.items, item)
		}
		return n, nil
	case map[string]any:
		fields := make(map[string]Node, len(t))
		for k, e := range t {
			item, err := FromValue(e)
			if err != nil {
				return Node{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = item
		}
		return NewObject(fields), nil
	}
	return Node{}, fmt.Errorf("unsupported value type %T", v)
}

// Parse decodes JSON text into Node.
func Parse(data []byte) (Node, error) {
	var n Node
	if err := n.UnmarshalJSON(data); err != nil {
		return Node{}, err
	}
	return n, nil
}

// MustParse is Parse for literals known to be correct.
func MustParse(text string) Node {
	n, err := Parse([]byte(text))
	if err != nil {
		panic(err)
	}
	return n
}

func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unable to decode expression: %w", err)
	}
	parsed, err := FromValue(v)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value())
}

// Value converts node back into plain Go values.
func (n Node) Value() any {
	switch n.kind {
	case KindBool:
		return n.b
	case KindNumber:
		return n.num
	case KindString:
		return n.str
	case KindArray:
		out := make([]any, 0, len(n.items))
		for _, item := range n.items {
			out = append(out, item.Value())
		}
		return out
	case KindObject:
		out := make(map[string]any, len(n.fields))
		for k, v := range n.fields {
			out[k] = v.Value()
		}
		return out
	}
	return nil
}

// String returns compact JSON representation, used in diagnostics.
func (n Node) String() string {
	data, err := n.MarshalJSON()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}

func (n Node) Kind() Kind { return n.kind }
func (n Node) IsNull() bool { return n.kind == KindNull }
func (n Node) IsArray() bool { return n.kind == KindArray }

func (n Node) AsBool() (bool, bool) { return n.b, n.kind == KindBool }
func (n Node) AsNumber() (float64, bool) { return n.num, n.kind == KindNumber }
func (n Node) AsString() (string, bool) { return n.str, n.kind == KindString }

// Len returns number of array elements or object fields.
func (n Node) Len() int {
	switch n.kind {
	case KindArray:
		return len(n.items)
	case KindObject:
		return len(n.keys)
	}
	return 0
}

// Index returns array element or null node when out of range.
func (n Node) Index(i int) Node {
	if n.kind != KindArray || i < 0 || i >= len(n.items) {
		return Node{}
	}
	return n.items[i]
}

// Items returns copy of array elements.
func (n Node) Items() []Node {
	return slices.Clone(n.items)
}

// Field returns object field.
func (n Node) Field(name string) (Node, bool) {
	if n.kind != KindObject {
		return Node{}, false
	}
	v, ok := n.fields[name]
	return v, ok
}

// Keys returns object keys in sorted order.
func (n Node) Keys() []string {
	return slices.Clone(n.keys)
}

// Op returns operator name for expression arrays, empty string otherwise.
func (n Node) Op() string {
	if n.kind != KindArray || len(n.items) == 0 {
		return ""
	}
	s, _ := n.items[0].AsString()
	return s
}

// Args returns expression arguments (everything after operator).
func (n Node) Args() []Node {
	if n.kind != KindArray || len(n.items) == 0 {
		return nil
	}
	return slices.Clone(n.items[1:])
}

// WithOp returns a copy of the expression with operator replaced. Receiver is
// left untouched.
func (n Node) WithOp(op string) Node {
	items := make([]Node, len(n.items))
	copy(items, n.items)
	if len(items) == 0 {
		items = append(items, NewString(op))
	} else {
		items[0] = NewString(op)
	}
	return Node{kind: KindArray, items: items}
}

// Numbers returns array elements as numbers.
func (n Node) Numbers() ([]float64, bool) {
	if n.kind != KindArray {
		return nil, false
	}
	out := make([]float64, 0, len(n.items))
	for _, item := range n.items {
		f, ok := item.AsNumber()
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// Strings returns array elements as strings.
func (n Node) Strings() ([]string, bool) {
	if n.kind != KindArray {
		return nil, false
	}
	out := make([]string, 0, len(n.items))
	for _, item := range n.items {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Equal reports deep equality.
func (n Node) Equal(o Node) bool {
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindNull:
		return true
	case KindBool:
		return n.b == o.b
	case KindNumber:
		return n.num == o.num
	case KindString:
		return n.str == o.str
	case KindArray:
		return slices.EqualFunc(n.items, o.items, Node.Equal)
	case KindObject:
		if !slices.Equal(n.keys, o.keys) {
			return false
		}
		for k, v := range n.fields {
			if !v.Equal(o.fields[k]) {
				return false
			}
		}
		return true
	}
	return false
}
