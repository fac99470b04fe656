// Package fonts matches GL text-font stacks against available fonts.
package fonts

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Catalog answers font availability questions.
type Catalog interface {
	HasFamily(family string) bool
	HasStyle(family, style string) bool
}

// Font is resolved font family and style. Empty style means regular.
type Font struct {
	Family string `json:"family" yaml:"family"`
	Style  string `json:"style,omitempty" yaml:"style,omitempty"`
}

func (f Font) String() string {
	if len(f.Style) == 0 {
		return f.Family
	}
	return f.Family + " " + f.Style
}

// Static is in-memory catalog, names are compared case insensitively.
type Static struct {
	families map[string]map[string]bool
}

func NewStatic() *Static {
	return &Static{families: make(map[string]map[string]bool)}
}

// Add registers family with styles.
func (c *Static) Add(family string, styles ...string) *Static {
	key := strings.ToLower(family)
	set, ok := c.families[key]
	if !ok {
		set = make(map[string]bool)
		c.families[key] = set
	}
	for _, s := range styles {
		set[strings.ToLower(s)] = true
	}
	return c
}

func (c *Static) HasFamily(family string) bool {
	_, ok := c.families[strings.ToLower(family)]
	return ok
}

func (c *Static) HasStyle(family, style string) bool {
	set, ok := c.families[strings.ToLower(family)]
	return ok && set[strings.ToLower(style)]
}

// Len returns number of families.
func (c *Static) Len() int {
	return len(c.families)
}

// styleVariants returns spellings under which style may be registered:
// as given, title cased and with spaces removed ("Semi Bold" and "SemiBold").
func styleVariants(style string) []string {
	titled := cases.Title(language.Und).String(style)
	candidates := []string{style, titled, strings.ReplaceAll(titled, " ", "")}
	if compound, ok := compoundStyles[strings.ToLower(strings.ReplaceAll(style, " ", ""))]; ok {
		candidates = append(candidates, compound)
	}
	var out []string
	for _, c := range candidates {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

var compoundStyles = map[string]string{
	"semibold":   "SemiBold",
	"extrabold":  "ExtraBold",
	"ultrabold":  "UltraBold",
	"extralight": "ExtraLight",
	"ultralight": "UltraLight",
	"demibold":   "DemiBold",
}

// Split finds family and style for a single font name, family prefixes are
// tried from the longest to the shortest. Name which is a family on its own
// matches with empty style.
func Split(catalog Catalog, name string) (Font, bool) {
	words := strings.Fields(name)
	for i := len(words) - 1; i > 0; i-- {
		family := strings.Join(words[:i], " ")
		if !catalog.HasFamily(family) {
			continue
		}
		for _, style := range styleVariants(strings.Join(words[i:], " ")) {
			if catalog.HasStyle(family, style) {
				return Font{Family: family, Style: style}, true
			}
		}
	}
	if len(words) > 0 && catalog.HasFamily(strings.Join(words, " ")) {
		return Font{Family: strings.Join(words, " ")}, true
	}
	return Font{}, false
}

// Match returns first font of the stack available in catalog.
func Match(catalog Catalog, stack []string) (Font, bool) {
	if catalog == nil {
		return Font{}, false
	}
	for _, name := range stack {
		if f, ok := Split(catalog, name); ok {
			return f, true
		}
	}
	return Font{}, false
}
