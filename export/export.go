// Package export renders compilation results for rendering sinks and for
// humans.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"glc/convert"
	"glc/expr"
	"glc/source"
)

// Format is output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXML  Format = "xml"
	FormatTree Format = "tree"
)

// Formats lists supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatXML, FormatTree}

// ParseFormat converts format name, "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatYAML, FormatXML, FormatTree:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", name)
}

// Ext returns file extension for the format.
func (f Format) Ext() string {
	if f == FormatTree {
		return ".txt"
	}
	return "." + string(f)
}

// Source is resolved tile endpoint as seen by the sink.
type Source struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Kind        string   `json:"type" yaml:"type"`
	Order       int      `json:"order" yaml:"order"`
	Tiles       []string `json:"tiles" yaml:"tiles"`
	MinZoom     float64  `json:"minzoom" yaml:"minzoom"`
	MaxZoom     float64  `json:"maxzoom" yaml:"maxzoom"`
	Attribution string   `json:"attribution,omitempty" yaml:"attribution,omitempty"`
}

// Document is everything produced by a single compilation run.
type Document struct {
	Name     string         `json:"name" yaml:"name"`
	RunID    string         `json:"run,omitempty" yaml:"run,omitempty"`
	Sources  []Source       `json:"sources,omitempty" yaml:"sources,omitempty"`
	Rules    []convert.Rule `json:"rules" yaml:"rules"`
	Warnings []expr.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewDocument collects compilation results.
func NewDocument(name string, sources []source.Resolved, res *convert.Result) *Document {
	doc := &Document{Name: name, Rules: res.Rules, Warnings: res.Warnings}
	if doc.Rules == nil {
		doc.Rules = []convert.Rule{}
	}
	for _, s := range sources {
		doc.Sources = append(doc.Sources, Source{
			ID:          s.ID,
			Name:        s.Name,
			Kind:        string(s.Kind),
			Order:       s.Order,
			Tiles:       s.Tiles,
			MinZoom:     s.MinZoom,
			MaxZoom:     s.MaxZoom,
			Attribution: s.Attribution,
		})
	}
	for _, e := range res.Errors {
		doc.Errors = append(doc.Errors, e.Error())
	}
	return doc
}

// Write renders document in requested format.
func Write(w io.Writer, format Format, doc *Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		// expressions are full of comparisons
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatXML:
		return writeXML(w, doc)
	case FormatTree:
		_, err := io.WriteString(w, tree(doc))
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}
