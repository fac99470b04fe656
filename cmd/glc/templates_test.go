package main

import (
	"testing"

	"glc/config"
	"glc/export"
)

func TestStyleBase(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"https://api.maptiler.com/maps/basic-v2/style.json?key=abc", "style"},
		{"/home/user/styles/bright.json", "bright"},
		{`C:\styles\dark.json`, "dark"},
		{"liberty.json", "liberty"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			if got := styleBase(tt.location); got != tt.want {
				t.Errorf("styleBase() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		style    string
		format   export.Format
		want     string
	}{
		{"style name", "{{ if .Name }}{{ .Name }}{{ else }}{{ .Style }}{{ end }}", "Bright", export.FormatJSON, "Bright.json"},
		{"fallback to file", "{{ if .Name }}{{ .Name }}{{ else }}{{ .Style }}{{ end }}", "", export.FormatXML, "bright.xml"},
		{"sprig functions", "{{ .Name | lower | replace \" \" \"-\" }}-{{ .Format }}", "Basic V2", export.FormatTree, "basic-v2-tree.txt"},
		{"run id", "{{ .Style }}-{{ .RunID }}", "", export.FormatYAML, "bright-run.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.OutputConfig{NameTemplate: tt.template}
			got, err := outputName(cfg, "https://example.com/styles/bright.json", tt.style, "run", tt.format)
			if err != nil {
				t.Fatalf("outputName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("outputName() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := outputName(&config.OutputConfig{NameTemplate: "{{ .Missing"}, "a.json", "", "", export.FormatJSON); err == nil {
		t.Error("broken template must fail")
	}
}
