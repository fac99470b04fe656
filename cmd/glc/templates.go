package main

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"glc/config"
	"glc/export"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context string
	Name    string
	Style   string
	Format  string
	RunID   string
}

// styleBase returns last path element of style location without extension,
// works for both URLs and local paths.
func styleBase(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	base := path.Base(strings.ReplaceAll(location, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}
	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// outputName builds file name for compiled style.
func outputName(cfg *config.OutputConfig, location, name, runID string, format export.Format) (string, error) {
	out, err := expandTemplate(config.NameTemplateFieldName, cfg.NameTemplate, Values{
		Name:   name,
		Style:  styleBase(location),
		Format: string(format),
		RunID:  runID,
	})
	if err != nil {
		return "", err
	}
	return config.CleanFileName(strings.TrimSpace(out)) + format.Ext(), nil
}
