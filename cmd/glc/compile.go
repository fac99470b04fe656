package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"glc/convert"
	"glc/export"
	"glc/fonts"
	"glc/source"
	"glc/state"
	"glc/style"
)

func runCompile(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	name := env.Cfg.Output.Format
	if cmd.IsSet("to") {
		name = cmd.String("to")
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	env.Overwrite = cmd.Bool("overwrite")

	location := cmd.Args().Get(0)
	log.Info("Processing starting", zap.String("style", location), zap.String("format", string(format)))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	doc, err := loadStyle(ctx, env, location, log)
	if err != nil {
		return err
	}

	fetcher, err := env.Fetcher()
	if err != nil {
		return err
	}
	sources, err := source.NewResolver(fetcher, log).Resolve(ctx, doc)
	for _, e := range multierr.Errors(err) {
		log.Warn("Source could not be resolved", zap.Error(e))
	}
	only := cmd.String("source")
	if len(only) > 0 {
		sources = selectSource(sources, only)
		if len(sources) == 0 {
			return fmt.Errorf("source %q is not used by any layer", only)
		}
	}

	atlas, err := loadSprite(ctx, env, doc, spriteRatio(env, 0), log)
	if err != nil {
		log.Warn("Sprite is not available, icons and patterns will be skipped", zap.Error(err))
	}

	catalog := fonts.ScanDirs(log, env.Cfg.Compiler.FontDirs...)
	opts := convert.Options{
		ZoomVariable: env.Cfg.Compiler.ZoomVariable,
		PixelSize:    env.Cfg.Compiler.PixelSize,
		DefaultFont:  defaultFont(catalog, env.Cfg.Compiler.DefaultFont),
		Fonts:        catalog,
	}
	if atlas != nil {
		opts.Sprites = atlas
	}

	res := compileStyle(convert.NewCompiler(log, opts), doc, only, env.Cfg.Compiler.IncludeBackground)
	for _, w := range res.Warnings {
		log.Debug("Layer compiled with warning", zap.String("layer", w.LayerID), zap.String("message", w.Message))
	}
	for _, e := range res.Errors {
		log.Warn("Layer skipped", zap.String("layer", e.LayerID), zap.Error(e.Err))
	}
	log.Info("Style compiled", zap.String("name", doc.Name),
		zap.Int("rules", len(res.Rules)), zap.Int("warnings", len(res.Warnings)), zap.Int("errors", len(res.Errors)))

	out := export.NewDocument(doc.Name, sources, res)
	out.RunID = env.RunID

	var buf bytes.Buffer
	if err := export.Write(&buf, format, out); err != nil {
		return fmt.Errorf("unable to render output: %w", err)
	}
	env.Rpt.StoreData("output"+format.Ext(), buf.Bytes())

	fileName, err := outputName(&env.Cfg.Output, location, doc.Name, env.RunID, format)
	if err != nil {
		return fmt.Errorf("unable to build output file name: %w", err)
	}
	if err := writeOutput(cmd.Args().Get(1), fileName, env.Overwrite, buf.Bytes(), log); err != nil {
		return err
	}
	if cmd.Bool("strict") {
		return res.Err()
	}
	return nil
}

// compileStyle runs requested compilation passes. Background layers come
// first as they are drawn below everything else.
func compileStyle(c *convert.Compiler, doc *style.Document, only string, background bool) *convert.Result {
	switch {
	case len(only) > 0:
		res := &convert.Result{}
		if background {
			res.Merge(c.CompileBackground(doc))
		}
		res.Merge(c.CompileSource(doc, only))
		return res
	case background:
		return c.Compile(doc)
	}
	stripped := *doc
	stripped.Layers = slices.DeleteFunc(slices.Clone(doc.Layers), func(l style.Layer) bool {
		return l.Kind == style.KindBackground
	})
	return c.Compile(&stripped)
}

func selectSource(sources []source.Resolved, id string) []source.Resolved {
	for _, s := range sources {
		if s.ID == id {
			return []source.Resolved{s}
		}
	}
	return nil
}

// defaultFont splits configured name against the catalog, name is taken as
// a family when it is not installed.
func defaultFont(catalog fonts.Catalog, name string) fonts.Font {
	if f, ok := fonts.Split(catalog, name); ok {
		return f
	}
	return fonts.Font{Family: name}
}

// writeOutput writes data to dst, fileName is used when dst is a directory.
func writeOutput(dst, fileName string, overwrite bool, data []byte, log *zap.Logger) error {
	if len(dst) == 0 {
		_, err := os.Stdout.Write(data)
		return err
	}
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		dst = filepath.Join(dst, fileName)
	}
	if _, err := os.Stat(dst); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", dst)
		}
		log.Warn("Output file already exists, overwriting", zap.String("file", dst))
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to check destination: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}
	log.Info("Output written", zap.String("file", dst), zap.Int("size", len(data)))
	return nil
}
