package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"glc/fetch"
	"glc/sprite"
	"glc/state"
	"glc/style"
)

// loadStyle fetches and parses style document.
func loadStyle(ctx context.Context, env *state.LocalEnv, location string, log *zap.Logger) (*style.Document, error) {
	if len(location) == 0 {
		return nil, errors.New("no style location has been specified")
	}
	if err := fetch.CheckStyleLocation(location); err != nil {
		return nil, err
	}
	fetcher, err := env.Fetcher()
	if err != nil {
		return nil, err
	}
	data, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("unable to get style: %w", err)
	}
	env.Rpt.StoreData("style.json", data)

	doc, err := style.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse style: %w", err)
	}
	log.Debug("Style loaded", zap.String("name", doc.Name), zap.Int("layers", len(doc.Layers)), zap.Int("sources", len(doc.Sources)))
	return doc, nil
}

// loadSprite returns nil atlas when style has no sprite.
func loadSprite(ctx context.Context, env *state.LocalEnv, doc *style.Document, ratio int, log *zap.Logger) (*sprite.Atlas, error) {
	base := doc.Sprite()
	if len(base) == 0 {
		log.Debug("Style has no sprite")
		return nil, nil
	}
	fetcher, err := env.Fetcher()
	if err != nil {
		return nil, err
	}
	atlas, err := sprite.Load(ctx, fetcher, base, ratio, sprite.ImageDecoder{})
	if err != nil {
		return nil, err
	}
	log.Debug("Sprite loaded", zap.Int("icons", atlas.Index.Len()), zap.Int("ratio", ratio))
	return atlas, nil
}

func spriteRatio(env *state.LocalEnv, requested int) int {
	if requested > 0 {
		return requested
	}
	return env.Cfg.Compiler.SpritePixelRatio
}
