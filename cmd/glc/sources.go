package main

import (
	"context"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"glc/expr"
	"glc/source"
	"glc/state"
)

func runSources(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("sources")

	doc, err := loadStyle(ctx, env, cmd.Args().Get(0), log)
	if err != nil {
		return err
	}
	fetcher, err := env.Fetcher()
	if err != nil {
		return err
	}
	sources, err := source.NewResolver(fetcher, log).Resolve(ctx, doc)
	if len(sources) == 0 && err != nil {
		return err
	}
	if err != nil {
		log.Warn("Some sources could not be resolved", zap.Error(err))
	}

	zoom := int(cmd.Int("zoom"))
	w := cmd.Root().Writer
	for _, s := range sources {
		fmt.Fprintf(w, "%d\t%s\t%s\tzoom %s-%s\t%s\n", s.Order, s.ID, s.Kind,
			expr.FormatNumber(s.MinZoom), expr.FormatNumber(s.MaxZoom), strings.Join(s.Tiles, " "))
		if zoom < 0 {
			continue
		}
		c := s.Center()
		u, err := s.TileURL(source.TileAt(c.Lon(), c.Lat(), zoom))
		if err != nil {
			log.Warn("Unable to build tile URL", zap.String("source", s.ID), zap.Error(err))
			continue
		}
		fmt.Fprintf(w, "\t%s\n", u)
	}
	return nil
}
