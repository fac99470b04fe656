package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"glc/state"
)

func runSprites(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("sprites")

	ratio := spriteRatio(env, int(cmd.Int("ratio")))
	if ratio != 1 && ratio != 2 {
		return fmt.Errorf("unsupported sprite pixel ratio %d", ratio)
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}

	doc, err := loadStyle(ctx, env, cmd.Args().Get(0), log)
	if err != nil {
		return err
	}
	atlas, err := loadSprite(ctx, env, doc, ratio, log)
	if err != nil {
		return err
	}
	if atlas == nil {
		return errors.New("style does not define sprite")
	}

	n, err := atlas.Export(dst)
	for _, e := range multierr.Errors(err) {
		log.Warn("Icon skipped", zap.Error(e))
	}
	if n == 0 && err != nil {
		return err
	}
	env.Rpt.Store("sprites", dst)
	log.Info("Sprites extracted", zap.String("destination", dst), zap.Int("icons", n), zap.Int("total", atlas.Index.Len()))
	return nil
}
