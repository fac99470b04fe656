// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"glc/config"
	"glc/fetch"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// RunID identifies single program invocation in logs, report and output.
	RunID string

	// used by subcommands writing files
	Overwrite bool

	fetcher       *fetch.Fetcher
	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Fetcher returns fetcher configured from Cfg, it is created on first use and
// shared by all subsequent callers so responses are cached across the run.
func (e *LocalEnv) Fetcher() (*fetch.Fetcher, error) {
	if e.fetcher != nil {
		return e.fetcher, nil
	}
	var opts fetch.Options
	if e.Cfg != nil {
		opts = fetch.Options{
			Timeout:   e.Cfg.Fetch.Timeout,
			UserAgent: e.Cfg.Fetch.UserAgent,
			APIKey:    e.Cfg.Fetch.APIKey.Value(),
			APIHost:   e.Cfg.Fetch.APIHost,
			CacheSize: e.Cfg.Fetch.CacheSize,
			CacheTTL:  e.Cfg.Fetch.CacheTTL,
		}
	}
	f, err := fetch.New(e.Log, opts)
	if err != nil {
		return nil, err
	}
	e.fetcher = f
	return f, nil
}

// Close releases resources acquired during the run.
func (e *LocalEnv) Close() {
	if e.fetcher != nil {
		e.fetcher.Close()
		e.fetcher = nil
	}
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
