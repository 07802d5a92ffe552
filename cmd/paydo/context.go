package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"paydo/internal/backend"
	"paydo/internal/cli"
	"paydo/internal/config"
	"paydo/internal/ledger"
	applog "paydo/internal/log"
)

// runContext is bound into every command's Run method.
type runContext struct {
	globals *globals
	out     io.Writer
	logOut  io.Writer
}

func newRunContext(g *globals, out io.Writer) *runContext {
	return &runContext{globals: g, out: out, logOut: os.Stderr}
}

// session is an open ledger plus what the command needs around it.
type session struct {
	cfg     *config.Config
	logger  *applog.Logger
	ledger  *ledger.Ledger
	cleanup backend.CleanupFunc
}

func (s *session) Close() {
	if err := s.cleanup(); err != nil {
		s.logger.Error("Failed to close backend", applog.FieldError, err)
	}
}

func (rc *runContext) loadConfig() (*config.Config, error) {
	if err := cli.LoadEnvFile(rc.globals.EnvFile); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if rc.globals.Backend != "" {
		cfg.DataBackend = rc.globals.Backend
	}
	if rc.globals.DataDir != "" {
		cfg.DataDir = rc.globals.DataDir
	}
	if rc.globals.LogLevel != "" {
		cfg.LogLevel = rc.globals.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open loads the configured ledger and prints any load notice.
func (rc *runContext) open(ctx context.Context, component string) (*session, error) {
	cfg, err := rc.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(rc.logOut, cfg.LogLevel, component)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if res.Notice != nil {
		fmt.Fprintln(rc.out, res.Notice.Message())
	}
	return &session{cfg: cfg, logger: logger, ledger: res.Ledger, cleanup: res.Cleanup}, nil
}

func (rc *runContext) printf(format string, args ...any) {
	fmt.Fprintf(rc.out, format, args...)
}
