package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/funvibe/bridje/internal/backend"
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/evaluator"
	"github.com/funvibe/bridje/internal/modules"
)

// commonFlags are accepted by every command.
type commonFlags struct {
	config  string
	verbose bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "project file")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
}

// app is one loaded project: its configuration, sources and a fresh
// evaluator with brj.core installed.
type app struct {
	proj   *config.Project
	logger *slog.Logger
	dirs   *modules.DirSource
	store  *modules.SQLiteSource
	ev     *evaluator.Evaluator
}

func loadProject(flags commonFlags) (*config.Project, error) {
	path := flags.config
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = config.FindConfig(wd); err != nil {
			return nil, err
		}
		if path == "" {
			return config.Default(wd), nil
		}
	}
	return config.LoadConfig(path)
}

func newLogger(proj *config.Project, verbose bool) *slog.Logger {
	level, err := config.ParseLogLevel(proj.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newApp(ctx context.Context, flags commonFlags) (*app, error) {
	proj, err := loadProject(flags)
	if err != nil {
		return nil, err
	}
	a := &app{proj: proj, logger: newLogger(proj, flags.verbose)}
	slog.SetDefault(a.logger)

	a.dirs = modules.NewDirSource(proj.Extension, proj.SourceDirs()...)
	if path := proj.StorePath(); path != "" {
		if a.store, err = modules.OpenSQLiteSource(path); err != nil {
			return nil, err
		}
	}

	if err := a.reset(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// reset replaces the evaluator with a fresh one, so that every namespace
// is loaded again on the next require.
func (a *app) reset(ctx context.Context) error {
	store := env.NewStore(nil)
	in := backend.New(store.Working, backend.WithOutput(os.Stdout), backend.WithLogger(a.logger))
	a.ev = evaluator.New(store, in,
		evaluator.WithSource(a.source()),
		evaluator.WithLogger(a.logger),
		evaluator.WithMaxMacroDepth(a.proj.MaxMacroDepth))
	if err := backend.InstallCore(ctx, a.ev, in); err != nil {
		return fmt.Errorf("installing core: %w", err)
	}
	return nil
}

func (a *app) source() modules.Source {
	if a.store != nil {
		return modules.Chain{a.dirs, a.store}
	}
	return a.dirs
}

// allNamespaces lists the namespaces in the source directories and the
// store.
func (a *app) allNamespaces(ctx context.Context) ([]string, error) {
	names, err := a.dirs.Namespaces()
	if err != nil {
		return nil, err
	}
	if a.store == nil {
		return names, nil
	}
	stored, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range stored {
		if !seen[n] {
			names = append(names, n)
		}
	}
	return names, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing store", "error", err)
		}
	}
}
