package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sandeepkv93/dayplan/internal/auth"
	"github.com/sandeepkv93/dayplan/internal/burnout"
	"github.com/sandeepkv93/dayplan/internal/calendar"
	"github.com/sandeepkv93/dayplan/internal/config"
	"github.com/sandeepkv93/dayplan/internal/insight"
	"github.com/sandeepkv93/dayplan/internal/log"
	"github.com/sandeepkv93/dayplan/internal/recommend"
	"github.com/sandeepkv93/dayplan/internal/service"
	"github.com/sandeepkv93/dayplan/internal/storage"
)

// app holds the wired collaborators every subcommand shares.
type app struct {
	cfg     config.Config
	logger  *log.Logger
	repo    *storage.SQLRepository
	planner *service.Planner
}

func loadConfig(path string) (config.Config, *log.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.Log.Level),
		Format: log.ParseFormat(cfg.Log.Format),
		Output: os.Stderr,
	})
	return cfg, logger, nil
}

// openApp loads configuration, connects to the store, migrates it and wires
// the planning service.
func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := storage.MigrateUp(ctx, repo.DB()); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	loc := cfg.Location()
	cal := calendar.NewCached(calendar.NewStoreSource(repo), logger, calendar.WithFreshness(cfg.Calendar.Freshness))
	assessor := burnout.NewAssessor(repo, burnout.WithLocation(loc))
	planner := service.New(repo, cal,
		recommend.New(assessor, logger),
		insight.New(logger, insight.DefaultRules()...),
		logger,
		service.WithDefaults(service.Defaults{
			Energy:    cfg.Planner.DefaultEnergy,
			Focus:     cfg.Planner.DefaultFocus,
			WorkStart: cfg.Planner.WorkStart,
			WorkEnd:   cfg.Planner.WorkEnd,
			Location:  loc,
		}),
		service.WithMaxRetries(cfg.Sync.MaxRetries),
	)
	return &app{cfg: cfg, logger: logger, repo: repo, planner: planner}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

func (a *app) issuer() (*auth.Issuer, error) {
	return auth.NewIssuer(a.cfg.Auth.Secret, a.cfg.Auth.TokenTTL)
}
