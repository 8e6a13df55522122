package main

import (
	"context"
	"fmt"

	"nutritrack/internal/common/config"
	"nutritrack/internal/common/database"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/common/observability"
	"nutritrack/internal/pipeline"
	"nutritrack/internal/reasoning"
	"nutritrack/internal/recommendation"
	"nutritrack/internal/store"
	"nutritrack/internal/tools"
	"nutritrack/pkg/registry"
)

type readinessCheck func(ctx context.Context) error

// application holds everything built from config. Nothing is connected or
// run until a command asks for it.
type application struct {
	cfg         *config.Config
	logger      logger.Logger
	recommender *recommendation.Recommender
	menuCache   *store.CachedMenuReader
	obs         *observability.Observability
	checks      map[string]readinessCheck
	closers     []func() error
}

func newApplication(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *application, err error) {
	app := &application{
		cfg:    cfg,
		logger: log,
		checks: make(map[string]readinessCheck),
	}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, pg.Close)
	app.checks["postgres"] = pg.Ping
	pgStore := store.NewPostgresStore(pg.DB, log)

	menus, err := app.menuReader(ctx, pgStore)
	if err != nil {
		return nil, err
	}

	reasoner, err := reasoning.New(ctx, cfg.Pipeline.Reasoner, cfg.APIs.GenAI, log)
	if err != nil {
		return nil, err
	}

	reg, err := registry.LoadRegistry(cfg.Pipeline.DefinitionsPath)
	if err != nil {
		return nil, err
	}

	stages, err := recommendation.BuildPipeline(reg, recommendation.Deps{
		Profiles:    tools.NewProfileFetcher(pgStore, log),
		Menu:        tools.NewMenuFetcher(menus, log),
		MealsPerDay: cfg.Pipeline.MealsPerDay,
	})
	if err != nil {
		return nil, err
	}

	app.obs = observability.New(cfg.App.Name)
	orchestrator := pipeline.NewOrchestrator(reasoner, log,
		pipeline.WithStageTimeout(config.GetDuration(cfg.Pipeline.StageTimeout)),
		pipeline.WithObservability(app.obs),
	)

	app.recommender, err = recommendation.NewRecommender(orchestrator, stages, log)
	if err != nil {
		return nil, err
	}

	log.Info("Application initialized", map[string]interface{}{
		"menuSource": cfg.Menu.Source,
		"reasoner":   cfg.Pipeline.Reasoner,
		"stages":     len(stages),
	})
	return app, nil
}

func (a *application) menuReader(ctx context.Context, pgStore *store.PostgresStore) (store.MenuReader, error) {
	var menus store.MenuReader = pgStore

	if a.cfg.Menu.Source == config.MenuSourceElasticsearch {
		es, err := database.NewElasticsearch(a.cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		a.checks["elasticsearch"] = es.Ping
		created, err := es.EnsureIndex(ctx, a.cfg.Menu.Index, store.MenuIndexMapping)
		if err != nil {
			return nil, err
		}
		if created {
			a.logger.Info("Created menu index", map[string]interface{}{"index": a.cfg.Menu.Index})
		}
		menus = store.NewSearchMenuReader(es.Client, a.cfg.Menu.Index, a.logger)
	}

	if a.cfg.Database.Redis.Address != "" && a.cfg.Menu.CacheTTL > 0 {
		rc, err := database.NewRedis(a.cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("menu cache: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		a.checks["redis"] = rc.Ping
		a.menuCache = store.NewCachedMenuReader(menus, rc.Client, config.GetDuration(a.cfg.Menu.CacheTTL), a.logger)
		menus = a.menuCache
	}
	return menus, nil
}

// flushMenuCache drops cached menu queries so a reloaded catalog is read
// fresh. It is a no-op when no cache is configured.
func (a *application) flushMenuCache(ctx context.Context) error {
	if a.menuCache == nil {
		a.logger.Info("Menu cache not configured, nothing to flush", nil)
		return nil
	}
	if _, err := a.menuCache.Invalidate(ctx); err != nil {
		return fmt.Errorf("flush menu cache: %w", err)
	}
	return nil
}

func (a *application) close() {
	if a.obs != nil {
		if err := a.obs.Shutdown(context.Background()); err != nil {
			a.logger.Warn("Observability shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}
