package app

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/chain"
	"github.com/bigredeye/cichain/internal/config"
	"github.com/bigredeye/cichain/internal/database"
	"github.com/bigredeye/cichain/internal/events"
	"github.com/bigredeye/cichain/internal/graph"
	"github.com/bigredeye/cichain/internal/intake"
	"github.com/bigredeye/cichain/internal/projects"
)

// App holds the long-lived components of the service.
type App struct {
	Config    *config.Config
	Processor *chain.Processor
	DataBase  *database.DataBase
	Registry  *prometheus.Registry

	cache *projects.CachedSource
}

type Option func(*options)

type options struct {
	graph     graph.Graph
	deliverer intake.Deliverer
}

// WithGraph reads builds from g instead of the configured source.
func WithGraph(g graph.Graph) Option {
	return func(o *options) {
		o.graph = g
	}
}

// WithDeliverer replaces the intake client.
func WithDeliverer(deliverer intake.Deliverer) Option {
	return func(o *options) {
		o.deliverer = deliverer
	}
}

func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	needsDataBase := cfg.Projects.Source == config.SourceDataBase || (o.graph == nil && cfg.Graph.Source == config.SourceDataBase)
	if needsDataBase {
		dsn := database.DSN(cfg.DataBase.Host, cfg.DataBase.Port, cfg.DataBase.User, cfg.DataBase.Pass, cfg.DataBase.Name)
		db, err := database.OpenDataBase(logger, dsn, cfg.DataBase.Migrate)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to open database")
		}
		app.DataBase = db
	}

	g := o.graph
	if g == nil {
		g = app.DataBase
	}

	var source projects.Source
	switch cfg.Projects.Source {
	case config.SourceDataBase:
		source = app.DataBase
	default:
		configSource, err := projects.NewConfigSource(cfg.Projects.Root, cfg.Projects.List)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to load project parameters")
		}
		source = configSource
	}
	app.cache = projects.NewCachedSource(source, cfg.Projects.CacheTTL)

	metrics := intake.NewMetrics(app.Registry)
	deliverer := o.deliverer
	if deliverer == nil {
		deliverer = intake.NewClient(intake.Settings{
			EndpointFormat: cfg.Intake.EndpointFormat,
			MaxRetries:     cfg.Intake.MaxRetries,
			Backoff:        cfg.Intake.Backoff,
			Timeout:        cfg.Intake.Timeout,
		}, metrics, logger)
	}
	dispatcher := intake.NewDispatcher(deliverer, cfg.Intake.Workers, metrics, logger)

	app.Processor = chain.NewProcessor(
		g,
		events.Settings{
			RootURL:    cfg.Server.RootURL,
			ServerUUID: cfg.Server.ServerUUID,
		},
		projects.NewResolver(app.cache, logger),
		dispatcher,
		logger,
	)
	return app, nil
}

func (a *App) Close() {
	a.cache.Stop()
	if a.DataBase != nil {
		if sqlDB, err := a.DataBase.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
