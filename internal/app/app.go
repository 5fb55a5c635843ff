// Package app wires the service together: config in, running poller, HTTP
// server and watchlist registry out.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"clawtrader/internal/chart"
	"clawtrader/internal/config"
	"clawtrader/internal/gateway"
	"clawtrader/internal/logger"
	"clawtrader/internal/market"
	"clawtrader/internal/market/cache"
	"clawtrader/internal/poller"
	"clawtrader/internal/portfolio"
	"clawtrader/internal/search"
	"clawtrader/internal/store/gormstore"
	apihttp "clawtrader/internal/transport/http"
	"clawtrader/internal/watchreg"
)

// App holds every long-lived component. Build with New, drive with Run.
type App struct {
	cfg      *config.Config
	db       *gormstore.Store
	store    *portfolio.Store
	source   market.Source
	registry *watchreg.Registry
	poller   *poller.Poller
	httpSrv  *apihttp.Server
	chart    *chart.Service
	searcher *search.Debouncer
}

// New builds the application without starting anything. The portfolio is
// restored from disk when a snapshot exists; otherwise it starts fresh with
// the configured balance.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	db, err := gormstore.Open(cfg.Portfolio.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio db: %w", err)
	}

	store := portfolio.New(portfolio.Options{
		StartingBalance: cfg.Portfolio.StartingBalance,
		Persister:       db,
	})
	snap, ok, err := db.Load()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading portfolio snapshot: %w", err)
	}
	if ok {
		store.Restore(snap)
		logger.Infof("app: restored portfolio (cash=%.2f, %d positions, %d trades)",
			snap.CashBalance, len(snap.Positions), len(snap.Trades))
	}

	source, err := gateway.NewSource(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry, err := watchreg.NewRegistry(cfg.Watchlist.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading watchlist registry: %w", err)
	}
	// A restored snapshot already carries the user's watchlist, including any
	// removals, so the boot-time seed set must not be re-applied. Only file
	// versions loaded after boot feed through.
	seededVersion := int64(0)
	if ok {
		seededVersion = registry.Snapshot().Version
	}
	registry.AddListener(func(snap watchreg.Snapshot) {
		if snap.Version <= seededVersion {
			return
		}
		for _, e := range snap.Entries {
			store.AddToWatchlist(e.Item())
		}
	})

	httpSrv, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Source: source,
		Store:  store,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		db:       db,
		store:    store,
		source:   source,
		registry: registry,
		poller:   poller.New(store, source, cfg.Poll),
		httpSrv:  httpSrv,
		chart:    chart.New(source),
		searcher: search.New(source, cfg.Search.Debounce()),
	}, nil
}

// Run starts the poller and HTTP server and blocks until ctx is cancelled or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	// warm the chart for the last selected asset
	snap := a.store.Snapshot()
	if snap.SelectedAssetID != "" {
		a.chart.Select(ctx, snap.SelectedAssetID, snap.SelectedTimeRange)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		err := a.poller.Run(ctx)
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	return group.Wait()
}

// Close releases the database and cache handles.
func (a *App) Close() {
	if a == nil {
		return
	}
	if c, ok := a.source.(*cache.CachedSource); ok {
		_ = c.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// Store exposes the portfolio store for embedding callers and tests.
func (a *App) Store() *portfolio.Store { return a.store }

// Chart exposes the chart service.
func (a *App) Chart() *chart.Service { return a.chart }

// Search exposes the debounced search service.
func (a *App) Search() *search.Debouncer { return a.searcher }
