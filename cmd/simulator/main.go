package main

import (
	"context"
	"flag"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/book"
	"main/internal/feed"
	"main/internal/ledger"
	"main/internal/model/enum"
	"main/internal/ops"
	"main/internal/sched"
	"main/internal/storage"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	activeSymbol := flag.String("active-symbol", "", "Symbol to track live PnL for (overrides config)")
	saveInterval := flag.Duration("save-interval", 10*time.Second, "Order persistence interval (0=disable)")
	statusInterval := flag.Duration("status-interval", 30*time.Second, "Feed status log interval (0=disable)")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		logs.Errorf("load config, err: %+v", err)
		return
	}
	if *activeSymbol != "" {
		loaded.ActiveSymbol = *activeSymbol
	}

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "tradesim",
			ServerAddress:   loaded.Profiling.ServerURL,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("pyroscope start, err: %+v", err)
			return
		}
		defer func() { _ = profiler.Stop() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	books := book.NewStore()
	led := ledger.New(nil)
	engine := sched.New(led, books, nil)
	engine.SetActiveSymbol(loaded.ActiveSymbol)
	defer engine.Close()

	var repo *storage.OrderRepo
	if loaded.Storage.PostgresDSN != "" {
		pg, err := conn.NewPostgres(conn.PostgresOption{DSN: loaded.Storage.PostgresDSN})
		if err != nil {
			logs.Errorf("connect postgres, err: %+v", err)
			return
		}
		defer func() { _ = pg.Close() }()

		repo, err = storage.NewOrderRepo(pg)
		if err != nil {
			logs.Errorf("init order repo, err: %+v", err)
			return
		}
		records, err := repo.LoadAll(ctx)
		if err != nil {
			logs.Errorf("load orders, err: %+v", err)
			return
		}
		if len(records) != 0 {
			if err := engine.Restore(records); err != nil {
				logs.Errorf("restore orders, err: %+v", err)
				return
			}
			logs.Infof("restored %d orders", len(records))
		}
	}

	if loaded.Storage.RedisAddr != "" {
		client, err := conn.NewRedis(ctx, conn.RedisOption{
			Addr: loaded.Storage.RedisAddr,
			DB:   loaded.Storage.RedisDB,
		})
		if err != nil {
			logs.Errorf("connect redis, err: %+v", err)
			return
		}
		defer func() { _ = client.Close() }()

		cache := storage.NewBookCache(client)
		books.OnCommit(func(venue enum.Venue) {
			snap := books.Snapshot(venue)
			go func() {
				publishCtx, publishCancel := context.WithTimeout(ctx, time.Second)
				defer publishCancel()
				if err := cache.Publish(publishCtx, snap); err != nil {
					logs.Warnf("publish book top, err: %+v", err)
				}
			}()
		})
	}

	adapters := make([]feed.Adapter, 0, len(loaded.Venues))
	for _, spec := range loaded.Venues {
		adapter, err := newAdapter(spec)
		if err != nil {
			logs.Errorf("init %s adapter, err: %+v", spec.Venue, err)
			return
		}
		adapter.Observe(books.Apply)
		adapters = append(adapters, adapter)
		go adapter.Run(ctx)
		logs.Infof("feed %s subscribed to %s", spec.Venue, spec.Symbol)
	}

	if repo != nil && *saveInterval > 0 {
		go persistLoop(ctx, engine, led, repo, *saveInterval)
	}
	if *statusInterval > 0 {
		go statusLoop(ctx, adapters, *statusInterval)
	}

	logs.Infof("simulator started, active symbol %s", loaded.ActiveSymbol)
	select {
	case <-sys.Shutdown():
	case <-ctx.Done():
	}
	logs.Info("simulator shutting down")
}

func newAdapter(spec ops.VenueSpec) (feed.Adapter, error) {
	cfg := feed.Config{
		Symbol:            spec.Symbol,
		Depth:             spec.Depth,
		URL:               spec.URL,
		KeepaliveInterval: spec.Keepalive,
		StaleAfter:        spec.StaleAfter,
	}
	switch spec.Venue {
	case enum.VenueOKX:
		return feed.NewOKX(cfg), nil
	case enum.VenueBybit:
		return feed.NewBybit(cfg), nil
	case enum.VenueDeribit:
		return feed.NewDeribit(cfg), nil
	default:
		return nil, enum.ErrUnknownEnumValue
	}
}

// persistLoop flushes the ledger whenever its revision moved since the
// last save.
func persistLoop(ctx context.Context, engine *sched.Engine, led *ledger.Ledger, repo *storage.OrderRepo, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var saved uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		case <-ticker.C:
			revision := led.Revision()
			if revision == saved {
				continue
			}
			saveCtx, saveCancel := context.WithTimeout(ctx, 5*time.Second)
			err := repo.SaveAll(saveCtx, engine.List())
			saveCancel()
			if err != nil {
				logs.Warnf("persist orders, err: %+v", err)
				continue
			}
			saved = revision
		}
	}
}

func statusLoop(ctx context.Context, adapters []feed.Adapter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		case <-ticker.C:
			for _, adapter := range adapters {
				logs.Infof("feed %s status: %s", adapter.Venue(), adapter.Status())
			}
		}
	}
}
