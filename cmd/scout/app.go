package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"airdrop-scout/internal/cache"
	"airdrop-scout/internal/cache/memory"
	"airdrop-scout/internal/cache/redis"
	"airdrop-scout/internal/collector"
	"airdrop-scout/internal/config"
	"airdrop-scout/internal/evm"
	"airdrop-scout/internal/evm/stub"
	"airdrop-scout/internal/observability"
	"airdrop-scout/internal/pipeline"
	"airdrop-scout/internal/ranking"
	"airdrop-scout/internal/storage"
	chstore "airdrop-scout/internal/storage/clickhouse"
	storemem "airdrop-scout/internal/storage/memory"
	pgstore "airdrop-scout/internal/storage/postgres"
)

// app holds the wired components shared by every command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	projects storage.ProjectStore
	history  storage.ScoreHistoryStore
	cache    cache.Cache
	memCache *memory.Store // nil unless the memory backend is used
	engine   *pipeline.Engine

	closers []func()
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

// newApp connects stores, cache and chain sources and builds the engine.
// Call close when done, also after an error.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := a.openStores(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.openCache(ctx)

	coll, err := a.newCollector(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	engine, err := pipeline.New(pipeline.Options{
		Projects:  a.projects,
		History:   a.history,
		Collector: coll,
		Ranker: ranking.NewRanker(ranking.Limits{
			All:          cfg.Ranking.All,
			EasyWins:     cfg.Ranking.EasyWins,
			HighValue:    cfg.Ranking.HighValue,
			QuickActions: cfg.Ranking.QuickActions,
		}),
		Cache:    a.cache,
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	if a.cfg.UseMemory {
		a.logger.Info().Msg("using in-memory storage")
		a.projects = storemem.NewProjectStore()
		a.history = storemem.NewScoreHistoryStore()
		return nil
	}

	pool, err := pgstore.NewPool(ctx, a.cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	conn, err := chstore.NewConn(ctx, a.cfg.ClickHouse.DSN)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	a.closers = append(a.closers, func() { conn.Close() })

	a.projects = pgstore.NewProjectStore(pool)
	a.history = chstore.NewScoreHistoryStore(conn)
	return nil
}

// openCache picks the configured backend. An unreachable Redis is logged and
// kept: its breaker fails fast and the engine computes without caching.
func (a *app) openCache(ctx context.Context) {
	if a.cfg.Cache.Backend == config.CacheRedis {
		store := redis.NewStore(redis.Config{
			Addr:      a.cfg.Redis.Addr,
			Password:  a.cfg.Redis.Password,
			DB:        a.cfg.Redis.DB,
			KeyPrefix: a.cfg.Redis.KeyPrefix,
		})
		if err := store.Ping(ctx); err != nil {
			a.logger.Warn().Err(err).Str("addr", a.cfg.Redis.Addr).Msg("redis unreachable, results will not be cached until it recovers")
		}
		a.closers = append(a.closers, func() { store.Close() })
		a.cache = store
		return
	}

	a.memCache = memory.NewStore()
	a.cache = a.memCache
}

func (a *app) newCollector(ctx context.Context) (*collector.Collector, error) {
	cc := a.cfg.Collector
	opts := []collector.Option{collector.WithLogger(a.logger)}

	var source collector.Source
	if a.cfg.UseStub {
		a.logger.Info().Msg("using fixture chain data")
		source = stub.NewFixtureSource()
	} else {
		prices, err := cc.NativePriceMap()
		if err != nil {
			return nil, err
		}
		source = evm.NewExplorerClient(cc.ExplorerURL, cc.APIKey,
			evm.WithTimeout(cc.Timeout),
			evm.WithMaxRetries(cc.MaxRetries),
			evm.WithPageSize(cc.PageSize),
			evm.WithNativePrices(prices),
			evm.WithLabels(cc.Labels),
		)

		endpoints, err := cc.WSEndpointMap()
		if err != nil {
			return nil, err
		}
		for chain, endpoint := range endpoints {
			ws, err := evm.NewWSClient(ctx, endpoint, nil, a.logger)
			if err != nil {
				a.logger.Warn().Err(err).Uint64("chain_id", uint64(chain)).Msg("websocket probe unavailable")
				continue
			}
			a.closers = append(a.closers, func() { ws.Close() })
			opts = append(opts, collector.WithProbe(chain, ws))
		}
	}

	return collector.New(source, collector.Config{
		Chains:         cc.ChainIDs(),
		MaxConcurrency: cc.MaxConcurrency,
		ChainTimeout:   cc.Timeout,
		RPS:            cc.RPS,
	}, opts...), nil
}

// close releases connections in reverse order of opening.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
