package wire

import (
	"github.com/0xHustling/LP-Betting-Pools/config"
	"github.com/0xHustling/LP-Betting-Pools/db/redis"
	"github.com/0xHustling/LP-Betting-Pools/engine"
	"github.com/0xHustling/LP-Betting-Pools/logging"
	"github.com/0xHustling/LP-Betting-Pools/pkg/poolfeed"
	"github.com/0xHustling/LP-Betting-Pools/pkg/providers"
	"github.com/0xHustling/LP-Betting-Pools/pool"
	"github.com/0xHustling/LP-Betting-Pools/provider"
	"github.com/0xHustling/LP-Betting-Pools/server"
	"github.com/google/wire"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ServiceCallerID identifies the betting engine to the pool's reservation
// authorization list.
const ServiceCallerID = "betting-engine"

// ProvideLogger provides a zerolog.Logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging)
}

// ProvideRedisClient provides a Redis client
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	return redis.New(cfg.Redis)
}

// ProvideTreasury provides the treasury transfer provider
func ProvideTreasury(cfg *config.Config, logger zerolog.Logger) providers.Treasury {
	return provider.NewTreasuryProvider(cfg, logger)
}

// ProvideShareLedger provides the in-memory LP share ledger
func ProvideShareLedger() pool.ShareLedger {
	return pool.NewMemoryLedger()
}

// ProvideFeed provides the pool snapshot broadcaster
func ProvideFeed() *poolfeed.Broadcaster {
	return poolfeed.NewBroadcaster(64)
}

// ProvidePool provides the liquidity pool wired to the share ledger, the
// treasury and the snapshot feed, with the engine pre-authorized as a caller.
func ProvidePool(cfg *config.Config, ledger pool.ShareLedger, treasury providers.Treasury, feed *poolfeed.Broadcaster, logger zerolog.Logger) (*pool.Pool, error) {
	p, err := pool.New(pool.Config{
		MaxCapacity:    decimal.NewFromFloat(cfg.Pool.MaxCapacity),
		ExitFeeBps:     cfg.Pool.ExitFeeBps,
		BetToPoolRatio: cfg.Pool.BetToPoolRatio,
		EpochLength:    cfg.Pool.EpochLength,
		WithdrawWindow: cfg.Pool.WithdrawWindow,
		Operator:       cfg.Pool.Operator,
	}, ledger, treasury, logger)
	if err != nil {
		return nil, err
	}
	p.SetFeed(feed)
	p.AuthorizeCaller(ServiceCallerID)
	return p, nil
}

// ProvideEngine provides the betting engine bound to the pool
func ProvideEngine(cfg *config.Config, p *pool.Pool, treasury providers.Treasury, oracle providers.RandomnessChannel, logger zerolog.Logger) (*engine.Engine, error) {
	paytable, err := engine.NewPaytable(cfg.Engine.Multipliers)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		CallerID:       ServiceCallerID,
		MinBet:         decimal.NewFromFloat(cfg.Engine.MinBet),
		MaxBet:         decimal.NewFromFloat(cfg.Engine.MaxBet),
		ProtocolFeeBps: cfg.Engine.ProtocolFeeBps,
		RefundDelay:    cfg.Engine.RefundDelay,
		Paytable:       paytable,
	}, p, treasury, oracle, logger)
}

// ProvideServerOptions provides server options
func ProvideServerOptions(cfg *config.Config, logger zerolog.Logger, p *pool.Pool, e *engine.Engine, feed *poolfeed.Broadcaster) server.Options {
	return server.Options{
		Config: cfg,
		Logger: logger,
		Pool:   p,
		Engine: e,
		Feed:   feed,
	}
}

// ProvideApp provides the main application
func ProvideApp(opts server.Options) *server.App {
	return server.New(opts)
}

// ConfigSet is the wire provider set for configuration
var ConfigSet = wire.NewSet(
	config.Load,
)

// LoggingSet is the wire provider set for logging
var LoggingSet = wire.NewSet(
	ProvideLogger,
)

// RedisSet is the wire provider set for Redis
var RedisSet = wire.NewSet(
	ProvideRedisClient,
)

// CoreSet is the wire provider set for the pool and engine
var CoreSet = wire.NewSet(
	ProvideTreasury,
	ProvideShareLedger,
	ProvideFeed,
	ProvidePool,
	ProvideEngine,
)

// ServerSet is the wire provider set for server
var ServerSet = wire.NewSet(
	ProvideServerOptions,
	ProvideApp,
)

// DefaultSet is the default wire provider set including all common providers
var DefaultSet = wire.NewSet(
	LoggingSet,
	CoreSet,
	ServerSet,
)

// FullSet includes all providers including Redis
var FullSet = wire.NewSet(
	DefaultSet,
	RedisSet,
)
