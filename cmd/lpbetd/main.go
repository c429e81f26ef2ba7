package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/auth"
	"github.com/0xHustling/LP-Betting-Pools/config"
	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/0xHustling/LP-Betting-Pools/events/kafka"
	"github.com/0xHustling/LP-Betting-Pools/provider"
	"github.com/0xHustling/LP-Betting-Pools/server"
	"github.com/0xHustling/LP-Betting-Pools/wire"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lpbetd",
		Short: "Pooled-liquidity betting service",
		Long: `lpbetd runs the pooled-liquidity betting service: a capital pool
funded by liquidity providers backs a bet engine that reserves payout
capacity per bet and settles on randomness callbacks.`,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "Path to config file")
	return cmd
}

func runServe(configPath string) error {
	// 1. Load config & logger
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := wire.ProvideLogger(cfg)

	// 2. Kafka producer (nil when no brokers; event publishing degrades to no-op)
	kafkaProducer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Kafka producer")
	}

	// 3. Core: treasury, share ledger, pool, engine
	treasury := wire.ProvideTreasury(cfg, logger)
	ledger := wire.ProvideShareLedger()
	feed := wire.ProvideFeed()

	liquidityPool, err := wire.ProvidePool(cfg, ledger, treasury, feed, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create liquidity pool")
	}

	oracle := provider.NewOracleProvider(kafkaProducer, cfg.Kafka.Topics["randomness_requests"], logger)
	betEngine, err := wire.ProvideEngine(cfg, liquidityPool, treasury, oracle, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create betting engine")
	}

	// 4. Optional Redis-backed bet journal
	if cfg.Redis.Addr != "" {
		redisClient, err := wire.ProvideRedisClient(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		betEngine.SetBetStore(provider.NewBetStateProvider(redisClient, logger))
		defer func() { _ = redisClient.Close() }()
	}

	// 5. Bet lifecycle events to Kafka
	betEngine.SetEventSink(provider.NewEventProvider(kafkaProducer, cfg.Kafka.Topics["bet_events"], logger))

	// 6. Randomness delivery consumer feeds engine settlement
	var consumer *kafka.RandomnessConsumer
	if len(cfg.Kafka.Brokers) > 0 {
		consumer = kafka.NewRandomnessConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topics["randomness_deliveries"],
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
			Logger:        logger,
		}, func(ctx context.Context, delivery kafka.Delivery) error {
			return betEngine.Deliver(ctx, delivery.TicketID, delivery.Values)
		})
		consumer.Start()
	}

	// 7. Epoch finalization job. Anyone may finalize via the API as well; the
	// cron just guarantees the epoch clock advances without traffic.
	scheduler := cron.New()
	_, err = scheduler.AddFunc("@every 1m", func() {
		if err := liquidityPool.FinalizeEpoch(); err != nil {
			if !errors.Is(err, errors.ErrEpochNotFinalizable) {
				logger.Error().Err(err).Msg("Epoch finalization failed")
			}
			return
		}
		logger.Info().Msg("Epoch finalized by scheduler")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule epoch finalization")
	}
	scheduler.Start()

	// 8. HTTP server
	app := server.New(server.Options{
		Config: cfg,
		Logger: logger,
		Pool:   liquidityPool,
		Engine: betEngine,
		Feed:   feed,
	})
	app.UseCommonMiddlewares()
	app.RegisterHealthCheck()
	app.RegisterCommonRoutes()

	app.OnShutdown(func() {
		scheduler.Stop()
		if consumer != nil {
			_ = consumer.Stop()
		}
		if kafkaProducer != nil {
			_ = kafkaProducer.Close()
		}
	})

	logger.Info().Int("port", cfg.Server.Port).Msg("Starting betting service")
	return app.Run()
}

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		account    string
		role       string
		expiration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a JWT for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			exp := expiration
			if exp == 0 {
				exp = cfg.JWT.Expiration
			}
			if exp == 0 {
				exp = 24 * time.Hour
			}

			token, err := auth.GenerateToken(cfg.JWT.Secret, account, role, exp)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "Path to config file")
	cmd.Flags().StringVarP(&account, "account", "a", "", "Account identifier (required)")
	cmd.Flags().StringVarP(&role, "role", "r", auth.RolePlayer, "Role claim (player, operator, service)")
	cmd.Flags().DurationVarP(&expiration, "expiration", "e", 0, "Token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
