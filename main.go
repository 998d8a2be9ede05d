package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forex-entry-bot/config"
	"forex-entry-bot/internal/api"
	"forex-entry-bot/internal/broker"
	"forex-entry-bot/internal/cache"
	"forex-entry-bot/internal/database"
	"forex-entry-bot/internal/logging"
	"forex-entry-bot/internal/market"
	"forex-entry-bot/internal/orders"
	"forex-entry-bot/internal/scheduler"
	"forex-entry-bot/internal/strategy"
	"forex-entry-bot/internal/vault"

	"github.com/rs/zerolog"
)

func main() {
	generateConfig := flag.Bool("generate-config", false, "write a sample config.json and exit")
	flag.Parse()

	if *generateConfig {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config.json: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Wrote config.json")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(&logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Output: cfg.LoggingConfig.Output,
	})
	logging.SetDefault(log)
	log = log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database is optional; without it decisions are not persisted.
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(ctx, cfg.DatabaseConfig.URL)
		if err != nil {
			log.Fatal("database connection failed", "error", err)
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			log.Fatal("database migration failed", "error", err)
		}
		repo = database.NewRepository(db)
	}

	barCache, err := cache.NewBarCache(cfg.RedisConfig)
	if err != nil {
		log.Fatal("redis connection failed", "error", err)
	}
	defer barCache.Close()

	apiKey, secretKey, err := brokerCredentials(ctx, cfg)
	if err != nil {
		log.Fatal("broker credential lookup failed", "error", err)
	}

	client := broker.NewClient(cfg.BrokerConfig, apiKey, secretKey)
	snapshots := broker.NewSnapshotProvider(client, barCache)

	// The tick stream keeps the cached bar history fresh across bar
	// boundaries and serves as the current-price source when connected.
	if cfg.BrokerConfig.StreamURL != "" {
		watcher := broker.NewBarWatcher(barCache, cfg.InstrumentConfig.Symbol, cfg.InstrumentConfig.Interval)
		stream := broker.NewPriceStream(cfg.BrokerConfig.StreamURL, cfg.InstrumentConfig.Symbol, watcher.OnTick)
		if err := stream.Start(); err != nil {
			log.Warn("price stream unavailable, falling back to polling", "error", err)
		} else {
			defer stream.Stop()
			snapshots.WithTicks(stream)
		}
	}

	var gateway orders.Gateway = client
	if cfg.TradingConfig.DryRun {
		gateway = orders.NewDryRunGateway(zerolog.New(os.Stdout).With().Timestamp().Logger())
		log.Info("dry run enabled, orders stay local")
	}

	strat := strategy.NewConfluenceEntryStrategy(
		strategyConfig(cfg),
		market.NewStaticKeyLevels(cfg.InstrumentConfig.Resistance, cfg.InstrumentConfig.Support),
	)

	pipUnit := strat.PipUnit()
	selector := strategy.NewLimitPriceSelector(
		gateway,
		cfg.StrategyConfig.MaxDistancePips*pipUnit,
		cfg.TradingConfig.DuplicateTolerancePips*pipUnit,
	)

	var recorder strategy.DecisionRecorder
	if repo != nil {
		recorder = repo
	}

	evaluator := strategy.NewEvaluator(
		strat, snapshots, selector, gateway, recorder, log,
		cfg.TradingConfig.LookbackBars, cfg.TradingConfig.Quantity,
	).WithExits(strategy.ExitRules{
		RSIPeriod:       cfg.StrategyConfig.RSIPeriod,
		RSIExitLevel:    cfg.StrategyConfig.RSIUpperLevel,
		TrendExitPeriod: cfg.StrategyConfig.TrendExitEMAPeriod,
		MinHold:         time.Duration(cfg.StrategyConfig.MinHoldMinutes) * time.Minute,
	}, cfg.StrategyConfig.ATRPeriod, cfg.StrategyConfig.ATRMultiplier)
	if repo != nil {
		evaluator.WithOrderStore(repo)
	}

	server := api.NewServer(*cfg, evaluator, repo)
	go func() {
		log.Info("api server starting", "port", cfg.ServerConfig.Port)
		if err := server.Start(); err != nil {
			log.Error("api server stopped", "error", err)
			stop()
		}
	}()

	sched := scheduler.New(evaluator, server.Hub(), log)
	if repo != nil {
		retention := time.Duration(cfg.DatabaseConfig.RetentionDays) * 24 * time.Hour
		if err := sched.SchedulePruning(repo, retention); err != nil {
			log.Warn("decision pruning not scheduled", "error", err)
		}
	}
	if err := sched.Start(cfg.TradingConfig.EvaluationCron); err != nil {
		log.Fatal("scheduler start failed", "error", err)
	}

	log.Info("entry engine running",
		"symbol", cfg.InstrumentConfig.Symbol,
		"interval", cfg.InstrumentConfig.Interval,
	)

	<-ctx.Done()
	log.Info("shutting down")

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown failed", "error", err)
	}
}

// brokerCredentials resolves API keys, from Vault when enabled and from
// the static configuration otherwise.
func brokerCredentials(ctx context.Context, cfg *config.Config) (string, string, error) {
	if !cfg.BrokerConfig.UseVaultKeys {
		return cfg.BrokerConfig.APIKey, cfg.BrokerConfig.SecretKey, nil
	}

	vc, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		return "", "", err
	}
	creds, err := vc.GetCredentials(ctx, cfg.InstrumentConfig.Symbol)
	if err != nil {
		return "", "", err
	}
	return creds.APIKey, creds.SecretKey, nil
}

func strategyConfig(cfg *config.Config) strategy.Config {
	return strategy.Config{
		Symbol:                 cfg.InstrumentConfig.Symbol,
		Interval:               cfg.InstrumentConfig.Interval,
		PrecisionDigits:        cfg.InstrumentConfig.PrecisionDigits,
		SwingWindowLeft:        cfg.StrategyConfig.SwingWindowLeft,
		SwingWindowRight:       cfg.StrategyConfig.SwingWindowRight,
		SwingLookback:          cfg.StrategyConfig.SwingLookback,
		MinBodyFraction:        cfg.StrategyConfig.MinBodyFraction,
		LongWickRatio:          cfg.StrategyConfig.LongWickRatio,
		ProximityTolerancePips: cfg.StrategyConfig.ProximityTolerancePips,
		MaxDistancePips:        cfg.StrategyConfig.MaxDistancePips,
		MinZoneScore:           cfg.StrategyConfig.MinZoneScore,
		MaxZones:               cfg.StrategyConfig.MaxZones,
		TrendEMAPeriod:         cfg.StrategyConfig.TrendEMAPeriod,
		RSIPeriod:              cfg.StrategyConfig.RSIPeriod,
		RSILowerLevel:          cfg.StrategyConfig.RSILowerLevel,
		RSIUpperLevel:          cfg.StrategyConfig.RSIUpperLevel,
	}
}
