// Package main runs the trading agent: discovery sources, the evaluation
// pipeline, the risk governor and the execution engine wired into the
// tick-driven orchestrator.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/discovery"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/evaluate"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/lifecycle"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/orchestrator"
	"solana-sniper/internal/quote"
	"solana-sniper/internal/risk"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
	chstore "solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/storage/migrations"
	pgstore "solana-sniper/internal/storage/postgres"
)

// AMM program ids watched for pool-initialization logs when the WebSocket
// feed is enabled and no explicit list is configured.
var defaultWSPrograms = []string{
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", // Raydium AMM v4
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.yaml in . or ./config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.App.LogLevel)
	log.Info().
		Str("mode", cfg.Trading.Mode).
		Str("rpc", cfg.Solana.RPCURL).
		Msg("starting agent")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL, solana.WithTimeout(cfg.Solana.Timeout))
	jupiter := quote.NewJupiterClient(cfg.Jupiter.BaseURL,
		quote.WithRateLimit(cfg.Jupiter.RateLimitRPS, cfg.Jupiter.RateLimitBurst))

	evaluator := buildEvaluator(cfg, jupiter, rpc, stores, log)

	executor, err := buildExecutor(cfg, jupiter, rpc, stores.trades, log)
	if err != nil {
		log.Fatal().Err(err).Msg("execution init failed")
	}

	sources, closeSources := buildSources(ctx, cfg, rpc, log)
	defer closeSources()

	metrics := observability.NewMetrics("")
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	agent := orchestrator.New(orchestrator.Options{
		Sources:   sources,
		Evaluator: evaluator,
		Executor:  executor,
		Lifecycle: lifecycle.NewManager(cfg.Exits.DustNotionalDecimal(), log),
		Prices:    jupiter,

		PositionStore:     stores.positions,
		TradeStore:        stores.trades,
		SeenPoolStore:     stores.seen,
		MetadataStore:     stores.metadata,
		RuntimeStateStore: stores.runtime,

		Breaker:    risk.NewCircuitBreaker(cfg.Risk.BreakerThreshold, cfg.Risk.BreakerCooldown, log),
		KillSwitch: risk.NewKillSwitch(cfg.Risk.KillSwitchFile),
		Caps: risk.Caps{
			MaxAtRiskSOL:     cfg.Risk.MaxAtRiskDecimal(),
			MaxTradesPerHour: cfg.Risk.MaxTradesPerHour,
			TokenCooldown:    cfg.Risk.TokenCooldown,
		},

		Analytics: stores.analytics,

		TickInterval:      cfg.Trading.TickInterval,
		PreRankLimit:      cfg.Strategy.PreRankLimit,
		EntrySizeLamports: cfg.Trading.EntrySizeLamports,
		SlippageBps:       cfg.Trading.SlippageBps,
		Thresholds:        thresholdsFromConfig(cfg),
		ExitParams:        cfg.Exits.ExitParams(),
		PriceTTL:          cfg.Trading.PriceCacheTTL,

		Metrics: metrics,
		Log:     log,
	})

	if err := agent.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("agent exited")
	}
	log.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// appStores groups the storage handles the agent consumes.
type appStores struct {
	decisions storage.DecisionStore
	trades    storage.TradeStore
	positions storage.PositionStore
	seen      storage.SeenPoolStore
	metadata  storage.TokenMetadataStore
	runtime   storage.RuntimeStateStore
	analytics storage.AnalyticsSink // nil unless ClickHouse is configured
}

// buildStores selects PostgreSQL when a URL is configured and the in-memory
// stores otherwise. ClickHouse is optional in both cases.
func buildStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*appStores, func(), error) {
	stores := &appStores{}
	cleanup := func() {}

	if cfg.Storage.PostgresURL != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}

		stores.decisions = pgstore.NewDecisionStore(pool)
		stores.trades = pgstore.NewTradeStore(pool)
		stores.positions = pgstore.NewPositionStore(pool)
		stores.seen = pgstore.NewSeenPoolStore(pool)
		stores.metadata = pgstore.NewTokenMetadataStore(pool)
		stores.runtime = pgstore.NewRuntimeStateStore(pool)
		cleanup = pool.Close
		log.Info().Msg("using postgres storage")
	} else {
		stores.decisions = memory.NewDecisionStore()
		stores.trades = memory.NewTradeStore()
		stores.positions = memory.NewPositionStore()
		stores.seen = memory.NewSeenPoolStore()
		stores.metadata = memory.NewTokenMetadataStore()
		stores.runtime = memory.NewRuntimeStateStore()
		log.Info().Msg("using in-memory storage")
	}

	if cfg.Storage.ClickHouseURL != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.analytics = chstore.NewAnalyticsStore(conn)

		prev := cleanup
		cleanup = func() {
			conn.Close()
			prev()
		}
		log.Info().Msg("clickhouse analytics enabled")
	}

	return stores, cleanup, nil
}

// mintInspector adapts the RPC client to the evaluator's mint contract.
type mintInspector struct {
	rpc *solana.HTTPClient
}

func (m *mintInspector) InspectMint(ctx context.Context, mint string) (*evaluate.MintFacts, error) {
	info, err := m.rpc.GetMintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	return &evaluate.MintFacts{
		Decimals: uint8(info.Decimals),
		Authority: domain.AuthorityStatus{
			HasMintAuthority:   info.HasMintAuthority,
			HasFreezeAuthority: info.HasFreezeAuthority,
		},
	}, nil
}

// holderCounter adapts the RPC client to the evaluator's holder contract.
type holderCounter struct {
	rpc *solana.HTTPClient
}

func (h *holderCounter) CountHolders(ctx context.Context, mint string) (int, error) {
	return h.rpc.CountTokenHolders(ctx, mint)
}

func buildEvaluator(cfg *config.Config, jupiter *quote.JupiterClient, rpc *solana.HTTPClient, stores *appStores, log zerolog.Logger) *evaluate.Evaluator {
	// Stability probes retry; the single-shot sell probe stays one attempt.
	probes := quote.NewRetrier(jupiter, quote.WithAttempts(3))

	opts := []evaluate.Option{
		evaluate.WithSellProbe(jupiter),
	}
	if cfg.Strategy.MinHolderCount > 0 {
		opts = append(opts, evaluate.WithHolderCounter(&holderCounter{rpc: rpc}))
	}

	return evaluate.NewEvaluator(
		probes,
		&mintInspector{rpc: rpc},
		stores.decisions,
		stores.metadata,
		thresholdsFromConfig(cfg),
		log,
		opts...,
	)
}

func buildExecutor(cfg *config.Config, jupiter *quote.JupiterClient, rpc *solana.HTTPClient, trades storage.TradeStore, log zerolog.Logger) (*execution.Engine, error) {
	opts := []execution.EngineOption{
		execution.WithPriorityFee(cfg.Jupiter.PriorityFeeLamports),
	}

	if cfg.Trading.TradeMode() == domain.ModeLive {
		wallet, err := solana.NewWalletFromBase58(cfg.Solana.WalletSecretB58)
		if err != nil {
			return nil, fmt.Errorf("load wallet: %w", err)
		}
		log.Info().Str("pubkey", wallet.PublicKey()).Msg("live wallet loaded")
		opts = append(opts, execution.WithLiveChain(rpc, jupiter, wallet))
	}

	return execution.NewEngine(
		cfg.Trading.TradeMode(),
		jupiter,
		trades,
		cfg.Trading.SlippageBps,
		log,
		opts...,
	), nil
}

func buildSources(ctx context.Context, cfg *config.Config, rpc *solana.HTTPClient, log zerolog.Logger) ([]orchestrator.Source, func()) {
	dexClient := discovery.NewDexScreenerClient(cfg.Discovery.DexScreenerURL,
		discovery.WithHTTPClient(&http.Client{Timeout: cfg.Discovery.Timeout}))

	sources := []orchestrator.Source{
		discovery.NewPoller(dexClient, cfg.Discovery.Profiles, log),
	}
	closeSources := func() {}

	if cfg.Discovery.WSEnabled && cfg.Solana.WSURL != "" {
		programs := cfg.Discovery.WSPrograms
		if len(programs) == 0 {
			programs = defaultWSPrograms
		}
		feed := discovery.NewLogsFeed(cfg.Solana.WSURL, programs, rpc, dexClient, log)
		feed.Start(ctx)
		sources = append(sources, feed)
		closeSources = feed.Close
	}

	return sources, closeSources
}

func thresholdsFromConfig(cfg *config.Config) evaluate.Thresholds {
	return evaluate.Thresholds{
		FreshnessWindow: cfg.Strategy.FreshnessWindow,
		MinLiquiditySOL: cfg.Strategy.MinLiquiditySOL,
		MinMcapUSD:      cfg.Strategy.MinMcapUSD,
		MaxMcapUSD:      cfg.Strategy.MaxMcapUSD,
		MinVolume5mSOL:  cfg.Strategy.MinVolume5mSOL,

		TradeSizeLamports:    cfg.Trading.EntrySizeLamports,
		SlippageBps:          cfg.Trading.SlippageBps,
		QuoteStabilityCapPct: cfg.Strategy.QuoteStabilityCapPct,
		QuoteSpacing:         cfg.Strategy.QuoteSpacing,

		StrictAuthority: cfg.Strategy.StrictAuthority,
		MinHolderCount:  cfg.Strategy.MinHolderCount,
		HolderTimeout:   cfg.Strategy.HolderTimeout,

		MinScore: cfg.Strategy.MinScore,
	}
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
