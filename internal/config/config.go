// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"solana-sniper/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Solana    SolanaConfig    `mapstructure:"solana"`
	Jupiter   JupiterConfig   `mapstructure:"jupiter"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Exits     ExitConfig      `mapstructure:"exits"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// SolanaConfig holds RPC endpoints and the wallet secret.
type SolanaConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	WSURL           string        `mapstructure:"ws_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	WalletSecretB58 string        `mapstructure:"wallet_secret"`
}

// JupiterConfig holds the swap aggregator settings.
type JupiterConfig struct {
	BaseURL             string  `mapstructure:"base_url"`
	RateLimitRPS        float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst      int     `mapstructure:"rate_limit_burst"`
	PriorityFeeLamports uint64  `mapstructure:"priority_fee_lamports"`
}

// DiscoveryConfig holds candidate source settings.
type DiscoveryConfig struct {
	DexScreenerURL string        `mapstructure:"dexscreener_url"`
	Profiles       []string      `mapstructure:"profiles"` // DEX identifiers to poll
	WSEnabled      bool          `mapstructure:"ws_enabled"`
	WSPrograms     []string      `mapstructure:"ws_programs"` // AMM program ids for log subscriptions
	Timeout        time.Duration `mapstructure:"timeout"`
}

// StrategyConfig holds evaluation thresholds.
type StrategyConfig struct {
	FreshnessWindow      time.Duration `mapstructure:"freshness_window"`
	MinLiquiditySOL      float64       `mapstructure:"min_liquidity_sol"`
	MinMcapUSD           float64       `mapstructure:"min_mcap_usd"`
	MaxMcapUSD           float64       `mapstructure:"max_mcap_usd"`
	MinVolume5mSOL       float64       `mapstructure:"min_volume_5m_sol"`
	QuoteStabilityCapPct float64       `mapstructure:"quote_stability_cap_pct"`
	QuoteSpacing         time.Duration `mapstructure:"quote_spacing"`
	StrictAuthority      bool          `mapstructure:"strict_authority"`
	MinHolderCount       int           `mapstructure:"min_holder_count"`
	HolderTimeout        time.Duration `mapstructure:"holder_timeout"`
	MinScore             float64       `mapstructure:"min_score"`
	PreRankLimit         int           `mapstructure:"prerank_limit"`
}

// ExitConfig holds the profit ladder and stop settings.
type ExitConfig struct {
	TP1Pct          float64       `mapstructure:"tp1_pct"`
	TP1Ratio        float64       `mapstructure:"tp1_ratio"`
	TP2Pct          float64       `mapstructure:"tp2_pct"`
	TP2Ratio        float64       `mapstructure:"tp2_ratio"`
	TP3Pct          float64       `mapstructure:"tp3_pct"`
	StopLossPct     float64       `mapstructure:"stop_loss_pct"`
	TrailingPct     float64       `mapstructure:"trailing_pct"`
	TimeStop        time.Duration `mapstructure:"time_stop"`
	DustNotionalSOL float64       `mapstructure:"dust_notional_sol"`
}

// RiskConfig holds the governor caps and circuit breaker settings.
type RiskConfig struct {
	MaxAtRiskSOL     float64       `mapstructure:"max_at_risk_sol"`
	MaxTradesPerHour int           `mapstructure:"max_trades_per_hour"`
	TokenCooldown    time.Duration `mapstructure:"token_cooldown"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	KillSwitchFile   string        `mapstructure:"kill_switch_file"`
}

// TradingConfig holds execution settings.
type TradingConfig struct {
	Mode              string        `mapstructure:"mode"` // PAPER or LIVE
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	EntrySizeLamports uint64        `mapstructure:"entry_size_lamports"`
	SlippageBps       int           `mapstructure:"slippage_bps"`
	PriceCacheTTL     time.Duration `mapstructure:"price_cache_ttl"`
}

// StorageConfig holds database connection settings. Empty URLs select the
// in-memory stores.
type StorageConfig struct {
	PostgresURL   string `mapstructure:"postgres_url"`
	ClickHouseURL string `mapstructure:"clickhouse_url"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Mode returns the trading mode as a domain value.
func (c *TradingConfig) TradeMode() domain.TradeMode {
	if c.Mode == string(domain.ModeLive) {
		return domain.ModeLive
	}
	return domain.ModePaper
}

// ExitParams converts the exit config to domain parameters.
func (c *ExitConfig) ExitParams() domain.ExitParams {
	return domain.ExitParams{
		TP1Pct:      decimal.NewFromFloat(c.TP1Pct),
		TP1Ratio:    decimal.NewFromFloat(c.TP1Ratio),
		TP2Pct:      decimal.NewFromFloat(c.TP2Pct),
		TP2Ratio:    decimal.NewFromFloat(c.TP2Ratio),
		TP3Pct:      decimal.NewFromFloat(c.TP3Pct),
		StopLossPct: decimal.NewFromFloat(c.StopLossPct),
		TrailingPct: decimal.NewFromFloat(c.TrailingPct),
		TimeStopMs:  c.TimeStop.Milliseconds(),
	}
}

// MaxAtRiskDecimal returns the at-risk cap as a decimal.
func (c *RiskConfig) MaxAtRiskDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxAtRiskSOL)
}

// DustNotionalDecimal returns the dust threshold as a decimal.
func (c *ExitConfig) DustNotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.DustNotionalSOL)
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SNIPER")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Config file not found is fine, env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.log_level", "SNIPER_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("solana.rpc_url", "SNIPER_RPC_URL", "SOLANA_RPC_URL")
	v.BindEnv("solana.ws_url", "SNIPER_WS_URL", "SOLANA_WS_URL")
	v.BindEnv("solana.wallet_secret", "SNIPER_WALLET_SECRET")

	v.BindEnv("jupiter.base_url", "SNIPER_JUPITER_URL")

	v.BindEnv("trading.mode", "SNIPER_MODE")
	v.BindEnv("trading.entry_size_lamports", "SNIPER_ENTRY_SIZE_LAMPORTS")

	v.BindEnv("risk.kill_switch_file", "SNIPER_KILL_SWITCH_FILE")

	v.BindEnv("storage.postgres_url", "SNIPER_POSTGRES_URL", "DATABASE_URL")
	v.BindEnv("storage.clickhouse_url", "SNIPER_CLICKHOUSE_URL", "CLICKHOUSE_URL")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "solana-sniper")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.timeout", "30s")

	v.SetDefault("jupiter.base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("jupiter.rate_limit_rps", 8)
	v.SetDefault("jupiter.rate_limit_burst", 4)
	v.SetDefault("jupiter.priority_fee_lamports", 100000)

	v.SetDefault("discovery.dexscreener_url", "https://api.dexscreener.com")
	v.SetDefault("discovery.profiles", []string{"raydium", "pumpswap"})
	v.SetDefault("discovery.ws_enabled", false)
	v.SetDefault("discovery.timeout", "10s")

	v.SetDefault("strategy.freshness_window", "30m")
	v.SetDefault("strategy.min_liquidity_sol", 25)
	v.SetDefault("strategy.min_mcap_usd", 10000)
	v.SetDefault("strategy.max_mcap_usd", 500000)
	v.SetDefault("strategy.min_volume_5m_sol", 10)
	v.SetDefault("strategy.quote_stability_cap_pct", 8)
	v.SetDefault("strategy.quote_spacing", "650ms")
	v.SetDefault("strategy.strict_authority", true)
	v.SetDefault("strategy.min_holder_count", 0)
	v.SetDefault("strategy.holder_timeout", "3s")
	v.SetDefault("strategy.min_score", 35)
	v.SetDefault("strategy.prerank_limit", 5)

	v.SetDefault("exits.tp1_pct", 40)
	v.SetDefault("exits.tp1_ratio", 0.4)
	v.SetDefault("exits.tp2_pct", 100)
	v.SetDefault("exits.tp2_ratio", 0.3)
	v.SetDefault("exits.tp3_pct", 250)
	v.SetDefault("exits.stop_loss_pct", 25)
	v.SetDefault("exits.trailing_pct", 15)
	v.SetDefault("exits.time_stop", "2h")
	v.SetDefault("exits.dust_notional_sol", 0.001)

	v.SetDefault("risk.max_at_risk_sol", 2.0)
	v.SetDefault("risk.max_trades_per_hour", 6)
	v.SetDefault("risk.token_cooldown", "30m")
	v.SetDefault("risk.breaker_threshold", 3)
	v.SetDefault("risk.breaker_cooldown", "10m")

	v.SetDefault("trading.mode", "PAPER")
	v.SetDefault("trading.tick_interval", "10s")
	v.SetDefault("trading.entry_size_lamports", 100000000) // 0.1 SOL
	v.SetDefault("trading.slippage_bps", 150)
	v.SetDefault("trading.price_cache_ttl", "5s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	if c.Jupiter.BaseURL == "" {
		return fmt.Errorf("jupiter.base_url is required")
	}
	if c.Trading.Mode != string(domain.ModePaper) && c.Trading.Mode != string(domain.ModeLive) {
		return fmt.Errorf("trading.mode must be PAPER or LIVE, got %q", c.Trading.Mode)
	}
	if c.Trading.TradeMode() == domain.ModeLive && c.Solana.WalletSecretB58 == "" {
		return fmt.Errorf("solana.wallet_secret is required in LIVE mode")
	}
	if c.Trading.EntrySizeLamports == 0 {
		return fmt.Errorf("trading.entry_size_lamports must be positive")
	}
	if c.Trading.TickInterval <= 0 {
		return fmt.Errorf("trading.tick_interval must be positive")
	}
	if c.Strategy.MinMcapUSD > c.Strategy.MaxMcapUSD {
		return fmt.Errorf("strategy.min_mcap_usd exceeds strategy.max_mcap_usd")
	}
	if c.Exits.TP1Ratio <= 0 || c.Exits.TP1Ratio >= 1 {
		return fmt.Errorf("exits.tp1_ratio must be in (0,1)")
	}
	if c.Exits.TP2Ratio <= 0 || c.Exits.TP2Ratio >= 1 {
		return fmt.Errorf("exits.tp2_ratio must be in (0,1)")
	}
	if c.Exits.TP1Ratio+c.Exits.TP2Ratio >= 1 {
		return fmt.Errorf("exits.tp1_ratio + tp2_ratio must leave quantity for tier 3")
	}
	return nil
}
