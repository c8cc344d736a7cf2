// Package orchestrator drives the trading loop.
// Each tick: monitor open positions → discover and evaluate candidates →
// open at most one new position → persist runtime state.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/evaluate"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/lifecycle"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/quote"
	"solana-sniper/internal/risk"
	"solana-sniper/internal/storage"
)

const (
	solDecimals     = 9
	defaultDecimals = 9

	// Runtime-state keys surfaced to the dashboard.
	stateKeyRisk     = "risk_snapshot"
	stateKeyLastTick = "last_tick"
)

// Source produces pool candidates.
type Source interface {
	Name() string
	FetchCandidates(ctx context.Context) ([]*domain.PoolCandidate, error)
}

// Evaluator runs one candidate through the decision pipeline. The returned
// quote, when non-nil, is the representative buy quote from the stability
// probe and may seed the entry swap.
type Evaluator interface {
	Evaluate(ctx context.Context, c *domain.PoolCandidate) (*domain.StrategyDecision, *quote.Quote, error)
}

// Executor turns a swap intent into a recorded trade.
type Executor interface {
	Execute(ctx context.Context, req execution.Request) (*domain.Trade, error)
}

// Agent is the tick-driven trading loop.
type Agent struct {
	sources   []Source
	evaluator Evaluator
	executor  Executor
	lifecycle *lifecycle.Manager
	prices    quote.Provider

	positions storage.PositionStore
	trades    storage.TradeStore
	seen      storage.SeenPoolStore
	metadata  storage.TokenMetadataStore
	runtime   storage.RuntimeStateStore

	breaker    *risk.CircuitBreaker
	killSwitch *risk.KillSwitch
	caps       risk.Caps

	analytics storage.AnalyticsSink

	tickInterval      time.Duration
	preRankLimit      int
	entrySizeLamports uint64
	slippageBps       int
	thresholds        evaluate.Thresholds
	exitParams        domain.ExitParams
	baseMint          string
	priceTTL          time.Duration

	priceCache map[string]domain.CachedPrice

	metrics *observability.Metrics
	now     func() time.Time
	log     zerolog.Logger
}

// Options for creating an Agent.
type Options struct {
	Sources   []Source
	Evaluator Evaluator
	Executor  Executor
	Lifecycle *lifecycle.Manager
	Prices    quote.Provider

	PositionStore     storage.PositionStore
	TradeStore        storage.TradeStore
	SeenPoolStore     storage.SeenPoolStore
	MetadataStore     storage.TokenMetadataStore
	RuntimeStateStore storage.RuntimeStateStore

	Breaker    *risk.CircuitBreaker
	KillSwitch *risk.KillSwitch
	Caps       risk.Caps

	// Analytics is optional; sink failures are logged and never block trading.
	Analytics storage.AnalyticsSink

	TickInterval      time.Duration
	PreRankLimit      int
	EntrySizeLamports uint64
	SlippageBps       int
	Thresholds        evaluate.Thresholds
	ExitParams        domain.ExitParams
	BaseMint          string
	PriceTTL          time.Duration

	Metrics *observability.Metrics
	Log     zerolog.Logger
}

// New creates an Agent.
func New(opts Options) *Agent {
	baseMint := opts.BaseMint
	if baseMint == "" {
		baseMint = "So11111111111111111111111111111111111111112"
	}
	priceTTL := opts.PriceTTL
	if priceTTL == 0 {
		priceTTL = 5 * time.Second
	}

	return &Agent{
		sources:           opts.Sources,
		evaluator:         opts.Evaluator,
		executor:          opts.Executor,
		lifecycle:         opts.Lifecycle,
		prices:            opts.Prices,
		positions:         opts.PositionStore,
		trades:            opts.TradeStore,
		seen:              opts.SeenPoolStore,
		metadata:          opts.MetadataStore,
		runtime:           opts.RuntimeStateStore,
		breaker:           opts.Breaker,
		killSwitch:        opts.KillSwitch,
		caps:              opts.Caps,
		analytics:         opts.Analytics,
		tickInterval:      opts.TickInterval,
		preRankLimit:      opts.PreRankLimit,
		entrySizeLamports: opts.EntrySizeLamports,
		slippageBps:       opts.SlippageBps,
		thresholds:        opts.Thresholds,
		exitParams:        opts.ExitParams,
		baseMint:          baseMint,
		priceTTL:          priceTTL,
		priceCache:        make(map[string]domain.CachedPrice),
		metrics:           opts.Metrics,
		now:               time.Now,
		log:               opts.Log.With().Str("component", "orchestrator").Logger(),
	}
}

// Run ticks at a fixed period until ctx is cancelled. A tick that overruns
// the period delays the next one; ticks never overlap.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info().
		Dur("tick_interval", a.tickInterval).
		Int("prerank_limit", a.preRankLimit).
		Msg("agent started")

	ticker := time.NewTicker(a.tickInterval)
	defer ticker.Stop()

	a.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("agent stopped")
			return ctx.Err()
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick runs one full cycle. Stage failures are isolated: a discovery or
// evaluation error never stops position monitoring, and vice versa. A panic
// anywhere in the cycle is swallowed here, counted against the breaker, and
// the loop keeps ticking.
func (a *Agent) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.stageError("tick", fmt.Errorf("tick panic: %v", r))
		}
	}()

	start := a.now()
	nowMs := start.UnixMilli()

	// Monitoring always runs, even when entries are blocked.
	a.monitorPositions(ctx, nowMs)

	a.tryOpenPosition(ctx, nowMs)

	a.persistRuntimeState(ctx, nowMs)

	if a.metrics != nil {
		a.metrics.TickDuration.Observe(a.now().Sub(start).Seconds())
		a.metrics.LastTickAt.Set(float64(nowMs) / 1000)
	}
}

// monitorPositions refreshes every open position and executes at most one
// exit leg per position per tick.
func (a *Agent) monitorPositions(ctx context.Context, nowMs int64) {
	open, err := a.positions.GetOpen(ctx)
	if err != nil {
		a.stageError("positions", err)
		return
	}
	if a.metrics != nil {
		a.metrics.PositionsOpen.Set(float64(len(open)))
	}

	realized := decimal.Zero
	for _, p := range open {
		if err := a.monitorOne(ctx, p, nowMs); err != nil {
			a.stageError("monitor", err)
		}
		realized = realized.Add(p.Metadata.RealizedPnLSOL)
	}
	if a.metrics != nil {
		f, _ := realized.Float64()
		a.metrics.RealizedPnLSOL.Set(f)
	}
}

func (a *Agent) monitorOne(ctx context.Context, p *domain.Position, nowMs int64) error {
	// Nothing left to sell: close the record outright, no quote needed.
	if a.lifecycle.SweepEmpty(p, nowMs) {
		if a.metrics != nil {
			a.metrics.PositionExits.WithLabelValues(domain.ExitReasonZeroRemaining).Inc()
		}
		return a.positions.Update(ctx, p)
	}

	price, err := a.currentPrice(ctx, p)
	if err != nil {
		// No price means no exit decision this cycle; the position is
		// checked again next tick.
		a.log.Warn().Err(err).Str("position_id", p.PositionID).Msg("price unavailable")
		return nil
	}

	a.lifecycle.UpdateMetrics(p, price, nowMs)

	plan := a.lifecycle.PlanExit(p, price, nowMs)
	if plan == nil {
		return a.positions.Update(ctx, p)
	}

	tr, err := a.executor.Execute(ctx, execution.Request{
		Side: execution.TradeSideInput{
			Side:         domain.SideSell,
			InputMint:    p.Mint,
			OutputMint:   a.baseMint,
			RequestedRaw: plan.SellRaw,
		},
		PositionID: p.PositionID,
		ExitReason: plan.Reason,
	})
	if err != nil {
		return err
	}
	a.observeTrade(ctx, tr)

	if !tr.Filled() {
		a.breaker.RecordFailure()
		return a.positions.Update(ctx, p)
	}
	a.breaker.RecordSuccess()

	a.lifecycle.ApplyFill(p, plan, lamportsToSOL(tr.ReceivedRaw), tr.RequestedRaw, nowMs)
	if a.metrics != nil {
		a.metrics.PositionExits.WithLabelValues(plan.Reason).Inc()
	}
	delete(a.priceCache, p.Mint)

	return a.positions.Update(ctx, p)
}

// tryOpenPosition runs discovery and evaluation, and opens at most ONE new
// position per tick regardless of how many candidates qualify.
func (a *Agent) tryOpenPosition(ctx context.Context, nowMs int64) {
	candidates := a.discover(ctx)
	if len(candidates) == 0 {
		return
	}

	ranked := evaluate.PreRank(candidates, a.preRankLimit, a.thresholds, nowMs)
	if a.metrics != nil {
		a.metrics.PoolsPreRanked.Add(float64(len(ranked)))
	}

	for _, c := range ranked {
		decision, rep, err := a.evaluator.Evaluate(ctx, c)
		if err != nil {
			a.stageError("evaluate", err)
			continue
		}
		a.observeDecision(ctx, decision)

		if !decision.ShouldTrade {
			continue
		}

		verdict := a.checkGovernor(ctx, c.TradeMint, nowMs)
		if !verdict.Allow {
			a.log.Info().
				Str("mint", c.TradeMint).
				Interface("reasons", verdict.Reasons).
				Msg("entry blocked by governor")
			if a.metrics != nil {
				for _, r := range verdict.Reasons {
					a.metrics.GovernorBlocks.WithLabelValues(string(r)).Inc()
				}
			}
			continue
		}

		// The first executed entry ends the scan, filled or not: a failed
		// buy still consumed this tick's entry slot.
		a.openPosition(ctx, c, rep, nowMs)
		return
	}
}

// discover collects candidates from every source, isolating per-source
// failures, and drops pools already seen.
func (a *Agent) discover(ctx context.Context) []*domain.PoolCandidate {
	var fresh []*domain.PoolCandidate
	for _, src := range a.sources {
		batch, err := src.FetchCandidates(ctx)
		if err != nil {
			a.stageError("discovery", err)
			if a.metrics != nil {
				a.metrics.DiscoveryErrors.WithLabelValues(src.Name()).Inc()
			}
			continue
		}
		if a.metrics != nil {
			a.metrics.PoolsFetched.Add(float64(len(batch)))
		}

		for _, c := range batch {
			seen, err := a.seen.IsSeen(ctx, c.PoolID)
			if err != nil {
				a.stageError("seen", err)
				continue
			}
			if seen {
				if a.metrics != nil {
					a.metrics.PoolsDeduped.Inc()
				}
				continue
			}
			if err := a.seen.MarkSeen(ctx, c.PoolID, c.FetchedAt); err != nil {
				a.stageError("seen", err)
			}
			fresh = append(fresh, c)
		}
	}
	return fresh
}

// checkGovernor builds the risk snapshot from live state and asks the pure
// governor for a verdict.
func (a *Agent) checkGovernor(ctx context.Context, mint string, nowMs int64) risk.Verdict {
	snap := domain.RiskSnapshot{
		KillSwitchActive:  a.killSwitch.Active(),
		Breaker:           a.breaker.State(),
		LastTradeAtByMint: map[string]int64{},
		AtRiskSOL:         decimal.Zero,
		TakenAt:           nowMs,
	}

	if open, err := a.positions.GetOpen(ctx); err == nil {
		snap.AtRiskSOL = risk.AtRiskNotional(open)
	} else {
		a.stageError("risk", err)
	}

	window := time.Hour
	if a.caps.TokenCooldown > window {
		window = a.caps.TokenCooldown
	}
	if recent, err := a.trades.GetSince(ctx, nowMs-window.Milliseconds()); err == nil {
		hourAgo := nowMs - time.Hour.Milliseconds()
		for _, t := range recent {
			if t.Side != domain.SideBuy || !t.Filled() {
				continue
			}
			if t.CreatedAt >= hourAgo {
				snap.TradesLastHour++
			}
			if t.CreatedAt > snap.LastTradeAtByMint[t.OutputMint] {
				snap.LastTradeAtByMint[t.OutputMint] = t.CreatedAt
			}
		}
	} else {
		a.stageError("risk", err)
	}

	if a.metrics != nil {
		f, _ := snap.AtRiskSOL.Float64()
		a.metrics.AtRiskSOL.Set(f)
		a.metrics.BreakerState.Set(boolGauge(snap.Breaker.Open))
		a.metrics.KillSwitchEngaged.Set(boolGauge(snap.KillSwitchActive))
	}

	return risk.CanOpenPosition(a.caps, snap, mint, lamportsToSOL(a.entrySizeLamports))
}

// openPosition executes the entry swap and persists the new position on a
// fill. The evaluator's representative quote seeds the first attempt so the
// entry does not re-price what was just probed. Execution failures feed the
// circuit breaker.
func (a *Agent) openPosition(ctx context.Context, c *domain.PoolCandidate, rep *quote.Quote, nowMs int64) {
	tr, err := a.executor.Execute(ctx, execution.Request{
		Side: execution.TradeSideInput{
			Side:         domain.SideBuy,
			InputMint:    a.baseMint,
			OutputMint:   c.TradeMint,
			RequestedRaw: a.entrySizeLamports,
		},
		Quote: rep,
	})
	if err != nil {
		a.stageError("execute", err)
		return
	}
	a.observeTrade(ctx, tr)

	if !tr.Filled() {
		a.breaker.RecordFailure()
		return
	}
	a.breaker.RecordSuccess()

	decimals := a.mintDecimals(ctx, c.TradeMint)
	entrySOL := lamportsToSOL(a.entrySizeLamports)
	tokens := decimal.NewFromUint64(tr.ReceivedRaw).Shift(int32(-decimals))

	entryPrice := decimal.Zero
	if !tokens.IsZero() {
		entryPrice = entrySOL.Div(tokens)
	}

	p := &domain.Position{
		PositionID:       idhash.ComputePositionID(c.TradeMint, c.PoolID, nowMs),
		Mint:             c.TradeMint,
		PoolID:           c.PoolID,
		Decimals:         decimals,
		Status:           domain.PositionOpen,
		OpenedAt:         nowMs,
		EntryPriceSOL:    entryPrice,
		EntryNotionalSOL: entrySOL,
		QuantityAtEntry:  tr.ReceivedRaw,
		QuantityLeft:     tr.ReceivedRaw,
		Exits:            a.exitParams,
		Metadata: domain.PositionMetadata{
			HighWaterPrice: entryPrice,
			LastCheckedAt:  nowMs,
		},
	}

	if err := a.positions.Open(ctx, p); err != nil {
		a.stageError("positions", err)
		return
	}
	if a.metrics != nil {
		a.metrics.PositionsOpened.Inc()
	}

	a.log.Info().
		Str("position_id", p.PositionID).
		Str("mint", p.Mint).
		Str("entry_price_sol", entryPrice.String()).
		Uint64("quantity", p.QuantityAtEntry).
		Msg("position opened")
}

// currentPrice returns SOL per whole token for the position's mint, served
// from a short-lived cache so several positions on one tick share quotes.
func (a *Agent) currentPrice(ctx context.Context, p *domain.Position) (decimal.Decimal, error) {
	now := a.now()
	if cached, ok := a.priceCache[p.Mint]; ok && cached.Valid(now) {
		return cached.Value, nil
	}

	q, err := a.prices.GetQuote(ctx, p.Mint, a.baseMint, p.QuantityLeft, a.slippageBps)
	if err != nil {
		return decimal.Zero, err
	}

	tokens := decimal.NewFromUint64(p.QuantityLeft).Shift(int32(-p.Decimals))
	if tokens.IsZero() {
		return decimal.Zero, quote.ErrQuoteUnavailable
	}
	price := lamportsToSOL(q.OutAmountRaw).Div(tokens)

	a.priceCache[p.Mint] = domain.CachedPrice{
		Value:     price,
		ExpiresAt: now.Add(a.priceTTL),
	}
	return price, nil
}

func (a *Agent) mintDecimals(ctx context.Context, mint string) int {
	m, err := a.metadata.GetByMint(ctx, mint)
	if err != nil {
		a.log.Warn().Err(err).Str("mint", mint).Msg("decimals unknown, using default")
		return defaultDecimals
	}
	return int(m.Decimals)
}

// persistRuntimeState mirrors the live risk picture into the key-value
// store the dashboard reads.
func (a *Agent) persistRuntimeState(ctx context.Context, nowMs int64) {
	state := struct {
		KillSwitchActive bool                       `json:"kill_switch_active"`
		Breaker          domain.CircuitBreakerState `json:"breaker"`
		LastTickMs       int64                      `json:"last_tick_ms"`
	}{
		KillSwitchActive: a.killSwitch.Active(),
		Breaker:          a.breaker.State(),
		LastTickMs:       nowMs,
	}

	buf, err := json.Marshal(state)
	if err != nil {
		a.stageError("runtime_state", err)
		return
	}
	if err := a.runtime.Set(ctx, stateKeyRisk, buf); err != nil {
		a.stageError("runtime_state", err)
	}

	tick, _ := json.Marshal(nowMs)
	if err := a.runtime.Set(ctx, stateKeyLastTick, tick); err != nil {
		a.stageError("runtime_state", err)
	}
}

func (a *Agent) observeDecision(ctx context.Context, d *domain.StrategyDecision) {
	if a.analytics != nil {
		if err := a.analytics.RecordDecision(ctx, d); err != nil {
			a.stageError("analytics", err)
		}
	}
	if a.metrics == nil {
		return
	}
	a.metrics.CandidatesEvaluated.Inc()
	a.metrics.ScoreDistribution.Observe(d.Score.Total)
	for _, r := range d.Filter.Reasons {
		a.metrics.Rejections.WithLabelValues(string(r)).Inc()
	}
	for _, w := range d.Filter.Warnings {
		a.metrics.Warnings.WithLabelValues(string(w)).Inc()
	}
}

func (a *Agent) observeTrade(ctx context.Context, t *domain.Trade) {
	if a.analytics != nil {
		if err := a.analytics.RecordTrade(ctx, t); err != nil {
			a.stageError("analytics", err)
		}
	}
	if a.metrics == nil {
		return
	}
	a.metrics.TradesExecuted.WithLabelValues(string(t.Side), string(t.Status)).Inc()
	if t.ConfirmLatency > 0 {
		a.metrics.ConfirmLatency.Observe(float64(t.ConfirmLatency) / 1000)
	}
}

// stageError records one isolated tick-stage failure. Every stage failure
// counts against the circuit breaker, so a persistently broken dependency
// eventually halts new entries.
func (a *Agent) stageError(stage string, err error) {
	a.log.Error().Err(err).Str("stage", stage).Msg("tick stage failed")
	a.breaker.RecordFailure()
	if a.metrics != nil {
		a.metrics.TickErrors.WithLabelValues(stage).Inc()
	}
}

// lamportsToSOL converts raw lamports to a SOL decimal.
func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-solDecimals)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
