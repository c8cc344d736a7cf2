// Package execution turns trade intents into fills, either paper fills
// priced off the live quote or real swaps driven through a
// build-simulate-send-confirm state machine with balance-delta
// verification.
package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/quote"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
)

// Execution attempt budget. Transient failures re-enter the state machine
// from the quote step with linear backoff; fatal failures stop immediately.
const (
	maxAttempts  = 3
	attemptDelay = 400 * time.Millisecond
)

// ErrVerificationFailed means the transaction confirmed but the wallet
// balances did not move the way the swap promised.
var ErrVerificationFailed = errors.New("balance delta verification failed")

// SwapBuilder produces a signable swap transaction from a priced quote.
type SwapBuilder interface {
	BuildSwapTransaction(ctx context.Context, signerPubkey string, q *quote.Quote, priorityFeeLamports uint64) (string, error)
}

// Chain is the RPC surface the live path needs.
type Chain interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetTokenBalance(ctx context.Context, owner, mint string) (uint64, error)
	SimulateTransaction(ctx context.Context, txBase64 string) (*solana.SimulationResult, error)
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
	ConfirmTransaction(ctx context.Context, signature string, lastValidBlockHeight uint64) (*solana.Confirmation, error)
	GetLatestBlockhash(ctx context.Context) (*solana.Blockhash, error)
}

// Signer signs base64-encoded transactions.
type Signer interface {
	PublicKey() string
	SignTransaction(txBase64 string) (signed string, signature string, err error)
}

// Request is one swap intent handed to the engine.
type Request struct {
	Side       TradeSideInput
	Quote      *quote.Quote // optional pre-priced quote, consumed by the first attempt
	PositionID string       // set for sell legs
	ExitReason string       // lifecycle reason code for sell legs
}

// TradeSideInput carries the pair and size for one side of a swap.
type TradeSideInput struct {
	Side         domain.TradeSide
	InputMint    string
	OutputMint   string
	RequestedRaw uint64
}

// Engine executes swaps in paper or live mode and records every outcome in
// the trade log.
type Engine struct {
	mode    domain.TradeMode
	quotes  quote.Provider
	builder SwapBuilder
	chain   Chain
	signer  Signer
	trades  storage.TradeStore

	slippageBps         int
	priorityFeeLamports uint64

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	log   zerolog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLiveChain wires the RPC client, swap builder and signer required for
// live mode.
func WithLiveChain(chain Chain, builder SwapBuilder, signer Signer) EngineOption {
	return func(e *Engine) {
		e.chain = chain
		e.builder = builder
		e.signer = signer
	}
}

// WithPriorityFee sets the prioritization fee attached to swap builds.
func WithPriorityFee(lamports uint64) EngineOption {
	return func(e *Engine) { e.priorityFeeLamports = lamports }
}

// NewEngine creates an execution engine. Live mode requires WithLiveChain.
func NewEngine(mode domain.TradeMode, quotes quote.Provider, trades storage.TradeStore, slippageBps int, log zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		mode:        mode,
		quotes:      quotes,
		trades:      trades,
		slippageBps: slippageBps,
		sleep:       sleepCtx,
		now:         time.Now,
		log:         log.With().Str("component", "execution").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one swap intent to a terminal trade record. The returned
// trade always carries a status; err is non-nil only when the trade could
// not even be recorded.
func (e *Engine) Execute(ctx context.Context, req Request) (*domain.Trade, error) {
	createdAt := e.now().UnixMilli()
	tokenMint := req.Side.OutputMint
	if req.Side.Side == domain.SideSell {
		tokenMint = req.Side.InputMint
	}
	t := &domain.Trade{
		TradeID:      idhash.ComputeTradeID(tokenMint, string(req.Side.Side), req.Side.RequestedRaw, createdAt),
		PositionID:   req.PositionID,
		Mode:         e.mode,
		Side:         req.Side.Side,
		InputMint:    req.Side.InputMint,
		OutputMint:   req.Side.OutputMint,
		RequestedRaw: req.Side.RequestedRaw,
		ExitReason:   req.ExitReason,
		CreatedAt:    createdAt,
	}

	var execErr error
	if e.mode == domain.ModePaper {
		execErr = e.executePaper(ctx, req, t)
	} else {
		execErr = e.executeLive(ctx, req, t)
	}

	if execErr != nil {
		t.Status = domain.TradeFailed
		msg := execErr.Error()
		t.Error = &msg
		e.log.Warn().Err(execErr).
			Str("trade_id", t.TradeID).
			Str("side", string(t.Side)).
			Msg("execution failed")
	}

	if err := e.trades.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("recording trade %s: %w", t.TradeID, err)
	}
	return t, nil
}

// executePaper fills at the live quoted output with zero latency.
func (e *Engine) executePaper(ctx context.Context, req Request, t *domain.Trade) error {
	q := req.Quote
	if q == nil {
		var err error
		q, err = e.quotes.GetQuote(ctx, req.Side.InputMint, req.Side.OutputMint, req.Side.RequestedRaw, e.slippageBps)
		if err != nil {
			return fmt.Errorf("paper quote: %w", err)
		}
	}

	t.ReceivedRaw = q.OutAmountRaw
	t.RouteSummary = routeSummary(q)
	if req.Side.Side == domain.SideSell {
		t.Status = domain.TradePaperExit
	} else {
		t.Status = domain.TradePaperFilled
	}
	return nil
}

// executeLive runs the full state machine with the bounded attempt budget.
// The first attempt may reuse a caller-supplied quote; every retry restarts
// from a fresh one so prices and blockhashes never go stale.
func (e *Engine) executeLive(ctx context.Context, req Request, t *domain.Trade) error {
	if e.chain == nil || e.builder == nil || e.signer == nil {
		return errors.New("live mode not wired: missing chain, builder or signer")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// A caller-supplied quote is only trusted once; retries re-price.
		pre := req.Quote
		if attempt > 1 {
			pre = nil
			if err := e.sleep(ctx, time.Duration(attempt)*attemptDelay); err != nil {
				return err
			}
		}

		err := e.attemptLive(ctx, req, pre, t)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return err
		}
		e.log.Debug().Err(err).Int("attempt", attempt).Msg("transient execution failure")
	}
	return fmt.Errorf("attempts exhausted: %w", lastErr)
}

func (e *Engine) attemptLive(ctx context.Context, req Request, pre *quote.Quote, t *domain.Trade) error {
	owner := e.signer.PublicKey()

	q := pre
	if q == nil {
		var err error
		q, err = e.quotes.GetQuote(ctx, req.Side.InputMint, req.Side.OutputMint, req.Side.RequestedRaw, e.slippageBps)
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
	}
	t.RouteSummary = routeSummary(q)

	inputBefore, outputBefore, err := e.readBalances(ctx, owner, req.Side)
	if err != nil {
		return fmt.Errorf("pre-trade balances: %w", err)
	}
	t.InputBefore = inputBefore
	t.OutputBefore = outputBefore

	blockhash, err := e.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("blockhash: %w", err)
	}

	unsigned, err := e.builder.BuildSwapTransaction(ctx, owner, q, e.priorityFeeLamports)
	if err != nil {
		return fmt.Errorf("build swap: %w", err)
	}

	signed, signature, err := e.signer.SignTransaction(unsigned)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	sim, err := e.chain.SimulateTransaction(ctx, signed)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	t.SimulationLog = tailLogs(sim.Logs)
	if !sim.OK {
		return fmt.Errorf("simulation failed: %s", sim.Err)
	}

	sentAt := e.now()
	sentSig, err := e.chain.SendTransaction(ctx, signed)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if sentSig != "" {
		signature = sentSig
	}
	t.Signature = &signature

	conf, err := e.chain.ConfirmTransaction(ctx, signature, blockhash.LastValidBlockHeight)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !conf.OK {
		return fmt.Errorf("transaction failed: %s", conf.Err)
	}
	t.ConfirmLatency = e.now().Sub(sentAt).Milliseconds()

	inputAfter, outputAfter, err := e.readBalances(ctx, owner, req.Side)
	if err != nil {
		return fmt.Errorf("post-trade balances: %w", err)
	}
	t.InputAfter = inputAfter
	t.OutputAfter = outputAfter

	// A real swap moves both legs: the input must strictly decrease and the
	// output strictly increase. The fill size is the measured output delta,
	// never the quoted amount.
	if inputAfter >= inputBefore {
		return fmt.Errorf("%w: input balance did not decrease (%d -> %d)",
			ErrVerificationFailed, inputBefore, inputAfter)
	}
	if outputAfter <= outputBefore {
		return fmt.Errorf("%w: output balance did not increase (%d -> %d)",
			ErrVerificationFailed, outputBefore, outputAfter)
	}
	t.ReceivedRaw = outputAfter - outputBefore
	t.Status = domain.TradeConfirmed

	e.log.Info().
		Str("trade_id", t.TradeID).
		Str("side", string(t.Side)).
		Str("signature", signature).
		Uint64("received_raw", t.ReceivedRaw).
		Int64("confirm_ms", t.ConfirmLatency).
		Msg("trade confirmed")
	return nil
}

// readBalances reads the input and output side of the pair. Native SOL uses
// the lamport balance, anything else the summed token accounts.
func (e *Engine) readBalances(ctx context.Context, owner string, side TradeSideInput) (input, output uint64, err error) {
	input, err = e.readBalance(ctx, owner, side.InputMint)
	if err != nil {
		return 0, 0, err
	}
	output, err = e.readBalance(ctx, owner, side.OutputMint)
	if err != nil {
		return 0, 0, err
	}
	return input, output, nil
}

func (e *Engine) readBalance(ctx context.Context, owner, mint string) (uint64, error) {
	if mint == solana.WrappedSOLMint {
		return e.chain.GetBalance(ctx, owner)
	}
	return e.chain.GetTokenBalance(ctx, owner, mint)
}

// Transient failure markers. Anything else is treated as fatal for the
// current intent.
var transientMarkers = []string{
	"blockhash",
	"block height exceeded",
	"rate limit",
	"429",
	"timeout",
	"deadline exceeded",
	"expired",
	"no route",
	"route not found",
	"connection",
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrVerificationFailed) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// routeSummary renders a compact route description for the audit log.
func routeSummary(q *quote.Quote) string {
	if q.Hops() == 0 {
		return "direct"
	}
	return fmt.Sprintf("%s via %d hop(s)", strings.Join(q.RouteLabels, ">"), q.Hops())
}

// tailLogs keeps the last few simulation log lines, where program errors
// actually show up.
func tailLogs(logs []string) string {
	const keep = 5
	if len(logs) > keep {
		logs = logs[len(logs)-keep:]
	}
	return strings.Join(logs, "\n")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
