package evaluate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/idhash"
	"solana-sniper/internal/quote"
	"solana-sniper/internal/storage"
)

// MintFacts is the on-chain mint snapshot needed for evaluation.
type MintFacts struct {
	Decimals  uint8
	Authority domain.AuthorityStatus
}

// MintInspector reads mint-account facts from the chain.
type MintInspector interface {
	InspectMint(ctx context.Context, mint string) (*MintFacts, error)
}

// HolderCounter counts distinct token accounts holding a mint.
type HolderCounter interface {
	CountHolders(ctx context.Context, mint string) (int, error)
}

// Evaluator runs the full filter, probe and scoring pipeline for one
// candidate and persists the resulting decision.
type Evaluator struct {
	quotes    quote.Provider
	sellProbe quote.Provider
	mints     MintInspector
	holders   HolderCounter

	decisions storage.DecisionStore
	metadata  storage.TokenMetadataStore

	thresholds Thresholds
	baseMint   string

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSellProbe overrides the provider used for the single-shot sell-route
// probe. Defaults to the buy-quote provider.
func WithSellProbe(p quote.Provider) Option {
	return func(e *Evaluator) { e.sellProbe = p }
}

// WithHolderCounter enables the advisory holder-count check.
func WithHolderCounter(h HolderCounter) Option {
	return func(e *Evaluator) { e.holders = h }
}

// WithBaseMint overrides the quote-side mint used for buy probes.
func WithBaseMint(mint string) Option {
	return func(e *Evaluator) { e.baseMint = mint }
}

// NewEvaluator creates an Evaluator with the given dependencies.
func NewEvaluator(
	quotes quote.Provider,
	mints MintInspector,
	decisions storage.DecisionStore,
	metadata storage.TokenMetadataStore,
	thresholds Thresholds,
	log zerolog.Logger,
	opts ...Option,
) *Evaluator {
	e := &Evaluator{
		quotes:     quotes,
		sellProbe:  quotes,
		mints:      mints,
		decisions:  decisions,
		metadata:   metadata,
		thresholds: thresholds,
		baseMint:   "So11111111111111111111111111111111111111112",
		sleep:      sleepCtx,
		now:        time.Now,
		log:        log.With().Str("component", "evaluator").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the candidate through cheap filters, network probes and
// scoring, persists the decision, and returns it. Network checks run only
// when every cheap filter passed; the score is computed in all cases.
// The second return value is the representative buy quote from the
// stability probe, nil when the probe never ran or found no route; callers
// opening a position may hand it to the execution engine so the first
// attempt skips one quote round trip.
func (e *Evaluator) Evaluate(ctx context.Context, c *domain.PoolCandidate) (*domain.StrategyDecision, *quote.Quote, error) {
	evaluatedAt := e.now().UnixMilli()
	res := &domain.HardFilterResult{}

	applyCheapFilters(c, e.thresholds, evaluatedAt, res)

	var representative *quote.Quote
	if res.Passed() {
		representative = e.runNetworkChecks(ctx, c, res)
	}

	score := computeScore(c, representative, res, e.thresholds, evaluatedAt)
	if score.Total < e.thresholds.MinScore {
		res.Reject(domain.ReasonScoreBelowMin)
	}

	decision := &domain.StrategyDecision{
		DecisionID:  idhash.ComputeDecisionID(c.PoolID, c.TradeMint, evaluatedAt),
		PoolID:      c.PoolID,
		Mint:        c.TradeMint,
		EvaluatedAt: evaluatedAt,
		Filter:      *res,
		Score:       score,
		ShouldTrade: res.Passed(),
		Summary:     summarize(res, score),
	}

	if err := e.decisions.Insert(ctx, decision); err != nil {
		return nil, nil, fmt.Errorf("persisting decision for pool %s: %w", c.PoolID, err)
	}

	e.log.Info().
		Str("pool_id", c.PoolID).
		Str("mint", c.TradeMint).
		Bool("should_trade", decision.ShouldTrade).
		Float64("score", score.Total).
		Str("summary", decision.Summary).
		Msg("candidate evaluated")

	return decision, representative, nil
}

// runNetworkChecks performs the quote-stability probe, sell-route probe,
// authority inspection and holder count. Returns the representative buy
// quote when the stability probe succeeded.
func (e *Evaluator) runNetworkChecks(ctx context.Context, c *domain.PoolCandidate, res *domain.HardFilterResult) *quote.Quote {
	stability, err := e.probeQuoteStability(ctx, c.TradeMint)
	if err != nil {
		e.log.Debug().Err(err).Str("mint", c.TradeMint).Msg("buy route probe failed")
		res.Reject(domain.ReasonNoBuyRoute)
		return nil
	}

	res.QuoteStabilityPct = &stability.SpreadPct
	rep := stability.Representative
	res.PriceImpactPct = &rep.PriceImpactPct

	if stability.SpreadPct > e.thresholds.QuoteStabilityCapPct {
		res.Reject(domain.ReasonQuoteInstability)
	}

	// Single-attempt reverse probe: can the position be unwound at all.
	if _, err := e.sellProbe.GetQuote(ctx, c.TradeMint, e.baseMint, rep.OutAmountRaw, e.thresholds.SlippageBps); err != nil {
		e.log.Debug().Err(err).Str("mint", c.TradeMint).Msg("sell route probe failed")
		res.Reject(domain.ReasonNoSellRoute)
	}

	e.checkAuthority(ctx, c, res)
	e.checkHolders(ctx, c.TradeMint, res)

	return rep
}

// checkAuthority inspects mint/freeze authorities. Inspection failure is a
// warning, not a rejection, so RPC flakiness cannot veto a candidate on its
// own. A risky authority rejects only in strict mode.
func (e *Evaluator) checkAuthority(ctx context.Context, c *domain.PoolCandidate, res *domain.HardFilterResult) {
	facts, err := e.mints.InspectMint(ctx, c.TradeMint)
	if err != nil {
		e.log.Warn().Err(err).Str("mint", c.TradeMint).Msg("authority inspection failed")
		res.Warn(domain.WarnAuthorityCheckFailed)
		return
	}

	res.Authority = &facts.Authority
	if !facts.Authority.Risky() {
		e.upsertMetadata(ctx, c, facts)
		return
	}

	if e.thresholds.StrictAuthority {
		res.Reject(domain.ReasonAuthorityRisk)
	} else {
		res.Warn(domain.WarnAuthorityAccepted)
	}
	e.upsertMetadata(ctx, c, facts)
}

// checkHolders runs the advisory holder count with its own timeout.
// Failure or timeout skips the check; a low count only warns.
func (e *Evaluator) checkHolders(ctx context.Context, mint string, res *domain.HardFilterResult) {
	if e.holders == nil || e.thresholds.MinHolderCount <= 0 {
		return
	}

	hctx := ctx
	if e.thresholds.HolderTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, e.thresholds.HolderTimeout)
		defer cancel()
	}

	count, err := e.holders.CountHolders(hctx, mint)
	if err != nil {
		e.log.Debug().Err(err).Str("mint", mint).Msg("holder count unavailable")
		res.Warn(domain.WarnHolderCheckSkipped)
		return
	}

	res.HolderCount = &count
	if count < e.thresholds.MinHolderCount {
		res.Warn(domain.WarnHolderCountLow)
	}
}

func (e *Evaluator) upsertMetadata(ctx context.Context, c *domain.PoolCandidate, facts *MintFacts) {
	m := &domain.TokenMetadata{
		Mint:      c.TradeMint,
		PoolID:    c.PoolID,
		DEX:       c.DEX,
		Decimals:  int(facts.Decimals),
		Authority: facts.Authority,
		UpdatedAt: e.now().UnixMilli(),
	}
	if err := e.metadata.Upsert(ctx, m); err != nil {
		e.log.Warn().Err(err).Str("mint", c.TradeMint).Msg("metadata upsert failed")
	}
}

// summarize renders a short human-readable outcome line.
func summarize(res *domain.HardFilterResult, score domain.ScoreResult) string {
	if res.Passed() {
		return fmt.Sprintf("pass score=%.1f", score.Total)
	}
	reasons := make([]string, len(res.Reasons))
	for i, r := range res.Reasons {
		reasons[i] = string(r)
	}
	return "reject " + strings.Join(reasons, ",")
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
