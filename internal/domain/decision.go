package domain

// RejectionReason identifies why a candidate was blocked from trading.
// First-class codes, never free text.
type RejectionReason string

const (
	ReasonPoolTooOld       RejectionReason = "POOL_TOO_OLD"
	ReasonLiquidityLow     RejectionReason = "LIQUIDITY_BELOW_MIN"
	ReasonMcapOutOfRange   RejectionReason = "MCAP_OUT_OF_RANGE"
	ReasonVolumeLow        RejectionReason = "VOLUME_BELOW_MIN"
	ReasonSellPressure     RejectionReason = "SELL_PRESSURE"
	ReasonQuoteInstability RejectionReason = "QUOTE_INSTABILITY"
	ReasonNoBuyRoute       RejectionReason = "NO_BUY_ROUTE"
	ReasonNoSellRoute      RejectionReason = "NO_SELL_ROUTE"
	ReasonAuthorityRisk    RejectionReason = "AUTHORITY_RISK"
	ReasonScoreBelowMin    RejectionReason = "SCORE_BELOW_MIN"
)

// Risk governor rejection reasons.
const (
	ReasonKillSwitchActive   RejectionReason = "KILL_SWITCH_ACTIVE"
	ReasonCircuitBreakerOpen RejectionReason = "CIRCUIT_BREAKER_OPEN"
	ReasonTokenCooldown      RejectionReason = "TOKEN_COOLDOWN"
	ReasonTradeRateCap       RejectionReason = "TRADE_RATE_CAP"
	ReasonMaxAtRiskExceeded  RejectionReason = "MAX_AT_RISK_EXCEEDED"
)

// WarningCode identifies a non-blocking evaluation finding.
type WarningCode string

const (
	WarnMcapUnknown          WarningCode = "MCAP_UNKNOWN"
	WarnAuthorityCheckFailed WarningCode = "AUTHORITY_CHECK_FAILED"
	WarnAuthorityAccepted    WarningCode = "AUTHORITY_RISK_ACCEPTED"
	WarnHolderCheckSkipped   WarningCode = "HOLDER_CHECK_SKIPPED"
	WarnHolderCountLow       WarningCode = "HOLDER_COUNT_LOW"
)

// AuthorityStatus is the mint/freeze authority snapshot for a token.
type AuthorityStatus struct {
	HasMintAuthority   bool
	HasFreezeAuthority bool
}

// Risky reports whether either authority is still set.
func (a AuthorityStatus) Risky() bool {
	return a.HasMintAuthority || a.HasFreezeAuthority
}

// HardFilterResult is the pass/fail verdict for one candidate.
// A candidate with zero reasons passes. Filters are evaluated independently
// and all applicable ones recorded; only network-gated checks may early-exit.
type HardFilterResult struct {
	Reasons  []RejectionReason
	Warnings []WarningCode

	// Optional numeric context, populated when the related check ran.
	QuoteStabilityPct *float64
	PriceImpactPct    *float64
	Authority         *AuthorityStatus
	HolderCount       *int
}

// Passed reports whether no rejection reason was recorded.
func (r *HardFilterResult) Passed() bool {
	return len(r.Reasons) == 0
}

// Reject appends a rejection reason, preserving order of evaluation.
func (r *HardFilterResult) Reject(reason RejectionReason) {
	r.Reasons = append(r.Reasons, reason)
}

// Warn appends a non-blocking warning.
func (r *HardFilterResult) Warn(code WarningCode) {
	r.Warnings = append(r.Warnings, code)
}

// HasReason reports whether the given reason was recorded.
func (r *HardFilterResult) HasReason(reason RejectionReason) bool {
	for _, got := range r.Reasons {
		if got == reason {
			return true
		}
	}
	return false
}

// ScoreResult is the composite quality score for a candidate.
// Total is always the clamped sum of components minus penalties, in [0,100].
type ScoreResult struct {
	Total float64

	Freshness float64 // linear decay across the freshness window
	Flow      float64 // txn acceleration, buy ratio, volume, momentum
	Route     float64 // hop count and price impact
	Penalties float64 // authority exposure, instability, sell pressure
}

// StrategyDecision is the persisted outcome of evaluating one candidate.
// Immutable; written once per evaluated candidate per cycle.
type StrategyDecision struct {
	DecisionID  string // deterministic hash
	PoolID      string
	Mint        string
	EvaluatedAt int64 // ms

	Filter      HardFilterResult
	Score       ScoreResult
	ShouldTrade bool
	Summary     string // short human-readable reason summary
}
