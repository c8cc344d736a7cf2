package domain

// TradeMode distinguishes paper and live execution.
type TradeMode string

const (
	ModePaper TradeMode = "PAPER"
	ModeLive  TradeMode = "LIVE"
)

// TradeSide is the direction of a swap.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// TradeStatus is the terminal status of one execution attempt chain.
type TradeStatus string

const (
	TradeFailed      TradeStatus = "FAILED"
	TradePaperFilled TradeStatus = "PAPER_FILLED"
	TradePaperExit   TradeStatus = "PAPER_EXIT"
	TradeConfirmed   TradeStatus = "CONFIRMED"
)

// Trade is an immutable execution record, append-only audit log.
type Trade struct {
	TradeID    string // deterministic hash
	PositionID string // empty for failed entries that never opened
	Mode       TradeMode
	Side       TradeSide
	Status     TradeStatus

	InputMint  string
	OutputMint string

	RequestedRaw uint64 // raw input units requested
	ReceivedRaw  uint64 // raw output units; measured delta for live fills

	Signature *string // live mode only
	Error     *string // set when Status is FAILED

	RouteSummary   string // e.g. "SOL>USDC>TOKEN via 2 hops"
	SimulationLog  string // excerpt from pre-send simulation, live only
	ConfirmLatency int64  // ms from submit to confirmed, live only

	// Balance snapshots for the verification audit trail, live only.
	InputBefore  uint64
	InputAfter   uint64
	OutputBefore uint64
	OutputAfter  uint64

	ExitReason string // lifecycle reason code for sell legs
	CreatedAt  int64  // ms
}

// Filled reports whether the trade produced a fill (paper or confirmed).
func (t *Trade) Filled() bool {
	switch t.Status {
	case TradePaperFilled, TradePaperExit, TradeConfirmed:
		return true
	}
	return false
}
