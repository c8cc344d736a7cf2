package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/quote"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage/memory"
)

const (
	testSOL   = solana.WrappedSOLMint
	testToken = "TokenMint1111111111111111111111111111111111"
)

type fakeQuotes struct {
	out   uint64
	err   error
	calls int
}

func (f *fakeQuotes) GetQuote(_ context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*quote.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &quote.Quote{
		InputMint:    inputMint,
		OutputMint:   outputMint,
		InAmountRaw:  amountRaw,
		OutAmountRaw: f.out,
		SlippageBps:  slippageBps,
		RouteLabels:  []string{"Raydium"},
	}, nil
}

type fakeChain struct {
	solBalance   uint64
	tokenBalance uint64
	// balances applied after a successful send, simulating the fill landing
	solAfter   uint64
	tokenAfter uint64
	sent       bool

	simErr    string
	sendErr   error
	confirmOK bool
	sends     int
}

func (f *fakeChain) GetBalance(context.Context, string) (uint64, error) {
	if f.sent {
		return f.solAfter, nil
	}
	return f.solBalance, nil
}

func (f *fakeChain) GetTokenBalance(context.Context, string, string) (uint64, error) {
	if f.sent {
		return f.tokenAfter, nil
	}
	return f.tokenBalance, nil
}

func (f *fakeChain) GetLatestBlockhash(context.Context) (*solana.Blockhash, error) {
	return &solana.Blockhash{Hash: "hash", LastValidBlockHeight: 1000}, nil
}

func (f *fakeChain) SimulateTransaction(context.Context, string) (*solana.SimulationResult, error) {
	if f.simErr != "" {
		return &solana.SimulationResult{OK: false, Err: f.simErr, Logs: []string{"Program log: " + f.simErr}}, nil
	}
	return &solana.SimulationResult{OK: true, Logs: []string{"Program log: ok"}}, nil
}

func (f *fakeChain) SendTransaction(context.Context, string) (string, error) {
	f.sends++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = true
	return "sig111", nil
}

func (f *fakeChain) ConfirmTransaction(context.Context, string, uint64) (*solana.Confirmation, error) {
	if !f.confirmOK {
		return &solana.Confirmation{OK: false, Err: "InstructionError"}, nil
	}
	return &solana.Confirmation{OK: true, Slot: 42}, nil
}

type fakeBuilder struct{ err error }

func (f *fakeBuilder) BuildSwapTransaction(context.Context, string, *quote.Quote, uint64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "dW5zaWduZWQ=", nil
}

type fakeSigner struct{}

func (fakeSigner) PublicKey() string { return "Wa11et111111111111111111111111111111111111" }
func (fakeSigner) SignTransaction(tx string) (string, string, error) {
	return tx, "presig", nil
}

func buyRequest(amount uint64) Request {
	return Request{Side: TradeSideInput{
		Side:         domain.SideBuy,
		InputMint:    testSOL,
		OutputMint:   testToken,
		RequestedRaw: amount,
	}}
}

func newLiveEngine(quotes *fakeQuotes, chain *fakeChain, trades *memory.TradeStore) *Engine {
	e := NewEngine(domain.ModeLive, quotes, trades, 150, zerolog.Nop(),
		WithLiveChain(chain, &fakeBuilder{}, fakeSigner{}))
	e.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func TestExecute_PaperBuyFillsAtQuote(t *testing.T) {
	trades := memory.NewTradeStore()
	e := NewEngine(domain.ModePaper, &fakeQuotes{out: 5_000_000}, trades, 150, zerolog.Nop())

	tr, err := e.Execute(context.Background(), buyRequest(100_000_000))
	require.NoError(t, err)

	assert.Equal(t, domain.TradePaperFilled, tr.Status)
	assert.Equal(t, uint64(5_000_000), tr.ReceivedRaw)
	assert.True(t, tr.Filled())
	assert.Nil(t, tr.Signature)

	stored, err := trades.GetByID(context.Background(), tr.TradeID)
	require.NoError(t, err)
	assert.Equal(t, tr.Status, stored.Status)
}

func TestExecute_PaperSellUsesExitStatus(t *testing.T) {
	trades := memory.NewTradeStore()
	e := NewEngine(domain.ModePaper, &fakeQuotes{out: 90_000_000}, trades, 150, zerolog.Nop())

	tr, err := e.Execute(context.Background(), Request{
		Side: TradeSideInput{
			Side:         domain.SideSell,
			InputMint:    testToken,
			OutputMint:   testSOL,
			RequestedRaw: 5_000_000,
		},
		PositionID: "pos-1",
		ExitReason: domain.ExitReasonTP1,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TradePaperExit, tr.Status)
	assert.Equal(t, "pos-1", tr.PositionID)
	assert.Equal(t, domain.ExitReasonTP1, tr.ExitReason)
}

func TestExecute_PaperQuoteFailureRecordsFailedTrade(t *testing.T) {
	trades := memory.NewTradeStore()
	e := NewEngine(domain.ModePaper, &fakeQuotes{err: quote.ErrQuoteUnavailable}, trades, 150, zerolog.Nop())

	tr, err := e.Execute(context.Background(), buyRequest(100_000_000))
	require.NoError(t, err, "failures are recorded, not returned")

	assert.Equal(t, domain.TradeFailed, tr.Status)
	require.NotNil(t, tr.Error)
	assert.False(t, tr.Filled())
}

func TestExecute_LiveBuyMeasuresDelta(t *testing.T) {
	chain := &fakeChain{
		solBalance:   2_000_000_000,
		tokenBalance: 0,
		solAfter:     1_895_000_000,
		tokenAfter:   4_900_000, // measured fill differs from quoted 5_000_000
		confirmOK:    true,
	}
	trades := memory.NewTradeStore()
	e := newLiveEngine(&fakeQuotes{out: 5_000_000}, chain, trades)

	tr, err := e.Execute(context.Background(), buyRequest(100_000_000))
	require.NoError(t, err)

	assert.Equal(t, domain.TradeConfirmed, tr.Status)
	assert.Equal(t, uint64(4_900_000), tr.ReceivedRaw, "fill must be the measured delta, not the quote")
	require.NotNil(t, tr.Signature)
	assert.Equal(t, "sig111", *tr.Signature)
	assert.Equal(t, uint64(0), tr.OutputBefore)
	assert.Equal(t, uint64(4_900_000), tr.OutputAfter)
	assert.Equal(t, 1, chain.sends)
}

func TestExecute_LiveVerificationFailureIsFatal(t *testing.T) {
	chain := &fakeChain{
		solBalance:   2_000_000_000,
		tokenBalance: 0,
		solAfter:     2_000_000_000,
		tokenAfter:   0, // confirmed but balances never moved
		confirmOK:    true,
	}
	trades := memory.NewTradeStore()
	e := newLiveEngine(&fakeQuotes{out: 5_000_000}, chain, trades)

	tr, err := e.Execute(context.Background(), buyRequest(100_000_000))
	require.NoError(t, err)

	assert.Equal(t, domain.TradeFailed, tr.Status)
	require.NotNil(t, tr.Error)
	assert.Contains(t, *tr.Error, "verification")
	assert.Equal(t, 1, chain.sends, "verification failure must not retry")
}

func TestExecute_LiveUnmovedInputLegIsFatal(t *testing.T) {
	// Confirmed, token balance went up, but no SOL ever left the wallet.
	chain := &fakeChain{
		solBalance:   2_000_000_000,
		tokenBalance: 0,
		solAfter:     2_000_000_000,
		tokenAfter:   4_900_000,
		confirmOK:    true,
	}
	trades := memory.NewTradeStore()
	e := newLiveEngine(&fakeQuotes{out: 5_000_000}, chain, trades)

	tr, err := e.Execute(context.Background(), buyRequest(100_000_000))
	require.NoError(t, err)

	assert.Equal(t, domain.TradeFailed, tr.Status)
	require.NotNil(t, tr.Error)
	assert.Contains(t, *tr.Error, "input balance did not decrease")
	assert.Equal(t, 1, chain.sends, "verification failure must not retry")
}

func TestExecute_PreFetchedQuoteSkipsFirstFetch(t *testing.T) {
	chain := &fakeChain{
		solBalance:   2_000_000_000,
		tokenBalance: 0,
		solAfter:     1_895_000_000,
		tokenAfter:   5_000_000,
		confirmOK:    true,
	}
	quotes := &fakeQuotes{out: 5_000_000}
	trades := memory.NewTradeStore()
	e := newLiveEngine(quotes, chain, trades)

	req := buyRequest(100_000_000)
	req.Quote = &quote.Quote{
		InputMint:    testSOL,
		OutputMint:   testToken,
		InAmountRaw:  100_000_000,
		OutAmountRaw: 5_000_000,
		RouteLabels:  []string{"Raydium"},
	}

	tr, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.TradeConfirmed, tr.Status)
	assert.Zero(t, quotes.calls, "first attempt must reuse the supplied quote")
}

func TestExecute_PreFetchedQuoteNotReusedOnRetry(t *testing.T) {
	chain := &fakeChain{solBalance: 1, sendErr: errors.New("rate limited (429)")}
	quotes := &fakeQuotes{out: 5_000_000}
	trades := memory.NewTradeStore()
	e := newLiveEngine(quotes, chain, trades)

	req := buyRequest(100_000_000)
	req.Quote = &quote.Quote{
		InputMint:    testSOL,
		OutputMint:   testToken,
		InAmountRaw:  100_000_000,
		OutAmountRaw: 5_000_000,
	}

	tr, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.TradeFailed, tr.Status)
	assert.Equal(t, maxAttempts, chain.sends)
	assert.Equal(t, maxAttempts-1, quotes.calls, "retries re-price instead of trusting the stale quote")
}

func TestExecute_LiveSimulationFailureIsFatal(t *testing.T) {
	chain := &fakeChain{solBalance: 1, simErr: "custom program error: 0x1771"}
	trades := memory.NewTradeStore()
	e := newLiveEngine(&fakeQuotes{out: 5_000_000}, chain, trades)

	tr, err := e.Execute(context.Background(), buyRequest(100_000_000))
	require.NoError(t, err)

	assert.Equal(t, domain.TradeFailed, tr.Status)
	assert.Zero(t, chain.sends, "failed simulation must never send")
	assert.Contains(t, tr.SimulationLog, "0x1771")
}

func TestExecute_LiveTransientErrorRetries(t *testing.T) {
	chain := &fakeChain{solBalance: 1, sendErr: errors.New("rate limited (429)")}
	quotes := &fakeQuotes{out: 5_000_000}
	trades := memory.NewTradeStore()
	e := newLiveEngine(quotes, chain, trades)

	tr, err := e.Execute(context.Background(), buyRequest(100_000_000))
	require.NoError(t, err)

	assert.Equal(t, domain.TradeFailed, tr.Status)
	assert.Equal(t, maxAttempts, chain.sends)
	assert.Equal(t, maxAttempts, quotes.calls, "every attempt re-quotes")
}

func TestExecute_LiveWithoutChainFails(t *testing.T) {
	trades := memory.NewTradeStore()
	e := NewEngine(domain.ModeLive, &fakeQuotes{out: 1}, trades, 150, zerolog.Nop())

	tr, err := e.Execute(context.Background(), buyRequest(1))
	require.NoError(t, err)
	assert.Equal(t, domain.TradeFailed, tr.Status)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("Blockhash not found")))
	assert.True(t, isTransient(errors.New("rate limited (429)")))
	assert.True(t, isTransient(errors.New("context deadline exceeded")))
	assert.False(t, isTransient(errors.New("custom program error: 0x1")))
	assert.False(t, isTransient(ErrVerificationFailed))
	assert.False(t, isTransient(nil))
}
