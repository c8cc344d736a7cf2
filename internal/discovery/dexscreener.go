// Package discovery produces pool candidates from market-data polling and
// an optional on-chain log feed.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
)

const (
	chainSolana    = "solana"
	wrappedSOLMint = "So11111111111111111111111111111111111111112"

	// DexScreener allows up to 30 comma-joined pair addresses per request.
	maxPairBatch = 30
)

// DexScreenerClient talks to the DexScreener public API.
type DexScreenerClient struct {
	baseURL string
	client  *http.Client
}

// DexScreenerOption configures DexScreenerClient.
type DexScreenerOption func(*DexScreenerClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) DexScreenerOption {
	return func(c *DexScreenerClient) {
		c.client = client
	}
}

// NewDexScreenerClient creates a DexScreener API client.
func NewDexScreenerClient(baseURL string, opts ...DexScreenerOption) *DexScreenerClient {
	c := &DexScreenerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenProfile is one entry from the latest-profiles feed.
type TokenProfile struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
}

// pair mirrors the DexScreener pair payload, reduced to what evaluation
// needs.
type pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
	} `json:"baseToken"`
	QuoteToken struct {
		Address string `json:"address"`
	} `json:"quoteToken"`
	Txns map[string]struct {
		Buys  int `json:"buys"`
		Sells int `json:"sells"`
	} `json:"txns"`
	Volume      map[string]float64 `json:"volume"`
	PriceChange map[string]float64 `json:"priceChange"`
	Liquidity   struct {
		USD   float64 `json:"usd"`
		Base  float64 `json:"base"`
		Quote float64 `json:"quote"`
	} `json:"liquidity"`
	FDV           *float64 `json:"fdv"`
	MarketCap     *float64 `json:"marketCap"`
	PairCreatedAt int64    `json:"pairCreatedAt"`
}

// TokenProfiles fetches the latest token profiles feed.
func (c *DexScreenerClient) TokenProfiles(ctx context.Context) ([]TokenProfile, error) {
	var profiles []TokenProfile
	if err := c.get(ctx, "/token-profiles/latest/v1", &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// PairsByToken fetches all pairs trading the given token.
func (c *DexScreenerClient) PairsByToken(ctx context.Context, mint string) ([]pair, error) {
	var resp struct {
		Pairs []pair `json:"pairs"`
	}
	if err := c.get(ctx, "/latest/dex/tokens/"+mint, &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

// CandidatesByPoolIDs hydrates candidates for specific pool addresses.
// Unknown addresses are silently absent from the result.
func (c *DexScreenerClient) CandidatesByPoolIDs(ctx context.Context, poolIDs []string, nowMs int64) ([]*domain.PoolCandidate, error) {
	var out []*domain.PoolCandidate
	for start := 0; start < len(poolIDs); start += maxPairBatch {
		end := start + maxPairBatch
		if end > len(poolIDs) {
			end = len(poolIDs)
		}

		var resp struct {
			Pairs []pair `json:"pairs"`
		}
		path := "/latest/dex/pairs/" + chainSolana + "/" + strings.Join(poolIDs[start:end], ",")
		if err := c.get(ctx, path, &resp); err != nil {
			return nil, err
		}
		for i := range resp.Pairs {
			if cand := pairToCandidate(&resp.Pairs[i], nowMs); cand != nil {
				out = append(out, cand)
			}
		}
	}
	return out, nil
}

func (c *DexScreenerClient) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// pairToCandidate converts a SOL-quoted Solana pair to a candidate.
// Returns nil for pairs on other chains or without a SOL side.
func pairToCandidate(p *pair, nowMs int64) *domain.PoolCandidate {
	if p.ChainID != chainSolana {
		return nil
	}
	if p.QuoteToken.Address != wrappedSOLMint {
		return nil
	}

	c := &domain.PoolCandidate{
		PoolID:         p.PairAddress,
		BaseMint:       p.BaseToken.Address,
		QuoteMint:      p.QuoteToken.Address,
		TradeMint:      p.BaseToken.Address,
		DEX:            p.DexID,
		CreatedAt:      p.PairCreatedAt,
		FetchedAt:      nowMs,
		LiquiditySOL:   p.Liquidity.Quote,
		Txns:           map[int]domain.WindowStats{},
		Volume:         map[int]float64{},
		PriceChangePct: map[int]float64{},
		MarketCapUSD:   p.MarketCap,
		FDVUSD:         p.FDV,
	}

	for key, minutes := range map[string]int{"m5": 5, "h1": 60} {
		if txns, ok := p.Txns[key]; ok {
			c.Txns[minutes] = domain.WindowStats{Buys: txns.Buys, Sells: txns.Sells}
		}
		if vol, ok := p.Volume[key]; ok {
			c.Volume[minutes] = vol
		}
		if chg, ok := p.PriceChange[key]; ok {
			c.PriceChangePct[minutes] = chg
		}
	}
	return c
}

// Poller is the polling candidate source built on DexScreener.
type Poller struct {
	client *DexScreenerClient
	dexes  map[string]bool // allowed DEX identifiers, empty allows all
	now    func() time.Time
	log    zerolog.Logger
}

// NewPoller creates a DexScreener-backed candidate source. dexes restricts
// results to the given DEX identifiers; nil or empty allows all.
func NewPoller(client *DexScreenerClient, dexes []string, log zerolog.Logger) *Poller {
	allowed := make(map[string]bool, len(dexes))
	for _, d := range dexes {
		allowed[strings.ToLower(d)] = true
	}
	return &Poller{
		client: client,
		dexes:  allowed,
		now:    time.Now,
		log:    log.With().Str("component", "discovery").Str("source", "dexscreener").Logger(),
	}
}

// Name identifies the source in logs and metrics.
func (p *Poller) Name() string { return "dexscreener" }

// FetchCandidates walks the latest token profiles and resolves each Solana
// token to its most liquid SOL pair. Per-token failures are skipped.
func (p *Poller) FetchCandidates(ctx context.Context) ([]*domain.PoolCandidate, error) {
	profiles, err := p.client.TokenProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("token profiles: %w", err)
	}

	nowMs := p.now().UnixMilli()
	var out []*domain.PoolCandidate

	for _, profile := range profiles {
		if profile.ChainID != chainSolana {
			continue
		}

		pairs, err := p.client.PairsByToken(ctx, profile.TokenAddress)
		if err != nil {
			p.log.Debug().Err(err).Str("mint", profile.TokenAddress).Msg("pair lookup failed")
			continue
		}

		if best := p.bestPair(pairs, nowMs); best != nil {
			out = append(out, best)
		}
	}
	return out, nil
}

// bestPair picks the allowed SOL pair with the deepest liquidity.
func (p *Poller) bestPair(pairs []pair, nowMs int64) *domain.PoolCandidate {
	var best *domain.PoolCandidate
	for i := range pairs {
		if len(p.dexes) > 0 && !p.dexes[strings.ToLower(pairs[i].DexID)] {
			continue
		}
		cand := pairToCandidate(&pairs[i], nowMs)
		if cand == nil {
			continue
		}
		if best == nil || cand.LiquiditySOL > best.LiquiditySOL {
			best = cand
		}
	}
	return best
}
