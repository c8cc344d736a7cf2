package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultRateLimit    = 5.0 // requests per second
	DefaultRateBurst    = 2
	breakerMaxFailures  = 5
	breakerOpenInterval = 15 * time.Second
)

// JupiterClient talks to a Jupiter v6-compatible aggregator over HTTP.
// It implements Provider and the execution engine's swap-build contract.
type JupiterClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// JupiterOption configures JupiterClient.
type JupiterOption func(*JupiterClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) JupiterOption {
	return func(c *JupiterClient) {
		c.client = client
	}
}

// WithRateLimit sets the request rate limit in requests per second.
func WithRateLimit(rps float64, burst int) JupiterOption {
	return func(c *JupiterClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewJupiterClient creates a new aggregator client.
func NewJupiterClient(baseURL string, opts ...JupiterOption) *JupiterClient {
	c := &JupiterClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
	}
	for _, opt := range opts {
		opt(c)
	}

	settings := gobreaker.Settings{
		Name:    "jupiter-http",
		Timeout: breakerOpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](settings)

	return c
}

// Compile-time interface check.
var _ Provider = (*JupiterClient)(nil)

// quoteResponse is the subset of the v6 /quote response the agent consumes.
type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// GetQuote returns a priced route for the requested swap.
func (c *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint string, amountRaw uint64, slippageBps int) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amountRaw, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	body, err := c.get(ctx, "/quote?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode quote: %v", ErrQuoteUnavailable, err)
	}
	if resp.OutAmount == "" || len(resp.RoutePlan) == 0 {
		return nil, fmt.Errorf("%w: no route for %s -> %s", ErrQuoteUnavailable, inputMint, outputMint)
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse inAmount %q: %v", ErrQuoteUnavailable, resp.InAmount, err)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse outAmount %q: %v", ErrQuoteUnavailable, resp.OutAmount, err)
	}

	impact := 0.0
	if resp.PriceImpactPct != "" {
		impact, _ = strconv.ParseFloat(resp.PriceImpactPct, 64)
	}

	labels := make([]string, 0, len(resp.RoutePlan))
	for _, hop := range resp.RoutePlan {
		labels = append(labels, hop.SwapInfo.Label)
	}

	return &Quote{
		InputMint:      resp.InputMint,
		OutputMint:     resp.OutputMint,
		InAmountRaw:    inAmount,
		OutAmountRaw:   outAmount,
		SlippageBps:    slippageBps,
		PriceImpactPct: impact,
		RouteLabels:    labels,
		Raw:            json.RawMessage(body),
	}, nil
}

// swapRequest is the v6 /swap build request.
type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"` // base64 versioned transaction
}

// BuildSwapTransaction requests an unsigned swap transaction payload for the
// given quote. Returns the base64-encoded versioned transaction.
func (c *JupiterClient) BuildSwapTransaction(ctx context.Context, signerPubkey string, q *Quote, priorityFeeLamports uint64) (string, error) {
	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:             q.Raw,
		UserPublicKey:             signerPubkey,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: priorityFeeLamports,
	})
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	body, err := c.post(ctx, "/swap", reqBody)
	if err != nil {
		return "", fmt.Errorf("build swap transaction: %w", err)
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing transaction payload")
	}

	return resp.SwapTransaction, nil
}

func (c *JupiterClient) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *JupiterClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// do performs one rate-limited, breaker-guarded HTTP round trip.
func (c *JupiterClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("rate limited (429)")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		return respBody, nil
	})
}
