package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
)

// Log markers emitted by AMM programs when a new pool is initialized.
var poolInitMarkers = []string{
	"initialize2",        // Raydium AMM v4
	"InitializeInstruction2",
	"CreatePool",
}

// Feed buffer and batch sizes.
const (
	maxPendingSignatures = 256
	maxResolvePerFetch   = 16
)

// AccountResolver expands a transaction signature into its account keys.
type AccountResolver interface {
	GetTransactionAccounts(ctx context.Context, signature string) ([]string, error)
}

// PairHydrator turns candidate pool addresses into full candidates.
type PairHydrator interface {
	CandidatesByPoolIDs(ctx context.Context, poolIDs []string, nowMs int64) ([]*domain.PoolCandidate, error)
}

// LogsFeed watches AMM program logs over WebSocket for pool initializations
// and hydrates the referenced pools into candidates on demand.
type LogsFeed struct {
	endpoint string
	programs []string
	resolver AccountResolver
	hydrator PairHydrator

	mu      sync.Mutex
	pending []string // init transaction signatures awaiting resolution

	requestID atomic.Uint64
	done      chan struct{}
	wg        sync.WaitGroup
	now       func() time.Time
	log       zerolog.Logger
}

// NewLogsFeed creates the feed. Start must be called before FetchCandidates
// returns anything.
func NewLogsFeed(endpoint string, programs []string, resolver AccountResolver, hydrator PairHydrator, log zerolog.Logger) *LogsFeed {
	return &LogsFeed{
		endpoint: endpoint,
		programs: programs,
		resolver: resolver,
		hydrator: hydrator,
		done:     make(chan struct{}),
		now:      time.Now,
		log:      log.With().Str("component", "discovery").Str("source", "logs").Logger(),
	}
}

// Name identifies the source in logs and metrics.
func (f *LogsFeed) Name() string { return "logs" }

// Start launches the subscription loop. The loop reconnects with backoff
// until Close is called.
func (f *LogsFeed) Start(ctx context.Context) {
	f.wg.Add(1)
	go f.run(ctx)
}

// Close stops the subscription loop.
func (f *LogsFeed) Close() {
	close(f.done)
	f.wg.Wait()
}

// FetchCandidates drains buffered init signatures, resolves their account
// keys and hydrates any that DexScreener already knows as pairs.
func (f *LogsFeed) FetchCandidates(ctx context.Context) ([]*domain.PoolCandidate, error) {
	signatures := f.drain(maxResolvePerFetch)
	if len(signatures) == 0 {
		return nil, nil
	}

	var poolIDs []string
	for _, sig := range signatures {
		accounts, err := f.resolver.GetTransactionAccounts(ctx, sig)
		if err != nil {
			f.log.Debug().Err(err).Str("signature", sig).Msg("transaction lookup failed")
			continue
		}
		poolIDs = append(poolIDs, accounts...)
	}
	if len(poolIDs) == 0 {
		return nil, nil
	}

	return f.hydrator.CandidatesByPoolIDs(ctx, poolIDs, f.now().UnixMilli())
}

func (f *LogsFeed) drain(limit int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return nil
	}
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	batch := make([]string, limit)
	copy(batch, f.pending[:limit])
	f.pending = f.pending[limit:]
	return batch
}

func (f *LogsFeed) enqueue(signature string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) >= maxPendingSignatures {
		// Oldest entries age out first; a full buffer means the poller is
		// already far behind anyway.
		f.pending = f.pending[1:]
	}
	f.pending = append(f.pending, signature)
}

func (f *LogsFeed) run(ctx context.Context) {
	defer f.wg.Done()

	delay := time.Second
	const maxDelay = 30 * time.Second

	for {
		select {
		case <-f.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := f.subscribe(ctx); err != nil {
			f.log.Warn().Err(err).Dur("retry_in", delay).Msg("log subscription dropped")
		}

		select {
		case <-f.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// subscribe dials the endpoint, subscribes to logs for every configured
// program and reads notifications until the connection drops.
func (f *LogsFeed) subscribe(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	for _, program := range f.programs {
		req := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      f.requestID.Add(1),
			"method":  "logsSubscribe",
			"params": []interface{}{
				map[string]interface{}{"mentions": []string{program}},
				map[string]string{"commitment": "confirmed"},
			},
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("subscribe %s: %w", program, err)
		}
	}

	readerDone := make(chan struct{})
	defer close(readerDone)
	f.wg.Add(1)
	go f.closeOnExit(ctx, conn, readerDone)

	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.handleMessage(msg)
	}
}

// closeOnExit force-closes conn on shutdown so a blocked read returns.
// readerDone is this connection's own lifetime signal: once its read loop
// has finished the watcher must exit too, instead of lingering until
// feed shutdown and piling up one goroutine per reconnect.
func (f *LogsFeed) closeOnExit(ctx context.Context, conn io.Closer, readerDone <-chan struct{}) {
	defer f.wg.Done()
	select {
	case <-f.done:
	case <-ctx.Done():
	case <-readerDone:
	}
	conn.Close()
}

type logNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string   `json:"signature"`
				Err       any      `json:"err"`
				Logs      []string `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (f *LogsFeed) handleMessage(msg []byte) {
	var note logNotification
	if err := json.Unmarshal(msg, &note); err != nil {
		return
	}
	if note.Method != "logsNotification" || note.Params.Result.Value.Err != nil {
		return
	}

	if !containsInitMarker(note.Params.Result.Value.Logs) {
		return
	}

	f.enqueue(note.Params.Result.Value.Signature)
	f.log.Debug().Str("signature", note.Params.Result.Value.Signature).Msg("pool init observed")
}

func containsInitMarker(logs []string) bool {
	for _, line := range logs {
		for _, marker := range poolInitMarkers {
			if strings.Contains(line, marker) {
				return true
			}
		}
	}
	return false
}
