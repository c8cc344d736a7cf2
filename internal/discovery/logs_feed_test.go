package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
)

type stubResolver struct {
	accounts map[string][]string
}

func (s *stubResolver) GetTransactionAccounts(_ context.Context, sig string) ([]string, error) {
	accounts, ok := s.accounts[sig]
	if !ok {
		return nil, fmt.Errorf("unknown signature %s", sig)
	}
	return accounts, nil
}

type stubHydrator struct {
	got []string
}

func (s *stubHydrator) CandidatesByPoolIDs(_ context.Context, poolIDs []string, nowMs int64) ([]*domain.PoolCandidate, error) {
	s.got = append(s.got, poolIDs...)
	out := make([]*domain.PoolCandidate, len(poolIDs))
	for i, id := range poolIDs {
		out[i] = &domain.PoolCandidate{PoolID: id, FetchedAt: nowMs}
	}
	return out, nil
}

func newTestFeed(resolver AccountResolver, hydrator PairHydrator) *LogsFeed {
	return NewLogsFeed("ws://unused", []string{"prog"}, resolver, hydrator, zerolog.Nop())
}

func TestLogsFeed_HandleMessageEnqueuesInits(t *testing.T) {
	f := newTestFeed(nil, nil)

	f.handleMessage([]byte(`{
		"method": "logsNotification",
		"params": {"result": {"value": {
			"signature": "sig-1",
			"logs": ["Program log: initialize2"]
		}}}
	}`))
	f.handleMessage([]byte(`{
		"method": "logsNotification",
		"params": {"result": {"value": {
			"signature": "sig-2",
			"logs": ["Program log: swap"]
		}}}
	}`))
	f.handleMessage([]byte(`{
		"method": "logsNotification",
		"params": {"result": {"value": {
			"signature": "sig-3",
			"err": {"InstructionError": [0, "Custom"]},
			"logs": ["Program log: initialize2"]
		}}}
	}`))
	f.handleMessage([]byte(`not json`))

	assert.Equal(t, []string{"sig-1"}, f.drain(10), "only successful init transactions queue")
}

func TestLogsFeed_FetchCandidatesResolvesAndHydrates(t *testing.T) {
	resolver := &stubResolver{accounts: map[string][]string{
		"sig-1": {"pool-1", "prog"},
		"sig-2": {"pool-2"},
	}}
	hydrator := &stubHydrator{}
	f := newTestFeed(resolver, hydrator)

	f.enqueue("sig-1")
	f.enqueue("sig-2")
	f.enqueue("sig-missing") // resolver failure is skipped, not fatal

	candidates, err := f.FetchCandidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
	assert.Equal(t, []string{"pool-1", "prog", "pool-2"}, hydrator.got)

	// Queue is drained.
	candidates, err = f.FetchCandidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

type closeRecorder struct {
	once   sync.Once
	closed chan struct{}
}

func (c *closeRecorder) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func TestLogsFeed_ConnWatcherExitsWithReadLoop(t *testing.T) {
	f := newTestFeed(nil, nil)
	rec := &closeRecorder{closed: make(chan struct{})}
	readerDone := make(chan struct{})

	f.wg.Add(1)
	go f.closeOnExit(context.Background(), rec, readerDone)

	// The read loop finishing must release the watcher on its own, without
	// feed shutdown; otherwise every reconnect leaks one goroutine.
	close(readerDone)

	select {
	case <-rec.closed:
	case <-time.After(time.Second):
		t.Fatal("watcher did not close the connection")
	}

	waited := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("watcher goroutine did not exit")
	}
}

func TestLogsFeed_BufferCapDropsOldest(t *testing.T) {
	f := newTestFeed(nil, nil)
	for i := 0; i < maxPendingSignatures+5; i++ {
		f.enqueue(fmt.Sprintf("sig-%d", i))
	}

	batch := f.drain(1)
	require.Len(t, batch, 1)
	assert.Equal(t, "sig-5", batch[0], "oldest signatures age out first")
}
