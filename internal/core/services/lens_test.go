package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// bodyQueue hands out one scripted body per OpenStream call.
type bodyQueue struct {
	mu     sync.Mutex
	bodies []io.ReadCloser
}

func (q *bodyQueue) open(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.bodies) == 0 {
		return newChunkBody(nil), nil
	}
	b := q.bodies[0]
	q.bodies = q.bodies[1:]
	return b, nil
}

func newTestLens(t *testing.T, fetcher *mockFetcher, bodies ...io.ReadCloser) (*Lens, *mockTransport) {
	t.Helper()
	q := &bodyQueue{bodies: bodies}
	transport := &mockTransport{openFn: q.open}
	l := NewLens(fetcher, transport, domain.ClientSettings{
		SettleDelay:       testSettle,
		StreamIdleTimeout: time.Second,
	})
	t.Cleanup(func() { l.Close() })
	return l, transport
}

func staticFetcher(byQuery map[string][]domain.Movement) *mockFetcher {
	return &mockFetcher{
		searchFn: func(ctx context.Context, query string) ([]domain.Movement, error) {
			return byQuery[query], nil
		},
	}
}

func TestLens_SearchThenSynthesis(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := staticFetcher(map[string][]domain.Movement{"climate": movements("1", "2")})
	l, transport := newTestLens(t, fetcher, newChunkBody(nil, "Hel", "lo, ", "world"))

	out := l.Submit(context.Background(), "climate")
	require.True(t, out.Accepted())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := l.AwaitSynthesis(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Hello, world", msg.Content)
	assert.Equal(t, domain.StatusComplete, msg.Status)

	reqs := transport.Requests()
	require.Len(t, reqs, 1)
	want := domain.NewSummaryRequest("climate", movements("1", "2"), domain.DefaultContextDescriptionRunes)
	if diff := cmp.Diff(want, reqs[0]); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, l.Close())
}

func TestLens_MidStreamFailureKeepsPartialText(t *testing.T) {
	fetcher := staticFetcher(map[string][]domain.Movement{"climate": movements("1")})
	l, _ := newTestLens(t, fetcher, newChunkBody(io.ErrUnexpectedEOF, "Hel", "lo"))

	l.Submit(context.Background(), "climate")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := l.AwaitSynthesis(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusError, msg.Status)
	assert.Equal(t, "Hello\n\n[Analysis interrupted: stream interrupted]", msg.Content)
}

func TestLens_FailureBeforeText(t *testing.T) {
	fetcher := staticFetcher(map[string][]domain.Movement{"climate": movements("1")})
	l, transport := newTestLens(t, fetcher)
	transport.openFn = func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
		return nil, nil
	}

	l.Submit(context.Background(), "climate")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := l.AwaitSynthesis(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusError, msg.Status)
	assert.Equal(t, domain.FailureText, msg.Content)
}

func TestLens_ResetMidStreamIgnoresLateFragments(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := newPipeBody()
	fetcher := staticFetcher(map[string][]domain.Movement{
		"a": movements("1"),
		"b": movements("2"),
	})
	l, _ := newTestLens(t, fetcher, first, newChunkBody(nil, "second"))

	l.Submit(context.Background(), "a")
	require.NoError(t, first.send("Hel"))
	require.Eventually(t, func() bool {
		tr := l.Transcript()
		return len(tr) == 1 && tr[0].Content == "Hel"
	}, time.Second, 5*time.Millisecond)

	out := l.Submit(context.Background(), "b")
	require.True(t, out.Accepted())

	// The old stream is torn down; a late write cannot reach the transcript.
	require.Eventually(t, func() bool { return first.send("lo") != nil }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := l.AwaitSynthesis(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", msg.Content)

	for _, m := range l.Transcript() {
		assert.NotContains(t, m.Content, "Hel")
	}

	require.NoError(t, l.Close())
}

func TestLens_DefaultQueryShowsGreeting(t *testing.T) {
	fetcher := staticFetcher(map[string][]domain.Movement{"": movements("1", "2", "3")})
	l, transport := newTestLens(t, fetcher)

	l.Submit(context.Background(), "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := l.AwaitSynthesis(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GreetingText, msg.Content)

	time.Sleep(3 * testSettle)
	assert.Empty(t, transport.Requests())
	assert.Len(t, l.Results(), 3)
}

func TestLens_Ask(t *testing.T) {
	fetcher := staticFetcher(map[string][]domain.Movement{"climate": movements("1")})
	l, transport := newTestLens(t, fetcher, newChunkBody(nil, "summary"), newChunkBody(nil, "answer"))

	l.Submit(context.Background(), "climate")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := l.AwaitSynthesis(ctx)
	require.NoError(t, err)

	h, err := l.Ask("  Which is largest? ")
	require.NoError(t, err)
	msg, err := l.Await(ctx, h)
	require.NoError(t, err)

	assert.Equal(t, "answer", msg.Content)
	reqs := transport.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Which is largest?", reqs[1].Query)
	assert.Equal(t, []string{"ID 1: Movement 1 (2015) - About 1..."}, reqs[1].ContextMovements)

	tr := l.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, domain.RoleUser, tr[1].Role)
	assert.Equal(t, "Which is largest?", tr[1].Content)
}

func TestLens_AskValidation(t *testing.T) {
	l, _ := newTestLens(t, staticFetcher(nil))

	_, err := l.Ask("   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, l.Close())
	_, err = l.Ask("still there?")
	assert.Error(t, err)
}

func TestLens_CloseCancelsRunningStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	body := newPipeBody()
	fetcher := staticFetcher(map[string][]domain.Movement{"climate": movements("1")})
	l, _ := newTestLens(t, fetcher, body)

	l.Submit(context.Background(), "climate")
	require.NoError(t, body.send("partial"))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	tr := l.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, domain.StatusError, tr[0].Status)
}

func TestLens_SearchingState(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockFetcher{
		searchFn: func(ctx context.Context, query string) ([]domain.Movement, error) {
			<-release
			return movements("1"), nil
		},
	}
	l, _ := newTestLens(t, fetcher)

	done := make(chan struct{})
	go func() {
		l.Submit(context.Background(), "q")
		close(done)
	}()

	require.Eventually(t, l.Searching, time.Second, time.Millisecond)
	close(release)
	<-done
	assert.False(t, l.Searching())
	assert.Equal(t, "q", l.Query())
}
