package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

func bodyTransport(body io.ReadCloser) *mockTransport {
	return &mockTransport{
		openFn: func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
			return body, nil
		},
	}
}

func TestStreamDecoder_Chunks(t *testing.T) {
	tests := []struct {
		name     string
		chunks   []string
		expected string
	}{
		{
			name:     "ascii chunks",
			chunks:   []string{"Hel", "lo, ", "world"},
			expected: "Hello, world",
		},
		{
			name:     "multibyte sequence split across chunks",
			chunks:   []string{"caf\xc3", "\xa9 ", "\xe2\x9c", "\x8a fist"},
			expected: "café ✊ fist",
		},
		{
			name:     "invalid bytes become replacement characters",
			chunks:   []string{"ok \xff done"},
			expected: "ok � done",
		},
		{
			name:     "truncated sequence at end of stream",
			chunks:   []string{"end \xe2\x9c"},
			expected: "end �",
		},
		{
			name:     "empty stream",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewStreamDecoder(bodyTransport(newChunkBody(nil, tt.chunks...)), time.Second)

			events := drain(d.Start(context.Background(), domain.AnalysisRequest{Query: "q"}))

			require.NotEmpty(t, events)
			last := events[len(events)-1]
			assert.Equal(t, domain.EventDone, last.Kind)
			assert.Equal(t, tt.expected, joinFragments(events))
			for _, ev := range events[:len(events)-1] {
				assert.Equal(t, domain.EventFragment, ev.Kind)
			}
		})
	}
}

func TestStreamDecoder_SmallBufferNeverSplitsRunes(t *testing.T) {
	d := NewStreamDecoder(bodyTransport(newChunkBody(nil, "ÅÄÖ åäö")), 0)
	d.bufSize = 8

	events := drain(d.Start(context.Background(), domain.AnalysisRequest{}))

	assert.Equal(t, "ÅÄÖ åäö", joinFragments(events))
}

func TestStreamDecoder_OpenFailures(t *testing.T) {
	tests := []struct {
		name   string
		openFn func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error)
		target error
	}{
		{
			name: "rejected request",
			openFn: func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
				return nil, fmt.Errorf("%w: status 500", domain.ErrNetworkFailure)
			},
			target: domain.ErrNetworkFailure,
		},
		{
			name: "missing body",
			openFn: func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
				return nil, nil
			},
			target: domain.ErrNoStreamBody,
		},
		{
			name: "dial error",
			openFn: func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
				return nil, errors.New("connection refused")
			},
			target: domain.ErrDecodeInterrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewStreamDecoder(&mockTransport{openFn: tt.openFn}, time.Second)

			events := drain(d.Start(context.Background(), domain.AnalysisRequest{}))

			require.Len(t, events, 1)
			assert.Equal(t, domain.EventError, events[0].Kind)
			assert.ErrorIs(t, events[0].Err, tt.target)
		})
	}
}

func TestStreamDecoder_InterruptedAfterPartialText(t *testing.T) {
	body := newChunkBody(io.ErrUnexpectedEOF, "Hel", "lo")
	d := NewStreamDecoder(bodyTransport(body), time.Second)

	events := drain(d.Start(context.Background(), domain.AnalysisRequest{}))

	require.NotEmpty(t, events)
	assert.Equal(t, "Hello", joinFragments(events))
	last := events[len(events)-1]
	assert.Equal(t, domain.EventError, last.Kind)
	assert.ErrorIs(t, last.Err, domain.ErrDecodeInterrupted)
	assert.ErrorIs(t, last.Err, io.ErrUnexpectedEOF)
}

func TestStreamDecoder_Stalled(t *testing.T) {
	defer goleak.VerifyNone(t)

	body := newPipeBody()
	d := NewStreamDecoder(bodyTransport(body), 50*time.Millisecond)

	events := d.Start(context.Background(), domain.AnalysisRequest{})
	require.NoError(t, body.send("Hel"))

	got := drain(events)

	require.NotEmpty(t, got)
	assert.Equal(t, "Hel", joinFragments(got))
	last := got[len(got)-1]
	assert.Equal(t, domain.EventError, last.Kind)
	assert.ErrorIs(t, last.Err, domain.ErrStreamStalled)
}

func TestStreamDecoder_StalledBeforeResponse(t *testing.T) {
	transport := &mockTransport{
		openFn: func(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	d := NewStreamDecoder(transport, 30*time.Millisecond)

	events := drain(d.Start(context.Background(), domain.AnalysisRequest{}))

	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, domain.ErrStreamStalled)
}

func TestStreamDecoder_ActivityKeepsStreamAlive(t *testing.T) {
	body := newPipeBody()
	d := NewStreamDecoder(bodyTransport(body), 80*time.Millisecond)

	events := d.Start(context.Background(), domain.AnalysisRequest{})
	go func() {
		for i := 0; i < 5; i++ {
			time.Sleep(30 * time.Millisecond)
			if body.send("x") != nil {
				return
			}
		}
		body.finish()
	}()

	got := drain(events)

	assert.Equal(t, "xxxxx", joinFragments(got))
	assert.Equal(t, domain.EventDone, got[len(got)-1].Kind)
}

func TestStreamDecoder_CanceledClosesWithoutTerminal(t *testing.T) {
	defer goleak.VerifyNone(t)

	body := newPipeBody()
	d := NewStreamDecoder(bodyTransport(body), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	events := d.Start(ctx, domain.AnalysisRequest{})
	require.NoError(t, body.send("partial"))
	cancel()

	got := drain(events)

	for _, ev := range got {
		assert.Equal(t, domain.EventFragment, ev.Kind, "no terminal event after cancel")
	}
}

func TestStreamDecoder_PassesRequest(t *testing.T) {
	transport := bodyTransport(newChunkBody(nil, "ok"))
	d := NewStreamDecoder(transport, 0)
	req := domain.AnalysisRequest{Query: "Summarize", ContextMovements: []string{"A (2011): x"}}

	drain(d.Start(context.Background(), req))

	require.Len(t, transport.Requests(), 1)
	assert.Equal(t, req, transport.Requests()[0])
}
