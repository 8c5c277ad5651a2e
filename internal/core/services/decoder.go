package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// defaultReadBufferSize bounds the text of a single fragment.
const defaultReadBufferSize = 4096

// StreamDecoder turns the chunked synthesis response into text events.
//
// Multi-byte UTF-8 sequences split across chunks are carried over to the
// next read; invalid bytes decode to U+FFFD. Delivered fragments are never
// retracted and a failed stream is not retried.
type StreamDecoder struct {
	transport   driven.AnalysisTransport
	idleTimeout time.Duration
	bufSize     int
}

// NewStreamDecoder creates a decoder over transport. An idleTimeout of zero
// disables the stall watchdog.
func NewStreamDecoder(transport driven.AnalysisTransport, idleTimeout time.Duration) *StreamDecoder {
	return &StreamDecoder{
		transport:   transport,
		idleTimeout: idleTimeout,
		bufSize:     defaultReadBufferSize,
	}
}

// Start opens the stream for req and returns its events. The channel
// carries zero or more Fragment events followed by exactly one Done or
// Error event, then closes. If ctx is canceled the channel closes without
// a terminal event once the request has been torn down.
func (d *StreamDecoder) Start(ctx context.Context, req domain.AnalysisRequest) <-chan domain.StreamEvent {
	events := make(chan domain.StreamEvent, 16)
	go d.run(ctx, req, events)
	return events
}

func (d *StreamDecoder) run(ctx context.Context, req domain.AnalysisRequest, events chan<- domain.StreamEvent) {
	defer close(events)

	send := func(ev domain.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	streamCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var watchdog *time.Timer
	if d.idleTimeout > 0 {
		watchdog = time.AfterFunc(d.idleTimeout, func() {
			cancel(domain.ErrStreamStalled)
		})
		defer watchdog.Stop()
	}

	body, err := d.transport.OpenStream(streamCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		send(domain.Failed(d.classify(streamCtx, err)))
		return
	}
	if body == nil {
		send(domain.Failed(domain.ErrNoStreamBody))
		return
	}
	defer body.Close()

	// Closing the body unblocks a pending read once the stream is canceled or stalls.
	stop := context.AfterFunc(streamCtx, func() { body.Close() })
	defer stop()

	var src io.Reader = body
	if watchdog != nil {
		src = &idleReader{r: body, touch: func() { watchdog.Reset(d.idleTimeout) }}
	}
	reader := unicode.UTF8.NewDecoder().Reader(src)

	buf := make([]byte, d.bufSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 || err == nil {
			if !send(domain.Fragment(string(buf[:n]))) {
				return
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			logger.Debug("stream: closed cleanly")
			send(domain.Done())
			return
		}
		if ctx.Err() != nil {
			return
		}
		send(domain.Failed(d.classify(streamCtx, err)))
		return
	}
}

// classify maps a stream failure to the domain taxonomy.
func (d *StreamDecoder) classify(streamCtx context.Context, err error) error {
	if errors.Is(context.Cause(streamCtx), domain.ErrStreamStalled) {
		return fmt.Errorf("%w: no data for %s", domain.ErrStreamStalled, d.idleTimeout)
	}
	if errors.Is(err, domain.ErrNetworkFailure) || errors.Is(err, domain.ErrNoStreamBody) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrDecodeInterrupted, err)
}

// idleReader reports every read that returns, empty or not.
type idleReader struct {
	r     io.Reader
	touch func()
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.touch()
	return n, err
}
