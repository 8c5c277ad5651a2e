package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// AnalysisStreamer feeds decoded stream events into assistant messages.
// Each stream is consumed by exactly one goroutine that applies its events
// to its own handle in order, so concurrent streams never cross-write.
type AnalysisStreamer struct {
	decoder *StreamDecoder
	session *ChatSession
	wg      sync.WaitGroup
}

// NewAnalysisStreamer creates a streamer writing into session.
func NewAnalysisStreamer(decoder *StreamDecoder, session *ChatSession) *AnalysisStreamer {
	return &AnalysisStreamer{
		decoder: decoder,
		session: session,
	}
}

// Stream starts req and pumps its events into the message addressed by h.
// The stream is canceled when ctx is canceled or the transcript is reset.
func (s *AnalysisStreamer) Stream(ctx context.Context, h domain.MessageHandle, req domain.AnalysisRequest) {
	streamCtx, cancel := context.WithCancel(ctx)
	s.session.Track(h, cancel)

	events := s.decoder.Start(streamCtx, req)
	logger.Debug("stream: started for message %s (%d context lines)", h, len(req.ContextMovements))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.pump(h, events)
	}()
}

// Wait blocks until every started stream has been fully consumed.
func (s *AnalysisStreamer) Wait() {
	s.wg.Wait()
}

func (s *AnalysisStreamer) pump(h domain.MessageHandle, events <-chan domain.StreamEvent) {
	terminal := false
	for ev := range events {
		switch ev.Kind {
		case domain.EventFragment:
			s.session.AppendFragment(h, ev.Text)
		case domain.EventDone:
			terminal = true
			s.session.Complete(h)
		case domain.EventError:
			terminal = true
			s.session.Fail(h, ev.Err)
		}
	}
	if !terminal {
		// Canceled before a terminal event. After a reset the handle is gone
		// and this is a no-op.
		s.session.Fail(h, domain.ErrStreamCancelled)
	}
}
