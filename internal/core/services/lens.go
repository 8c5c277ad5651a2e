package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// Ensure Lens implements the interface.
var _ driving.LensService = (*Lens)(nil)

// Lens wires the search coordinator, analysis trigger, stream decoder and
// chat session into one interactive session.
type Lens struct {
	settings    domain.ClientSettings
	session     *ChatSession
	streamer    *AnalysisStreamer
	trigger     *AnalysisTrigger
	coordinator *SearchCoordinator

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewLens creates a session over the analysis service ports.
// Zero settings fall back to the defaults.
func NewLens(fetcher driven.ResultFetcher, transport driven.AnalysisTransport, settings domain.ClientSettings) *Lens {
	defaults := domain.DefaultAppSettings().Client
	if settings.SettleDelay <= 0 {
		settings.SettleDelay = defaults.SettleDelay
	}
	if settings.ContextDescriptionRunes <= 0 {
		settings.ContextDescriptionRunes = defaults.ContextDescriptionRunes
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := NewChatSession()
	streamer := NewAnalysisStreamer(NewStreamDecoder(transport, settings.StreamIdleTimeout), session)
	trigger := NewAnalysisTrigger(ctx, session, streamer, settings.SettleDelay, settings.ContextDescriptionRunes)

	return &Lens{
		settings:    settings,
		session:     session,
		streamer:    streamer,
		trigger:     trigger,
		coordinator: NewSearchCoordinator(fetcher, session, trigger, settings.RequestTimeout),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit runs a search.
func (l *Lens) Submit(ctx context.Context, query string) domain.SearchOutcome {
	logger.Section("Search")
	return l.coordinator.Submit(ctx, query)
}

// Ask appends question as a user message and streams the answer about the
// current results. Follow-ups bypass fingerprint deduplication and the
// settle delay.
func (l *Lens) Ask(question string) (domain.MessageHandle, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return "", fmt.Errorf("lens session closed")
	}

	// A search accepted between reading the results and opening the answer
	// resets the transcript; retry against the new results.
	for {
		epoch := l.session.Epoch()
		req := domain.NewFollowUpRequest(question, l.coordinator.Results(), l.settings.ContextDescriptionRunes)
		h, ok := l.session.BeginFollowUp(question, epoch)
		if !ok {
			logger.Debug("lens: transcript reset while asking, retrying")
			continue
		}
		l.streamer.Stream(l.ctx, h, req)
		return h, nil
	}
}

// Await blocks until the message addressed by h is terminal.
func (l *Lens) Await(ctx context.Context, h domain.MessageHandle) (domain.Message, error) {
	return l.session.Await(ctx, h)
}

// AwaitSynthesis blocks until the first assistant message of the current
// transcript is terminal. The greeting counts.
func (l *Lens) AwaitSynthesis(ctx context.Context) (domain.Message, error) {
	updates, unsubscribe := l.session.Subscribe()
	defer unsubscribe()

	for {
		for _, msg := range l.session.Transcript() {
			if msg.Role != domain.RoleAssistant {
				continue
			}
			if msg.Status.IsTerminal() {
				return msg, nil
			}
			break
		}
		select {
		case <-ctx.Done():
			return domain.Message{}, ctx.Err()
		case <-updates:
		}
	}
}

// Transcript returns a copy of the transcript.
func (l *Lens) Transcript() []domain.Message {
	return l.session.Transcript()
}

// Results returns the current result set.
func (l *Lens) Results() domain.ResultSet {
	return l.coordinator.Results()
}

// Query returns the query of the current result set.
func (l *Lens) Query() string {
	return l.coordinator.Query()
}

// Searching reports whether the latest search is in flight.
func (l *Lens) Searching() bool {
	return l.coordinator.Searching()
}

// Subscribe returns a coalescing transcript change notification channel.
func (l *Lens) Subscribe() (<-chan struct{}, func()) {
	return l.session.Subscribe()
}

// Close stops pending analyses, cancels running streams and waits for them.
func (l *Lens) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.trigger.Close()
	l.cancel()
	l.streamer.Wait()
	return nil
}
