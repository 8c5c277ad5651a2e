package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// DefaultSettleDelay is how long results must stay put before an automatic
// synthesis starts.
const DefaultSettleDelay = 800 * time.Millisecond

// synthesisStarter starts a stream into an assistant message.
type synthesisStarter interface {
	Stream(ctx context.Context, h domain.MessageHandle, req domain.AnalysisRequest)
}

// AnalysisTrigger decides when accepted results get an automatic synthesis.
//
// A synthesis starts only for a non-empty query with non-empty results whose
// fingerprint differs from the last one triggered, and only after the
// results have been left alone for the settle delay. Every new observation
// cancels a pending start, so only the last one in a burst fires.
type AnalysisTrigger struct {
	ctx              context.Context
	session          *ChatSession
	starter          synthesisStarter
	settle           time.Duration
	descriptionRunes int

	mu            sync.Mutex
	lastTriggered domain.Fingerprint
	analysed      bool
	greeted       bool
	timer         *time.Timer
	token         uint64
	closed        bool
}

// NewAnalysisTrigger creates a trigger. Streams it starts inherit ctx.
func NewAnalysisTrigger(
	ctx context.Context,
	session *ChatSession,
	starter synthesisStarter,
	settle time.Duration,
	descriptionRunes int,
) *AnalysisTrigger {
	return &AnalysisTrigger{
		ctx:              ctx,
		session:          session,
		starter:          starter,
		settle:           settle,
		descriptionRunes: descriptionRunes,
	}
}

// Observe is called once per accepted result publication.
func (t *AnalysisTrigger) Observe(query string, results domain.ResultSet) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.cancelLocked()

	if query == "" {
		if !t.analysed && !t.greeted {
			t.greeted = true
			t.session.AddGreeting()
			logger.Debug("trigger: greeting shown")
		}
		return
	}
	if len(results) == 0 {
		logger.Debug("trigger: no results for %q, nothing to analyse", query)
		return
	}

	fp := domain.NewFingerprint(query, results)
	if fp == t.lastTriggered {
		logger.Debug("trigger: %q already analysed, skipping", query)
		return
	}

	snapshot := make(domain.ResultSet, len(results))
	copy(snapshot, results)
	token := t.token
	t.timer = time.AfterFunc(t.settle, func() {
		t.fire(token, fp, query, snapshot)
	})
	logger.Debug("trigger: analysis of %q scheduled in %s", query, t.settle)
}

// CancelPending drops a scheduled start that has not fired yet.
func (t *AnalysisTrigger) CancelPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Pending reports whether a start is scheduled.
func (t *AnalysisTrigger) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// LastTriggered returns the fingerprint of the last automatic synthesis.
func (t *AnalysisTrigger) LastTriggered() domain.Fingerprint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTriggered
}

// Close cancels any pending start. Later observations are ignored.
func (t *AnalysisTrigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.closed = true
}

// cancelLocked stops the timer and invalidates a callback that already fired
// but has not acquired the lock yet.
func (t *AnalysisTrigger) cancelLocked() {
	t.token++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// fire starts the synthesis. The message is opened and its stream tracked
// under the trigger lock, so a superseding publication either sees the
// tracked stream in the transcript it resets or invalidates this call.
func (t *AnalysisTrigger) fire(token uint64, fp domain.Fingerprint, query string, results domain.ResultSet) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || token != t.token {
		return
	}
	t.timer = nil
	t.lastTriggered = fp
	t.analysed = true

	logger.Debug("trigger: starting analysis of %q (%d results)", query, len(results))
	h := t.session.BeginAssistantMessage()
	t.starter.Stream(t.ctx, h, domain.NewSummaryRequest(query, results, t.descriptionRunes))
}
