package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// ChatSession owns the transcript of one search session.
// Every mutation goes through it; consumers only ever see copies.
//
// Assistant messages move pending -> streaming -> complete|error. Terminal
// messages never change again, and operations addressed to handles that are
// no longer in the transcript (after Reset) are ignored.
type ChatSession struct {
	mu       sync.Mutex
	messages []domain.Message
	index    map[domain.MessageHandle]int
	cancels  map[domain.MessageHandle]context.CancelFunc
	done     map[domain.MessageHandle]chan struct{}
	subs     map[int]chan struct{}
	nextSub  int
	epoch    uint64
}

// NewChatSession creates an empty session.
func NewChatSession() *ChatSession {
	return &ChatSession{
		index:   make(map[domain.MessageHandle]int),
		cancels: make(map[domain.MessageHandle]context.CancelFunc),
		done:    make(map[domain.MessageHandle]chan struct{}),
		subs:    make(map[int]chan struct{}),
	}
}

// BeginAssistantMessage appends an empty pending assistant message.
func (s *ChatSession) BeginAssistantMessage() domain.MessageHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.appendLocked(domain.RoleAssistant, "", domain.StatusPending)
	s.done[h] = make(chan struct{})
	logger.Debug("chat: assistant message %s pending", h)
	return h
}

// AppendFragment appends text to the message addressed by h.
// Empty text is a no-op. The first non-empty fragment moves the message
// from pending to streaming. Returns false if the fragment was ignored.
func (s *ChatSession) AppendFragment(h domain.MessageHandle, text string) bool {
	if text == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.lookupLocked(h)
	if msg == nil || msg.Status.IsTerminal() {
		return false
	}
	msg.Content += text
	msg.Status = domain.StatusStreaming
	s.notifyLocked()
	return true
}

// Complete marks the message addressed by h complete.
func (s *ChatSession) Complete(h domain.MessageHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.lookupLocked(h)
	if msg == nil || msg.Status.IsTerminal() {
		return false
	}
	if msg.Content == "" {
		logger.Debug("chat: message %s completed without any text", h)
	}
	msg.Status = domain.StatusComplete
	s.finishLocked(h)
	return true
}

// Fail marks the message addressed by h failed. Partial text is kept and
// followed by an inline interruption marker; a message that never received
// text is replaced by the generic failure text.
func (s *ChatSession) Fail(h domain.MessageHandle, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.lookupLocked(h)
	if msg == nil || msg.Status.IsTerminal() {
		return false
	}
	if msg.Content == "" {
		msg.Content = domain.FailureText
	} else {
		msg.Content += domain.InterruptedMarker(failureReason(err))
	}
	msg.Status = domain.StatusError
	logger.Warn("chat: message %s failed: %v", h, err)
	s.finishLocked(h)
	return true
}

// AddUserMessage appends a complete user message.
func (s *ChatSession) AddUserMessage(text string) domain.MessageHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(domain.RoleUser, text, domain.StatusComplete)
}

// BeginFollowUp appends question as a user message and a pending assistant
// message for its answer in one step. It fails if the transcript has been
// reset since epoch was read, so the pair never lands in a transcript other
// than the one the caller built its request for.
func (s *ChatSession) BeginFollowUp(question string, epoch uint64) (domain.MessageHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return "", false
	}
	s.appendLocked(domain.RoleUser, question, domain.StatusComplete)
	h := s.appendLocked(domain.RoleAssistant, "", domain.StatusPending)
	s.done[h] = make(chan struct{})
	logger.Debug("chat: follow-up answer %s pending", h)
	return h, true
}

// Epoch returns the number of resets so far.
func (s *ChatSession) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// AddGreeting appends the static greeting as a complete assistant message.
func (s *ChatSession) AddGreeting() domain.MessageHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(domain.RoleAssistant, domain.GreetingText, domain.StatusComplete)
}

// Reset clears the transcript. Every outstanding handle becomes invalid and
// every tracked stream is canceled.
func (s *ChatSession) Reset() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for _, cancel := range s.cancels {
		cancels = append(cancels, cancel)
	}
	for _, ch := range s.done {
		close(ch)
	}
	dropped := len(s.messages)
	s.epoch++
	s.messages = nil
	s.index = make(map[domain.MessageHandle]int)
	s.cancels = make(map[domain.MessageHandle]context.CancelFunc)
	s.done = make(map[domain.MessageHandle]chan struct{})
	s.notifyLocked()
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	logger.Debug("chat: transcript reset (%d messages dropped, %d streams canceled)", dropped, len(cancels))
}

// Track registers the cancel func of the stream feeding h. It is called
// when the message reaches a terminal state or the transcript is reset.
// If h is already gone or terminal, cancel is called immediately.
func (s *ChatSession) Track(h domain.MessageHandle, cancel context.CancelFunc) {
	s.mu.Lock()
	msg := s.lookupLocked(h)
	if msg == nil || msg.Status.IsTerminal() {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancels[h] = cancel
	s.mu.Unlock()
}

// Message returns a copy of the message addressed by h.
func (s *ChatSession) Message(h domain.MessageHandle) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.lookupLocked(h)
	if msg == nil {
		return domain.Message{}, false
	}
	return *msg, true
}

// Await blocks until the message addressed by h is terminal.
// Returns domain.ErrNotFound if h is unknown or the transcript is reset first.
func (s *ChatSession) Await(ctx context.Context, h domain.MessageHandle) (domain.Message, error) {
	s.mu.Lock()
	msg := s.lookupLocked(h)
	if msg == nil {
		s.mu.Unlock()
		return domain.Message{}, domain.ErrNotFound
	}
	if msg.Status.IsTerminal() {
		out := *msg
		s.mu.Unlock()
		return out, nil
	}
	done := s.done[h]
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	case <-done:
	}

	if out, ok := s.Message(h); ok {
		return out, nil
	}
	return domain.Message{}, domain.ErrNotFound
}

// Transcript returns a copy of the transcript in order.
func (s *ChatSession) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *ChatSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Subscribe returns a channel signalled after every transcript change.
// Signals coalesce: a slow reader sees one pending value, never a backlog.
func (s *ChatSession) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *ChatSession) appendLocked(role domain.Role, content string, status domain.MessageStatus) domain.MessageHandle {
	h := domain.MessageHandle(uuid.New().String())
	s.index[h] = len(s.messages)
	s.messages = append(s.messages, domain.Message{
		ID:      h.String(),
		Role:    role,
		Content: content,
		Status:  status,
	})
	s.notifyLocked()
	return h
}

func (s *ChatSession) lookupLocked(h domain.MessageHandle) *domain.Message {
	i, ok := s.index[h]
	if !ok {
		return nil
	}
	return &s.messages[i]
}

// finishLocked releases the stream and wakes waiters of a terminal message.
func (s *ChatSession) finishLocked(h domain.MessageHandle) {
	if cancel, ok := s.cancels[h]; ok {
		delete(s.cancels, h)
		cancel()
	}
	if ch, ok := s.done[h]; ok {
		delete(s.done, h)
		close(ch)
	}
	s.notifyLocked()
}

func (s *ChatSession) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// failureReason renders err for the interruption marker.
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrStreamStalled):
		return domain.ErrStreamStalled.Error()
	case errors.Is(err, domain.ErrDecodeInterrupted):
		return domain.ErrDecodeInterrupted.Error()
	default:
		return err.Error()
	}
}
